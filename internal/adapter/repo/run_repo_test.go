package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"videogen/internal/domain"
	"videogen/internal/infra"
)

type execCall struct {
	query string
	args  []any
}

type fakeExecutor struct {
	execs    []execCall
	execErr  error
	affected int64
	row      pgx.Row
	rows     pgx.Rows
}

func (f *fakeExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{query: query, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", f.affected)), nil
}

func (f *fakeExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return f.row
}

func (f *fakeExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return f.rows, nil
}

type scanRow func(dest ...any) error

func (s scanRow) Scan(dest ...any) error { return s(dest...) }

func fillRun(id string, started time.Time) func(dest ...any) error {
	return func(dest ...any) error {
		if len(dest) != 10 {
			return fmt.Errorf("dest len = %d", len(dest))
		}
		*dest[0].(*string) = id
		*dest[1].(*string) = "wan_t2v_basic"
		*dest[2].(*string) = "video_" + id
		*dest[3].(*json.RawMessage) = json.RawMessage(`{"prompt":"a cat"}`)
		*dest[4].(*string) = "success"
		*dest[5].(*string) = ""
		*dest[6].(*string) = "/tmp/" + id + ".mp4"
		*dest[7].(*int) = 3
		*dest[8].(*time.Time) = started
		return nil
	}
}

type fakeRows struct {
	scans []func(dest ...any) error
	idx   int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, errors.New("not supported") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.scans) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return r.scans[r.idx-1](dest...) }

func TestRunRepositoryCreateDefaults(t *testing.T) {
	exec := &fakeExecutor{affected: 1}
	repo := NewRunRepository(exec)

	run := &domain.Run{ID: "run-1", Name: "wan_t2v_basic"}
	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if run.Outcome != "pending" {
		t.Fatalf("Outcome = %q, want pending", run.Outcome)
	}
	if run.StartedAt.IsZero() {
		t.Fatalf("StartedAt not populated")
	}
	if len(exec.execs) != 1 {
		t.Fatalf("exec calls = %d, want 1", len(exec.execs))
	}
	call := exec.execs[0]
	if _, _, err := infra.ExtractMarker(call.query); err != nil {
		t.Fatalf("query not marked: %v", err)
	}
	if string(call.args[3].([]byte)) != "{}" {
		t.Fatalf("request json = %s, want {}", call.args[3])
	}
}

func TestRunRepositoryCreateRequiresID(t *testing.T) {
	repo := NewRunRepository(&fakeExecutor{})
	if err := repo.Create(context.Background(), &domain.Run{}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestRunRepositoryFinish(t *testing.T) {
	exec := &fakeExecutor{affected: 1}
	repo := NewRunRepository(exec)

	run := &domain.Run{ID: "run-1", Handle: "video_1", Outcome: "timed_out", ErrorMessage: "deadline", Polls: 3}
	if err := repo.Finish(context.Background(), run); err != nil {
		t.Fatalf("Finish error: %v", err)
	}
	if run.FinishedAt == nil {
		t.Fatalf("FinishedAt not set")
	}
	args := exec.execs[0].args
	if args[1] != "video_1" || args[2] != "timed_out" || args[5] != 3 {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestRunRepositoryFinishUnknownRun(t *testing.T) {
	repo := NewRunRepository(&fakeExecutor{affected: 0})
	err := repo.Finish(context.Background(), &domain.Run{ID: "missing", Outcome: "success"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunRepositoryGetByID(t *testing.T) {
	started := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRunRepository(&fakeExecutor{row: scanRow(fillRun("run-7", started))})

	run, err := repo.GetByID(context.Background(), "run-7")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if run.Handle != "video_run-7" || run.Polls != 3 || !run.StartedAt.Equal(started) {
		t.Fatalf("unexpected run: %#v", run)
	}
	if !strings.Contains(string(run.RequestJSON), "a cat") {
		t.Fatalf("request json = %s", run.RequestJSON)
	}
}

func TestRunRepositoryGetByIDNotFound(t *testing.T) {
	repo := NewRunRepository(&fakeExecutor{row: scanRow(func(...any) error { return pgx.ErrNoRows })})
	if _, err := repo.GetByID(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunRepositoryListRecent(t *testing.T) {
	now := time.Now().UTC()
	rows := &fakeRows{scans: []func(dest ...any) error{
		fillRun("b", now),
		fillRun("a", now.Add(-time.Minute)),
	}}
	repo := NewRunRepository(&fakeExecutor{rows: rows})

	runs, err := repo.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecent error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "b" || runs[1].ID != "a" {
		t.Fatalf("unexpected runs: %#v", runs)
	}
}
