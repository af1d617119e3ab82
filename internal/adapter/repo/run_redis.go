package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"videogen/internal/domain"
)

const (
	redisRunPrefix = "videogen:run:"
	redisRunIndex  = "videogen:runs"
)

// RunRepositoryRedis implements domain.RunRepository on Redis.
// Keys: videogen:run:<id> holds the JSON record; the videogen:runs sorted
// set indexes ids by start time.
type RunRepositoryRedis struct {
	client *redis.Client
}

func NewRunRepositoryRedis(client *redis.Client) *RunRepositoryRedis {
	return &RunRepositoryRedis{client: client}
}

type redisRun struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Handle       string          `json:"handle,omitempty"`
	Request      json.RawMessage `json:"request,omitempty"`
	Outcome      string          `json:"outcome"`
	ErrorMessage string          `json:"error,omitempty"`
	ArtifactPath string          `json:"artifact_path,omitempty"`
	Polls        int             `json:"polls"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

func toRedisRun(run *domain.Run) redisRun {
	return redisRun{
		ID:           run.ID,
		Name:         run.Name,
		Handle:       run.Handle.String(),
		Request:      nullableJSON(run.RequestJSON),
		Outcome:      run.Outcome,
		ErrorMessage: run.ErrorMessage,
		ArtifactPath: run.ArtifactPath,
		Polls:        run.Polls,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}
}

func (r redisRun) toDomain() *domain.Run {
	return &domain.Run{
		ID:           r.ID,
		Name:         r.Name,
		Handle:       domain.JobHandle(r.Handle),
		RequestJSON:  r.Request,
		Outcome:      r.Outcome,
		ErrorMessage: r.ErrorMessage,
		ArtifactPath: r.ArtifactPath,
		Polls:        r.Polls,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
}

// applyFinish copies the terminal fields of update onto rec.
func applyFinish(rec *redisRun, update *domain.Run, finished time.Time) {
	if h := update.Handle.String(); h != "" {
		rec.Handle = h
	}
	rec.Outcome = update.Outcome
	rec.ErrorMessage = update.ErrorMessage
	rec.ArtifactPath = update.ArtifactPath
	rec.Polls = update.Polls
	rec.FinishedAt = &finished
}

func (r *RunRepositoryRedis) key(id string) string { return redisRunPrefix + id }

func (r *RunRepositoryRedis) Create(ctx context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return errors.New("repo: run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Outcome == "" {
		run.Outcome = "pending"
	}
	b, err := json.Marshal(toRedisRun(run))
	if err != nil {
		return fmt.Errorf("repo: encode run: %w", err)
	}
	created, err := r.client.SetNX(ctx, r.key(run.ID), b, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("repo: run %s already exists", run.ID)
	}
	return r.client.ZAdd(ctx, redisRunIndex, redis.Z{Score: float64(run.StartedAt.UnixNano()), Member: run.ID}).Err()
}

func (r *RunRepositoryRedis) Finish(ctx context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return errors.New("repo: run id is required")
	}
	rec, err := r.load(ctx, run.ID)
	if err != nil {
		return err
	}
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	applyFinish(rec, run, finished)
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("repo: encode run: %w", err)
	}
	if err := r.client.Set(ctx, r.key(run.ID), b, 0).Err(); err != nil {
		return err
	}
	run.FinishedAt = &finished
	return nil
}

func (r *RunRepositoryRedis) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	rec, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *RunRepositoryRedis) ListRecent(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := r.client.ZRevRange(ctx, redisRunIndex, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	runs := make([]domain.Run, 0, len(ids))
	for _, id := range ids {
		rec, err := r.load(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec.toDomain())
	}
	return runs, nil
}

func (r *RunRepositoryRedis) load(ctx context.Context, id string) (*redisRun, error) {
	val, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec redisRun
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("repo: decode run %s: %w", id, err)
	}
	return &rec, nil
}

var _ domain.RunRepository = (*RunRepositoryRedis)(nil)
