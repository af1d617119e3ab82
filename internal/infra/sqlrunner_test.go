package infra

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestExtractMarker(t *testing.T) {
	query := `--sql 0b9f6c1e-2f0a-4d59-9c1e-7a3d1f2b8c40
select 1;
`
	marker, body, err := ExtractMarker(query)
	if err != nil {
		t.Fatalf("ExtractMarker error: %v", err)
	}
	if marker != "0b9f6c1e-2f0a-4d59-9c1e-7a3d1f2b8c40" {
		t.Fatalf("marker = %q", marker)
	}
	if body != "select 1;" {
		t.Fatalf("body = %q", body)
	}
}

func TestExtractMarkerRejectsUnmarkedQuery(t *testing.T) {
	for _, q := range []string{"", "select 1;", "--sql not-a-uuid\nselect 1;"} {
		if _, _, err := ExtractMarker(q); err == nil {
			t.Fatalf("expected error for %q", q)
		}
	}
}

func TestErrorRowScan(t *testing.T) {
	row := errorRow{err: fmt.Errorf("boom")}
	if err := row.Scan(); err == nil || err.Error() != "boom" {
		t.Fatalf("Scan error = %v", err)
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)) {
		t.Fatalf("expected wrapped ErrNoRows to match")
	}
	if IsNoRows(fmt.Errorf("other")) {
		t.Fatalf("unexpected match")
	}
}
