package domain

import "context"

// RunRepository persists the run ledger.
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	Finish(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, id string) (*Run, error)
	ListRecent(ctx context.Context, limit int) ([]Run, error)
}
