package main

import (
	"context"
	"time"

	"videogen/internal/domain"
	"videogen/internal/domain/jsoncfg"
	"videogen/internal/infra"
	"videogen/internal/jobclient"
)

// ledger records runs when a repository is configured and is a no-op
// otherwise. Ledger failures are logged, never fatal.
type ledger struct {
	repo   domain.RunRepository
	logger *infra.Logger
}

func (l *ledger) start(ctx context.Context, id string, doc jsoncfg.RequestJSON) {
	if l.repo == nil {
		return
	}
	run := &domain.Run{
		ID:          id,
		Name:        doc.Name,
		RequestJSON: jsoncfg.MustMarshal(doc),
		StartedAt:   time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, run); err != nil {
		l.logger.Warn().Err(err).Str("run_id", id).Msg("videogen: ledger create failed")
	}
}

func (l *ledger) finish(ctx context.Context, id string, res *jobclient.Result, runErr error, path string) {
	if l.repo == nil {
		return
	}
	run := &domain.Run{
		ID:           id,
		Outcome:      domain.ClassifyError(runErr),
		ArtifactPath: path,
	}
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	if res != nil {
		run.Handle = res.Handle
		run.Polls = res.Polls
	}
	if err := l.repo.Finish(context.WithoutCancel(ctx), run); err != nil {
		l.logger.Warn().Err(err).Str("run_id", id).Msg("videogen: ledger finish failed")
	}
}
