package jobclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"videogen/internal/domain"
)

const defaultPollInterval = 5 * time.Second

// Poller is the status half of the remote protocol.
type Poller interface {
	Poll(ctx context.Context, handle domain.JobHandle) (domain.JobStatus, error)
}

// PollerConfig tunes the poll cadence.
type PollerConfig struct {
	Interval time.Duration
	Clock    Clock
}

// StatusPoller drives the poll loop for one job at a time. It holds no
// per-job state so a single poller may serve many concurrent waits.
type StatusPoller struct {
	poller   Poller
	interval time.Duration
	clock    Clock
	observer Observer
}

func NewStatusPoller(p Poller, cfg PollerConfig, observer Observer) (*StatusPoller, error) {
	if p == nil {
		return nil, errors.New("jobclient: poller is required")
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultPollInterval
	}
	if interval < 0 {
		return nil, fmt.Errorf("jobclient: poll interval must be positive, got %s", cfg.Interval)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &StatusPoller{poller: p, interval: interval, clock: clock, observer: observer}, nil
}

// Wait polls handle until it reaches a terminal state or deadline passes.
// It returns the last observed status and the number of polls issued.
//
// A terminal status returned by a poll always wins. The deadline is only
// checked between polls, so a job is never polled again once it has expired.
// Transport failures end the wait immediately and are not retried.
func (p *StatusPoller) Wait(ctx context.Context, handle domain.JobHandle, deadline time.Time) (domain.JobStatus, int, error) {
	var (
		last  domain.JobStatus
		polls int
	)
	for {
		if polls > 0 && !p.clock.Now().Before(deadline) {
			return last, polls, timedOut(handle, last)
		}
		if err := ctx.Err(); err != nil {
			return last, polls, fmt.Errorf("jobclient: wait for %s: %w", handle, err)
		}

		status, err := p.poller.Poll(ctx, handle)
		polls++
		if err != nil {
			return last, polls, err
		}
		last = status
		p.observer.StatusObserved(status)

		if status.State.Terminal() {
			return status, polls, nil
		}
		if !p.clock.Now().Before(deadline) {
			return last, polls, timedOut(handle, last)
		}

		select {
		case <-ctx.Done():
			return last, polls, fmt.Errorf("jobclient: wait for %s: %w", handle, ctx.Err())
		case <-p.clock.After(p.interval):
		}
	}
}

// Interval reports the configured poll cadence.
func (p *StatusPoller) Interval() time.Duration {
	return p.interval
}

func timedOut(handle domain.JobHandle, last domain.JobStatus) error {
	if last.State == "" {
		return fmt.Errorf("jobclient: job %s: %w", handle, domain.ErrTimedOut)
	}
	return fmt.Errorf("jobclient: job %s still %s: %w", handle, last.State, domain.ErrTimedOut)
}
