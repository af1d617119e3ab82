package jobclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"videogen/internal/domain"
)

func TestStatusPollerCompletes(t *testing.T) {
	clock := newFakeClock()
	ft := &fakeTransport{script: []pollStep{
		{state: domain.JobStateQueued},
		{state: domain.JobStateRunning, progress: 40},
		{state: domain.JobStateCompleted, progress: 100},
	}}
	obs := &recordingObserver{}
	p, err := NewStatusPoller(ft, PollerConfig{Interval: 5 * time.Second, Clock: clock}, obs)
	if err != nil {
		t.Fatalf("NewStatusPoller error: %v", err)
	}

	status, polls, err := p.Wait(context.Background(), "video_test", clock.Now().Add(30*time.Second))
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if status.State != domain.JobStateCompleted || polls != 3 {
		t.Fatalf("status=%s polls=%d, want completed/3", status.State, polls)
	}
	if len(obs.statuses) != 3 || obs.statuses[1].Progress != 40 {
		t.Fatalf("observed statuses = %#v", obs.statuses)
	}
}

func TestStatusPollerTimesOutBeforeNextPoll(t *testing.T) {
	clock := newFakeClock()
	ft := &fakeTransport{}
	p, _ := NewStatusPoller(ft, PollerConfig{Interval: 5 * time.Second, Clock: clock}, nil)

	start := clock.Now()
	status, polls, err := p.Wait(context.Background(), "video_test", start.Add(10*time.Second))
	if !errors.Is(err, domain.ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
	if status.State != domain.JobStateQueued {
		t.Fatalf("last status = %s", status.State)
	}
	if polls != 2 {
		t.Fatalf("polls = %d, want 2", polls)
	}
	if _, got, _ := ft.counts(); got != polls {
		t.Fatalf("transport polls = %d, reported %d", got, polls)
	}
}

func TestStatusPollerLateCompletedWins(t *testing.T) {
	clock := newFakeClock()
	deadline := clock.Now().Add(time.Second)
	ft := &fakeTransport{
		script: []pollStep{{state: domain.JobStateCompleted}},
		onPoll: func(int) { clock.Advance(time.Minute) },
	}
	p, _ := NewStatusPoller(ft, PollerConfig{Interval: time.Second, Clock: clock}, nil)

	status, _, err := p.Wait(context.Background(), "video_test", deadline)
	if err != nil || status.State != domain.JobStateCompleted {
		t.Fatalf("status=%s err=%v, want completed", status.State, err)
	}
}

func TestStatusPollerTransportErrorNotRetried(t *testing.T) {
	clock := newFakeClock()
	terr := &domain.TransportError{Op: domain.OpPoll, StatusCode: 500, Err: errBoom}
	ft := &fakeTransport{script: []pollStep{{state: domain.JobStateRunning}, {err: terr}}}
	p, _ := NewStatusPoller(ft, PollerConfig{Interval: time.Second, Clock: clock}, nil)

	_, polls, err := p.Wait(context.Background(), "video_test", clock.Now().Add(time.Hour))
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err = %v, want transport", err)
	}
	if polls != 2 {
		t.Fatalf("polls = %d, want 2", polls)
	}
}

func TestStatusPollerHonoursCancellation(t *testing.T) {
	clock := newFakeClock()
	clock.block = true
	ctx, cancel := context.WithCancel(context.Background())
	ft := &fakeTransport{onPoll: func(int) { cancel() }}
	p, _ := NewStatusPoller(ft, PollerConfig{Interval: time.Second, Clock: clock}, nil)

	_, polls, err := p.Wait(ctx, "video_test", clock.Now().Add(time.Hour))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if polls != 1 {
		t.Fatalf("polls = %d, want 1", polls)
	}
}

func TestNewStatusPollerValidation(t *testing.T) {
	if _, err := NewStatusPoller(nil, PollerConfig{}, nil); err == nil {
		t.Fatalf("expected error for nil poller")
	}
	if _, err := NewStatusPoller(&fakeTransport{}, PollerConfig{Interval: -time.Second}, nil); err == nil {
		t.Fatalf("expected error for negative interval")
	}
	p, err := NewStatusPoller(&fakeTransport{}, PollerConfig{}, nil)
	if err != nil {
		t.Fatalf("NewStatusPoller error: %v", err)
	}
	if p.Interval() != defaultPollInterval {
		t.Fatalf("interval = %s, want default", p.Interval())
	}
}
