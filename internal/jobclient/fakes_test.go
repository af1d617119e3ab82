package jobclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"videogen/internal/domain"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	block bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// After advances virtual time immediately unless the clock is blocked, in
// which case the returned channel never fires.
func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	if c.block {
		return nil
	}
	c.Advance(d)
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

type pollStep struct {
	state    domain.JobState
	progress int
	message  string
	err      error
}

type fakeTransport struct {
	mu sync.Mutex

	handle    domain.JobHandle
	createErr error
	script    []pollStep
	onPoll    func(call int)

	fetchData []byte
	fetchType string
	fetchErr  error

	createCalls int
	pollCalls   int
	fetchCalls  int
}

func (f *fakeTransport) Create(ctx context.Context, req domain.GenerationRequest) (domain.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return domain.JobStatus{}, f.createErr
	}
	handle := f.handle
	if handle == "" {
		handle = "video_test"
	}
	return domain.JobStatus{Handle: handle, State: domain.JobStateQueued}, nil
}

func (f *fakeTransport) Poll(ctx context.Context, handle domain.JobHandle) (domain.JobStatus, error) {
	f.mu.Lock()
	f.pollCalls++
	call := f.pollCalls
	var step pollStep
	switch {
	case len(f.script) == 0:
		step = pollStep{state: domain.JobStateQueued}
	case call <= len(f.script):
		step = f.script[call-1]
	default:
		step = f.script[len(f.script)-1]
	}
	hook := f.onPoll
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if step.err != nil {
		return domain.JobStatus{}, step.err
	}
	return domain.JobStatus{
		Handle:      handle,
		State:       step.state,
		Progress:    step.progress,
		HasProgress: step.progress > 0,
		Message:     step.message,
	}, nil
}

func (f *fakeTransport) Fetch(ctx context.Context, handle domain.JobHandle) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, "", f.fetchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	return f.fetchData, f.fetchType, nil
}

func (f *fakeTransport) counts() (create, poll, fetch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.pollCalls, f.fetchCalls
}

type recordingObserver struct {
	mu        sync.Mutex
	submitted []domain.JobHandle
	statuses  []domain.JobStatus
	finished  []domain.Outcome
	errs      []error
	artifacts int
}

func (r *recordingObserver) JobSubmitted(handle domain.JobHandle, req domain.GenerationRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, handle)
}

func (r *recordingObserver) StatusObserved(status domain.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recordingObserver) JobFinished(handle domain.JobHandle, outcome domain.Outcome, err error, waited time.Duration, polls int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, outcome)
	r.errs = append(r.errs, err)
}

func (r *recordingObserver) ArtifactRetrieved(handle domain.JobHandle, artifact *domain.Artifact, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		r.artifacts++
	}
}

var errBoom = errors.New("boom")

func sampleRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		Prompt:    "a cat",
		Width:     640,
		Height:    480,
		NumFrames: 16,
		FPS:       8,
		Seed:      1,
		Params:    domain.TuningParams{domain.ParamInferenceSteps: 4},
	}
}
