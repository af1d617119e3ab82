package jobclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"videogen/internal/domain"
	"videogen/internal/infra"
)

const defaultMaxWait = 600 * time.Second

// Transport is the three-call protocol spoken by the remote service.
type Transport interface {
	Create(ctx context.Context, req domain.GenerationRequest) (domain.JobStatus, error)
	Poller
	ContentSource
}

// State is the client-side lifecycle of a handle.
type State string

const (
	StateUnknown          State = ""
	StateSubmitted        State = "submitted"
	StatePolling          State = "polling"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
	StateTimedOut         State = "timed_out"
	StateTransportErrored State = "transport_errored"
	StateRetrieving       State = "retrieving"
	StateRetrieved        State = "retrieved"
	StateRetrievalFailed  State = "retrieval_failed"
)

// Terminal reports whether the handle can no longer be polled.
func (s State) Terminal() bool {
	switch s {
	case StateUnknown, StateSubmitted, StatePolling:
		return false
	default:
		return true
	}
}

// ErrHandleBusy is returned when a handle is already being awaited or
// retrieved by another caller.
var ErrHandleBusy = errors.New("job handle busy")

// Config holds the facade's timing knobs.
type Config struct {
	PollInterval time.Duration
	MaxWait      time.Duration
	Clock        Clock
}

type Option func(*Client)

func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

func WithLogger(l *infra.Logger) Option {
	return func(c *Client) {
		c.logger = infra.LoggerOrDiscard(l)
	}
}

type entry struct {
	state       State
	submittedAt time.Time
	last        domain.JobStatus
	polls       int
}

// Client composes submit, poll and fetch into one job lifecycle and enforces
// the per-handle ordering: no poll after a terminal outcome and no fetch
// before completion. It is safe for concurrent use across handles.
type Client struct {
	transport Transport
	poller    *StatusPoller
	fetcher   *ArtifactFetcher
	clock     Clock
	maxWait   time.Duration
	observer  Observer
	logger    *infra.Logger

	mu   sync.Mutex
	jobs map[domain.JobHandle]*entry
}

// Result is the full record of a Run, populated as far as the run got.
type Result struct {
	Handle   domain.JobHandle
	Outcome  domain.Outcome
	Artifact *domain.Artifact
	Polls    int
	Waited   time.Duration
}

func New(t Transport, cfg Config, opts ...Option) (*Client, error) {
	if t == nil {
		return nil, errors.New("jobclient: transport is required")
	}
	maxWait := cfg.MaxWait
	if maxWait == 0 {
		maxWait = defaultMaxWait
	}
	if maxWait < 0 {
		return nil, fmt.Errorf("jobclient: max wait must be positive, got %s", cfg.MaxWait)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	c := &Client{
		transport: t,
		clock:     clock,
		maxWait:   maxWait,
		observer:  NopObserver{},
		logger:    infra.LoggerOrDiscard(nil),
		jobs:      make(map[domain.JobHandle]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	poller, err := NewStatusPoller(t, PollerConfig{Interval: cfg.PollInterval, Clock: clock}, c.observer)
	if err != nil {
		return nil, err
	}
	c.poller = poller
	c.fetcher = NewArtifactFetcher(t, c.observer)
	return c, nil
}

// Submit validates req and creates a remote job.
func (c *Client) Submit(ctx context.Context, req domain.GenerationRequest) (domain.JobHandle, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	status, err := c.transport.Create(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("jobclient: submit: %w", ctxErr)
		}
		return "", err
	}

	c.mu.Lock()
	c.jobs[status.Handle] = &entry{
		state:       StateSubmitted,
		submittedAt: c.clock.Now(),
		last:        status,
	}
	c.mu.Unlock()

	c.observer.JobSubmitted(status.Handle, req)
	return status.Handle, nil
}

// Await polls handle until it is terminal or maxWait has elapsed since
// submission. A non-positive maxWait uses the configured default.
//
// Failed and timed-out jobs return both the Outcome and an error
// (*domain.JobFailedError or domain.ErrTimedOut). A transport failure
// returns only the error, even when it wraps the transport's own timeout.
// Cancelling ctx returns the context error and leaves the handle awaitable
// again.
func (c *Client) Await(ctx context.Context, handle domain.JobHandle, maxWait time.Duration) (domain.Outcome, error) {
	if maxWait <= 0 {
		maxWait = c.maxWait
	}

	c.mu.Lock()
	e, ok := c.jobs[handle]
	if !ok {
		e = &entry{state: StateSubmitted, submittedAt: c.clock.Now()}
		c.jobs[handle] = e
	}
	switch {
	case e.state == StatePolling:
		c.mu.Unlock()
		return domain.Outcome{}, fmt.Errorf("jobclient: await %s: %w", handle, ErrHandleBusy)
	case e.state != StateSubmitted:
		state := e.state
		c.mu.Unlock()
		return domain.Outcome{}, fmt.Errorf("jobclient: await %s in state %s: %w", handle, state, domain.ErrHandleClosed)
	}
	e.state = StatePolling
	submittedAt := e.submittedAt
	c.mu.Unlock()

	deadline := submittedAt.Add(maxWait)
	status, polls, err := c.poller.Wait(ctx, handle, deadline)
	waited := c.clock.Now().Sub(submittedAt)

	var (
		next    State
		outcome domain.Outcome
	)
	switch {
	case err == nil && status.State == domain.JobStateCompleted:
		next = StateCompleted
		outcome = domain.Outcome{Kind: domain.OutcomeSuccess, Status: status}
	case err == nil && status.State == domain.JobStateFailed:
		next = StateFailed
		outcome = domain.Outcome{Kind: domain.OutcomeFailed, Status: status, Reason: status.Message}
		err = &domain.JobFailedError{Handle: handle, Message: status.Message}
	case errors.Is(err, domain.ErrTimedOut):
		next = StateTimedOut
		outcome = domain.Outcome{Kind: domain.OutcomeTimedOut, Status: status, Reason: err.Error()}
		// No cancel endpoint exists; the remote job keeps running.
		c.logger.Warn().
			Str("handle", handle.String()).
			Str("last_status", string(status.State)).
			Dur("max_wait", maxWait).
			Msg("jobclient: abandoning job after deadline")
	case ctx.Err() != nil:
		// Caller abort, whatever the transport wrapped around it.
		next = StateSubmitted
		err = fmt.Errorf("jobclient: wait for %s: %w", handle, ctx.Err())
	default:
		next = StateTransportErrored
	}

	c.mu.Lock()
	e.state = next
	e.polls += polls
	if status.State != "" {
		e.last = status
	}
	c.mu.Unlock()

	if next != StateSubmitted {
		c.observer.JobFinished(handle, outcome, err, waited, polls)
	}
	return outcome, err
}

// Retrieve downloads the artifact of a completed handle. It may succeed at
// most once per handle. Once the fetch has started it runs to completion
// even if ctx is cancelled, bounded by the transport's own fetch timeout.
func (c *Client) Retrieve(ctx context.Context, handle domain.JobHandle, name string) (*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("jobclient: retrieve %s: %w", handle, err)
	}

	c.mu.Lock()
	e, ok := c.jobs[handle]
	switch {
	case !ok:
		c.mu.Unlock()
		return nil, fmt.Errorf("jobclient: retrieve unknown handle %s: %w", handle, domain.ErrHandleClosed)
	case e.state == StateRetrieving:
		c.mu.Unlock()
		return nil, fmt.Errorf("jobclient: retrieve %s: %w", handle, ErrHandleBusy)
	case e.state != StateCompleted:
		state := e.state
		c.mu.Unlock()
		return nil, fmt.Errorf("jobclient: retrieve %s in state %s: %w", handle, state, domain.ErrHandleClosed)
	}
	e.state = StateRetrieving
	c.mu.Unlock()

	artifact, err := c.fetcher.Fetch(context.WithoutCancel(ctx), handle, name)

	c.mu.Lock()
	if err != nil {
		e.state = StateRetrievalFailed
	} else {
		e.state = StateRetrieved
	}
	c.mu.Unlock()
	return artifact, err
}

// Run executes the whole lifecycle for one request and returns the artifact.
func (c *Client) Run(ctx context.Context, req domain.GenerationRequest, maxWait time.Duration, name string) (*domain.Artifact, error) {
	res, err := c.Execute(ctx, req, maxWait, name)
	if err != nil {
		return nil, err
	}
	return res.Artifact, nil
}

// Execute is Run with the intermediate bookkeeping exposed. The returned
// Result is never nil.
func (c *Client) Execute(ctx context.Context, req domain.GenerationRequest, maxWait time.Duration, name string) (*Result, error) {
	res := &Result{}
	handle, err := c.Submit(ctx, req)
	if err != nil {
		return res, err
	}
	res.Handle = handle

	outcome, err := c.Await(ctx, handle, maxWait)
	res.Outcome = outcome
	c.mu.Lock()
	if e, ok := c.jobs[handle]; ok {
		res.Polls = e.polls
		res.Waited = c.clock.Now().Sub(e.submittedAt)
	}
	c.mu.Unlock()
	if err != nil {
		return res, err
	}

	artifact, err := c.Retrieve(ctx, handle, name)
	if err != nil {
		return res, err
	}
	res.Artifact = artifact
	return res, nil
}

// State returns the lifecycle state of handle, or StateUnknown.
func (c *Client) State(handle domain.JobHandle) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.jobs[handle]; ok {
		return e.state
	}
	return StateUnknown
}

// LastStatus returns the most recent observation recorded for handle.
func (c *Client) LastStatus(handle domain.JobHandle) (domain.JobStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.jobs[handle]; ok {
		return e.last, true
	}
	return domain.JobStatus{}, false
}

// Forget drops bookkeeping for a terminal handle. It reports whether the
// handle was removed.
func (c *Client) Forget(handle domain.JobHandle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.jobs[handle]
	if !ok || !e.state.Terminal() || e.state == StateRetrieving {
		return false
	}
	delete(c.jobs, handle)
	return true
}
