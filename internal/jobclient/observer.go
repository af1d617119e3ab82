package jobclient

import (
	"time"

	"videogen/internal/domain"
	"videogen/internal/infra"
)

// Observer receives advisory lifecycle events. Implementations must not block
// and never influence control flow.
type Observer interface {
	JobSubmitted(handle domain.JobHandle, req domain.GenerationRequest)
	StatusObserved(status domain.JobStatus)
	JobFinished(handle domain.JobHandle, outcome domain.Outcome, err error, waited time.Duration, polls int)
	ArtifactRetrieved(handle domain.JobHandle, artifact *domain.Artifact, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) JobSubmitted(domain.JobHandle, domain.GenerationRequest) {}
func (NopObserver) StatusObserved(domain.JobStatus)                         {}
func (NopObserver) JobFinished(domain.JobHandle, domain.Outcome, error, time.Duration, int) {
}
func (NopObserver) ArtifactRetrieved(domain.JobHandle, *domain.Artifact, error) {}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) JobSubmitted(handle domain.JobHandle, req domain.GenerationRequest) {
	for _, o := range m {
		o.JobSubmitted(handle, req)
	}
}

func (m MultiObserver) StatusObserved(status domain.JobStatus) {
	for _, o := range m {
		o.StatusObserved(status)
	}
}

func (m MultiObserver) JobFinished(handle domain.JobHandle, outcome domain.Outcome, err error, waited time.Duration, polls int) {
	for _, o := range m {
		o.JobFinished(handle, outcome, err, waited, polls)
	}
}

func (m MultiObserver) ArtifactRetrieved(handle domain.JobHandle, artifact *domain.Artifact, err error) {
	for _, o := range m {
		o.ArtifactRetrieved(handle, artifact, err)
	}
}

// LogObserver writes lifecycle events to a zerolog logger.
type LogObserver struct {
	Logger *infra.Logger
}

func (l LogObserver) JobSubmitted(handle domain.JobHandle, req domain.GenerationRequest) {
	l.log().Info().
		Str("handle", handle.String()).
		Str("size", req.Size()).
		Int("num_frames", req.NumFrames).
		Int("fps", req.FPS).
		Int64("seed", req.Seed).
		Msg("jobclient: job submitted")
}

func (l LogObserver) StatusObserved(status domain.JobStatus) {
	l.log().Debug().
		Str("handle", status.Handle.String()).
		Str("status", string(status.State)).
		Int("progress", status.Progress).
		Msg("jobclient: status")
}

func (l LogObserver) JobFinished(handle domain.JobHandle, outcome domain.Outcome, err error, waited time.Duration, polls int) {
	event := l.log().Info()
	if err != nil {
		event = l.log().Warn().Err(err)
	}
	event.
		Str("handle", handle.String()).
		Str("outcome", string(outcome.Kind)).
		Str("kind", domain.ClassifyError(err)).
		Dur("waited", waited).
		Int("polls", polls).
		Msg("jobclient: wait finished")
}

func (l LogObserver) ArtifactRetrieved(handle domain.JobHandle, artifact *domain.Artifact, err error) {
	if err != nil {
		l.log().Error().Err(err).Str("handle", handle.String()).Msg("jobclient: artifact retrieval failed")
		return
	}
	l.log().Info().
		Str("handle", handle.String()).
		Int("bytes", len(artifact.Data)).
		Str("content_type", artifact.ContentType).
		Msg("jobclient: artifact retrieved")
}

func (l LogObserver) log() *infra.Logger {
	return infra.LoggerOrDiscard(l.Logger)
}

var (
	_ Observer = NopObserver{}
	_ Observer = MultiObserver(nil)
	_ Observer = LogObserver{}
)
