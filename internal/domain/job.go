package domain

import (
	"errors"
	"strings"
)

// JobHandle identifies a server-side job. It is opaque to the client.
type JobHandle string

func (h JobHandle) String() string { return string(h) }

// JobState enumerates the closed set of job lifecycle states.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// ErrUnknownState is returned when the service reports a status outside the
// four known states.
var ErrUnknownState = errors.New("unknown job state")

// ParseJobState maps a wire status string onto a JobState.
func ParseJobState(raw string) (JobState, error) {
	switch JobState(strings.ToLower(strings.TrimSpace(raw))) {
	case JobStateQueued:
		return JobStateQueued, nil
	case JobStateRunning:
		return JobStateRunning, nil
	case JobStateCompleted:
		return JobStateCompleted, nil
	case JobStateFailed:
		return JobStateFailed, nil
	default:
		return "", ErrUnknownState
	}
}

// Terminal reports whether no further transition can occur.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// JobStatus is one observation of a job.
type JobStatus struct {
	Handle      JobHandle
	State       JobState
	Progress    int
	HasProgress bool
	Message     string
}

// ClampProgress bounds a reported progress value to 0..100.
func ClampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// Artifact is the binary output of a completed job.
type Artifact struct {
	Data        []byte
	Extension   string
	ContentType string
	Name        string
}

// FileName is the suggested name for persisting the artifact.
func (a *Artifact) FileName() string {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = "video"
	}
	return name + a.Extension
}

// OutcomeKind tags the terminal result of a wait.
type OutcomeKind string

const (
	OutcomeSuccess  OutcomeKind = "success"
	OutcomeFailed   OutcomeKind = "failed"
	OutcomeTimedOut OutcomeKind = "timed_out"
)

// Outcome is the terminal result of one Await cycle. A Success outcome means
// the job completed and its artifact is ready for retrieval.
type Outcome struct {
	Kind   OutcomeKind
	Status JobStatus
	Reason string
}
