package domain

import (
	"encoding/json"
	"time"
)

// Run is one ledger entry describing a submit → wait → retrieve cycle.
type Run struct {
	ID           string
	Name         string
	Handle       JobHandle
	RequestJSON  json.RawMessage
	Outcome      string
	ErrorMessage string
	ArtifactPath string
	Polls        int
	StartedAt    time.Time
	FinishedAt   *time.Time
}
