// Package stubapi is an in-memory implementation of the video generation
// protocol. Jobs advance one step per status poll, so a client's behaviour
// is fully determined by its poll sequence.
package stubapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"videogen/internal/infra"
)

// Script decides how a job progresses.
type Script struct {
	// StepsToComplete is the number of status polls after which the job
	// becomes terminal. Zero makes the first poll terminal.
	StepsToComplete int
	// FailWith turns the terminal state into failed with this message.
	FailWith string
	// OmitFailureMessage reports failed without an error document.
	OmitFailureMessage bool
	// ContentType of the artifact, video/mp4 when empty.
	ContentType string
}

// Options configures the stub service.
type Options struct {
	APIKey        string
	Script        Script
	ScriptFor     func(req CreateRequest) Script
	RateLimit     int
	RateWindow    time.Duration
	ArtifactBytes int
	Logger        *infra.Logger
}

// CreateRequest mirrors the body accepted by POST /v1/videos.
type CreateRequest struct {
	Prompt    string         `json:"prompt"`
	Size      string         `json:"size"`
	Seconds   int            `json:"seconds"`
	FPS       int            `json:"fps"`
	NumFrames int            `json:"num_frames"`
	Seed      int64          `json:"seed"`
	ExtraBody map[string]any `json:"extra_body"`
}

// JobSnapshot is a read-only view of a stub job.
type JobSnapshot struct {
	ID        string
	Request   CreateRequest
	Polls     int
	Fetches   int
	State     string
	CreatedAt time.Time
}

type job struct {
	id        string
	req       CreateRequest
	script    Script
	polls     int
	fetches   int
	state     string
	createdAt time.Time
}

type App struct {
	opts   Options
	logger *infra.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

func NewApp(opts Options) *App {
	if opts.ArtifactBytes <= 0 {
		opts.ArtifactBytes = 4 << 10
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	return &App{
		opts:   opts,
		logger: infra.LoggerOrDiscard(opts.Logger),
		jobs:   make(map[string]*job),
	}
}

// Job returns a snapshot of the job with id.
func (a *App) Job(id string) (JobSnapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	j, ok := a.jobs[id]
	if !ok {
		return JobSnapshot{}, false
	}
	return JobSnapshot{
		ID:        j.id,
		Request:   j.req,
		Polls:     j.polls,
		Fetches:   j.fetches,
		State:     j.state,
		CreatedAt: j.createdAt,
	}, true
}

// JobCount reports how many jobs have been created.
func (a *App) JobCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.jobs)
}

func (a *App) newJob(req CreateRequest) *job {
	script := a.opts.Script
	if a.opts.ScriptFor != nil {
		script = a.opts.ScriptFor(req)
	}
	script = scriptOverrides(script, req.ExtraBody)
	j := &job{
		id:        "video_" + uuid.NewString(),
		req:       req,
		script:    script,
		state:     stateQueued,
		createdAt: time.Now().UTC(),
	}
	a.mu.Lock()
	a.jobs[j.id] = j
	a.mu.Unlock()
	return j
}

// scriptOverrides lets a caller steer a single job through extra_body keys
// stub_steps and stub_fail_with.
func scriptOverrides(s Script, extra map[string]any) Script {
	if v, ok := extra["stub_steps"].(float64); ok && v >= 0 {
		s.StepsToComplete = int(v)
	}
	if v, ok := extra["stub_fail_with"].(string); ok && v != "" {
		s.FailWith = v
	}
	return s
}

// Artifact derives the artifact bytes for a prompt and seed. Identical
// inputs always yield identical bytes.
func Artifact(prompt string, seed int64, size int) []byte {
	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], uint64(seed))
	h := sha256.New()
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write(seedBytes[:])
	sum := h.Sum(nil)

	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0x18})
	buf.WriteString("ftypmp42")
	buf.Write([]byte{0, 0, 0, 0})
	buf.WriteString("mp42isom")
	for buf.Len() < size {
		buf.Write(sum)
	}
	return buf.Bytes()[:max(size, 24)]
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]any{"error": map[string]string{"message": message}})
}
