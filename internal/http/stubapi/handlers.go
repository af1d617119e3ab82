package stubapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"videogen/internal/middleware"
)

const (
	stateQueued    = "queued"
	stateRunning   = "running"
	stateCompleted = "completed"
	stateFailed    = "failed"

	maxCreateBody = 1 << 20
)

type jobResponse struct {
	ID        string     `json:"id"`
	Object    string     `json:"object"`
	Status    string     `json:"status"`
	Progress  int        `json:"progress"`
	CreatedAt int64      `json:"created_at"`
	Size      string     `json:"size,omitempty"`
	Seconds   string     `json:"seconds,omitempty"`
	Error     *jobFailed `json:"error,omitempty"`
}

type jobFailed struct {
	Message string `json:"message"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"status": "ok", "jobs": a.JobCount()})
}

func (a *App) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody))
	if err := dec.Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if _, _, ok := parseSize(req.Size); !ok {
		a.error(w, http.StatusBadRequest, "size must be HxW")
		return
	}
	if req.FPS <= 0 || req.NumFrames <= 0 {
		a.error(w, http.StatusBadRequest, "fps and num_frames must be positive")
		return
	}

	j := a.newJob(req)
	middleware.LogFrom(r.Context(), a.logger).Info().
		Str("job_id", j.id).
		Str("size", req.Size).
		Int("num_frames", req.NumFrames).
		Int("steps", j.script.StepsToComplete).
		Msg("stubapi: job created")
	a.json(w, http.StatusOK, a.render(j))
}

func (a *App) GetVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.mu.Lock()
	j, ok := a.jobs[id]
	if !ok {
		a.mu.Unlock()
		a.error(w, http.StatusNotFound, "video not found")
		return
	}
	if j.state == stateQueued || j.state == stateRunning {
		j.polls++
		switch {
		case j.polls < j.script.StepsToComplete:
			j.state = stateRunning
		case j.script.FailWith != "" || j.script.OmitFailureMessage:
			j.state = stateFailed
		default:
			j.state = stateCompleted
		}
	}
	resp := a.render(j)
	a.mu.Unlock()

	a.json(w, http.StatusOK, resp)
}

func (a *App) GetVideoContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.mu.Lock()
	j, ok := a.jobs[id]
	if !ok {
		a.mu.Unlock()
		a.error(w, http.StatusNotFound, "video not found")
		return
	}
	if j.state != stateCompleted {
		state := j.state
		a.mu.Unlock()
		a.error(w, http.StatusConflict, "video is "+state)
		return
	}
	j.fetches++
	prompt, seed, contentType := j.req.Prompt, j.req.Seed, j.script.ContentType
	a.mu.Unlock()

	if contentType == "" {
		contentType = "video/mp4"
	}
	data := Artifact(prompt, seed, a.opts.ArtifactBytes)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// render must be called with a.mu held.
func (a *App) render(j *job) jobResponse {
	resp := jobResponse{
		ID:        j.id,
		Object:    "video",
		Status:    j.state,
		CreatedAt: j.createdAt.Unix(),
		Size:      j.req.Size,
		Seconds:   strconv.Itoa(j.req.Seconds),
	}
	switch j.state {
	case stateRunning:
		resp.Progress = j.polls * 100 / j.script.StepsToComplete
	case stateCompleted:
		resp.Progress = 100
	case stateFailed:
		if !j.script.OmitFailureMessage {
			resp.Error = &jobFailed{Message: j.script.FailWith}
		}
	}
	return resp
}

func parseSize(size string) (int, int, bool) {
	h, w, ok := strings.Cut(size, "x")
	if !ok {
		return 0, 0, false
	}
	height, err1 := strconv.Atoi(h)
	width, err2 := strconv.Atoi(w)
	if err1 != nil || err2 != nil || height <= 0 || width <= 0 {
		return 0, 0, false
	}
	return height, width, true
}
