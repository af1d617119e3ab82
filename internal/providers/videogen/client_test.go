package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"videogen/internal/domain"
)

type responseStub struct {
	status      int
	body        []byte
	contentType string
}

type captureTransport struct {
	mu        sync.Mutex
	responses map[string]responseStub
	requests  []*http.Request
	lastBody  []byte
	err       error
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{responses: map[string]responseStub{}}
}

func (c *captureTransport) setJSONResponse(path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{status: status, body: body, contentType: "application/json"}
}

func (c *captureTransport) setRawResponse(path string, status int, body []byte, contentType string) {
	c.responses[path] = responseStub{status: status, body: body, contentType: contentType}
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if req.Body != nil {
		c.lastBody, _ = io.ReadAll(req.Body)
	}
	if c.err != nil {
		return nil, c.err
	}
	stub, ok := c.responses[req.URL.Path]
	if !ok {
		stub = responseStub{status: http.StatusNotFound, body: []byte(`{"detail":"Not Found"}`)}
	}
	header := http.Header{}
	if stub.contentType != "" {
		header.Set("Content-Type", stub.contentType)
	}
	return &http.Response{
		StatusCode: stub.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(stub.body)),
		Request:    req,
	}, nil
}

func newTestClient(t *testing.T, transport http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient(Options{
		BaseURL:    "http://gen.local:8000/",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func sampleRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		Prompt:         "A cat walks on the grass, realistic",
		NegativePrompt: "blurry",
		Width:          1280,
		Height:         720,
		NumFrames:      81,
		FPS:            16,
		Seed:           1234,
		Params: domain.TuningParams{
			domain.ParamInferenceSteps: 27,
			domain.ParamGuidanceScale:  3.5,
			domain.ParamGuidanceScale2: 4.0,
		},
	}
}

func TestCreatePayload(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/v1/videos", http.StatusOK, map[string]any{"id": "video_abc", "status": "queued"})
	client := newTestClient(t, transport)

	status, err := client.Create(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if status.Handle != "video_abc" || status.State != domain.JobStateQueued {
		t.Fatalf("unexpected status: %#v", status)
	}

	req := transport.requests[0]
	if req.Method != http.MethodPost {
		t.Fatalf("method = %s, want POST", req.Method)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q", ct)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["size"] != "720x1280" {
		t.Fatalf("size = %v, want 720x1280", payload["size"])
	}
	if payload["seconds"] != float64(5) {
		t.Fatalf("seconds = %v, want 5", payload["seconds"])
	}
	if payload["num_frames"] != float64(81) || payload["fps"] != float64(16) || payload["seed"] != float64(1234) {
		t.Fatalf("duration/seed fields wrong: %#v", payload)
	}
	extra, ok := payload["extra_body"].(map[string]any)
	if !ok {
		t.Fatalf("extra_body missing: %#v", payload)
	}
	if extra["num_inference_steps"] != float64(27) || extra["guidance_scale_2"] != float64(4) {
		t.Fatalf("tuning params not forwarded: %#v", extra)
	}
	if extra["negative_prompt"] != "blurry" {
		t.Fatalf("negative_prompt = %v", extra["negative_prompt"])
	}
}

func TestCreateOmitsEmptyNegativePrompt(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/v1/videos", http.StatusOK, map[string]any{"id": "video_abc", "status": "queued"})
	client := newTestClient(t, transport)

	req := sampleRequest()
	req.NegativePrompt = ""
	if _, err := client.Create(context.Background(), req); err != nil {
		t.Fatalf("create: %v", err)
	}
	if bytes.Contains(transport.lastBody, []byte("negative_prompt")) {
		t.Fatalf("negative_prompt should be omitted: %s", transport.lastBody)
	}
}

func TestCreateNormalizesPromptToNFC(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/v1/videos", http.StatusOK, map[string]any{"id": "video_abc", "status": "queued"})
	client := newTestClient(t, transport)

	req := sampleRequest()
	req.Prompt = "cafe\u0301 at dusk"
	if _, err := client.Create(context.Background(), req); err != nil {
		t.Fatalf("create: %v", err)
	}
	var payload map[string]any
	_ = json.Unmarshal(transport.lastBody, &payload)
	if payload["prompt"] != "caf\u00e9 at dusk" {
		t.Fatalf("prompt = %q, want composed form", payload["prompt"])
	}
}

func TestCreateFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   int
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`, http.StatusInternalServerError},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"size invalid"}}`, http.StatusBadRequest},
		{"missing id", http.StatusOK, `{"status":"queued"}`, 0},
		{"missing status", http.StatusOK, `{"id":"video_1"}`, 0},
		{"unknown status", http.StatusOK, `{"id":"video_1","status":"paused"}`, 0},
		{"garbage", http.StatusOK, `not json`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transport := newCaptureTransport()
			transport.setRawResponse("/v1/videos", tc.status, []byte(tc.body), "application/json")
			client := newTestClient(t, transport)

			_, err := client.Create(context.Background(), sampleRequest())
			var terr *domain.TransportError
			if !errors.As(err, &terr) {
				t.Fatalf("err = %v, want TransportError", err)
			}
			if terr.Op != domain.OpCreate {
				t.Fatalf("op = %q, want create", terr.Op)
			}
			if terr.StatusCode != tc.code {
				t.Fatalf("status code = %d, want %d", terr.StatusCode, tc.code)
			}
		})
	}
}

func TestCreateNetworkFailure(t *testing.T) {
	transport := newCaptureTransport()
	transport.err = errors.New("connection refused")
	client := newTestClient(t, transport)

	_, err := client.Create(context.Background(), sampleRequest())
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err = %v, want transport error", err)
	}
	if len(transport.requests) != 1 {
		t.Fatalf("requests = %d, create must not retry", len(transport.requests))
	}
}

func TestPollStatuses(t *testing.T) {
	cases := []struct {
		name     string
		payload  map[string]any
		state    domain.JobState
		progress int
		message  string
	}{
		{"queued", map[string]any{"id": "video_1", "status": "queued"}, domain.JobStateQueued, 0, ""},
		{"running", map[string]any{"id": "video_1", "status": "running", "progress": 42}, domain.JobStateRunning, 42, ""},
		{"completed", map[string]any{"id": "video_1", "status": "completed", "progress": 100}, domain.JobStateCompleted, 100, ""},
		{"failed with message", map[string]any{"id": "video_1", "status": "failed", "error": map[string]any{"message": "decode error"}}, domain.JobStateFailed, 0, "decode error"},
		{"failed without message", map[string]any{"id": "video_1", "status": "failed"}, domain.JobStateFailed, 0, "Unknown error"},
		{"progress clamped", map[string]any{"id": "video_1", "status": "running", "progress": 140}, domain.JobStateRunning, 100, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transport := newCaptureTransport()
			transport.setJSONResponse("/v1/videos/video_1", http.StatusOK, tc.payload)
			client := newTestClient(t, transport)

			status, err := client.Poll(context.Background(), "video_1")
			if err != nil {
				t.Fatalf("poll: %v", err)
			}
			if status.State != tc.state || status.Progress != tc.progress || status.Message != tc.message {
				t.Fatalf("status = %#v", status)
			}
		})
	}
}

func TestPollRejectsMismatchedID(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/v1/videos/video_1", http.StatusOK, map[string]any{"id": "video_2", "status": "queued"})
	client := newTestClient(t, transport)

	if _, err := client.Poll(context.Background(), "video_1"); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err = %v, want transport error", err)
	}
}

func TestPollUnknownStatusIsProtocolViolation(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/v1/videos/video_1", http.StatusOK, map[string]any{"id": "video_1", "status": "cancelled"})
	client := newTestClient(t, transport)

	_, err := client.Poll(context.Background(), "video_1")
	if !errors.Is(err, domain.ErrTransport) || !errors.Is(err, domain.ErrUnknownState) {
		t.Fatalf("err = %v, want transport error wrapping ErrUnknownState", err)
	}
}

func TestFetch(t *testing.T) {
	transport := newCaptureTransport()
	transport.setRawResponse("/v1/videos/video_1/content", http.StatusOK, []byte("\x00\x00\x00\x18ftypmp42"), "video/mp4")
	client := newTestClient(t, transport)

	data, contentType, err := client.Fetch(context.Background(), "video_1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if contentType != "video/mp4" {
		t.Fatalf("content type = %q", contentType)
	}
	if !bytes.Contains(data, []byte("ftyp")) {
		t.Fatalf("unexpected data %q", data)
	}
}

func TestFetchExpired(t *testing.T) {
	transport := newCaptureTransport()
	transport.setRawResponse("/v1/videos/video_1/content", http.StatusGone, []byte(`{"error":{"message":"artifact expired"}}`), "application/json")
	client := newTestClient(t, transport)

	_, _, err := client.Fetch(context.Background(), "video_1")
	var terr *domain.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if terr.Op != domain.OpFetch || terr.StatusCode != http.StatusGone || !strings.Contains(terr.Error(), "artifact expired") {
		t.Fatalf("unexpected error: %v", terr)
	}
}

func TestCustomPathPrefixAndAuth(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"job-9","status":"running","progress":10}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{BaseURL: srv.URL, PathPrefix: "jobs/", APIKey: "tok"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Poll(context.Background(), "job-9"); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if gotPath != "/jobs/job-9" {
		t.Fatalf("path = %q, want /jobs/job-9", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}

func TestNewClientRejectsInvalidBaseURL(t *testing.T) {
	if _, err := NewClient(Options{BaseURL: "gen.local"}); err == nil {
		t.Fatalf("expected error for base url without scheme")
	}
}
