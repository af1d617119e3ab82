package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"videogen/internal/domain"
	"videogen/internal/infra"
)

const (
	defaultBaseURL       = "http://localhost:8000"
	defaultPathPrefix    = "/v1/videos"
	defaultCreateTimeout = 30 * time.Second
	defaultPollTimeout   = 10 * time.Second
	defaultFetchTimeout  = 30 * time.Second
	maxErrorBody         = 4 << 10
)

// Options configures the generation service client.
type Options struct {
	BaseURL       string
	PathPrefix    string
	APIKey        string
	UserAgent     string
	HTTPClient    *http.Client
	Logger        *infra.Logger
	CreateTimeout time.Duration
	PollTimeout   time.Duration
	FetchTimeout  time.Duration
}

// Client performs single request/response exchanges against the video
// generation service. It keeps no per-job state and is safe for concurrent use.
type Client struct {
	baseURL       string
	pathPrefix    string
	apiKey        string
	userAgent     string
	httpClient    *http.Client
	logger        *infra.Logger
	createTimeout time.Duration
	pollTimeout   time.Duration
	fetchTimeout  time.Duration
}

type createRequest struct {
	Prompt    string         `json:"prompt"`
	Size      string         `json:"size"`
	Seconds   int            `json:"seconds"`
	FPS       int            `json:"fps"`
	NumFrames int            `json:"num_frames"`
	Seed      int64          `json:"seed"`
	ExtraBody map[string]any `json:"extra_body"`
}

type jobResponse struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	Progress *float64  `json:"progress,omitempty"`
	Error    *jobError `json:"error,omitempty"`
}

type jobError struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error   *jobError `json:"error"`
	Detail  string    `json:"detail"`
	Message string    `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("videogen: invalid base url %q", opts.BaseURL)
	}
	prefix := "/" + strings.Trim(strings.TrimSpace(opts.PathPrefix), "/")
	if prefix == "/" {
		prefix = defaultPathPrefix
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = "videogen-client/1.0"
	}
	return &Client{
		baseURL:       baseURL,
		pathPrefix:    prefix,
		apiKey:        strings.TrimSpace(opts.APIKey),
		userAgent:     userAgent,
		httpClient:    httpClient,
		logger:        infra.LoggerOrDiscard(opts.Logger),
		createTimeout: durationOr(opts.CreateTimeout, defaultCreateTimeout),
		pollTimeout:   durationOr(opts.PollTimeout, defaultPollTimeout),
		fetchTimeout:  durationOr(opts.FetchTimeout, defaultFetchTimeout),
	}, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Create submits a generation job and returns the initial status observation.
func (c *Client) Create(ctx context.Context, req domain.GenerationRequest) (domain.JobStatus, error) {
	body, err := json.Marshal(buildCreateRequest(req))
	if err != nil {
		return domain.JobStatus{}, transportErr(domain.OpCreate, 0, fmt.Errorf("encode request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.createTimeout)
	defer cancel()

	raw, _, err := c.do(ctx, domain.OpCreate, http.MethodPost, c.pathPrefix, body)
	if err != nil {
		return domain.JobStatus{}, err
	}
	status, err := decodeStatus(domain.OpCreate, raw)
	if err != nil {
		return domain.JobStatus{}, err
	}
	c.logger.Debug().
		Str("handle", status.Handle.String()).
		Str("status", string(status.State)).
		Str("size", req.Size()).
		Int64("seed", req.Seed).
		Msg("videogen: job created")
	return status, nil
}

// Poll reports the current status of a job.
func (c *Client) Poll(ctx context.Context, handle domain.JobHandle) (domain.JobStatus, error) {
	if handle == "" {
		return domain.JobStatus{}, transportErr(domain.OpPoll, 0, errors.New("empty job handle"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	raw, _, err := c.do(ctx, domain.OpPoll, http.MethodGet, c.jobPath(handle), nil)
	if err != nil {
		return domain.JobStatus{}, err
	}
	status, err := decodeStatus(domain.OpPoll, raw)
	if err != nil {
		return domain.JobStatus{}, err
	}
	if status.Handle != handle {
		return domain.JobStatus{}, transportErr(domain.OpPoll, 0, fmt.Errorf("response id %q does not match %q", status.Handle, handle))
	}
	c.logger.Debug().
		Str("handle", handle.String()).
		Str("status", string(status.State)).
		Int("progress", status.Progress).
		Msg("videogen: job polled")
	return status, nil
}

// Fetch downloads the artifact of a completed job and returns the raw bytes
// together with the reported content type.
func (c *Client) Fetch(ctx context.Context, handle domain.JobHandle) ([]byte, string, error) {
	if handle == "" {
		return nil, "", transportErr(domain.OpFetch, 0, errors.New("empty job handle"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	data, header, err := c.do(ctx, domain.OpFetch, http.MethodGet, c.jobPath(handle)+"/content", nil)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", transportErr(domain.OpFetch, 0, errors.New("empty artifact body"))
	}
	contentType := header.Get("Content-Type")
	c.logger.Debug().
		Str("handle", handle.String()).
		Int("bytes", len(data)).
		Str("content_type", contentType).
		Msg("videogen: artifact fetched")
	return data, contentType, nil
}

func (c *Client) jobPath(handle domain.JobHandle) string {
	return c.pathPrefix + "/" + url.PathEscape(handle.String())
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte) ([]byte, http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, transportErr(op, 0, fmt.Errorf("build request: %w", err))
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, transportErr(op, 0, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, nil, transportErr(op, resp.StatusCode, errors.New(errorDetail(raw)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, transportErr(op, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	return raw, resp.Header, nil
}

func buildCreateRequest(req domain.GenerationRequest) createRequest {
	extra := make(map[string]any, len(req.Params)+1)
	for k, v := range req.Params {
		extra[k] = v
	}
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		extra["negative_prompt"] = norm.NFC.String(neg)
	}
	return createRequest{
		Prompt:    norm.NFC.String(strings.TrimSpace(req.Prompt)),
		Size:      req.Size(),
		Seconds:   req.Seconds(),
		FPS:       req.FPS,
		NumFrames: req.NumFrames,
		Seed:      req.Seed,
		ExtraBody: extra,
	}
}

// decodeStatus maps a job document onto a JobStatus. Missing fields and
// unknown states are protocol violations.
func decodeStatus(op string, raw []byte) (domain.JobStatus, error) {
	var decoded jobResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.JobStatus{}, transportErr(op, 0, fmt.Errorf("decode response: %w", err))
	}
	id := strings.TrimSpace(decoded.ID)
	if id == "" {
		return domain.JobStatus{}, transportErr(op, 0, errors.New("response missing id"))
	}
	if strings.TrimSpace(decoded.Status) == "" {
		return domain.JobStatus{}, transportErr(op, 0, errors.New("response missing status"))
	}
	state, err := domain.ParseJobState(decoded.Status)
	if err != nil {
		return domain.JobStatus{}, transportErr(op, 0, fmt.Errorf("%w: %q", err, decoded.Status))
	}
	status := domain.JobStatus{Handle: domain.JobHandle(id), State: state}
	if decoded.Progress != nil {
		status.Progress = domain.ClampProgress(int(*decoded.Progress))
		status.HasProgress = true
	}
	if state == domain.JobStateFailed {
		status.Message = "Unknown error"
		if decoded.Error != nil && decoded.Error.Message != "" {
			status.Message = decoded.Error.Message
		}
	}
	return status, nil
}

func errorDetail(raw []byte) string {
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err == nil {
		switch {
		case detail.Error != nil && detail.Error.Message != "":
			return detail.Error.Message
		case detail.Detail != "":
			return detail.Detail
		case detail.Message != "":
			return detail.Message
		}
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "empty response body"
	}
	return text
}

func transportErr(op string, status int, err error) error {
	return &domain.TransportError{Op: op, StatusCode: status, Err: err}
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
