package jsoncfg

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"videogen/internal/domain"
)

// RequestJSON is the on-disk and ledger representation of a generation
// request.
type RequestJSON struct {
	Name           string         `json:"name,omitempty"`
	Prompt         string         `json:"prompt"`
	NegativePrompt string         `json:"negative_prompt,omitempty"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	NumFrames      int            `json:"num_frames"`
	FPS            int            `json:"fps"`
	Seed           *int64         `json:"seed,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
}

const (
	DefaultWidth           = 1280
	DefaultHeight          = 720
	DefaultNumFrames       = 81
	DefaultFPS             = 16
	DefaultSeed      int64 = 1234
	DefaultSteps           = 27
	DefaultGuidance        = 3.5
	DefaultGuidance2       = 4.0
)

// DefaultParams returns the tuning bag applied when a request omits it.
func DefaultParams() domain.TuningParams {
	return domain.TuningParams{
		domain.ParamInferenceSteps: DefaultSteps,
		domain.ParamGuidanceScale:  DefaultGuidance,
		domain.ParamGuidanceScale2: DefaultGuidance2,
	}
}

// Normalize fills zero-valued fields with the service defaults. Explicit
// parameters win over defaults key by key.
func (r *RequestJSON) Normalize() {
	if r == nil {
		return
	}
	if r.Width == 0 {
		r.Width = DefaultWidth
	}
	if r.Height == 0 {
		r.Height = DefaultHeight
	}
	if r.NumFrames == 0 {
		r.NumFrames = DefaultNumFrames
	}
	if r.FPS == 0 {
		r.FPS = DefaultFPS
	}
	if r.Seed == nil {
		seed := DefaultSeed
		r.Seed = &seed
	}
	params := DefaultParams()
	for k, v := range r.Params {
		params[k] = v
	}
	r.Params = params
}

// ToRequest converts the document into a validated GenerationRequest.
func (r RequestJSON) ToRequest() (domain.GenerationRequest, error) {
	req := domain.GenerationRequest{
		Prompt:         strings.TrimSpace(r.Prompt),
		NegativePrompt: strings.TrimSpace(r.NegativePrompt),
		Width:          r.Width,
		Height:         r.Height,
		NumFrames:      r.NumFrames,
		FPS:            r.FPS,
		Params:         domain.TuningParams(r.Params).Clone(),
	}
	if r.Seed != nil {
		req.Seed = *r.Seed
	}
	if err := req.Validate(); err != nil {
		return domain.GenerationRequest{}, err
	}
	return req, nil
}

// FromRequest builds the document form of req.
func FromRequest(name string, req domain.GenerationRequest) RequestJSON {
	seed := req.Seed
	return RequestJSON{
		Name:           name,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          req.Width,
		Height:         req.Height,
		NumFrames:      req.NumFrames,
		FPS:            req.FPS,
		Seed:           &seed,
		Params:         req.Params.Clone(),
	}
}

// LoadFile reads a JSON document holding either one request object or an
// array of them.
func LoadFile(path string) ([]RequestJSON, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var docs []RequestJSON
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("decode request file: %w", err)
		}
		return docs, nil
	}
	var doc RequestJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode request file: %w", err)
	}
	return []RequestJSON{doc}, nil
}

func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("json marshal: %w", err))
	}
	return b
}
