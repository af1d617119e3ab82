package domain

import (
	"fmt"
	"strings"
)

// Tuning parameter keys understood by the default backend. Any other key is
// forwarded untouched.
const (
	ParamInferenceSteps = "num_inference_steps"
	ParamGuidanceScale  = "guidance_scale"
	ParamGuidanceScale2 = "guidance_scale_2"
)

// TuningParams is the open-ended bag of generation-tuning values forwarded to
// the remote service without interpretation. Values must be scalars.
type TuningParams map[string]any

// Clone returns a shallow copy of the bag.
func (p TuningParams) Clone() TuningParams {
	if p == nil {
		return nil
	}
	out := make(TuningParams, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// GenerationRequest describes a single video generation submission.
type GenerationRequest struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	NumFrames      int
	FPS            int
	Seed           int64
	Params         TuningParams
}

// Validate rejects requests the service could never accept.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Reason: "is required"}
	}
	positives := []struct {
		field string
		value int
	}{
		{"width", r.Width},
		{"height", r.Height},
		{"num_frames", r.NumFrames},
		{"fps", r.FPS},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return &ValidationError{Field: p.field, Reason: fmt.Sprintf("must be positive, got %d", p.value)}
		}
	}
	for k, v := range r.Params {
		if strings.TrimSpace(k) == "" {
			return &ValidationError{Field: "params", Reason: "empty parameter name"}
		}
		if !isScalar(v) {
			return &ValidationError{Field: "params." + k, Reason: fmt.Sprintf("unsupported value type %T", v)}
		}
	}
	return nil
}

// Size renders the spatial size in the service's "HxW" form.
func (r GenerationRequest) Size() string {
	return fmt.Sprintf("%dx%d", r.Height, r.Width)
}

// Seconds is the whole-second clip duration. Frame counts that are not a
// multiple of fps are truncated.
func (r GenerationRequest) Seconds() int {
	if r.FPS <= 0 {
		return 0
	}
	return r.NumFrames / r.FPS
}

// WithParams returns a copy of r whose bag has the given overrides applied.
func (r GenerationRequest) WithParams(overrides TuningParams) GenerationRequest {
	params := r.Params.Clone()
	if params == nil && len(overrides) > 0 {
		params = make(TuningParams, len(overrides))
	}
	for k, v := range overrides {
		params[k] = v
	}
	r.Params = params
	return r
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
