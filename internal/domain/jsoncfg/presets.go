package jsoncfg

import (
	"fmt"
	"sort"

	"videogen/internal/domain"
)

// defaultNegativePrompt is the stock negative prompt published with the Wan2.2
// text-to-video checkpoints.
const defaultNegativePrompt = "色调艳丽，过曝，静态，细节模糊不清，字幕，风格，作品，画作，画面，静止，" +
	"整体发灰，最差质量，低质量，JPEG压缩残留，丑陋的，残缺的，多余的手指，" +
	"画得不好的手部，画得不好的脸部，畸形的，毁容的，形态畸形的肢体，手指融合，" +
	"静止不动的画面，杂乱的背景，三条腿，背景人很多，倒着走"

func seed(v int64) *int64 { return &v }

var presets = map[string]RequestJSON{
	"basic": {
		Name:   "wan_t2v_basic",
		Prompt: "A cat walks on the grass, realistic",
	},
	"custom_prompt": {
		Name:   "wan_t2v_sunset",
		Prompt: "A beautiful sunset over the ocean with waves crashing on the shore",
		Seed:   seed(42),
	},
	"negative_prompt": {
		Name:           "wan_t2v_negative",
		Prompt:         "A dog running in a park, high quality, realistic",
		NegativePrompt: defaultNegativePrompt,
		Seed:           seed(999),
	},
	"short_video": {
		Name:      "wan_t2v_short",
		Prompt:    "A bird flying in the sky",
		NumFrames: 33,
		Seed:      seed(777),
		Params:    map[string]any{domain.ParamInferenceSteps: 20},
	},
	"resolution": {
		Name:   "wan_t2v_resolution",
		Prompt: "A car driving on a highway",
		Width:  1280,
		Height: 720,
		Seed:   seed(555),
	},
	"dual_guidance": {
		Name:   "wan_t2v_dual_guidance",
		Prompt: "A majestic eagle soaring through the clouds",
		Seed:   seed(888),
		Params: map[string]any{
			domain.ParamGuidanceScale:  3.5,
			domain.ParamGuidanceScale2: 4.0,
		},
	},
}

// PresetNames lists the known presets in stable order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a normalized copy of the named preset.
func Preset(name string) (RequestJSON, error) {
	p, ok := presets[name]
	if !ok {
		return RequestJSON{}, fmt.Errorf("unknown preset %q", name)
	}
	if p.Seed != nil {
		p.Seed = seed(*p.Seed)
	}
	if p.Params != nil {
		p.Params = domain.TuningParams(p.Params).Clone()
	}
	p.Normalize()
	return p, nil
}
