package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"videogen/internal/domain"
	"videogen/internal/domain/jsoncfg"
	"videogen/internal/infra"
)

const presetAll = "all"

type paramFlags []string

func (p *paramFlags) String() string { return strings.Join(*p, ",") }

func (p *paramFlags) Set(v string) error {
	*p = append(*p, v)
	return nil
}

type cliOptions struct {
	prompt         string
	negativePrompt string
	width          int
	height         int
	frames         int
	fps            int
	seed           int64
	steps          int
	guidance       float64
	guidance2      float64
	params         paramFlags
	name           string
	outDir         string
	maxWait        time.Duration
	pollInterval   time.Duration
	preset         string
	requestFile    string
	concurrency    int
	listPresets    bool
	history        int
	show           string
	saveAPIKey     string
	forgetAPIKey   bool
	zipName        string

	set map[string]bool
}

func parseOptions(args []string, cfg *infra.Config, stderr io.Writer) (*cliOptions, error) {
	o := &cliOptions{}
	fs := flag.NewFlagSet("videogen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.prompt, "prompt", "", "text prompt")
	fs.StringVar(&o.negativePrompt, "negative-prompt", "", "negative prompt")
	fs.IntVar(&o.width, "width", jsoncfg.DefaultWidth, "frame width")
	fs.IntVar(&o.height, "height", jsoncfg.DefaultHeight, "frame height")
	fs.IntVar(&o.frames, "frames", jsoncfg.DefaultNumFrames, "number of frames")
	fs.IntVar(&o.fps, "fps", jsoncfg.DefaultFPS, "frames per second")
	fs.Int64Var(&o.seed, "seed", jsoncfg.DefaultSeed, "random seed")
	fs.IntVar(&o.steps, "steps", jsoncfg.DefaultSteps, "num_inference_steps")
	fs.Float64Var(&o.guidance, "guidance", jsoncfg.DefaultGuidance, "guidance_scale")
	fs.Float64Var(&o.guidance2, "guidance2", jsoncfg.DefaultGuidance2, "guidance_scale_2")
	fs.Var(&o.params, "param", "extra tuning parameter key=value (repeatable)")
	fs.StringVar(&o.name, "name", "video", "output base name")
	fs.StringVar(&o.outDir, "out", cfg.OutputDir, "output directory")
	fs.DurationVar(&o.maxWait, "max-wait", cfg.MaxWait, "maximum time to wait for a job")
	fs.DurationVar(&o.pollInterval, "poll-interval", cfg.PollInterval, "status poll interval")
	fs.StringVar(&o.preset, "preset", "", "run a named preset, or \"all\"")
	fs.StringVar(&o.requestFile, "request-file", "", "JSON file holding one request or an array")
	fs.IntVar(&o.concurrency, "concurrency", cfg.Concurrency, "jobs in flight at once")
	fs.BoolVar(&o.listPresets, "list-presets", false, "print preset names and exit")
	fs.IntVar(&o.history, "history", 0, "print the N most recent ledger runs and exit")
	fs.StringVar(&o.show, "show", "", "print one ledger run by id and exit")
	fs.StringVar(&o.zipName, "zip", "", "also bundle successful artifacts into this archive under -out")
	fs.StringVar(&o.saveAPIKey, "save-api-key", "", "store the service api key in the database and exit")
	fs.BoolVar(&o.forgetAPIKey, "forget-api-key", false, "remove the stored api key for the service and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	o.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if o.maxWait <= 0 || o.pollInterval <= 0 {
		return nil, errors.New("max-wait and poll-interval must be positive")
	}
	return o, nil
}

// requests resolves the flags into named request documents.
func (o *cliOptions) requests() ([]jsoncfg.RequestJSON, error) {
	overrides, err := parseParams(o.params)
	if err != nil {
		return nil, err
	}

	var docs []jsoncfg.RequestJSON
	switch {
	case o.preset == presetAll:
		for _, name := range jsoncfg.PresetNames() {
			doc, _ := jsoncfg.Preset(name)
			docs = append(docs, doc)
		}
	case o.preset != "":
		doc, err := jsoncfg.Preset(o.preset)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	case o.requestFile != "":
		docs, err = jsoncfg.LoadFile(o.requestFile)
		if err != nil {
			return nil, err
		}
		for i := range docs {
			if docs[i].Name == "" {
				docs[i].Name = fmt.Sprintf("%s_%d", o.name, i+1)
			}
			docs[i].Normalize()
		}
	default:
		if strings.TrimSpace(o.prompt) == "" {
			return nil, errors.New("one of -prompt, -preset or -request-file is required")
		}
		seed := o.seed
		docs = append(docs, jsoncfg.RequestJSON{
			Name:           o.name,
			Prompt:         o.prompt,
			NegativePrompt: o.negativePrompt,
			Width:          o.width,
			Height:         o.height,
			NumFrames:      o.frames,
			FPS:            o.fps,
			Seed:           &seed,
			Params: map[string]any{
				domain.ParamInferenceSteps: o.steps,
				domain.ParamGuidanceScale:  o.guidance,
				domain.ParamGuidanceScale2: o.guidance2,
			},
		})
	}

	for i := range docs {
		if docs[i].Params == nil {
			docs[i].Params = map[string]any{}
		}
		for k, v := range overrides {
			docs[i].Params[k] = v
		}
		if o.set["name"] && len(docs) == 1 {
			docs[i].Name = o.name
		}
	}

	// Names become artifact file names, so they must not collide.
	seen := make(map[string]int, len(docs))
	for i, doc := range docs {
		name := strings.TrimSpace(doc.Name)
		if first, dup := seen[name]; dup {
			return nil, fmt.Errorf("requests %d and %d share the name %q", first+1, i+1, name)
		}
		seen[name] = i
	}
	return docs, nil
}

// parseParams turns key=value pairs into typed scalars. Integers, floats and
// booleans are recognised; anything else stays a string.
func parseParams(pairs []string) (domain.TuningParams, error) {
	out := domain.TuningParams{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid -param %q, want key=value", pair)
		}
		out[key] = parseScalar(strings.TrimSpace(raw))
	}
	return out, nil
}

func parseScalar(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
