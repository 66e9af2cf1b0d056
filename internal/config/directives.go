package config

import (
	"fmt"
	"strconv"
	"strings"

	"video-feedback/internal/algorithms"
)

// directive is one recognised command-line keyword. A token matches when the
// keyword occurs anywhere in the token's key (the text before '='), so
// "--blur=3", "-blur=3" and "blur=3" are equivalent.
type directive struct {
	name     string
	hasValue bool
	apply    func(c *Config, value string) error
}

// directives are tried in order; the first keyword found in the key wins.
var directives = []directive{
	{"rows", true, func(c *Config, v string) error { return parseInt("rows", v, &c.Rows) }},
	{"cols", true, func(c *Config, v string) error { return parseInt("cols", v, &c.Cols) }},
	{"blur", true, func(c *Config, v string) error {
		if err := parseInt("blur", v, &c.Blur); err != nil {
			return err
		}
		// A 1x1 kernel is a no-op.
		if c.Blur != 1 {
			c.addStage(algorithms.KindBlur)
		}
		return nil
	}},
	{"sharpen", true, stageFloat(algorithms.KindSharpen, func(c *Config) *float64 { return &c.Sharpen })},
	{"roll", true, stageFloat(algorithms.KindRoll, func(c *Config) *float64 { return &c.Roll })},
	{"blend", true, stageFloat(algorithms.KindBlend, func(c *Config) *float64 { return &c.Blend })},
	{"zoom", true, stageFloat(algorithms.KindZoom, func(c *Config) *float64 { return &c.Zoom })},
	{"crawl", true, func(c *Config, v string) error {
		values, err := parseFloatList("crawl", v, 4)
		if err != nil {
			return err
		}
		c.CrawlDS, c.CrawlDV, c.CrawlDSV, c.CrawlD = values[0], values[1], values[2], values[3]
		c.addStage(algorithms.KindColorCrawl)
		return nil
	}},
	{"noise", true, func(c *Config, v string) error {
		values, err := parseFloatList("noise", v, 2)
		if err != nil {
			return err
		}
		c.Noise, c.Mutate = values[0], values[1]
		c.addStage(algorithms.KindNoise)
		return nil
	}},
	{"histeq", false, func(c *Config, _ string) error {
		c.addStage(algorithms.KindHistogramEqualize)
		return nil
	}},
	{"invert", false, func(c *Config, _ string) error {
		c.addStage(algorithms.KindInvert)
		return nil
	}},
	{"depth", true, func(c *Config, v string) error { return parseInt("depth", v, &c.Depth) }},
	{"seed", true, func(c *Config, v string) error {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return &ConfigurationError{Directive: "seed", Reason: "takes a 32-bit integer", Err: err}
		}
		c.Seed = int32(seed)
		return nil
	}},
	{"dump", true, func(c *Config, v string) error {
		if v == "" {
			return configErrorf("dump", "takes a directory path")
		}
		c.DumpDir = v
		return nil
	}},
	{"nframes", true, func(c *Config, v string) error { return parseInt("nframes", v, &c.NFrames) }},
	{"format", true, func(c *Config, v string) error {
		c.Format = strings.ToLower(strings.TrimSpace(v))
		return nil
	}},
	{"initial", true, func(c *Config, v string) error {
		if v == "" {
			return configErrorf("initial", "takes an image path")
		}
		c.Initial = v
		return nil
	}},
	{"debug", false, func(c *Config, _ string) error {
		c.Debug = true
		return nil
	}},
}

const presetDirective = "preset"

// Parse builds a validated Config from command-line tokens. Tokens are
// processed in order and every stage-producing directive appends one stage,
// so repeats yield repeated stages.
func Parse(args []string) (*Config, error) {
	tokens, err := expandPresets(args)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Params: Default()}
	for _, token := range tokens {
		if err := cfg.applyToken(token); err != nil {
			return nil, err
		}
		if len(cfg.Stages) > MaxStages {
			return nil, &ConfigurationError{
				Reason: fmt.Sprintf("at most %d image operations are allowed", MaxStages),
				Err:    ErrPipelineOverflow,
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyToken(token string) error {
	key, value, hasValue := strings.Cut(token, "=")
	for _, d := range directives {
		if !strings.Contains(key, d.name) {
			continue
		}
		if d.hasValue && !hasValue {
			return configErrorf(d.name, "requires a value (%s=...)", d.name)
		}
		return d.apply(c, value)
	}
	return &ConfigurationError{Reason: fmt.Sprintf("unknown parameter: %s", token)}
}

func (c *Config) addStage(kind algorithms.Kind) {
	c.Stages = append(c.Stages, kind)
}

// expandPresets replaces every preset token with the directives listed in
// the referenced file, keeping their position in the sequence.
func expandPresets(args []string) ([]string, error) {
	tokens := make([]string, 0, len(args))
	for _, arg := range args {
		key, value, _ := strings.Cut(arg, "=")
		if !strings.Contains(key, presetDirective) {
			tokens = append(tokens, arg)
			continue
		}
		if value == "" {
			return nil, configErrorf(presetDirective, "takes a YAML file path")
		}
		preset, err := LoadPreset(value)
		if err != nil {
			return nil, &ConfigurationError{Directive: presetDirective, Reason: "cannot load " + value, Err: err}
		}
		for _, d := range preset.Directives {
			if k, _, _ := strings.Cut(d, "="); strings.Contains(k, presetDirective) {
				return nil, configErrorf(presetDirective, "presets cannot include other presets (%s)", value)
			}
		}
		tokens = append(tokens, preset.Directives...)
	}
	return tokens, nil
}

func parseInt(name, value string, dst *int) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return &ConfigurationError{Directive: name, Reason: "takes an integer", Err: err}
	}
	*dst = n
	return nil
}

func parseFloat(name, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &ConfigurationError{Directive: name, Reason: "takes a number", Err: err}
	}
	return f, nil
}

func parseFloatList(name, value string, n int) ([]float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != n {
		return nil, configErrorf(name, "takes %d comma-delimited floats, got %q", n, value)
	}
	values := make([]float64, n)
	for i, part := range parts {
		f, err := parseFloat(name, part)
		if err != nil {
			return nil, err
		}
		values[i] = f
	}
	return values, nil
}

func stageFloat(kind algorithms.Kind, field func(c *Config) *float64) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		f, err := parseFloat(string(kind), v)
		if err != nil {
			return err
		}
		*field(c) = f
		c.addStage(kind)
		return nil
	}
}
