package agent

import (
	"maps"
	"slices"

	"call-screening/internal/swml"
)

// Config is the declarative part of an agent: voice, prompt and AI parameters.
//
// An Agent holds one static Config. Each SWML request works on a deep copy, so
// per-call customisation (caller name, hold music URL) never leaks into other calls.
type Config struct {
	Languages  []swml.Language
	Hints      []string
	Sections   []swml.Section
	Params     map[string]any
	GlobalData map[string]any
}

func (c *Config) AddLanguage(name, code, voice string) {
	c.Languages = append(c.Languages, swml.Language{Name: name, Code: code, Voice: voice})
}

// AddHints appends speech-recognition hints, skipping duplicates.
func (c *Config) AddHints(hints ...string) {
	for _, h := range hints {
		if h == "" || slices.Contains(c.Hints, h) {
			continue
		}
		c.Hints = append(c.Hints, h)
	}
}

// PromptAddSection adds a prompt section. Adding a title that already exists
// replaces that section in place.
func (c *Config) PromptAddSection(title, body string, bullets ...string) {
	s := swml.Section{Title: title, Body: body, Bullets: slices.Clone(bullets)}
	for i := range c.Sections {
		if c.Sections[i].Title == title {
			c.Sections[i] = s
			return
		}
	}
	c.Sections = append(c.Sections, s)
}

// Section returns the section with the given title.
func (c *Config) Section(title string) (swml.Section, bool) {
	for _, s := range c.Sections {
		if s.Title == title {
			return s, true
		}
	}
	return swml.Section{}, false
}

// SetParams merges AI parameters; existing keys are overwritten.
func (c *Config) SetParams(params map[string]any) {
	if c.Params == nil {
		c.Params = make(map[string]any, len(params))
	}
	maps.Copy(c.Params, params)
}

func (c *Config) SetParam(key string, value any) {
	c.SetParams(map[string]any{key: value})
}

// SetGlobalData merges values the platform echoes back on every function call.
func (c *Config) SetGlobalData(data map[string]any) {
	if c.GlobalData == nil {
		c.GlobalData = make(map[string]any, len(data))
	}
	maps.Copy(c.GlobalData, data)
}

func (c Config) clone() Config {
	out := Config{
		Languages:  slices.Clone(c.Languages),
		Hints:      slices.Clone(c.Hints),
		Params:     maps.Clone(c.Params),
		GlobalData: maps.Clone(c.GlobalData),
	}
	if c.Sections != nil {
		out.Sections = make([]swml.Section, len(c.Sections))
		for i, s := range c.Sections {
			s.Bullets = slices.Clone(s.Bullets)
			out.Sections[i] = s
		}
	}
	return out
}
