// Package swml models the platform's call-control markup.
//
// Documents built here are handed to the platform verbatim; nothing in this
// repository interprets them. Keep the shapes minimal and provider-accurate.
package swml

import "encoding/json"

// Version is the SWML document version emitted by the agents.
const Version = "1.0.0"

// MainSection is the entry section executed by the platform.
const MainSection = "main"

// Document is a SWML document: named sections, each an ordered list of verbs.
// A verb is either a bare string ("answer") or a single-key object.
type Document struct {
	Version  string           `json:"version,omitempty"`
	Sections map[string][]any `json:"sections"`
}

// New returns an empty versioned document.
func New() *Document {
	return &Document{Version: Version, Sections: map[string][]any{}}
}

// NewUnversioned returns an empty document without a version field.
// Some inline actions (e.g. the connect-on-accept transfer) are sent that way.
func NewUnversioned() *Document {
	return &Document{Sections: map[string][]any{}}
}

// Add appends verbs to a section, creating it when needed.
func (d *Document) Add(section string, verbs ...any) *Document {
	if d.Sections == nil {
		d.Sections = map[string][]any{}
	}
	d.Sections[section] = append(d.Sections[section], verbs...)
	return d
}

// AddMain appends verbs to the main section.
func (d *Document) AddMain(verbs ...any) *Document {
	return d.Add(MainSection, verbs...)
}

// Main returns the verbs of the main section.
func (d *Document) Main() []any {
	if d == nil {
		return nil
	}
	return d.Sections[MainSection]
}

// Generic renders the document as plain maps/slices, the shape YAML encoders
// and JSON comparisons want.
func (d *Document) Generic() (map[string]any, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
