package swaig

import (
	"context"

	"call-screening/internal/swml"
)

// Handler executes one function invocation.
type Handler func(ctx context.Context, args Args, req Request) (*Result, error)

// Tool is a function the AI can call during a conversation.
// Secure tools require a per-session token on the callback URL.
type Tool struct {
	Name        string
	Description string
	Parameters  Schema
	Handler     Handler
	Secure      bool
}

// Schema is the JSON-schema subset used for function parameters.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Object builds an object schema. Nil inputs render as {} and [].
func Object(props map[string]Property, required ...string) Schema {
	if props == nil {
		props = map[string]Property{}
	}
	if required == nil {
		required = []string{}
	}
	return Schema{Type: "object", Properties: props, Required: required}
}

// StringProp is a string property with a description.
func StringProp(description string) Property {
	return Property{Type: "string", Description: description}
}

// Signature renders the SWML declaration of the tool.
func (t Tool) Signature(webHookURL string) swml.Function {
	return swml.Function{
		Function:    t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
		WebHookURL:  webHookURL,
	}
}
