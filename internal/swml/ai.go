package swml

// AI is the ai verb: prompt, voice and SWAIG function declarations for one conversation.
type AI struct {
	Prompt     Prompt         `json:"prompt"`
	Params     map[string]any `json:"params,omitempty"`
	Languages  []Language     `json:"languages,omitempty"`
	Hints      []string       `json:"hints,omitempty"`
	GlobalData map[string]any `json:"global_data,omitempty"`
	SWAIG      *SWAIG         `json:"SWAIG,omitempty"`
}

func (a AI) Verb() Verb { return Verb{"ai": a} }

// Prompt carries either structured sections (POM) or plain text.
type Prompt struct {
	POM  []Section `json:"pom,omitempty"`
	Text string    `json:"text,omitempty"`
}

// Section is one prompt object model section.
type Section struct {
	Title   string   `json:"title,omitempty"`
	Body    string   `json:"body,omitempty"`
	Bullets []string `json:"bullets,omitempty"`
}

type Language struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Voice string `json:"voice"`
}

// SWAIG declares the callbacks the platform may invoke during the conversation.
type SWAIG struct {
	Defaults  *SWAIGDefaults `json:"defaults,omitempty"`
	Functions []Function     `json:"functions,omitempty"`
}

type SWAIGDefaults struct {
	WebHookURL string `json:"web_hook_url,omitempty"`
}

// Function is a SWAIG function signature.
type Function struct {
	Function    string `json:"function"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
	WebHookURL  string `json:"web_hook_url,omitempty"`
}
