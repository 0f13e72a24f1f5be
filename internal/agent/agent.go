// Package agent defines declarative voice agents and renders them to SWML.
//
// An agent is a named bundle of prompt, voice and tools mounted on a route.
// Rendering produces the answer + ai document the platform executes; tool
// dispatch runs the Go handler behind a SWAIG callback.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"call-screening/internal/swaig"
	"call-screening/internal/swml"

	"github.com/google/uuid"
)

// Query parameters carried on secure tool callback URLs.
const (
	TokenParam   = "__token"
	SessionParam = "session_id"
)

// SWAIGPath is appended to the agent route for function callbacks.
const SWAIGPath = "/swaig"

// RequestHook customises the per-request Config before rendering.
// r may be nil when rendering outside HTTP (e.g. the CLI harness).
type RequestHook func(ctx context.Context, cfg *Config, r *http.Request)

// URLResolver builds absolute URLs for paths on this service.
type URLResolver interface {
	URL(r *http.Request, path string, withAuth bool) string
}

// TokenIssuer mints per-session function tokens.
type TokenIssuer interface {
	Issue(now time.Time, sessionID, function string) (string, error)
}

type httpRequestKey struct{}

// WithRequest attaches the inbound HTTP request so tool handlers can resolve
// public URLs the same way rendering does.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, r)
}

// RequestFrom returns the request attached by WithRequest, or nil.
func RequestFrom(ctx context.Context) *http.Request {
	r, _ := ctx.Value(httpRequestKey{}).(*http.Request)
	return r
}

// Agent is a declarative agent. Configure it at startup, then treat it as
// read-only: Render and Dispatch are safe for concurrent use.
type Agent struct {
	Config

	name  string
	route string

	tools     []swaig.Tool
	toolIndex map[string]int
	onRequest RequestHook
}

// New creates an agent mounted on route ("/hold-agent").
func New(name, route string) *Agent {
	return &Agent{
		name:      name,
		route:     NormalizeRoute(route),
		toolIndex: map[string]int{},
	}
}

// NormalizeRoute ensures a leading slash and no trailing slash ("/" stays "/").
func NormalizeRoute(route string) string {
	route = "/" + strings.Trim(strings.TrimSpace(route), "/")
	return route
}

func (a *Agent) Name() string  { return a.name }
func (a *Agent) Route() string { return a.route }

// SWAIGRoute is the callback path for this agent's tools.
func (a *Agent) SWAIGRoute() string {
	if a.route == "/" {
		return SWAIGPath
	}
	return a.route + SWAIGPath
}

// OnRequest sets the dynamic configuration hook.
func (a *Agent) OnRequest(h RequestHook) { a.onRequest = h }

// DefineTool registers a tool. Redefining a name replaces the earlier tool.
func (a *Agent) DefineTool(t swaig.Tool) error {
	if t.Name == "" {
		return errors.New("agent: tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("agent: tool %q has no handler", t.Name)
	}
	if i, ok := a.toolIndex[t.Name]; ok {
		a.tools[i] = t
		return nil
	}
	a.toolIndex[t.Name] = len(a.tools)
	a.tools = append(a.tools, t)
	return nil
}

// Tool looks up a registered tool.
func (a *Agent) Tool(name string) (swaig.Tool, bool) {
	i, ok := a.toolIndex[name]
	if !ok {
		return swaig.Tool{}, false
	}
	return a.tools[i], true
}

// Tools returns the registered tools in definition order.
func (a *Agent) Tools() []swaig.Tool {
	out := make([]swaig.Tool, len(a.tools))
	copy(out, a.tools)
	return out
}

// RequestConfig returns the per-request configuration: a copy of the static
// Config with the OnRequest hook applied.
func (a *Agent) RequestConfig(ctx context.Context, r *http.Request) Config {
	cfg := a.Config.clone()
	if a.onRequest != nil {
		a.onRequest(ctx, &cfg, r)
	}
	return cfg
}

// Render builds the SWML document for one inbound request.
func (a *Agent) Render(ctx context.Context, r *http.Request, urls URLResolver, tokens TokenIssuer, now time.Time) (*swml.Document, error) {
	if urls == nil {
		return nil, errors.New("agent: url resolver is required")
	}
	cfg := a.RequestConfig(ctx, r)

	functions, err := a.Signatures(r, urls, tokens, now, nil)
	if err != nil {
		return nil, err
	}

	ai := swml.AI{
		Prompt:     swml.Prompt{POM: cfg.Sections},
		Params:     cfg.Params,
		Languages:  cfg.Languages,
		Hints:      cfg.Hints,
		GlobalData: cfg.GlobalData,
	}
	if len(a.tools) > 0 {
		ai.SWAIG = &swml.SWAIG{
			Defaults:  &swml.SWAIGDefaults{WebHookURL: urls.URL(r, a.SWAIGRoute(), true)},
			Functions: functions,
		}
	}

	return swml.New().AddMain(swml.Answer(), ai.Verb()), nil
}

// Signatures renders SWAIG declarations for the named tools (all when names is empty),
// in definition order. Secure tools get a callback URL bound to a fresh session.
// Unknown names are skipped.
func (a *Agent) Signatures(r *http.Request, urls URLResolver, tokens TokenIssuer, now time.Time, names []string) ([]swml.Function, error) {
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}

	sessionID := uuid.NewString()
	webhook := urls.URL(r, a.SWAIGRoute(), true)

	out := make([]swml.Function, 0, len(a.tools))
	for _, t := range a.tools {
		if len(want) > 0 && !want[t.Name] {
			continue
		}
		hookURL := ""
		if t.Secure && tokens != nil {
			tok, err := tokens.Issue(now, sessionID, t.Name)
			if err != nil {
				return nil, fmt.Errorf("agent: issue token for %s: %w", t.Name, err)
			}
			q := url.Values{}
			q.Set(TokenParam, tok)
			q.Set(SessionParam, sessionID)
			hookURL = webhook + "?" + q.Encode()
		}
		out = append(out, t.Signature(hookURL))
	}
	return out, nil
}

// Dispatch runs the tool named in req.
func (a *Agent) Dispatch(ctx context.Context, req swaig.Request) (*swaig.Result, error) {
	t, ok := a.Tool(req.Function)
	if !ok {
		return nil, fmt.Errorf("%w: %s", swaig.ErrUnknownFunction, req.Function)
	}
	res, err := t.Handler(ctx, req.Args(), req)
	if err != nil {
		return nil, fmt.Errorf("agent: %s: %w", t.Name, err)
	}
	if res == nil {
		return nil, fmt.Errorf("agent: %s returned no result", t.Name)
	}
	return res, nil
}
