package screening

import (
	"context"
	"net/http"

	"call-screening/internal/agent"
	"call-screening/internal/handoff"
	"call-screening/internal/swaig"
	"call-screening/internal/swml"
)

const (
	HoldAgentName  = "HoldAgent"
	HoldAgentRoute = "/hold-agent"

	// HoldMusicPath is served from the static web directory.
	HoldMusicPath = "/hold-music.wav"

	FuncPlaceCallOnHold = "place_call_on_hold"

	holdResponse = "Please hold while I connect you with someone."
)

// NewHoldAgent builds the agent that screens inbound callers.
func NewHoldAgent(opts Options) (*agent.Agent, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	a := agent.New(HoldAgentName, HoldAgentRoute)
	a.AddLanguage("English", "en-US", opts.Voice)
	a.AddHints("calling", "name", "reason", "speak with", "talk to", "message", "callback", "available")

	a.PromptAddSection("Personality",
		"You are Ethan, a professional call screener. You are warm, efficient, and courteous. "+
			"Your job is to identify callers and understand why they are calling before connecting them.")
	a.PromptAddSection("Goal",
		"Screen incoming calls by collecting the caller's name and reason for calling, "+
			"then connect them with the appropriate person.")
	a.PromptAddSection("Instructions", "",
		"Answer the call and greet warmly, introducing yourself as Ethan",
		"Ask for their name if not already known",
		"Ask the reason for their call",
		"Once you have both name and reason, use the place_call_on_hold function",
		"Be professional but friendly",
		"If the call returns to you after being on hold (no one available), apologize and offer to take a message",
	)
	a.PromptAddSection("Greeting",
		"Always start the conversation by saying: 'Hi, this is Ethan. May I ask who's calling?'")

	a.SetParams(map[string]any{
		"temperature": 0.3,
		"top_p":       0.9,
	})

	a.OnRequest(func(ctx context.Context, cfg *agent.Config, r *http.Request) {
		cfg.SetParam("hold_music", opts.URLs.URL(r, HoldMusicPath, false))
	})

	h := &holdHandler{opts: opts}
	err = a.DefineTool(swaig.Tool{
		Name:        FuncPlaceCallOnHold,
		Description: "Place the caller on hold and dial out to connect them with a human. Use this after collecting the caller's name and reason for calling.",
		Parameters: swaig.Object(map[string]swaig.Property{
			"caller_name": swaig.StringProp("The name of the person calling"),
			"reason":      swaig.StringProp("The reason for the call"),
		}, "caller_name", "reason"),
		Handler: h.placeCallOnHold,
		Secure:  true,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

type holdHandler struct {
	opts Options
}

// placeCallOnHold holds the caller and dials the human. The dialed leg fetches
// the call agent with the caller's details in the query string.
func (h *holdHandler) placeCallOnHold(ctx context.Context, args swaig.Args, req swaig.Request) (*swaig.Result, error) {
	callID := req.CallIDOr(handoff.UnknownCallID)
	callerName := args.String("caller_name", "Unknown")
	reason := args.String("reason", "Unknown reason")

	destSWML := h.opts.URLs.URL(agent.RequestFrom(ctx), CallAgentRoute, true) +
		"?call_id=" + queryEscape(callID) +
		"&reason=" + queryEscape(reason) +
		"&name=" + queryEscape(callerName)

	h.opts.track(ctx, "hold", func(t Tracker) error {
		_, err := t.BeginHold(ctx, callID, callerName, reason)
		return err
	})

	dial := swml.New().AddMain(swml.DialPhone(h.opts.ToNumber, h.opts.FromNumber, destSWML))
	return swaig.NewResult(holdResponse).
		Hold(h.opts.HoldTimeout).
		SWML(dial), nil
}
