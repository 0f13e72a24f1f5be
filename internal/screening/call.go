package screening

import (
	"context"
	"fmt"
	"net/http"

	"call-screening/internal/agent"
	"call-screening/internal/handoff"
	"call-screening/internal/swaig"
	"call-screening/internal/swml"
)

const (
	CallAgentName  = "CallAgent"
	CallAgentRoute = "/call-agent"

	FuncAcceptCall = "accept_call"
	FuncRejectCall = "reject_call"

	// Global data keys set per request and echoed back on every function call.
	GlobalOriginalCallID = "original_call_id"
	GlobalCallerName     = "caller_name"
	GlobalCallerReason   = "caller_reason"

	acceptResponse = "Connecting you now."
	rejectResponse = "Understood, I'll let them know."

	DefaultRejectMessage = "I apologize, but no one is available to take your call right now. Please leave a message."
)

// NewCallAgent builds the agent that runs on the human's leg.
func NewCallAgent(opts Options) (*agent.Agent, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	a := agent.New(CallAgentName, CallAgentRoute)
	a.AddLanguage("English", "en-US", opts.Voice)
	a.AddHints("accept", "reject", "take the call", "decline", "message", "not available", "busy")

	// outbound leg: let the human speak first
	a.SetParams(map[string]any{
		"wait_for_user": true,
		"temperature":   0.3,
		"top_p":         0.9,
	})

	a.PromptAddSection("Personality",
		"You are Ethan, a professional assistant managing incoming calls. "+
			"You present caller information clearly and help the human decide whether to take the call.")
	a.PromptAddSection("Goal",
		"Present the waiting caller's information and allow the human to accept or reject the call.")
	a.PromptAddSection("Instructions", "",
		"Use the exact greeting provided in the Greeting section - do not make up caller names or reasons",
		"Ask if they would like to take the call",
		"If they want to take it, use accept_call",
		"If they want to decline, ask what message to relay and use reject_call with that message",
		"Be concise and professional",
	)

	a.OnRequest(func(ctx context.Context, cfg *agent.Config, r *http.Request) {
		if r == nil {
			return
		}
		q := r.URL.Query()
		callID := nonEmpty(q.Get("call_id"), handoff.UnknownCallID)
		reason := nonEmpty(q.Get("reason"), "unknown reason")
		name := nonEmpty(q.Get("name"), "unknown caller")

		cfg.SetGlobalData(map[string]any{
			GlobalOriginalCallID: callID,
			GlobalCallerName:     name,
			GlobalCallerReason:   reason,
		})
		cfg.PromptAddSection("Current Call Context", fmt.Sprintf(
			"You have %s on hold. They are calling about: %s. The original call ID is %s.",
			name, reason, callID))
		cfg.PromptAddSection("Greeting", fmt.Sprintf(
			"Always start by saying: 'Hi this is Ethan, I have %s on the phone, they are calling about %s. Would you like to take this call?'",
			name, reason))

		opts.track(ctx, "present", func(t Tracker) error {
			_, err := t.MarkPresented(ctx, callID, name, reason)
			return err
		})
	})

	h := &callHandler{opts: opts}
	tools := []swaig.Tool{
		{
			Name:        FuncAcceptCall,
			Description: "Accept the call and connect the human with the waiting caller.",
			Parameters:  swaig.Object(nil),
			Handler:     h.acceptCall,
			Secure:      true,
		},
		{
			Name:        FuncRejectCall,
			Description: "Reject the call and send a message to the waiting caller. The caller will be taken off hold and given the message.",
			Parameters: swaig.Object(map[string]swaig.Property{
				"message": swaig.StringProp("The message to relay to the waiting caller explaining why you cannot take their call"),
			}, "message"),
			Handler: h.rejectCall,
			Secure:  true,
		},
	}
	for _, t := range tools {
		if err := a.DefineTool(t); err != nil {
			return nil, err
		}
	}
	return a, nil
}

type callHandler struct {
	opts Options
}

// acceptCall transfers the human's leg into a bridge with the held caller.
func (h *callHandler) acceptCall(ctx context.Context, args swaig.Args, req swaig.Request) (*swaig.Result, error) {
	callID := req.GlobalString(GlobalOriginalCallID, handoff.UnknownCallID)

	h.opts.track(ctx, "accept", func(t Tracker) error {
		_, err := t.Accept(ctx, callID)
		return err
	})

	bridge := swml.NewUnversioned().AddMain(swml.AnswerBare, swml.ConnectCall(callID, h.opts.FromNumber))
	return swaig.NewResult(acceptResponse).
		Transfer().
		SWML(bridge), nil
}

// rejectCall relays the human's message to the held caller's AI and takes
// that caller off hold.
func (h *callHandler) rejectCall(ctx context.Context, args swaig.Args, req swaig.Request) (*swaig.Result, error) {
	callID := req.GlobalString(GlobalOriginalCallID, handoff.UnknownCallID)
	message := args.String("message", DefaultRejectMessage)

	h.opts.track(ctx, "reject", func(t Tracker) error {
		_, err := t.Reject(ctx, callID, message)
		return err
	})

	relay := swml.New().AddMain(
		swml.AIMessage(callID, "system", RelayInstruction(message)),
		swml.AIUnhold(callID),
	)
	return swaig.NewResult(rejectResponse).SWML(relay), nil
}

// RelayInstruction is the system message injected into the held caller's conversation.
func RelayInstruction(message string) string {
	return fmt.Sprintf("The person you were trying to reach is not available. Apologize to the caller and relay this message from them: '%s'. Then offer to take a message or help in another way.", message)
}

func nonEmpty(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
