package screening

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"call-screening/internal/agent"
	"call-screening/internal/audit"
	"call-screening/internal/handoff"
	"call-screening/internal/swaig"
	"call-screening/internal/swml"
	"call-screening/internal/urls"
	"call-screening/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTo   = "+19184249378"
	testFrom = "+12068655443"
)

func testOptions(tracker Tracker) Options {
	return Options{
		ToNumber:   testTo,
		FromNumber: testFrom,
		URLs: urls.Resolver{
			ProxyBase: "https://example.ngrok.io",
			User:      "signalwire",
			Password:  "pw",
		},
		Handoffs: tracker,
		Logger:   logger.Discard(),
	}
}

func newTracker() *handoff.Service {
	return handoff.NewService(handoff.NewMemoryStore(), audit.NewService(audit.NewMemoryRepo()), logger.Discard())
}

func resultJSON(t *testing.T, res *swaig.Result) string {
	t.Helper()
	raw, err := json.Marshal(res)
	require.NoError(t, err)
	return string(raw)
}

func renderAI(t *testing.T, a *agent.Agent, target string) swml.AI {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	doc, err := a.Render(context.Background(), r, urls.Resolver{ProxyBase: "https://example.ngrok.io", User: "signalwire", Password: "pw"}, nil, time.Now())
	require.NoError(t, err)
	main := doc.Main()
	require.Len(t, main, 2)
	ai, ok := main[1].(swml.Verb)["ai"].(swml.AI)
	require.True(t, ok)
	return ai
}

func TestHoldAgent_PlaceCallOnHold(t *testing.T) {
	tracker := newTracker()
	a, err := NewHoldAgent(testOptions(tracker))
	require.NoError(t, err)

	res, err := a.Dispatch(context.Background(), swaig.Request{
		Function: FuncPlaceCallOnHold,
		CallID:   "c-1",
		Argument: swaig.Argument{Parsed: []map[string]any{{"caller_name": "Ann Lee", "reason": "billing question"}}},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"response": "Please hold while I connect you with someone.",
		"action": [
			{"hold": 120},
			{"swml": {
				"version": "1.0.0",
				"sections": {"main": [{"execute_rpc": {
					"method": "dial",
					"params": {
						"devices": {"type": "phone", "params": {"to_number": "+19184249378", "from_number": "+12068655443"}},
						"dest_swml": "https://signalwire:pw@example.ngrok.io/call-agent?call_id=c-1&reason=billing%20question&name=Ann%20Lee"
					}
				}}]}
			}}
		]
	}`, resultJSON(t, res))

	h, err := tracker.Get(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, handoff.StatusOnHold, h.Status)
	assert.Equal(t, "Ann Lee", h.CallerName)
}

func TestHoldAgent_DefaultsAndEscaping(t *testing.T) {
	opts := testOptions(nil)
	opts.HoldTimeout = 2 * time.Hour
	a, err := NewHoldAgent(opts)
	require.NoError(t, err)

	res, err := a.Dispatch(context.Background(), swaig.Request{
		Function: FuncPlaceCallOnHold,
		Argument: swaig.Argument{Raw: `{"reason":"A&B = 50/50"}`},
	})
	require.NoError(t, err)

	require.Len(t, res.Actions, 2)
	assert.Equal(t, int(swaig.MaxHold/time.Second), res.Actions[0]["hold"])

	doc := res.Actions[1]["swml"].(*swml.Document)
	dial := doc.Main()[0].(swml.Verb)["execute_rpc"].(swml.ExecuteRPC)
	dest := dial.Params.(swml.DialParams).DestSWML
	assert.Equal(t, "https://signalwire:pw@example.ngrok.io/call-agent?call_id=unknown&reason=A%26B%20%3D%2050%2F50&name=Unknown", dest)
}

func TestHoldAgent_RenderSetsHoldMusic(t *testing.T) {
	a, err := NewHoldAgent(testOptions(nil))
	require.NoError(t, err)

	ai := renderAI(t, a, "/hold-agent")
	assert.Equal(t, "https://example.ngrok.io/hold-music.wav", ai.Params["hold_music"])
	assert.Equal(t, 0.3, ai.Params["temperature"])
	assert.Equal(t, 0.9, ai.Params["top_p"])
	require.Len(t, ai.Prompt.POM, 4)
	assert.Equal(t, "Greeting", ai.Prompt.POM[3].Title)
	assert.Len(t, ai.Prompt.POM[2].Bullets, 6)
	assert.Equal(t, DefaultVoice, ai.Languages[0].Voice)
	require.NotNil(t, ai.SWAIG)
	require.Len(t, ai.SWAIG.Functions, 1)
	assert.Equal(t, FuncPlaceCallOnHold, ai.SWAIG.Functions[0].Function)
}

func TestCallAgent_RenderPresentsCaller(t *testing.T) {
	tracker := newTracker()
	a, err := NewCallAgent(testOptions(tracker))
	require.NoError(t, err)

	ai := renderAI(t, a, "/call-agent?call_id=c-1&reason=billing%20question&name=Ann%20Lee")

	assert.Equal(t, "c-1", ai.GlobalData[GlobalOriginalCallID])
	assert.Equal(t, "Ann Lee", ai.GlobalData[GlobalCallerName])
	assert.Equal(t, "billing question", ai.GlobalData[GlobalCallerReason])
	assert.Equal(t, true, ai.Params["wait_for_user"])

	require.Len(t, ai.Prompt.POM, 5)
	assert.Equal(t, "Current Call Context", ai.Prompt.POM[3].Title)
	assert.Equal(t, "You have Ann Lee on hold. They are calling about: billing question. The original call ID is c-1.", ai.Prompt.POM[3].Body)
	assert.Equal(t, "Always start by saying: 'Hi this is Ethan, I have Ann Lee on the phone, they are calling about billing question. Would you like to take this call?'", ai.Prompt.POM[4].Body)

	h, err := tracker.Get(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, handoff.StatusPresenting, h.Status)

	// a second render for another caller must not carry the first caller's context
	ai = renderAI(t, a, "/call-agent")
	assert.Equal(t, "unknown", ai.GlobalData[GlobalOriginalCallID])
	assert.Equal(t, "unknown caller", ai.GlobalData[GlobalCallerName])
	assert.Equal(t, "unknown reason", ai.GlobalData[GlobalCallerReason])
	assert.Len(t, ai.Prompt.POM, 5)
}

func TestCallAgent_AcceptCall(t *testing.T) {
	tracker := newTracker()
	ctx := context.Background()
	_, _ = tracker.BeginHold(ctx, "c-1", "Ann", "billing")

	a, err := NewCallAgent(testOptions(tracker))
	require.NoError(t, err)

	res, err := a.Dispatch(ctx, swaig.Request{
		Function:   FuncAcceptCall,
		GlobalData: map[string]any{GlobalOriginalCallID: "c-1"},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"response": "Connecting you now.",
		"action": [
			{"transfer": true},
			{"swml": {"sections": {"main": ["answer", {"connect": {"to": "call:c-1", "from": "+12068655443"}}]}}}
		]
	}`, resultJSON(t, res))

	h, err := tracker.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, handoff.StatusAccepted, h.Status)
}

func TestCallAgent_RejectCall(t *testing.T) {
	tracker := newTracker()
	ctx := context.Background()
	_, _ = tracker.BeginHold(ctx, "c-1", "Ann", "billing")

	a, err := NewCallAgent(testOptions(tracker))
	require.NoError(t, err)

	res, err := a.Dispatch(ctx, swaig.Request{
		Function:   FuncRejectCall,
		GlobalData: map[string]any{GlobalOriginalCallID: "c-1"},
		Argument:   swaig.Argument{Parsed: []map[string]any{{"message": "in a meeting"}}},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"response": "Understood, I'll let them know.",
		"action": [{"swml": {
			"version": "1.0.0",
			"sections": {"main": [
				{"execute_rpc": {"call_id": "c-1", "method": "ai_message", "params": {
					"role": "system",
					"message_text": "The person you were trying to reach is not available. Apologize to the caller and relay this message from them: 'in a meeting'. Then offer to take a message or help in another way."
				}}},
				{"execute_rpc": {"call_id": "c-1", "method": "ai_unhold", "params": {}}}
			]}
		}}]
	}`, resultJSON(t, res))

	h, err := tracker.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, handoff.StatusRejected, h.Status)
	assert.Equal(t, "in a meeting", h.RejectMessage)
}

func TestCallAgent_RejectDefaultsWithoutContext(t *testing.T) {
	a, err := NewCallAgent(testOptions(nil))
	require.NoError(t, err)

	res, err := a.Dispatch(context.Background(), swaig.Request{Function: FuncRejectCall})
	require.NoError(t, err)

	doc := res.Actions[0]["swml"].(*swml.Document)
	msg := doc.Main()[0].(swml.Verb)["execute_rpc"].(swml.ExecuteRPC)
	assert.Equal(t, "unknown", msg.CallID)
	assert.Equal(t, RelayInstruction(DefaultRejectMessage), msg.Params.(swml.AIMessageParams).MessageText)
}

func TestCallAgent_TrackingFailureDoesNotBlock(t *testing.T) {
	// accept for a call that was never held: the store has no record
	a, err := NewCallAgent(testOptions(newTracker()))
	require.NoError(t, err)

	res, err := a.Dispatch(context.Background(), swaig.Request{
		Function:   FuncAcceptCall,
		GlobalData: map[string]any{GlobalOriginalCallID: "never-held"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Connecting you now.", res.Response)
}

func TestOptionsValidation(t *testing.T) {
	_, err := NewHoldAgent(Options{ToNumber: testTo, FromNumber: testFrom})
	assert.Error(t, err)

	opts := testOptions(nil)
	opts.FromNumber = ""
	_, err = NewCallAgent(opts)
	assert.Error(t, err)
}
