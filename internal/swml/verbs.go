package swml

// Verb is a single-key SWML instruction object, e.g. {"connect": {...}}.
type Verb map[string]any

// AnswerBare is the short string form of the answer verb.
const AnswerBare = "answer"

// RPC method names understood by the platform's execute_rpc verb.
const (
	MethodDial      = "dial"
	MethodAIMessage = "ai_message"
	MethodAIUnhold  = "ai_unhold"
)

// Answer is the object form of the answer verb.
func Answer() Verb {
	return Verb{"answer": map[string]any{}}
}

// ExecuteRPC asks the platform to run a call-control method, optionally against another call.
type ExecuteRPC struct {
	CallID string `json:"call_id,omitempty"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

func (r ExecuteRPC) Verb() Verb { return Verb{"execute_rpc": r} }

// DialParams are the params of an execute_rpc dial.
type DialParams struct {
	Devices  Device `json:"devices"`
	DestSWML string `json:"dest_swml,omitempty"`
}

type Device struct {
	Type   string      `json:"type"`
	Params PhoneParams `json:"params"`
}

type PhoneParams struct {
	ToNumber   string `json:"to_number"`
	FromNumber string `json:"from_number"`
}

// AIMessageParams inject a message into another call's AI conversation.
type AIMessageParams struct {
	Role        string `json:"role"`
	MessageText string `json:"message_text"`
}

// Connect bridges the current leg to a target ("call:<id>", a number or a SIP URI).
type Connect struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
}

func (c Connect) Verb() Verb { return Verb{"connect": c} }

// DialPhone dials a PSTN number and runs destSWML on the answered leg.
func DialPhone(to, from, destSWML string) Verb {
	return ExecuteRPC{
		Method: MethodDial,
		Params: DialParams{
			Devices: Device{
				Type:   "phone",
				Params: PhoneParams{ToNumber: to, FromNumber: from},
			},
			DestSWML: destSWML,
		},
	}.Verb()
}

// AIMessage adds a message with the given role to the AI session on callID.
func AIMessage(callID, role, text string) Verb {
	return ExecuteRPC{
		CallID: callID,
		Method: MethodAIMessage,
		Params: AIMessageParams{Role: role, MessageText: text},
	}.Verb()
}

// AIUnhold takes the AI session on callID off hold.
func AIUnhold(callID string) Verb {
	return ExecuteRPC{
		CallID: callID,
		Method: MethodAIUnhold,
		Params: map[string]any{},
	}.Verb()
}

// ConnectCall bridges to an existing call leg.
func ConnectCall(callID, from string) Verb {
	return Connect{To: "call:" + callID, From: from}.Verb()
}
