package entities

// DefaultInstructions is used when no record matches an inbound call.
const DefaultInstructions = "You are a helpful AI customer service agent. Greet the caller warmly and ask how you can help them today."

// CallContext is the per-call configuration resolved at call setup. It is
// immutable for the lifetime of the call.
type CallContext struct {
	CallSID      string `json:"call_sid"`
	RecordID     string `json:"record_id,omitempty"`
	Instructions string `json:"instructions"`
	Email        string `json:"email,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Topic        string `json:"topic,omitempty"`
}

// DefaultCallContext returns the safe fallback context for calls with no
// matching record: a generic greeting and no contact data.
func DefaultCallContext(callSID string) CallContext {
	return CallContext{
		CallSID:      callSID,
		Instructions: DefaultInstructions,
	}
}

// ContextFromRecord builds a CallContext from a matched store record.
func ContextFromRecord(callSID string, record *CallRecord) CallContext {
	return CallContext{
		CallSID:      callSID,
		RecordID:     record.ID.Hex(),
		Instructions: record.CallDescription,
		Email:        record.Email,
		PhoneNumber:  record.PhoneNumber,
		Topic:        record.Context,
	}
}
