package bridge

import (
	"encoding/json"
	"fmt"
)

// Telephony media stream wire format. Frames are JSON text messages; audio
// payloads are opaque base64 strings the bridge never decodes.

// Stream event names delivered by the telephony provider.
const (
	telephonyEventStart = "start"
	telephonyEventMedia = "media"
	telephonyEventStop  = "stop"
)

// StreamStart carries the call setup payload of a start frame.
type StreamStart struct {
	CallSID          string            `json:"callSid"`
	StreamSID        string            `json:"streamSid"`
	CustomParameters map[string]string `json:"customParameters"`
}

// StreamMedia carries one audio frame.
type StreamMedia struct {
	Payload string `json:"payload"`
}

// StreamFrame is one inbound telephony message.
type StreamFrame struct {
	Event     string       `json:"event"`
	StreamSID string       `json:"streamSid,omitempty"`
	Start     *StreamStart `json:"start,omitempty"`
	Media     *StreamMedia `json:"media,omitempty"`
}

// outboundMedia is the frame sent back to the telephony side for assistant
// audio.
type outboundMedia struct {
	Event     string      `json:"event"`
	StreamSID string      `json:"streamSid"`
	Media     StreamMedia `json:"media"`
}

// ParseStreamFrame decodes one raw telephony message.
func ParseStreamFrame(data []byte) (StreamFrame, error) {
	var frame StreamFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return StreamFrame{}, fmt.Errorf("invalid stream frame: %w", err)
	}
	if frame.Event == "" {
		return StreamFrame{}, fmt.Errorf("stream frame missing event field")
	}
	return frame, nil
}

// Parameter returns a custom parameter from a start frame, or "" when absent.
func (s *StreamStart) Parameter(name string) string {
	if s == nil || s.CustomParameters == nil {
		return ""
	}
	return s.CustomParameters[name]
}
