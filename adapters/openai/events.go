package openai

import (
	"encoding/json"
	"fmt"
)

// ServerEventType identifies a realtime event received from the AI session.
type ServerEventType string

// Server event types the bridge reacts to. Anything else is ignored.
const (
	EventAudioDelta           ServerEventType = "response.audio.delta"
	EventAudioDone            ServerEventType = "response.audio.done"
	EventResponseDone         ServerEventType = "response.done"
	EventSpeechStarted        ServerEventType = "input_audio_buffer.speech_started"
	EventInputTranscriptDone  ServerEventType = "conversation.item.input_audio_transcription.completed"
	EventOutputTranscriptDone ServerEventType = "response.audio_transcript.done"
	EventToolCallDone         ServerEventType = "response.function_call_arguments.done"
	EventError                ServerEventType = "error"
)

// ServerEvent is one decoded realtime event. The wire format is a tagged
// union; fields beyond Type are populated depending on the event.
type ServerEvent struct {
	Type ServerEventType `json:"type"`

	// Base64-encoded audio chunk, set on response.audio.delta.
	Delta string `json:"delta,omitempty"`

	// Finished utterance text, set on the two transcript events.
	Transcript string `json:"transcript,omitempty"`

	// Tool call fields, set on response.function_call_arguments.done.
	// Arguments is the raw JSON argument string as sent by the model.
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`

	// Error details, set on error events.
	Error *ServerEventError `json:"error,omitempty"`
}

// ServerEventError carries the provider's error payload.
type ServerEventError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ParseServerEvent decodes one raw websocket message into a ServerEvent.
func ParseServerEvent(data []byte) (ServerEvent, error) {
	var event ServerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return ServerEvent{}, fmt.Errorf("invalid realtime event: %w", err)
	}
	if event.Type == "" {
		return ServerEvent{}, fmt.Errorf("realtime event missing type field")
	}
	return event, nil
}

// ParseToolArguments decodes the raw argument string of a completed tool call
// into a name/value mapping.
func ParseToolArguments(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}
