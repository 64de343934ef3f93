package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultRealtimeURL = "wss://api.openai.com/v1/realtime"
	defaultModel       = "gpt-4o-realtime-preview-2024-12-17"

	// Buffered so a burst of audio deltas does not block the read loop
	// while the consumer is submitting a tool output.
	eventBufferSize = 256
)

// Config holds configuration for the realtime client.
// Required fields:
// - APIKey: Your OpenAI API key
// Optional fields with defaults:
// - BaseURL: The realtime websocket endpoint (default: "wss://api.openai.com/v1/realtime")
// - Model: The realtime model (default: "gpt-4o-realtime-preview-2024-12-17")
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewConfigFromEnv builds a Config from environment variables.
func NewConfigFromEnv() Config {
	return Config{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_REALTIME_URL"),
		Model:   os.Getenv("OPENAI_REALTIME_MODEL"),
	}
}

// SessionConfig is the standing session configuration sent once at session
// open. Audio formats must match what the telephony provider streams.
type SessionConfig struct {
	Modalities              []string             `json:"modalities"`
	Instructions            string               `json:"instructions"`
	Voice                   string               `json:"voice"`
	InputAudioFormat        string               `json:"input_audio_format"`
	OutputAudioFormat       string               `json:"output_audio_format"`
	Temperature             float64              `json:"temperature"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetectionConfig `json:"turn_detection,omitempty"`
	Tools                   []Tool               `json:"tools,omitempty"`
}

// TranscriptionConfig enables transcription of caller audio.
type TranscriptionConfig struct {
	Model string `json:"model"`
}

// TurnDetectionConfig sets server-side voice activity detection thresholds.
type TurnDetectionConfig struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

// Tool is one function schema advertised to the session.
type Tool struct {
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type clientEvent struct {
	Type    string            `json:"type"`
	Audio   string            `json:"audio,omitempty"`
	Session *SessionConfig    `json:"session,omitempty"`
	Item    *conversationItem `json:"item,omitempty"`
}

type conversationItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// Client dials realtime sessions.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	logger  *zap.Logger
}

// NewClient creates a new realtime client.
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultRealtimeURL
	}

	model := config.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		model:   model,
		logger:  logger,
	}, nil
}

// Session is one live realtime connection. Outbound operations are safe for
// concurrent use; inbound events are delivered on the Events channel, which
// is closed when the connection drops.
type Session struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	events    chan ServerEvent
	logger    *zap.Logger
	closeOnce sync.Once
}

// Dial opens a realtime session and sends its standing configuration. The
// caller owns the returned session and must Close it.
func (c *Client) Dial(ctx context.Context, sessionConfig SessionConfig) (*Session, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		// Compression off for lower relay latency.
		EnableCompression: false,
	}

	url := c.baseURL + "?model=" + c.model
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial realtime session (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial realtime session: %w", err)
	}

	session := &Session{
		conn:   conn,
		events: make(chan ServerEvent, eventBufferSize),
		logger: c.logger,
	}

	if err := session.send(clientEvent{Type: "session.update", Session: &sessionConfig}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure realtime session: %w", err)
	}

	go session.readLoop()

	c.logger.Info("Realtime session opened", zap.String("model", c.model))

	return session, nil
}

// Events returns the inbound event stream. The channel is closed when the
// session connection closes.
func (s *Session) Events() <-chan ServerEvent {
	return s.events
}

// AppendAudio forwards one base64-encoded audio frame into the session's
// input buffer. The payload is passed through opaque.
func (s *Session) AppendAudio(payload string) error {
	return s.send(clientEvent{Type: "input_audio_buffer.append", Audio: payload})
}

// CreateResponse asks the session to produce its next turn.
func (s *Session) CreateResponse() error {
	return s.send(clientEvent{Type: "response.create"})
}

// CancelResponse cancels the in-flight response generation. The connection
// stays open.
func (s *Session) CancelResponse() error {
	return s.send(clientEvent{Type: "response.cancel"})
}

// SubmitToolOutput reports one tool invocation's result back into the
// session's conversation.
func (s *Session) SubmitToolOutput(callID string, output interface{}) error {
	encoded, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to encode tool output: %w", err)
	}
	return s.send(clientEvent{
		Type: "conversation.item.create",
		Item: &conversationItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: string(encoded),
		},
	})
}

// Close closes the session connection. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

func (s *Session) send(event clientEvent) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(event); err != nil {
		return fmt.Errorf("failed to send %s: %w", event.Type, err)
	}
	return nil
}

// readLoop decodes inbound events and delivers them to the consumer.
// Malformed payloads are logged and dropped; the loop ends when the
// connection closes.
func (s *Session) readLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Realtime connection closed unexpectedly", zap.Error(err))
			}
			return
		}

		event, err := ParseServerEvent(data)
		if err != nil {
			s.logger.Warn("Dropping malformed realtime event", zap.Error(err))
			continue
		}

		s.events <- event
	}
}
