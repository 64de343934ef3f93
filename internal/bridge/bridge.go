package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/leadgenlite/voicebridge/adapters/openai"
	"github.com/leadgenlite/voicebridge/domain/entities"
	"github.com/leadgenlite/voicebridge/domain/repositories"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Outbound audio buffer. Full buffer drops frames rather than stalling
	// the realtime event loop.
	sendBufferSize = 256

	dialTimeout    = 10 * time.Second
	resolveTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The stream URL is only handed out through signed webhook
		// responses; the provider sets no browser origin.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// RealtimeConn is one live AI session as the bridge sees it: the outbound
// operations plus the inbound event stream.
type RealtimeConn interface {
	RealtimeSession
	Events() <-chan openai.ServerEvent
}

// RealtimeDialer opens a configured AI session for one call.
type RealtimeDialer interface {
	Dial(ctx context.Context, cfg openai.SessionConfig) (RealtimeConn, error)
}

type openaiDialer struct {
	client *openai.Client
}

// NewRealtimeDialer adapts the realtime client to the bridge's dialer.
func NewRealtimeDialer(client *openai.Client) RealtimeDialer {
	return openaiDialer{client: client}
}

func (d openaiDialer) Dial(ctx context.Context, cfg openai.SessionConfig) (RealtimeConn, error) {
	return d.client.Dial(ctx, cfg)
}

// Bridge accepts telephony media stream connections and runs one CallSession
// per call.
type Bridge struct {
	dialer     RealtimeDialer
	resolver   *ContextResolver
	dispatcher *ToolDispatcher
	store      repositories.CallRecordRepository
	logger     *zap.Logger
}

// NewBridge creates the bridge.
func NewBridge(
	dialer RealtimeDialer,
	resolver *ContextResolver,
	dispatcher *ToolDispatcher,
	store repositories.CallRecordRepository,
	logger *zap.Logger,
) *Bridge {
	return &Bridge{
		dialer:     dialer,
		resolver:   resolver,
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
	}
}

// Resolver exposes the bridge's context resolver so the webhook handler can
// warm it before the media stream connects.
func (b *Bridge) Resolver() *ContextResolver {
	return b.resolver
}

// WriteData is one outbound websocket message.
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage.
	Type    int
	Payload []byte
}

// telephonyClient is the bridge's half of one telephony websocket connection.
type telephonyClient struct {
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Closed by Close; unblocks the writePump and rejects further sends.
	done chan struct{}

	logger    *zap.Logger
	closeOnce sync.Once
}

var _ TelephonySender = (*telephonyClient)(nil)

// SendMedia queues one assistant audio frame for the telephony side. A full
// buffer drops the frame; stalling here would back up the realtime event
// loop and with it the interruption handling.
func (t *telephonyClient) SendMedia(streamSID, payload string) error {
	data, err := json.Marshal(outboundMedia{
		Event:     telephonyEventMedia,
		StreamSID: streamSID,
		Media:     StreamMedia{Payload: payload},
	})
	if err != nil {
		return fmt.Errorf("failed to encode media frame: %w", err)
	}

	select {
	case <-t.done:
		return fmt.Errorf("telephony connection closed")
	default:
	}

	select {
	case t.send <- WriteData{Type: websocket.TextMessage, Payload: data}:
		return nil
	default:
		return fmt.Errorf("telephony send buffer full, dropping audio frame")
	}
}

// Close closes the telephony connection and releases the writePump. Safe to
// call more than once.
func (t *telephonyClient) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
	})
	return err
}

// HandleStream upgrades the media stream request and serves the call until
// either side disconnects.
func (b *Bridge) HandleStream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		b.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &telephonyClient{
		conn:   conn,
		send:   make(chan WriteData, sendBufferSize),
		done:   make(chan struct{}),
		logger: b.logger,
	}

	go client.writePump()
	go b.readPump(client)

	return nil
}

// readPump consumes inbound telephony frames for one connection. The start
// frame creates the call session; media frames relay into it; the loop ends
// when the connection drops or the provider sends stop.
func (b *Bridge) readPump(client *telephonyClient) {
	var session *CallSession

	defer func() {
		if session != nil {
			session.Shutdown()
		} else {
			client.Close()
		}
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn("Telephony connection closed unexpectedly", zap.Error(err))
			}
			return
		}

		frame, err := ParseStreamFrame(data)
		if err != nil {
			b.logger.Warn("Dropping malformed telephony frame", zap.Error(err))
			continue
		}

		switch frame.Event {
		case telephonyEventStart:
			if session != nil {
				b.logger.Warn("Duplicate start frame ignored")
				continue
			}
			session = b.startSession(client, frame)
			if session == nil {
				return
			}

		case telephonyEventMedia:
			if session == nil || frame.Media == nil {
				continue
			}
			session.ForwardCallerAudio(frame.Media.Payload)

		case telephonyEventStop:
			b.logger.Info("Telephony stream stopped",
				zap.String("stream_sid", frame.StreamSID))
			return

		default:
			// Mark and connected-type frames carry nothing the bridge
			// acts on.
		}
	}
}

// startSession resolves the call context, dials the AI session and assembles
// the CallSession. On dial failure the record is marked failed, the telephony
// connection is closed and nil is returned.
func (b *Bridge) startSession(client *telephonyClient, frame StreamFrame) *CallSession {
	start := frame.Start
	if start == nil {
		b.logger.Error("Start frame missing payload")
		client.Close()
		return nil
	}

	callSID := start.CallSID
	streamSID := frame.StreamSID
	if streamSID == "" {
		streamSID = start.StreamSID
	}

	callCtx := b.resolveContext(start, callSID)

	logger := b.logger.With(zap.String("call_sid", callSID))
	logger.Info("Media stream started",
		zap.String("stream_sid", streamSID),
		zap.String("record_id", callCtx.RecordID))

	dialCtx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	realtime, err := b.dialer.Dial(dialCtx, NewSessionConfig(callCtx))
	if err != nil {
		logger.Error("Failed to open AI session", zap.Error(err))
		b.markFailed(callCtx)
		client.Close()
		return nil
	}

	session := NewCallSession(CallSessionParams{
		CallSID:    callSID,
		StreamSID:  streamSID,
		Context:    callCtx,
		Realtime:   realtime,
		Telephony:  client,
		Dispatcher: b.dispatcher,
		Resolver:   b.resolver,
		Store:      b.store,
		Logger:     b.logger,
	})

	// The assistant speaks first.
	if err := realtime.CreateResponse(); err != nil {
		logger.Warn("Failed to request greeting", zap.Error(err))
	}

	go func() {
		for ev := range realtime.Events() {
			session.HandleRealtimeEvent(ev)
		}
		// AI session dropped; tear the call down.
		session.Shutdown()
	}()

	return session
}

// resolveContext prefers the custom parameters carried on the start frame;
// the webhook puts them there when it has them. Anything else goes through
// the resolver's cache-then-store fallback chain.
func (b *Bridge) resolveContext(start *StreamStart, callSID string) entities.CallContext {
	recordID := start.Parameter("scheduleId")
	destination := start.Parameter("customerPhone")

	if instructions := start.Parameter("instructions"); instructions != "" {
		callCtx := entities.CallContext{
			CallSID:      callSID,
			RecordID:     recordID,
			Instructions: instructions,
			Email:        start.Parameter("customerEmail"),
			PhoneNumber:  destination,
		}
		b.resolver.Preload(callCtx)
		return callCtx
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	return b.resolver.Resolve(ctx, callSID, recordID, destination)
}

// markFailed records that the call never reached the AI session.
func (b *Bridge) markFailed(callCtx entities.CallContext) {
	if callCtx.RecordID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	status := entities.CallStatusFailed
	callSID := callCtx.CallSID
	err := b.store.UpdateByID(ctx, callCtx.RecordID, entities.CallRecordUpdate{
		Status:  &status,
		CallSID: &callSID,
	})
	if err != nil {
		b.logger.Error("Failed to mark record failed",
			zap.String("record_id", callCtx.RecordID), zap.Error(err))
	}
}

// writePump pumps queued messages onto the websocket connection.
func (t *telephonyClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case <-t.done:
			return

		case message, ok := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				t.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := t.conn.WriteMessage(message.Type, message.Payload); err != nil {
				t.logger.Debug("Failed to write telephony message", zap.Error(err))
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
