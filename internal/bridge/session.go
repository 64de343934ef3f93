package bridge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadgenlite/voicebridge/adapters/openai"
	"github.com/leadgenlite/voicebridge/domain/entities"
	"github.com/leadgenlite/voicebridge/domain/repositories"
)

const (
	// playoutBuffer lets the final audio chunk finish playing on the
	// telephony side before the connections close.
	playoutBuffer = 6 * time.Second

	// endCallSafetyTimeout bounds the shutdown sequence when the final
	// response never completes.
	endCallSafetyTimeout = 8 * time.Second

	// toolTimeout bounds one external tool call.
	toolTimeout = 20 * time.Second

	persistTimeout = 5 * time.Second
)

// RealtimeSession is the slice of the AI session the call session drives.
type RealtimeSession interface {
	AppendAudio(payload string) error
	CreateResponse() error
	CancelResponse() error
	SubmitToolOutput(callID string, output interface{}) error
	Close() error
}

// TelephonySender delivers assistant audio frames back to the telephony side.
type TelephonySender interface {
	SendMedia(streamSID, payload string) error
	Close() error
}

// CallSession owns one live call: it relays audio both directions, applies
// the interruption and graceful-termination policy, dispatches tool calls
// and records the transcript. It is created on the stream start event and
// discarded after teardown; never shared across calls.
type CallSession struct {
	callSID   string
	streamSID string
	context   entities.CallContext

	realtime   RealtimeSession
	telephony  TelephonySender
	dispatcher *ToolDispatcher
	recorder   *TranscriptRecorder
	resolver   *ContextResolver
	store      repositories.CallRecordRepository
	closer     Scheduler
	logger     *zap.Logger

	mu                 sync.Mutex
	audioPlaying       bool
	terminationPending bool

	shutdownOnce sync.Once
	done         chan struct{}
}

// CallSessionParams wires one CallSession.
type CallSessionParams struct {
	CallSID    string
	StreamSID  string
	Context    entities.CallContext
	Realtime   RealtimeSession
	Telephony  TelephonySender
	Dispatcher *ToolDispatcher
	Resolver   *ContextResolver
	Store      repositories.CallRecordRepository
	// Closer defaults to a TimerScheduler when nil.
	Closer Scheduler
	Logger *zap.Logger
}

// NewCallSession creates the session for one live call.
func NewCallSession(p CallSessionParams) *CallSession {
	closer := p.Closer
	if closer == nil {
		closer = NewTimerScheduler()
	}
	return &CallSession{
		callSID:    p.CallSID,
		streamSID:  p.StreamSID,
		context:    p.Context,
		realtime:   p.Realtime,
		telephony:  p.Telephony,
		dispatcher: p.Dispatcher,
		recorder:   NewTranscriptRecorder(),
		resolver:   p.Resolver,
		store:      p.Store,
		closer:     closer,
		logger: p.Logger.With(
			zap.String("call_sid", p.CallSID),
			zap.String("stream_sid", p.StreamSID)),
		done: make(chan struct{}),
	}
}

// Done is closed once the session has been torn down.
func (s *CallSession) Done() <-chan struct{} {
	return s.done
}

// ForwardCallerAudio relays one inbound telephony frame into the AI session
// unmodified.
func (s *CallSession) ForwardCallerAudio(payload string) {
	if err := s.realtime.AppendAudio(payload); err != nil {
		s.logger.Warn("Failed to forward caller audio", zap.Error(err))
	}
}

// HandleRealtimeEvent applies one AI session event to the call state. Each
// event type maps to a single transition.
func (s *CallSession) HandleRealtimeEvent(ev openai.ServerEvent) {
	switch ev.Type {
	case openai.EventAudioDelta:
		s.setAudioPlaying(true)
		if err := s.telephony.SendMedia(s.streamSID, ev.Delta); err != nil {
			s.logger.Warn("Failed to forward assistant audio", zap.Error(err))
		}

	case openai.EventAudioDone:
		s.setAudioPlaying(false)

	case openai.EventResponseDone:
		if s.isTerminationPending() {
			s.logger.Info("Final response complete, scheduling close",
				zap.Duration("playout_buffer", playoutBuffer))
			s.closer.Schedule(playoutBuffer, s.Shutdown)
		}

	case openai.EventSpeechStarted:
		if s.isAudioPlaying() {
			s.logger.Info("Caller barge-in, cancelling in-flight response")
			if err := s.realtime.CancelResponse(); err != nil {
				s.logger.Warn("Failed to cancel response", zap.Error(err))
			}
		}

	case openai.EventInputTranscriptDone:
		s.recorder.Append(entities.TranscriptRoleCaller, ev.Transcript)

	case openai.EventOutputTranscriptDone:
		s.recorder.Append(entities.TranscriptRoleAssistant, ev.Transcript)

	case openai.EventToolCallDone:
		s.handleToolCall(ev)

	case openai.EventError:
		if ev.Error != nil {
			s.logger.Warn("AI session reported error",
				zap.String("code", ev.Error.Code),
				zap.String("message", ev.Error.Message))
		}

	default:
		// Other event types carry nothing the bridge acts on.
	}
}

func (s *CallSession) handleToolCall(ev openai.ServerEvent) {
	name := entities.ToolName(ev.Name)
	if name == entities.ToolEndCall {
		s.handleEndCall(ev)
		return
	}

	args, err := openai.ParseToolArguments(ev.Arguments)
	if err != nil {
		s.logger.Warn("Dropping tool call with malformed arguments",
			zap.String("tool", ev.Name), zap.Error(err))
		s.submitToolResult(ev.CallID, entities.ToolResult{
			Success: false,
			Error:   "invalid tool arguments",
		})
		return
	}

	inv := entities.ToolInvocation{ID: ev.CallID, Name: name, Arguments: args}

	// External collaborators may stall; keep them off the relay path so a
	// slow search delays only its own result.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), toolTimeout)
		defer cancel()
		result := s.dispatcher.Dispatch(ctx, inv)
		s.submitToolResult(inv.ID, result)
	}()
}

// handleEndCall begins the graceful termination sequence. The connections
// stay open until the assistant's closing response has been generated and
// played out; a safety timer bounds the wait in case that signal never
// arrives. Duplicate requests while termination is pending are ignored.
func (s *CallSession) handleEndCall(ev openai.ServerEvent) {
	s.mu.Lock()
	if s.terminationPending {
		s.mu.Unlock()
		s.logger.Info("Duplicate end_call ignored, call already ending")
		return
	}
	s.terminationPending = true
	s.mu.Unlock()

	args, err := openai.ParseToolArguments(ev.Arguments)
	if err != nil {
		args = map[string]interface{}{}
	}
	inv := entities.ToolInvocation{ID: ev.CallID, Name: entities.ToolEndCall, Arguments: args}

	s.logger.Info("Call end requested",
		zap.String("reason", inv.StringArg("reason")))

	result := s.dispatcher.Dispatch(context.Background(), inv)
	s.submitToolResult(inv.ID, result)

	s.closer.Schedule(endCallSafetyTimeout, s.Shutdown)
}

// submitToolResult reports one invocation's result and asks the session to
// continue with its next turn. Every invocation gets exactly one submission.
func (s *CallSession) submitToolResult(callID string, result entities.ToolResult) {
	if err := s.realtime.SubmitToolOutput(callID, result); err != nil {
		s.logger.Error("Failed to submit tool output",
			zap.String("invocation_id", callID), zap.Error(err))
		return
	}
	if err := s.realtime.CreateResponse(); err != nil {
		s.logger.Error("Failed to request next response", zap.Error(err))
	}
}

// Shutdown tears the session down exactly once: both connections close, the
// context cache entries are removed and the transcript is persisted. Either
// side's connection closing funnels in here, as do the termination timers.
func (s *CallSession) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("Tearing down call session")

		s.closer.Stop()

		if err := s.realtime.Close(); err != nil {
			s.logger.Debug("Error closing realtime session", zap.Error(err))
		}
		if err := s.telephony.Close(); err != nil {
			s.logger.Debug("Error closing telephony connection", zap.Error(err))
		}

		if s.resolver != nil {
			s.resolver.Release(s.callSID, s.context.RecordID)
		}

		s.persistTranscript()

		close(s.done)
	})
}

// persistTranscript flattens the recorded transcript and writes it to the
// matched store record with a completion timestamp. The call is already over
// here, so failures are logged and swallowed.
func (s *CallSession) persistTranscript() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	recordID := s.context.RecordID
	if recordID == "" {
		record, err := s.store.GetByCallSID(ctx, s.callSID)
		if err != nil {
			s.logger.Warn("Transcript record lookup failed", zap.Error(err))
			return
		}
		if record == nil {
			s.logger.Warn("No record matched for transcript, discarding",
				zap.Int("entries", s.recorder.Len()))
			return
		}
		recordID = record.ID.Hex()
	}

	status := entities.CallStatusCompleted
	transcript := s.recorder.Flatten()
	callSID := s.callSID
	now := time.Now()

	err := s.store.UpdateByID(ctx, recordID, entities.CallRecordUpdate{
		Status:      &status,
		Transcript:  &transcript,
		CallSID:     &callSID,
		CompletedAt: &now,
	})
	if err != nil {
		s.logger.Error("Failed to persist transcript",
			zap.String("record_id", recordID), zap.Error(err))
		return
	}

	s.logger.Info("Transcript persisted",
		zap.String("record_id", recordID),
		zap.Int("entries", s.recorder.Len()))
}

func (s *CallSession) setAudioPlaying(playing bool) {
	s.mu.Lock()
	s.audioPlaying = playing
	s.mu.Unlock()
}

func (s *CallSession) isAudioPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioPlaying
}

func (s *CallSession) isTerminationPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminationPending
}
