package bridge

import (
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/leadgenlite/voicebridge/adapters/openai"
	"github.com/leadgenlite/voicebridge/domain/entities"
)

type submittedOutput struct {
	callID string
	output interface{}
}

type fakeRealtime struct {
	mu          sync.Mutex
	appended    []string
	submitted   []submittedOutput
	createCalls int
	cancelCalls int
	closed      bool
}

func (f *fakeRealtime) AppendAudio(payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, payload)
	return nil
}

func (f *fakeRealtime) CreateResponse() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return nil
}

func (f *fakeRealtime) CancelResponse() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return nil
}

func (f *fakeRealtime) SubmitToolOutput(callID string, output interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, submittedOutput{callID: callID, output: output})
	return nil
}

func (f *fakeRealtime) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeRealtime) snapshot() (submitted []submittedOutput, creates, cancels int, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	submitted = append([]submittedOutput(nil), f.submitted...)
	return submitted, f.createCalls, f.cancelCalls, f.closed
}

type fakeTelephony struct {
	mu     sync.Mutex
	frames []string
	closed bool
}

func (f *fakeTelephony) SendMedia(streamSID, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, payload)
	return nil
}

func (f *fakeTelephony) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// manualScheduler lets tests drive the termination timers deterministically.
type manualScheduler struct {
	mu      sync.Mutex
	pending func()
	delay   time.Duration
}

func (s *manualScheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	s.pending = fn
	s.delay = d
	s.mu.Unlock()
}

func (s *manualScheduler) Stop() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

func (s *manualScheduler) fire() {
	s.mu.Lock()
	fn := s.pending
	s.pending = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *manualScheduler) pendingDelay() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay, s.pending != nil
}

type sessionFixture struct {
	session   *CallSession
	realtime  *fakeRealtime
	telephony *fakeTelephony
	closer    *manualScheduler
	store     *fakeStore
	recordID  string
}

func newSessionFixture(t *testing.T) *sessionFixture {
	id := primitive.NewObjectID()
	store := newFakeStore(&entities.CallRecord{
		ID:              id,
		PhoneNumber:     "+15550009999",
		CallDescription: "Walk through the onboarding",
		Status:          entities.CallStatusPending,
	})

	realtime := &fakeRealtime{}
	telephony := &fakeTelephony{}
	closer := &manualScheduler{}
	logger := zaptest.NewLogger(t)

	session := NewCallSession(CallSessionParams{
		CallSID:   "CA900",
		StreamSID: "MZ900",
		Context: entities.CallContext{
			CallSID:      "CA900",
			RecordID:     id.Hex(),
			Instructions: "Walk through the onboarding",
		},
		Realtime:   realtime,
		Telephony:  telephony,
		Dispatcher: NewToolDispatcher(&fakeSearcher{}, &fakeMailer{}, logger),
		Resolver:   NewContextResolver(store, logger),
		Store:      store,
		Closer:     closer,
		Logger:     logger,
	})

	return &sessionFixture{
		session:   session,
		realtime:  realtime,
		telephony: telephony,
		closer:    closer,
		store:     store,
		recordID:  id.Hex(),
	}
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func endCallEvent(callID string) openai.ServerEvent {
	return openai.ServerEvent{
		Type:      openai.EventToolCallDone,
		Name:      string(entities.ToolEndCall),
		CallID:    callID,
		Arguments: `{"reason":"conversation complete"}`,
	}
}

func TestSessionForwardsAudioBothWays(t *testing.T) {
	f := newSessionFixture(t)

	f.session.ForwardCallerAudio("caller-frame-1")
	f.session.HandleRealtimeEvent(openai.ServerEvent{Type: openai.EventAudioDelta, Delta: "assistant-frame-1"})

	if len(f.realtime.appended) != 1 || f.realtime.appended[0] != "caller-frame-1" {
		t.Errorf("caller audio not forwarded: %v", f.realtime.appended)
	}
	if len(f.telephony.frames) != 1 || f.telephony.frames[0] != "assistant-frame-1" {
		t.Errorf("assistant audio not forwarded: %v", f.telephony.frames)
	}
}

func TestSessionBargeInCancelsResponse(t *testing.T) {
	f := newSessionFixture(t)

	// Speech before any assistant audio: nothing to cancel.
	f.session.HandleRealtimeEvent(openai.ServerEvent{Type: openai.EventSpeechStarted})
	if _, _, cancels, _ := f.realtime.snapshot(); cancels != 0 {
		t.Fatalf("expected no cancel before audio plays, got %d", cancels)
	}

	f.session.HandleRealtimeEvent(openai.ServerEvent{Type: openai.EventAudioDelta, Delta: "chunk"})
	f.session.HandleRealtimeEvent(openai.ServerEvent{Type: openai.EventSpeechStarted})
	if _, _, cancels, _ := f.realtime.snapshot(); cancels != 1 {
		t.Fatalf("expected one cancel during playback, got %d", cancels)
	}

	// After the audio done marker the playing flag clears again.
	f.session.HandleRealtimeEvent(openai.ServerEvent{Type: openai.EventAudioDone})
	f.session.HandleRealtimeEvent(openai.ServerEvent{Type: openai.EventSpeechStarted})
	if _, _, cancels, _ := f.realtime.snapshot(); cancels != 1 {
		t.Errorf("expected no cancel after playback finished, got %d", cancels)
	}
}

func TestSessionToolCallSubmitsExactlyOnce(t *testing.T) {
	f := newSessionFixture(t)

	f.session.HandleRealtimeEvent(openai.ServerEvent{
		Type:      openai.EventToolCallDone,
		Name:      string(entities.ToolGetPricing),
		CallID:    "call_42",
		Arguments: `{"plan_type":"pro"}`,
	})

	waitFor(t, "tool output submission", func() bool {
		submitted, _, _, _ := f.realtime.snapshot()
		return len(submitted) == 1
	})

	submitted, creates, _, _ := f.realtime.snapshot()
	if submitted[0].callID != "call_42" {
		t.Errorf("expected output for call_42, got %q", submitted[0].callID)
	}
	result, ok := submitted[0].output.(entities.ToolResult)
	if !ok || !result.Success {
		t.Errorf("expected successful result, got %+v", submitted[0].output)
	}
	if creates != 1 {
		t.Errorf("expected one response request after the output, got %d", creates)
	}
}

func TestSessionMalformedToolArguments(t *testing.T) {
	f := newSessionFixture(t)

	f.session.HandleRealtimeEvent(openai.ServerEvent{
		Type:      openai.EventToolCallDone,
		Name:      string(entities.ToolWebSearch),
		CallID:    "call_bad",
		Arguments: `{"query": unquoted}`,
	})

	submitted, creates, _, _ := f.realtime.snapshot()
	if len(submitted) != 1 {
		t.Fatalf("expected one failure submission, got %d", len(submitted))
	}
	result, ok := submitted[0].output.(entities.ToolResult)
	if !ok || result.Success {
		t.Errorf("malformed arguments must produce a failure result, got %+v", submitted[0].output)
	}
	if creates != 1 {
		t.Errorf("failure results still request the next response, got %d", creates)
	}
}

func TestSessionEndCallGracefulShutdown(t *testing.T) {
	f := newSessionFixture(t)

	f.session.HandleRealtimeEvent(openai.ServerEvent{
		Type:       openai.EventInputTranscriptDone,
		Transcript: "Thanks, that is all.",
	})
	f.session.HandleRealtimeEvent(endCallEvent("call_end"))

	// The safety timer bounds the wait for the final response.
	if delay, armed := f.closer.pendingDelay(); !armed || delay != endCallSafetyTimeout {
		t.Fatalf("expected safety timer %v armed, got %v (armed=%v)", endCallSafetyTimeout, delay, armed)
	}

	f.session.HandleRealtimeEvent(openai.ServerEvent{
		Type:       openai.EventOutputTranscriptDone,
		Transcript: "Goodbye!",
	})
	f.session.HandleRealtimeEvent(openai.ServerEvent{Type: openai.EventResponseDone})

	// The playout buffer supersedes the safety timer.
	if delay, armed := f.closer.pendingDelay(); !armed || delay != playoutBuffer {
		t.Fatalf("expected playout buffer %v armed, got %v (armed=%v)", playoutBuffer, delay, armed)
	}

	f.closer.fire()

	_, _, _, closed := f.realtime.snapshot()
	if !closed {
		t.Errorf("realtime session must close on shutdown")
	}
	if !f.telephony.closed {
		t.Errorf("telephony connection must close on shutdown")
	}

	updates := f.store.updatesFor(f.recordID)
	if len(updates) != 1 {
		t.Fatalf("expected one record update, got %d", len(updates))
	}
	update := updates[0]
	if update.Status == nil || *update.Status != entities.CallStatusCompleted {
		t.Errorf("expected completed status, got %+v", update.Status)
	}
	if update.CompletedAt == nil {
		t.Errorf("expected completion timestamp")
	}
	if update.CallSID == nil || *update.CallSID != "CA900" {
		t.Errorf("expected call SID written back, got %+v", update.CallSID)
	}
	want := "CALLER: Thanks, that is all.\n\nASSISTANT: Goodbye!"
	if update.Transcript == nil || *update.Transcript != want {
		t.Errorf("expected transcript %q, got %+v", want, update.Transcript)
	}
}

func TestSessionDuplicateEndCallIgnored(t *testing.T) {
	f := newSessionFixture(t)

	f.session.HandleRealtimeEvent(endCallEvent("call_end_1"))
	f.session.HandleRealtimeEvent(endCallEvent("call_end_2"))

	submitted, creates, _, _ := f.realtime.snapshot()
	if len(submitted) != 1 {
		t.Errorf("duplicate end_call must not submit a second output, got %d", len(submitted))
	}
	if creates != 1 {
		t.Errorf("duplicate end_call must not request another response, got %d", creates)
	}
}

func TestSessionSafetyTimeoutClosesWithoutResponseDone(t *testing.T) {
	f := newSessionFixture(t)

	f.session.HandleRealtimeEvent(endCallEvent("call_end"))
	f.closer.fire()

	select {
	case <-f.session.Done():
	case <-time.After(time.Second):
		t.Fatalf("session did not shut down on safety timeout")
	}
	if !f.telephony.closed {
		t.Errorf("telephony connection must close on safety timeout")
	}
}

func TestSessionShutdownIdempotent(t *testing.T) {
	f := newSessionFixture(t)

	f.session.HandleRealtimeEvent(openai.ServerEvent{
		Type:       openai.EventOutputTranscriptDone,
		Transcript: "Hello!",
	})
	f.session.Shutdown()
	f.session.Shutdown()

	if got := len(f.store.updatesFor(f.recordID)); got != 1 {
		t.Errorf("expected exactly one persistence, got %d", got)
	}
}

func TestSessionPersistFallbackByCallSID(t *testing.T) {
	id := primitive.NewObjectID()
	store := newFakeStore(&entities.CallRecord{
		ID:          id,
		PhoneNumber: "+15550008888",
		CallSID:     "CA901",
		Status:      entities.CallStatusPending,
	})
	logger := zaptest.NewLogger(t)

	session := NewCallSession(CallSessionParams{
		CallSID:   "CA901",
		StreamSID: "MZ901",
		// No record ID resolved at setup.
		Context:    entities.DefaultCallContext("CA901"),
		Realtime:   &fakeRealtime{},
		Telephony:  &fakeTelephony{},
		Dispatcher: NewToolDispatcher(&fakeSearcher{}, &fakeMailer{}, logger),
		Store:      store,
		Closer:     &manualScheduler{},
		Logger:     logger,
	})

	session.HandleRealtimeEvent(openai.ServerEvent{
		Type:       openai.EventInputTranscriptDone,
		Transcript: "Hello",
	})
	session.Shutdown()

	updates := store.updatesFor(id.Hex())
	if len(updates) != 1 {
		t.Fatalf("expected transcript persisted to the call SID match, got %d updates", len(updates))
	}
}

// Full conversation walkthrough: two exchanges, a catalog tool call, then the
// graceful end sequence.
func TestSessionConversationLifecycle(t *testing.T) {
	f := newSessionFixture(t)

	exchange := func(callerText, assistantText string) {
		f.session.ForwardCallerAudio("caller-audio")
		f.session.HandleRealtimeEvent(openai.ServerEvent{
			Type: openai.EventInputTranscriptDone, Transcript: callerText,
		})
		f.session.HandleRealtimeEvent(openai.ServerEvent{Type: openai.EventAudioDelta, Delta: "assistant-audio"})
		f.session.HandleRealtimeEvent(openai.ServerEvent{
			Type: openai.EventOutputTranscriptDone, Transcript: assistantText,
		})
		f.session.HandleRealtimeEvent(openai.ServerEvent{Type: openai.EventAudioDone})
		f.session.HandleRealtimeEvent(openai.ServerEvent{Type: openai.EventResponseDone})
	}

	exchange("Hi, what plans do you have?", "We have three plans.")

	f.session.HandleRealtimeEvent(openai.ServerEvent{
		Type:      openai.EventToolCallDone,
		Name:      string(entities.ToolGetPricing),
		CallID:    "call_pricing",
		Arguments: `{"plan_type":"starter"}`,
	})
	waitFor(t, "pricing output", func() bool {
		submitted, _, _, _ := f.realtime.snapshot()
		return len(submitted) == 1
	})

	exchange("Thanks, goodbye.", "Happy to help, goodbye!")

	f.session.HandleRealtimeEvent(endCallEvent("call_end"))
	f.session.HandleRealtimeEvent(openai.ServerEvent{Type: openai.EventResponseDone})
	f.closer.fire()

	select {
	case <-f.session.Done():
	case <-time.After(time.Second):
		t.Fatalf("session did not shut down")
	}

	updates := f.store.updatesFor(f.recordID)
	if len(updates) != 1 {
		t.Fatalf("expected one record update, got %d", len(updates))
	}
	transcript := *updates[0].Transcript
	for _, fragment := range []string{
		"CALLER: Hi, what plans do you have?",
		"ASSISTANT: We have three plans.",
		"CALLER: Thanks, goodbye.",
		"ASSISTANT: Happy to help, goodbye!",
	} {
		if !strings.Contains(transcript, fragment) {
			t.Errorf("transcript missing %q:\n%s", fragment, transcript)
		}
	}
	if strings.Index(transcript, "We have three plans.") > strings.Index(transcript, "Thanks, goodbye.") {
		t.Errorf("transcript out of order:\n%s", transcript)
	}
}
