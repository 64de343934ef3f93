package bridge

import (
	"sync"
	"time"
)

// Scheduler schedules a single delayed action. Scheduling again supersedes
// the pending action; Stop cancels it. The shutdown sequence uses this
// instead of bare timers so tests can drive elapsed time deterministically.
type Scheduler interface {
	Schedule(d time.Duration, fn func())
	Stop()
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
type TimerScheduler struct {
	mu    sync.Mutex
	timer *time.Timer
}

// NewTimerScheduler creates an idle scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

// Schedule arms fn to run after d, replacing any pending action.
func (s *TimerScheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, fn)
}

// Stop cancels the pending action, if any.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
