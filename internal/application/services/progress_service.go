package services

import (
	"sync"
	"time"
)

// DefaultProgressDelays are the offsets at which the three loading messages
// appear.
var DefaultProgressDelays = []time.Duration{0, 2 * time.Second, 5 * time.Second}

// ProgressService schedules the loading messages shown while a try-on runs.
type ProgressService struct {
	delays []time.Duration
}

func NewProgressService(delays ...time.Duration) *ProgressService {
	if len(delays) == 0 {
		delays = DefaultProgressDelays
	}
	return &ProgressService{delays: delays}
}

// Start emits messages[i] after delays[i]. A zero delay is emitted before
// Start returns. The returned stop function cancels every pending message;
// once it returns, emit is never called again.
func (s *ProgressService) Start(messages []string, emit func(string)) func() {
	sched := &schedule{emit: emit}

	for i, msg := range messages {
		delay := time.Duration(0)
		if i < len(s.delays) {
			delay = s.delays[i]
		} else if len(s.delays) > 0 {
			delay = s.delays[len(s.delays)-1]
		}

		if delay <= 0 {
			sched.fire(msg)
			continue
		}
		msg := msg
		sched.mu.Lock()
		sched.timers = append(sched.timers, time.AfterFunc(delay, func() { sched.fire(msg) }))
		sched.mu.Unlock()
	}

	return sched.stop
}

type schedule struct {
	mu      sync.Mutex
	stopped bool
	timers  []*time.Timer
	emit    func(string)
}

func (s *schedule) fire(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.emit(msg)
}

func (s *schedule) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}
