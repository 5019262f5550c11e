package backup

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDebounce is the quiet period after the last write before an
// automatic snapshot is attempted.
const DefaultDebounce = 5 * time.Second

// Scheduler runs a task once writes have been quiet for the debounce window.
// Every Trigger cancels the pending run and schedules a new one.
type Scheduler struct {
	clock clockwork.Clock
	delay time.Duration
	task  func()

	mu      sync.Mutex
	timer   clockwork.Timer
	gen     uint64
	stopped bool
	running sync.WaitGroup
}

// NewScheduler creates a Scheduler. A non-positive delay means DefaultDebounce.
func NewScheduler(clock clockwork.Clock, delay time.Duration, task func()) *Scheduler {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock, delay: delay, task: task}
}

// Trigger (re)starts the debounce window.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.delay, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	// A stopped timer may still fire if Stop raced with expiry.
	if gen != s.gen || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	s.task()
}

// Pending reports whether a run is scheduled.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Flush runs the pending task now instead of waiting for the window to
// close. It reports whether a task was pending.
func (s *Scheduler) Flush() bool {
	s.mu.Lock()
	if s.timer == nil {
		s.mu.Unlock()
		return false
	}
	s.timer.Stop()
	s.timer = nil
	s.gen++
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	s.task()
	return true
}

// Stop cancels any pending run, ignores later triggers and waits for a run
// in progress to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.mu.Unlock()

	s.running.Wait()
}
