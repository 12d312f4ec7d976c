package session

import (
	"context"
	"sync"
	"time"
)

// SaveFunc writes the current state. It must snapshot the state itself so
// that every write carries the latest edits.
type SaveFunc func(ctx context.Context) error

// SaveScheduler runs at most one save at a time. Requests made during the
// debounce window coalesce into one save; requests made while a save is in
// flight schedule exactly one follow-up.
type SaveScheduler struct {
	save     SaveFunc
	debounce time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	running bool
	closed  bool
	cycle   *saveCycle
}

// saveCycle spans from the first request until the scheduler is idle again.
type saveCycle struct {
	done chan struct{}
	err  error
}

func NewSaveScheduler(save SaveFunc, debounce, timeout time.Duration) *SaveScheduler {
	return &SaveScheduler{save: save, debounce: debounce, timeout: timeout}
}

// Request schedules a save after the debounce delay.
func (s *SaveScheduler) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.cycle == nil {
		s.cycle = &saveCycle{done: make(chan struct{})}
	}
	s.pending = true
	if s.running {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.fire)
}

func (s *SaveScheduler) fire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending || s.running {
		return
	}
	s.startLocked()
}

func (s *SaveScheduler) startLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
	s.running = true
	go s.run(s.cycle)
}

func (s *SaveScheduler) run(c *saveCycle) {
	for {
		ctx := context.Background()
		cancel := context.CancelFunc(func() {})
		if s.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
		}
		err := s.save(ctx)
		cancel()

		s.mu.Lock()
		c.err = err
		if s.pending {
			s.pending = false
			s.mu.Unlock()
			continue
		}
		s.running = false
		s.cycle = nil
		s.mu.Unlock()
		close(c.done)
		return
	}
}

// Pending reports whether a save is waiting or in flight.
func (s *SaveScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycle != nil
}

// Flush starts any debounced save now and waits until the scheduler is idle.
// It returns the error of the last save in that run, or nil when nothing was pending.
func (s *SaveScheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	c := s.cycle
	if c == nil {
		s.mu.Unlock()
		return nil
	}
	if s.pending && !s.running {
		s.startLocked()
	}
	s.mu.Unlock()

	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further requests and flushes pending work.
func (s *SaveScheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}
