package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultInterval is the refresh cadence of every screen.
const DefaultInterval = 3 * time.Second

var ErrAlreadyRunning = errors.New("refresh: scheduler already running")

// Func is invoked once per interval. ctx is cancelled when the scheduler stops.
type Func func(ctx context.Context)

// Scheduler is a fixed-period repeating timer with an explicit start/stop
// lifecycle. Callbacks run one at a time; ticks that arrive while a callback
// is still running are dropped.
type Scheduler struct {
	interval time.Duration
	clock    clock.Clock
	fn       Func

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	fires  int64
}

// New creates a stopped scheduler. A nil clock uses the wall clock.
func New(interval time.Duration, clk clock.Clock, fn Func) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{interval: interval, clock: clk, fn: fn}
}

// Start arms the timer. The first callback fires one interval from now.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	ticker := s.clock.Ticker(s.interval)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(runCtx, ticker, s.done)
	return nil
}

// Stop cancels the timer and waits for an in-flight callback to return.
// No callback fires after Stop returns. Stop is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the timer is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// Fires returns the number of completed callbacks since creation.
func (s *Scheduler) Fires() int {
	return int(atomic.LoadInt64(&s.fires))
}

// Interval returns the configured period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

func (s *Scheduler) loop(ctx context.Context, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.fn(ctx)
			atomic.AddInt64(&s.fires, 1)
		}
	}
}
