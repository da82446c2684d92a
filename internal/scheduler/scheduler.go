// Package scheduler runs delayed and repeating actions on a single,
// serialised timeline.
//
// Each scheduled task owns a timer goroutine that feeds a shared queue. One
// worker goroutine drains the queue, so no two actions ever run at the same
// time. The timeline is independent of whatever goroutines call into the
// scheduled code, so actions still run concurrently with message handling.
//
//	s := scheduler.New(log)
//	defer s.Close()
//
//	s.ScheduleOnce("poll", poll, 200*time.Millisecond)
//	s.ScheduleRepeating("refresh", refresh, 100*time.Millisecond)
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Sentinel errors for scheduling.
var (
	// ErrClosed is returned when scheduling on a closed scheduler.
	ErrClosed = errors.New("scheduler: closed")

	// ErrInvalidPeriod is returned for a repeating period <= 0.
	ErrInvalidPeriod = errors.New("scheduler: period must be positive")
)

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// job is one queued execution of an action.
type job struct {
	name   string
	action func()
}

// Stats reports scheduler activity.
type Stats struct {
	Runs     uint64 // Actions that started
	Failures uint64 // Actions that panicked
	Running  bool   // An action is executing now
}

// Scheduler executes actions strictly one at a time on its own goroutine.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Close may be called from inside a running action.
type Scheduler struct {
	queue chan job
	done  chan struct{}
	wg    sync.WaitGroup

	mu        sync.Mutex // Protects closed and running
	closed    bool
	running   bool
	closeOnce sync.Once

	logger Logger

	runs     atomic.Uint64
	failures atomic.Uint64
}

// New creates a scheduler and starts its worker. A nil logger discards output.
func New(logger Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	s := &Scheduler{
		queue:  make(chan job),
		done:   make(chan struct{}),
		logger: logger,
	}

	s.wg.Add(1)
	go s.worker()

	return s
}

// ScheduleOnce runs action once after delay.
func (s *Scheduler) ScheduleOnce(name string, action func(), delay time.Duration) error {
	if err := s.track(); err != nil {
		return err
	}

	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			s.enqueue(job{name: name, action: action})
		case <-s.done:
		}
	}()

	return nil
}

// ScheduleRepeating runs action every period, first after one period.
// Ticks that arrive while the worker is busy are dropped rather than queued.
func (s *Scheduler) ScheduleRepeating(name string, action func(), period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, name)
	}
	if err := s.track(); err != nil {
		return err
	}

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if !s.enqueue(job{name: name, action: action}) {
					return
				}
			case <-s.done:
				return
			}
		}
	}()

	return nil
}

// Close stops all pending and future executions. It is idempotent.
// An action that passed the start gate before Close is not interrupted, and
// Close does not wait for it; use Wait for that. Every other action, queued
// or not, never starts.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		inFlight := s.running
		s.mu.Unlock()

		close(s.done)

		if inFlight {
			s.logger.Debug("scheduler closed with an action in flight")
		}
	})
}

// Wait blocks until the worker and every timer goroutine have exited.
// Only meaningful after Close. Must not be called from inside an action.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Stats returns a snapshot of scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return Stats{
		Runs:     s.runs.Load(),
		Failures: s.failures.Load(),
		Running:  running,
	}
}

// track registers a new timer goroutine, refusing once closed.
func (s *Scheduler) track() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.wg.Add(1)
	return nil
}

// enqueue hands a job to the worker. Returns false if the scheduler closed.
func (s *Scheduler) enqueue(j job) bool {
	select {
	case s.queue <- j:
		return true
	case <-s.done:
		return false
	}
}

// worker drains the queue one job at a time.
func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case j := <-s.queue:
			s.run(j)
		}
	}
}

// run executes one job, containing any panic so the timeline survives.
func (s *Scheduler) run(j job) {
	// Start gate: checking closed and marking the action running happen
	// under one lock, so Close either sees it in flight or stops it here.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.runs.Add(1)

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		if r := recover(); r != nil {
			s.failures.Add(1)
			s.logger.Error("scheduled action panicked",
				"task", j.name,
				"panic", r,
			)
		}
	}()

	j.action()
}
