// Package readiness provides a one-shot readiness signal.
//
// A Latch starts unfired, fires exactly once, and never resets. Any number of
// goroutines may wait on it, before or after it fires.
//
//	attached := readiness.NewLatch()
//	go func() { attached.Fire() }()
//	ok, err := attached.Wait(ctx, 5*time.Second)
package readiness

import (
	"context"
	"sync"
	"time"
)

// Latch is a single-assignment readiness flag backed by a closed channel.
//
// Thread Safety: all methods are safe for concurrent use.
type Latch struct {
	ch   chan struct{}
	once sync.Once
}

// NewLatch returns an unfired latch.
func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Fire marks the latch as reached. It returns true only for the call that
// actually fired it; later calls are no-ops.
func (l *Latch) Fire() bool {
	fired := false
	l.once.Do(func() {
		close(l.ch)
		fired = true
	})
	return fired
}

// Fired reports whether the latch has fired.
func (l *Latch) Fired() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed once the latch fires.
func (l *Latch) Done() <-chan struct{} {
	return l.ch
}

// Wait blocks until the latch fires, the timeout elapses, or ctx is done.
//
// Returns:
//   - (true, nil) once fired (immediately if already fired)
//   - (false, nil) on timeout
//   - (false, ctx.Err()) if ctx is cancelled first
func (l *Latch) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	if l.Fired() {
		return true, nil
	}
	if timeout <= 0 {
		return false, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.ch:
		return true, nil
	case <-timer.C:
		// A fire racing the timer still counts.
		return l.Fired(), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
