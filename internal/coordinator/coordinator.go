package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/lanlight/internal/device"
	"github.com/nerrad567/lanlight/internal/protocol"
	"github.com/nerrad567/lanlight/internal/readiness"
	"github.com/nerrad567/lanlight/internal/scheduler"
)

// Router is the transport the Coordinator sends requests through.
type Router interface {
	// SendMessage hands msg to the network. Delivery is best effort.
	SendMessage(msg protocol.Message) error

	// WaitForInitPAN blocks until the router has sighted the light network,
	// the timeout elapses, or ctx is done.
	WaitForInitPAN(ctx context.Context, timeout time.Duration) (bool, error)
}

// Logger defines the logging interface used by the Coordinator.
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

// Coordinator owns the registries and the polling timeline.
//
// Thread Safety: all methods are safe for concurrent use. HandleMessage may
// be called from the router's delivery goroutine while scheduled tasks run.
type Coordinator struct {
	opts   Options
	logger Logger

	lights *device.Lights
	groups *device.Groups

	attached *readiness.Latch

	mu     sync.RWMutex // Protects router, sched, opened, closed
	router Router
	sched  *scheduler.Scheduler
	opened bool
	closed bool
}

// New creates a Coordinator with empty registries. It does nothing on the
// network until SetRouter and Open are called.
func New(opts Options) *Coordinator {
	opts.applyDefaults()

	lights := device.NewLights(device.LightsOptions{
		StaleAfter:     opts.StaleAfter,
		InitLoadSettle: opts.InitLoadSettle,
		Logger:         opts.Logger,
	})

	return &Coordinator{
		opts:     opts,
		logger:   opts.Logger,
		lights:   lights,
		groups:   device.NewGroups(lights, opts.Logger),
		attached: readiness.NewLatch(),
	}
}

// SetRouter attaches the router. It may be called once; later calls return
// ErrRouterAlreadySet and leave the original router in place.
func (c *Coordinator) SetRouter(router Router) error {
	if router == nil {
		return ErrNilRouter
	}

	c.mu.Lock()
	if c.router != nil {
		c.mu.Unlock()
		return ErrRouterAlreadySet
	}
	c.router = router
	c.mu.Unlock()

	c.groups.SetRouter(router)
	c.attached.Fire()
	c.logger.Info("router attached")
	return nil
}

// Open starts the polling timeline: one poll burst after InitialPollDelay,
// repeating bursts every PollInterval, and an eviction sweep every
// RefreshInterval.
func (c *Coordinator) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case c.opened:
		return ErrAlreadyOpen
	case c.router == nil:
		return ErrRouterNotAttached
	}

	sched := scheduler.New(c.logger)
	poll := &pollTask{
		router:  c.router,
		lights:  c.lights,
		sched:   sched,
		repeats: c.opts.PollRepeats,
		logger:  c.logger,
	}
	refresh := &refreshTask{lights: c.lights}

	if err := sched.ScheduleOnce("poll-initial", poll.run, c.opts.InitialPollDelay); err != nil {
		sched.Close()
		return fmt.Errorf("scheduling initial poll: %w", err)
	}
	if err := sched.ScheduleRepeating("poll", poll.run, c.opts.PollInterval); err != nil {
		sched.Close()
		return fmt.Errorf("scheduling poll: %w", err)
	}
	if err := sched.ScheduleRepeating("refresh", refresh.run, c.opts.RefreshInterval); err != nil {
		sched.Close()
		return fmt.Errorf("scheduling refresh: %w", err)
	}

	c.sched = sched
	c.opened = true

	c.logger.Info("coordinator opened",
		"poll_interval", c.opts.PollInterval,
		"refresh_interval", c.opts.RefreshInterval,
		"stale_after", c.opts.StaleAfter,
	)
	return nil
}

// Close stops the timeline. No scheduled action starts after Close returns.
// It is idempotent and a no-op before Open. Must not be called from inside
// a scheduled action.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if !c.opened || c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sched := c.sched
	c.mu.Unlock()

	sched.Close()
	sched.Wait()

	c.logger.Info("coordinator closed", "scheduler_runs", sched.Stats().Runs)
}

// HandleMessage dispatches an inbound message to Lights and then Groups.
// targets are the devices the message came from.
func (c *Coordinator) HandleMessage(targets []protocol.DeviceID, msg protocol.Message) {
	var (
		sender device.Sender
		sched  device.Scheduler
	)

	c.mu.RLock()
	if c.router != nil {
		sender = c.router
	}
	if c.sched != nil {
		sched = c.sched
	}
	c.mu.RUnlock()

	c.lights.HandleMessage(sender, sched, targets, msg)
	c.groups.HandleMessage(targets, msg)
}

// WaitForLoaded waits until the router is attached, the PAN has been sighted,
// and the initial light load has completed, all within one deadline of
// now + timeout.
//
// Each stage is bounded by its own ceiling and by the time left:
//  1. router attached, at most RouterWait; never attached is ErrRouterNotAttached
//  2. PAN sighted, at most PANWait; not sighted is (false, nil)
//  3. initial load, whatever time remains
//
// Returns (false, ctx.Err()) if ctx is cancelled.
func (c *Coordinator) WaitForLoaded(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)

	ok, err := c.attached.Wait(ctx, min(c.opts.RouterWait, time.Until(deadline)))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrRouterNotAttached
	}

	c.mu.RLock()
	router := c.router
	c.mu.RUnlock()

	ok, err = router.WaitForInitPAN(ctx, min(c.opts.PANWait, time.Until(deadline)))
	if err != nil || !ok {
		return false, err
	}

	return c.lights.WaitForInitLoaded(ctx, time.Until(deadline))
}

// Lights returns the light registry.
func (c *Coordinator) Lights() *device.Lights {
	return c.lights
}

// Groups returns the group registry.
func (c *Coordinator) Groups() *device.Groups {
	return c.groups
}

// RouterAttached reports whether SetRouter has succeeded.
func (c *Coordinator) RouterAttached() bool {
	return c.attached.Fired()
}
