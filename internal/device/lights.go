package device

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/lanlight/internal/protocol"
	"github.com/nerrad567/lanlight/internal/readiness"
)

// Registry defaults.
const (
	// DefaultStaleAfter is how long a light may go unseen before eviction.
	// Far longer than the refresh cadence so one lost poll cycle never evicts.
	DefaultStaleAfter = 30 * time.Second

	// DefaultInitLoadSettle is how long replies are collected after the first
	// poll burst before the initial load counts as complete.
	DefaultInitLoadSettle = time.Second
)

// LightsOptions configures a Lights registry.
type LightsOptions struct {
	// StaleAfter is the staleness threshold. Default: 30s.
	StaleAfter time.Duration

	// InitLoadSettle is the settle window for the initial load. Default: 1s.
	// Zero means the default; use a negative value to fire immediately.
	InitLoadSettle time.Duration

	// Logger is optional.
	Logger Logger

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Lights is the authoritative registry of lights seen on the network.
//
// All public methods are thread-safe.
type Lights struct {
	lights map[protocol.DeviceID]*Light
	mu     sync.RWMutex // Protects lights

	listeners   []Listener
	listenersMu sync.RWMutex

	loaded     *readiness.Latch
	loadedOnce sync.Once

	staleAfter time.Duration
	settle     time.Duration
	now        func() time.Time
	logger     Logger
}

// NewLights creates an empty registry.
func NewLights(opts LightsOptions) *Lights {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	switch {
	case opts.InitLoadSettle == 0:
		opts.InitLoadSettle = DefaultInitLoadSettle
	case opts.InitLoadSettle < 0:
		opts.InitLoadSettle = 0
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Lights{
		lights:     make(map[protocol.DeviceID]*Light),
		loaded:     readiness.NewLatch(),
		staleAfter: opts.StaleAfter,
		settle:     opts.InitLoadSettle,
		now:        opts.Now,
		logger:     opts.Logger,
	}
}

// AddListener registers a listener for light lifecycle events.
func (l *Lights) AddListener(listener Listener) {
	l.listenersMu.Lock()
	l.listeners = append(l.listeners, listener)
	l.listenersMu.Unlock()
}

// HandleMessage records a message against every light in targets.
//
// Unknown lights are created on first sighting. Every target's LastSeen
// advances, and state payloads (label, power, time, tags) update attributes.
// Each new light is asked for its tags with a unicast GetTags. The scheduler
// argument is unused: sightings never advance the initial load, only PollSent
// does, so a report that beats the first poll burst cannot complete it.
//
// router may be nil; the registry then skips the follow-up request.
func (l *Lights) HandleMessage(router Sender, _ Scheduler, targets []protocol.DeviceID, msg protocol.Message) {
	if len(targets) == 0 {
		return
	}

	now := l.now()
	var found, changed []Light

	l.mu.Lock()
	for _, id := range targets {
		rec, ok := l.lights[id]
		if !ok {
			rec = &Light{ID: id, FirstSeen: now}
			l.lights[id] = rec
		}
		rec.LastSeen = now

		updated := applyPayload(rec, msg.Payload())
		switch {
		case !ok:
			found = append(found, *rec)
		case updated:
			changed = append(changed, *rec)
		}
	}
	l.mu.Unlock()

	for _, light := range found {
		l.logger.Info("light found", "id", light.ID, "label", light.Label)
		if router != nil {
			req := protocol.NewMessage(protocol.GetTags, protocol.DeviceTarget(light.ID), nil)
			if err := router.SendMessage(req); err != nil {
				l.logger.Warn("requesting tags for new light", "id", light.ID, "error", err)
			}
		}
		l.notify(func(ln Listener) { ln.LightFound(light) })
	}
	for _, light := range changed {
		l.notify(func(ln Listener) { ln.LightChanged(light) })
	}
}

// PollSent tells the registry a broadcast poll burst went out. The first call
// starts the initial-load settle window; replies arriving within it belong to
// the initial load, and an empty network still loads. A nil sched completes
// the load at once.
func (l *Lights) PollSent(sched Scheduler) {
	l.startInitLoad(sched)
}

// RemoveLostLights evicts every light not seen within the staleness window
// and returns the evicted records. Listeners are notified after the lock is
// released. It never touches the network.
func (l *Lights) RemoveLostLights() []Light {
	cutoff := l.now().Add(-l.staleAfter)

	var lost []Light
	l.mu.Lock()
	for id, rec := range l.lights {
		if rec.LastSeen.Before(cutoff) {
			lost = append(lost, *rec)
			delete(l.lights, id)
		}
	}
	l.mu.Unlock()

	for _, light := range lost {
		l.logger.Info("light lost", "id", light.ID, "label", light.Label, "last_seen", light.LastSeen)
		l.notify(func(ln Listener) { ln.LightLost(light) })
	}

	return lost
}

// WaitForInitLoaded blocks until the first population pass completes, the
// timeout elapses, or ctx is cancelled.
func (l *Lights) WaitForInitLoaded(ctx context.Context, timeout time.Duration) (bool, error) {
	return l.loaded.Wait(ctx, timeout)
}

// InitLoaded reports whether the initial load has completed.
func (l *Lights) InitLoaded() bool {
	return l.loaded.Fired()
}

// Get returns a copy of the light with the given ID.
func (l *Lights) Get(id protocol.DeviceID) (Light, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.lights[id]
	if !ok {
		return Light{}, false
	}
	return *rec, true
}

// Contains reports whether the light is currently registered.
func (l *Lights) Contains(id protocol.DeviceID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.lights[id]
	return ok
}

// List returns copies of all lights, sorted by ID.
// The slice is a snapshot; later mutations do not affect it.
func (l *Lights) List() []Light {
	l.mu.RLock()
	lights := make([]Light, 0, len(l.lights))
	for _, rec := range l.lights {
		lights = append(lights, *rec)
	}
	l.mu.RUnlock()

	sort.Slice(lights, func(i, j int) bool { return lights[i].ID < lights[j].ID })
	return lights
}

// Len returns the number of registered lights.
func (l *Lights) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.lights)
}

// startInitLoad schedules the initial-load milestone once.
func (l *Lights) startInitLoad(sched Scheduler) {
	l.loadedOnce.Do(func() {
		if sched == nil || l.settle == 0 {
			l.markLoaded()
			return
		}
		if err := sched.ScheduleOnce("init-load", l.markLoaded, l.settle); err != nil {
			l.logger.Warn("scheduling initial load, completing now", "error", err)
			l.markLoaded()
		}
	})
}

// markLoaded fires the initial-load milestone.
func (l *Lights) markLoaded() {
	if l.loaded.Fire() {
		l.logger.Info("initial light load complete", "lights", l.Len())
	}
}

// notify calls fn for every listener outside the registry lock.
func (l *Lights) notify(fn func(Listener)) {
	l.listenersMu.RLock()
	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.listenersMu.RUnlock()

	for _, ln := range listeners {
		fn(ln)
	}
}

// applyPayload updates rec from a state payload and reports whether a
// notifiable attribute changed. Clock reports update Time silently.
func applyPayload(rec *Light, payload protocol.Payload) bool {
	switch p := payload.(type) {
	case protocol.StateLabelPayload:
		if rec.Label != p.Label {
			rec.Label = p.Label
			return true
		}
	case protocol.StatePowerPayload:
		if rec.Power != p.Level {
			rec.Power = p.Level
			return true
		}
	case protocol.StateTagsPayload:
		if rec.Tags != p.Tags {
			rec.Tags = p.Tags
			return true
		}
	case protocol.StateTimePayload:
		rec.Time = p.Time
	}
	return false
}
