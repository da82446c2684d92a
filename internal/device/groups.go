package device

import (
	"sort"
	"sync"

	"github.com/nerrad567/lanlight/internal/protocol"
)

// groupRecord is the mutable form of a Group.
type groupRecord struct {
	label      string
	labelKnown bool
	members    map[protocol.DeviceID]struct{}
}

// Groups is the tag-group view over Lights.
//
// Membership is reconciled incrementally from StateTags reports. A light the
// Lights registry does not hold is never added, and evicted lights are
// removed when Lights reports them lost.
//
// All public methods are thread-safe.
type Groups struct {
	lights *Lights

	groups      map[protocol.TagID]*groupRecord
	memberships map[protocol.DeviceID]uint64 // tags applied per light
	mu          sync.RWMutex                 // Protects groups and memberships

	router   Sender
	routerMu sync.RWMutex

	logger Logger
}

// NewGroups creates a group view over lights and subscribes to its evictions.
func NewGroups(lights *Lights, logger Logger) *Groups {
	if logger == nil {
		logger = noopLogger{}
	}
	g := &Groups{
		lights:      lights,
		groups:      make(map[protocol.TagID]*groupRecord),
		memberships: make(map[protocol.DeviceID]uint64),
		logger:      logger,
	}
	lights.AddListener(g)
	return g
}

// SetRouter attaches the router used to request labels for new tags.
func (g *Groups) SetRouter(router Sender) {
	g.routerMu.Lock()
	g.router = router
	g.routerMu.Unlock()
}

// HandleMessage applies tag and tag-label reports to the groups.
// Other message kinds are ignored. Lights must already have processed msg.
func (g *Groups) HandleMessage(targets []protocol.DeviceID, msg protocol.Message) {
	switch p := msg.Payload().(type) {
	case protocol.StateTagsPayload:
		var unlabelled uint64
		for _, id := range targets {
			unlabelled |= g.reconcile(id, p.Tags)
		}
		if unlabelled != 0 {
			g.requestLabels(unlabelled)
		}
	case protocol.StateTagLabelsPayload:
		g.setLabels(p.Tags, p.Label)
	}
}

// reconcile moves id from the groups it left to the groups it joined and
// returns the mask of groups created without a known label.
func (g *Groups) reconcile(id protocol.DeviceID, tags uint64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Checked under g.mu: an eviction that lands after this check reaches
	// LightLost, which waits for g.mu and undoes the membership.
	if !g.lights.Contains(id) {
		return 0
	}

	old := g.memberships[id]
	if old == tags {
		return 0
	}

	for _, tag := range protocol.Unpack(old &^ tags) {
		if rec, ok := g.groups[tag]; ok {
			delete(rec.members, id)
		}
	}

	var unlabelled uint64
	for _, tag := range protocol.Unpack(tags &^ old) {
		rec, created := g.ensure(tag)
		if created {
			g.logger.Debug("group created", "tag", tag)
		}
		if !rec.labelKnown {
			unlabelled |= tag.Mask()
		}
		rec.members[id] = struct{}{}
	}

	if tags == 0 {
		delete(g.memberships, id)
	} else {
		g.memberships[id] = tags
	}

	return unlabelled
}

// setLabels labels every tag in mask, creating groups as needed.
func (g *Groups) setLabels(mask uint64, label string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, tag := range protocol.Unpack(mask) {
		rec, _ := g.ensure(tag)
		rec.label = label
		rec.labelKnown = true
	}
}

// ensure returns the record for tag, creating it if absent. Caller holds g.mu.
func (g *Groups) ensure(tag protocol.TagID) (*groupRecord, bool) {
	if rec, ok := g.groups[tag]; ok {
		return rec, false
	}
	rec := &groupRecord{members: make(map[protocol.DeviceID]struct{})}
	g.groups[tag] = rec
	return rec, true
}

// requestLabels asks the network for the labels of the tags in mask.
func (g *Groups) requestLabels(mask uint64) {
	g.routerMu.RLock()
	router := g.router
	g.routerMu.RUnlock()

	if router == nil {
		return
	}

	msg := protocol.NewMessage(protocol.GetTagLabels, protocol.BroadcastTarget(),
		protocol.GetTagLabelsPayload{Tags: mask})
	if err := router.SendMessage(msg); err != nil {
		g.logger.Warn("requesting tag labels", "tags", mask, "error", err)
	}
}

// LightFound implements Listener.
func (g *Groups) LightFound(Light) {}

// LightChanged implements Listener.
func (g *Groups) LightChanged(Light) {}

// LightLost implements Listener. The light leaves every group, unless it was
// found again before the event arrived: a record first seen no earlier than
// the evicted one is the light's new life and keeps its memberships.
func (g *Groups) LightLost(light Light) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cur, ok := g.lights.Get(light.ID); ok && !cur.FirstSeen.Before(light.FirstSeen) {
		g.logger.Debug("ignoring stale eviction", "id", light.ID)
		return
	}

	mask, ok := g.memberships[light.ID]
	if !ok {
		return
	}
	for _, tag := range protocol.Unpack(mask) {
		if rec, ok := g.groups[tag]; ok {
			delete(rec.members, light.ID)
		}
	}
	delete(g.memberships, light.ID)
}

// Get returns a snapshot of the group for tag.
func (g *Groups) Get(tag protocol.TagID) (Group, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rec, ok := g.groups[tag]
	if !ok {
		return Group{}, false
	}
	return snapshot(tag, rec), true
}

// List returns snapshots of every group, sorted by tag.
func (g *Groups) List() []Group {
	g.mu.RLock()
	groups := make([]Group, 0, len(g.groups))
	for tag, rec := range g.groups {
		groups = append(groups, snapshot(tag, rec))
	}
	g.mu.RUnlock()

	sort.Slice(groups, func(i, j int) bool { return groups[i].Tag < groups[j].Tag })
	return groups
}

// GroupsOf returns the tags whose groups contain id.
func (g *Groups) GroupsOf(id protocol.DeviceID) []protocol.TagID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return protocol.Unpack(g.memberships[id])
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.groups)
}

// snapshot copies a record. Caller holds g.mu.
func snapshot(tag protocol.TagID, rec *groupRecord) Group {
	members := make([]protocol.DeviceID, 0, len(rec.members))
	for id := range rec.members {
		members = append(members, id)
	}
	protocol.SortDeviceIDs(members)
	return Group{Tag: tag, Label: rec.label, Members: members}
}
