package device

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lanlight/internal/protocol"
)

// deliver runs msg through both registries in dispatch order.
func deliver(lights *Lights, groups *Groups, router Sender, targets []protocol.DeviceID, msg protocol.Message) {
	lights.HandleMessage(router, nil, targets, msg)
	groups.HandleMessage(targets, msg)
}

func tagLabelsMsg(label string, tags ...protocol.TagID) protocol.Message {
	return protocol.NewMessage(protocol.StateTagLabels, protocol.BroadcastTarget(),
		protocol.StateTagLabelsPayload{Tags: protocol.Pack(tags), Label: label})
}

func TestGroups_Reconcile(t *testing.T) {
	tests := []struct {
		name    string
		initial []protocol.TagID
		update  []protocol.TagID
		want    map[protocol.TagID]bool // tag -> lightA is member
	}{
		{
			name:   "join two groups",
			update: []protocol.TagID{1, 2},
			want:   map[protocol.TagID]bool{1: true, 2: true},
		},
		{
			name:    "move between groups",
			initial: []protocol.TagID{1, 2},
			update:  []protocol.TagID{2, 3},
			want:    map[protocol.TagID]bool{1: false, 2: true, 3: true},
		},
		{
			name:    "leave all groups",
			initial: []protocol.TagID{5},
			update:  nil,
			want:    map[protocol.TagID]bool{5: false},
		},
		{
			name:    "unchanged tags",
			initial: []protocol.TagID{0, 63},
			update:  []protocol.TagID{0, 63},
			want:    map[protocol.TagID]bool{0: true, 63: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lights := newTestLights(newFakeClock())
			groups := NewGroups(lights, nil)
			router := &mockSender{}

			deliver(lights, groups, router, []protocol.DeviceID{lightA}, labelMsg("Desk"))
			if tt.initial != nil {
				deliver(lights, groups, router, []protocol.DeviceID{lightA}, tagsMsg(tt.initial...))
			}
			deliver(lights, groups, router, []protocol.DeviceID{lightA}, tagsMsg(tt.update...))

			for tag, member := range tt.want {
				g, ok := groups.Get(tag)
				if !ok {
					t.Fatalf("group %d missing", tag)
				}
				if g.Contains(lightA) != member {
					t.Errorf("group %d contains lightA = %v, want %v", tag, !member, member)
				}
			}

			got := groups.GroupsOf(lightA)
			if len(got) != len(tt.update) {
				t.Errorf("GroupsOf() = %v, want %v", got, tt.update)
			}
		})
	}
}

func TestGroups_EvictionRemovesMembership(t *testing.T) {
	clock := newFakeClock()
	lights := newTestLights(clock)
	groups := NewGroups(lights, nil)

	deliver(lights, groups, nil, []protocol.DeviceID{lightA, lightB}, tagsMsg(1))

	clock.Advance(20 * time.Second)
	deliver(lights, groups, nil, []protocol.DeviceID{lightB}, tagsMsg(1))

	clock.Advance(15 * time.Second)
	lights.RemoveLostLights()

	g, ok := groups.Get(1)
	if !ok {
		t.Fatal("group 1 should be kept")
	}
	if g.Contains(lightA) {
		t.Error("evicted light still listed in group")
	}
	if !g.Contains(lightB) {
		t.Error("present light missing from group")
	}
	if len(groups.GroupsOf(lightA)) != 0 {
		t.Error("evicted light still has memberships")
	}
}

func TestGroups_LateEviction(t *testing.T) {
	tests := []struct {
		name       string
		refound    bool
		wantMember bool
	}{
		{name: "light found again first", refound: true, wantMember: true},
		{name: "light still gone", refound: false, wantMember: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			lights := newTestLights(clock)
			// Not registered as a listener, so the eviction can be delivered late.
			groups := &Groups{
				lights:      lights,
				groups:      make(map[protocol.TagID]*groupRecord),
				memberships: make(map[protocol.DeviceID]uint64),
				logger:      noopLogger{},
			}

			deliver(lights, groups, nil, []protocol.DeviceID{lightA}, tagsMsg(3))
			clock.Advance(time.Minute)
			lost := lights.RemoveLostLights()
			if len(lost) != 1 {
				t.Fatalf("RemoveLostLights() = %d lights, want 1", len(lost))
			}

			if tt.refound {
				clock.Advance(time.Second)
				deliver(lights, groups, nil, []protocol.DeviceID{lightA}, tagsMsg(3))
			}
			groups.LightLost(lost[0])

			g, ok := groups.Get(3)
			if !ok {
				t.Fatal("group 3 should be kept")
			}
			if g.Contains(lightA) != tt.wantMember {
				t.Errorf("group 3 contains lightA = %v, want %v", !tt.wantMember, tt.wantMember)
			}
			if got := len(groups.GroupsOf(lightA)); (got == 1) != tt.wantMember {
				t.Errorf("GroupsOf(lightA) has %d tags", got)
			}
		})
	}
}

func TestGroups_EmptyGroupKept(t *testing.T) {
	clock := newFakeClock()
	lights := newTestLights(clock)
	groups := NewGroups(lights, nil)

	deliver(lights, groups, nil, []protocol.DeviceID{lightA}, tagsMsg(7))
	deliver(lights, groups, nil, nil, tagLabelsMsg("Kitchen", 7))

	clock.Advance(time.Minute)
	lights.RemoveLostLights()

	g, ok := groups.Get(7)
	if !ok {
		t.Fatal("group should survive losing its last member")
	}
	if g.Label != "Kitchen" || len(g.Members) != 0 {
		t.Errorf("Get(7) = %+v, want empty Kitchen group", g)
	}
}

func TestGroups_IgnoresUnknownLights(t *testing.T) {
	lights := newTestLights(newFakeClock())
	groups := NewGroups(lights, nil)

	// Bypass Lights so the target is never registered.
	groups.HandleMessage([]protocol.DeviceID{lightC}, tagsMsg(3))

	if g, ok := groups.Get(3); ok && g.Contains(lightC) {
		t.Error("unregistered light added to group")
	}
	if len(groups.GroupsOf(lightC)) != 0 {
		t.Error("unregistered light has memberships")
	}
}

func TestGroups_RequestsLabelsForNewTags(t *testing.T) {
	lights := newTestLights(newFakeClock())
	groups := NewGroups(lights, nil)
	router := &mockSender{}
	groups.SetRouter(router)

	deliver(lights, groups, nil, []protocol.DeviceID{lightA}, tagsMsg(1, 2))

	sent := router.messages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	msg := sent[0]
	if msg.Type() != protocol.GetTagLabels || !msg.Target().IsBroadcast() {
		t.Fatalf("sent %v, want broadcast get_tag_labels", msg)
	}
	p, ok := msg.Payload().(protocol.GetTagLabelsPayload)
	if !ok || p.Tags != protocol.Pack([]protocol.TagID{1, 2}) {
		t.Errorf("payload = %#v, want tags 1 and 2", msg.Payload())
	}

	// Labelled groups are not requested again.
	deliver(lights, groups, nil, nil, tagLabelsMsg("Upstairs", 1, 2))
	deliver(lights, groups, nil, []protocol.DeviceID{lightB}, tagsMsg(1))

	if len(router.messages()) != 1 {
		t.Errorf("labels re-requested for known groups: %v", router.messages())
	}
}

func TestGroups_SetLabelsCreatesGroups(t *testing.T) {
	lights := newTestLights(newFakeClock())
	groups := NewGroups(lights, nil)

	groups.HandleMessage(nil, tagLabelsMsg("Garden", 10, 11))

	if groups.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", groups.Len())
	}
	list := groups.List()
	if list[0].Tag != 10 || list[1].Tag != 11 {
		t.Errorf("List() not sorted by tag: %v", list)
	}
	for _, g := range list {
		if g.Label != "Garden" {
			t.Errorf("group %d label = %q, want Garden", g.Tag, g.Label)
		}
	}
}

func TestGroups_ConcurrentReconcileAndEviction(t *testing.T) {
	clock := newFakeClock()
	lights := newTestLights(clock)
	groups := NewGroups(lights, nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(3)

		go func(n int) {
			defer wg.Done()
			deliver(lights, groups, nil, []protocol.DeviceID{lightA, lightB}, tagsMsg(protocol.TagID(n%4)))
		}(i)

		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			lights.RemoveLostLights()
		}()

		go func() {
			defer wg.Done()
			groups.List()
		}()
	}
	wg.Wait()

	// Every member listed must still be registered.
	for _, g := range groups.List() {
		for _, id := range g.Members {
			if !lights.Contains(id) {
				t.Errorf("group %d lists evicted light %s", g.Tag, id)
			}
		}
	}
}
