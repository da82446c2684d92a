package router

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/lanlight/internal/device"
	"github.com/nerrad567/lanlight/internal/protocol"
)

func TestStatePublisher_FoundAndChanged(t *testing.T) {
	client := newMockClient()
	pub := NewStatePublisher(client, 0, nil)

	light := device.Light{
		ID:        deviceA,
		Label:     "Desk",
		Power:     65535,
		Tags:      protocol.Pack([]protocol.TagID{2, 5}),
		FirstSeen: fixedNow,
		LastSeen:  fixedNow.Add(time.Second),
	}
	pub.LightFound(light)

	light.Power = 0
	pub.LightChanged(light)

	sent := client.messages()
	if len(sent) != 2 {
		t.Fatalf("published %d messages, want 2", len(sent))
	}

	for _, m := range sent {
		if m.topic != "lanlight/state/d073d5000001" {
			t.Errorf("topic = %q, want lanlight/state/d073d5000001", m.topic)
		}
		if !m.retained {
			t.Error("state not retained")
		}
		if m.qos != DefaultQoS {
			t.Errorf("qos = %d, want %d", m.qos, DefaultQoS)
		}
	}

	var got struct {
		ID    string `json:"id"`
		Label string `json:"label"`
		On    bool   `json:"on"`
		Power int    `json:"power"`
		Tags  []int  `json:"tags"`
	}
	if err := json.Unmarshal(sent[0].payload, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.ID != "d073d5000001" || got.Label != "Desk" || !got.On || got.Power != 65535 {
		t.Errorf("found state = %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != 2 || got.Tags[1] != 5 {
		t.Errorf("tags = %v, want [2 5]", got.Tags)
	}

	if err := json.Unmarshal(sent[1].payload, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.On {
		t.Error("changed state still on")
	}
}

func TestStatePublisher_LostClearsTopic(t *testing.T) {
	client := newMockClient()
	pub := NewStatePublisher(client, 1, nil)

	pub.LightLost(device.Light{ID: deviceB})

	sent := client.messages()
	if len(sent) != 1 {
		t.Fatalf("published %d messages, want 1", len(sent))
	}
	if sent[0].topic != "lanlight/state/d073d5000002" || !sent[0].retained || len(sent[0].payload) != 0 {
		t.Errorf("lost publish = %+v, want empty retained payload", sent[0])
	}
}

func TestStatePublisher_AsListener(t *testing.T) {
	client := newMockClient()
	now := fixedNow
	lights := device.NewLights(device.LightsOptions{
		StaleAfter:     10 * time.Second,
		InitLoadSettle: -1,
		Now:            func() time.Time { return now },
	})
	lights.AddListener(NewStatePublisher(client, 1, nil))

	msg := protocol.NewMessage(protocol.StateLabel, protocol.DeviceTarget(deviceA),
		protocol.StateLabelPayload{Label: "Hall"})
	lights.HandleMessage(nil, nil, []protocol.DeviceID{deviceA}, msg)

	now = now.Add(time.Minute)
	lights.RemoveLostLights()

	sent := client.messages()
	if len(sent) != 2 {
		t.Fatalf("published %d messages, want found + lost", len(sent))
	}
	if len(sent[0].payload) == 0 || len(sent[1].payload) != 0 {
		t.Errorf("payload sizes = %d, %d; want state then empty", len(sent[0].payload), len(sent[1].payload))
	}
}
