package router

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/lanlight/internal/device"
	"github.com/nerrad567/lanlight/internal/infrastructure/mqtt"
	"github.com/nerrad567/lanlight/internal/protocol"
)

// lightState is the retained body of lanlight/state/{device}.
type lightState struct {
	ID        protocol.DeviceID `json:"id"`
	Label     string            `json:"label"`
	On        bool              `json:"on"`
	Power     uint16            `json:"power"`
	Tags      []int             `json:"tags"`
	FirstSeen time.Time         `json:"first_seen"`
	LastSeen  time.Time         `json:"last_seen"`
}

// StatePublisher mirrors light records onto retained MQTT topics.
// It implements device.Listener.
//
// A lost light's topic is cleared with an empty retained payload, so
// subscribers joining later never see evicted lights.
type StatePublisher struct {
	client Publisher
	topics mqtt.Topics
	qos    byte
	logger Logger
}

// NewStatePublisher creates a publisher. qos of zero uses DefaultQoS.
func NewStatePublisher(client Publisher, qos byte, logger Logger) *StatePublisher {
	if qos == 0 {
		qos = DefaultQoS
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &StatePublisher{client: client, qos: qos, logger: logger}
}

// LightFound implements device.Listener.
func (p *StatePublisher) LightFound(light device.Light) {
	p.publish(light)
}

// LightChanged implements device.Listener.
func (p *StatePublisher) LightChanged(light device.Light) {
	p.publish(light)
}

// LightLost implements device.Listener.
func (p *StatePublisher) LightLost(light device.Light) {
	topic := p.topics.LightState(light.ID.String())
	if err := p.client.Publish(topic, []byte{}, p.qos, true); err != nil {
		p.logger.Warn("clearing light state", "id", light.ID, "error", err)
	}
}

func (p *StatePublisher) publish(light device.Light) {
	// []TagID would encode as base64 since TagID is a byte.
	ids := light.TagIDs()
	tags := make([]int, 0, len(ids))
	for _, tag := range ids {
		tags = append(tags, int(tag))
	}

	data, err := json.Marshal(lightState{
		ID:        light.ID,
		Label:     light.Label,
		On:        light.IsOn(),
		Power:     light.Power,
		Tags:      tags,
		FirstSeen: light.FirstSeen,
		LastSeen:  light.LastSeen,
	})
	if err != nil {
		p.logger.Error("encoding light state", "id", light.ID, "error", err)
		return
	}

	topic := p.topics.LightState(light.ID.String())
	if err := p.client.Publish(topic, data, p.qos, true); err != nil {
		p.logger.Warn("publishing light state", "id", light.ID, "error", err)
	}
}
