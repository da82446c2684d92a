package influxdb

import (
	"github.com/nerrad567/lanlight/internal/device"
	"github.com/nerrad567/lanlight/internal/protocol"
)

// Writer is the telemetry sink LightRecorder writes to.
// It is satisfied by *Client.
type Writer interface {
	WriteLightPresence(deviceID protocol.DeviceID, label string, present bool)
	WriteLightPower(deviceID protocol.DeviceID, label string, level uint16)
	WriteRegistrySize(lights, groups int)
}

// Counter reports a registry's size. *device.Lights and *device.Groups
// satisfy it.
type Counter interface {
	Len() int
}

// LightRecorder turns light lifecycle events into telemetry.
// It implements device.Listener.
//
// Found and lost events also record the registry size. groups may be nil.
type LightRecorder struct {
	w      Writer
	lights Counter
	groups Counter
}

// NewLightRecorder creates a recorder writing to w.
func NewLightRecorder(w Writer, lights, groups Counter) *LightRecorder {
	return &LightRecorder{w: w, lights: lights, groups: groups}
}

// LightFound implements device.Listener.
func (r *LightRecorder) LightFound(light device.Light) {
	r.w.WriteLightPresence(light.ID, light.Label, true)
	r.w.WriteLightPower(light.ID, light.Label, light.Power)
	r.recordSize()
}

// LightChanged implements device.Listener.
func (r *LightRecorder) LightChanged(light device.Light) {
	r.w.WriteLightPower(light.ID, light.Label, light.Power)
}

// LightLost implements device.Listener.
func (r *LightRecorder) LightLost(light device.Light) {
	r.w.WriteLightPresence(light.ID, light.Label, false)
	r.recordSize()
}

func (r *LightRecorder) recordSize() {
	var lights, groups int
	if r.lights != nil {
		lights = r.lights.Len()
	}
	if r.groups != nil {
		groups = r.groups.Len()
	}
	r.w.WriteRegistrySize(lights, groups)
}
