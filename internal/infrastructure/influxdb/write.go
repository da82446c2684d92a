package influxdb

import (
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/lanlight/internal/protocol"
)

// Measurement names.
const (
	MeasurementPresence = "light_presence"
	MeasurementPower    = "light_power"
	MeasurementRegistry = "light_registry"
)

// WriteLightPresence records a light appearing on or vanishing from the
// network.
//
// Example:
//
//	client.WriteLightPresence("d073d5000001", "Desk", true)
func (c *Client) WriteLightPresence(deviceID protocol.DeviceID, label string, present bool) {
	c.write(MeasurementPresence,
		lightTags(deviceID, label),
		map[string]interface{}{"present": present})
}

// WriteLightPower records a light's power level. Zero means off.
func (c *Client) WriteLightPower(deviceID protocol.DeviceID, label string, level uint16) {
	c.write(MeasurementPower,
		lightTags(deviceID, label),
		map[string]interface{}{
			"level": int64(level),
			"on":    level > 0,
		})
}

// WriteRegistrySize records how many lights and groups are known.
func (c *Client) WriteRegistrySize(lights, groups int) {
	c.write(MeasurementRegistry,
		map[string]string{"org": c.cfg.Org},
		map[string]interface{}{
			"lights": int64(lights),
			"groups": int64(groups),
		})
}

func (c *Client) write(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, c.now()))
}

// lightTags returns the index tags for a light. Unlabelled lights omit label.
func lightTags(deviceID protocol.DeviceID, label string) map[string]string {
	tags := map[string]string{"device_id": deviceID.String()}
	if label != "" {
		tags["label"] = label
	}
	return tags
}
