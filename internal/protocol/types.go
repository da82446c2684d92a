package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// deviceIDLength is the number of hex digits in a DeviceID (6-byte MAC).
const deviceIDLength = 12

// DeviceID names one physical light on the network.
// It is the light's MAC address as 12 lowercase hex digits, e.g. "d073d5001337".
type DeviceID string

// ParseDeviceID normalises and validates a device identifier.
// Colons, dashes and upper case are accepted: "D0:73:D5:00:13:37" parses.
func ParseDeviceID(s string) (DeviceID, error) {
	id := strings.ToLower(strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(s)))
	if len(id) != deviceIDLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidDeviceID, s)
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: %q", ErrInvalidDeviceID, s)
		}
	}
	return DeviceID(id), nil
}

// String implements fmt.Stringer.
func (id DeviceID) String() string {
	return string(id)
}

// SortDeviceIDs sorts ids in place, ascending.
func SortDeviceIDs(ids []DeviceID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Target describes which devices a message applies to.
// The zero value is the broadcast target.
type Target struct {
	devices []DeviceID
}

// BroadcastTarget returns the target that applies to every device.
func BroadcastTarget() Target {
	return Target{}
}

// DeviceTarget returns a target naming specific devices.
// Duplicates are removed. With no ids the result is broadcast.
func DeviceTarget(ids ...DeviceID) Target {
	if len(ids) == 0 {
		return Target{}
	}
	seen := make(map[DeviceID]struct{}, len(ids))
	devices := make([]DeviceID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		devices = append(devices, id)
	}
	SortDeviceIDs(devices)
	return Target{devices: devices}
}

// IsBroadcast reports whether the target applies to every device.
func (t Target) IsBroadcast() bool {
	return len(t.devices) == 0
}

// Devices returns a copy of the targeted device IDs (nil for broadcast).
func (t Target) Devices() []DeviceID {
	if t.IsBroadcast() {
		return nil
	}
	out := make([]DeviceID, len(t.devices))
	copy(out, t.devices)
	return out
}

// String implements fmt.Stringer.
func (t Target) String() string {
	if t.IsBroadcast() {
		return "broadcast"
	}
	parts := make([]string, len(t.devices))
	for i, id := range t.devices {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
