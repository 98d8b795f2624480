package store

import (
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// Merge rules shared by polling, detail fetches, toggle confirmations, and
// push updates. All functions are pure: they derive a new collection from the
// current one without mutating either input.
//
// The incoming list is authoritative for membership: entries absent from it
// are dropped. The current list is authoritative for the freshness of value
// fields the incoming fetch did not carry: a known value is never regressed
// to unknown, and a value stamped older than the one already held does not
// overwrite it. This keeps merges commutative on the value fields, which
// matters because confirmations of independent operations may arrive in
// either order.

// MergeSensors merges a freshly fetched sensor list into the current one.
func MergeSensors(current, incoming []model.Sensor) []model.Sensor {
	curByID := make(map[string]model.Sensor, len(current))
	for _, s := range current {
		curByID[s.ID] = s
	}

	out := make([]model.Sensor, 0, len(incoming))
	for _, in := range incoming {
		cur, known := curByID[in.ID]
		if known {
			switch {
			case in.Value == nil:
				// Value-less fetch (list endpoint): keep the known reading.
				in.Value = cur.Value
				in.LastUpdate = cur.LastUpdate
			case staleThan(in.LastUpdate, cur.LastUpdate) && cur.Value != nil:
				// Incoming reading is explicitly older than the held one.
				in.Value = cur.Value
				in.LastUpdate = cur.LastUpdate
			}
		}
		out = append(out, in)
	}
	return out
}

// MergeActuators merges a freshly fetched actuator list into the current one,
// with the same rules as MergeSensors applied to the boolean state.
func MergeActuators(current, incoming []model.Actuator) []model.Actuator {
	curByID := make(map[string]model.Actuator, len(current))
	for _, a := range current {
		curByID[a.ID] = a
	}

	out := make([]model.Actuator, 0, len(incoming))
	for _, in := range incoming {
		cur, known := curByID[in.ID]
		if known {
			switch {
			case in.State == nil:
				in.State = cur.State
				in.LastUpdate = cur.LastUpdate
			case staleThan(in.LastUpdate, cur.LastUpdate) && cur.State != nil:
				in.State = cur.State
				in.LastUpdate = cur.LastUpdate
			}
		}
		out = append(out, in)
	}
	return out
}

// mergeDeviceLists merges a freshly fetched device list into the current one.
// Nested sensors and actuators are stripped: the canonical sensor and
// actuator collections are maintained separately, so a device record in the
// store never carries a second, possibly stale copy.
func mergeDeviceLists(current, incoming []model.Device) []model.Device {
	curByID := make(map[string]model.Device, len(current))
	for _, d := range current {
		curByID[d.ID] = d
	}

	out := make([]model.Device, 0, len(incoming))
	for _, in := range incoming {
		if cur, known := curByID[in.ID]; known {
			if in.LastSeen == nil {
				in.LastSeen = cur.LastSeen
			}
		}
		in.Sensors = nil
		in.Actuators = nil
		out = append(out, in)
	}
	return out
}

// mergeSensorsForDevice replaces the canonical sensors owned by one device
// with a merged version of the incoming list, leaving other devices' sensors
// untouched. Used by device detail confirmations, where the fetch covers a
// single device rather than the whole collection.
func mergeSensorsForDevice(current []model.Sensor, deviceID string, incoming []model.Sensor) []model.Sensor {
	var owned []model.Sensor
	out := make([]model.Sensor, 0, len(current)+len(incoming))
	for _, s := range current {
		if s.DeviceID == deviceID {
			owned = append(owned, s)
			continue
		}
		out = append(out, s)
	}
	return append(out, MergeSensors(owned, incoming)...)
}

// mergeActuatorsForDevice is mergeSensorsForDevice for actuators.
func mergeActuatorsForDevice(current []model.Actuator, deviceID string, incoming []model.Actuator) []model.Actuator {
	var owned []model.Actuator
	out := make([]model.Actuator, 0, len(current)+len(incoming))
	for _, a := range current {
		if a.DeviceID == deviceID {
			owned = append(owned, a)
			continue
		}
		out = append(out, a)
	}
	return append(out, MergeActuators(owned, incoming)...)
}

// staleThan reports whether a is explicitly older than b. Missing timestamps
// never count as stale; absence is not evidence of age.
func staleThan(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Before(*b)
}
