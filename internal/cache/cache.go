package cache

import (
	"reflect"
	"sync"

	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// entry is one cached room snapshot.
type entry struct {
	devices []model.Device
	fetched bool
}

// DeviceCache caches device list snapshots keyed by room id.
// All methods are safe for concurrent use.
type DeviceCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewDeviceCache creates an empty cache.
func NewDeviceCache() *DeviceCache {
	return &DeviceCache{
		entries: make(map[string]entry),
	}
}

// Get returns the cached device list for a room and whether the room has been
// fetched. An unfetched room yields an empty list; the cache never fetches on
// a miss (population is push-only, see package doc).
// The returned slice is a copy; callers can safely modify it.
func (c *DeviceCache) Get(roomID string) ([]model.Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[roomID]
	if !ok {
		return []model.Device{}, false
	}
	return copyDevices(e.devices), e.fetched
}

// Peek returns the cached device list without fetch semantics: best effort,
// no network, nil when nothing is cached.
func (c *DeviceCache) Peek(roomID string) []model.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[roomID]
	if !ok {
		return nil
	}
	return copyDevices(e.devices)
}

// Set stores a room's device list and marks the room as fetched. It reports
// whether the stored content actually changed, so callers can skip redundant
// change notifications when the backend returned identical data.
func (c *DeviceCache) Set(roomID string, devices []model.Device) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, existed := c.entries[roomID]
	if existed && prev.fetched && devicesEqual(prev.devices, devices) {
		return false
	}

	c.entries[roomID] = entry{
		devices: copyDevices(devices),
		fetched: true,
	}
	return true
}

// Invalidate evicts a single room, typically because its membership may have
// changed out-of-band.
func (c *DeviceCache) Invalidate(roomID string) {
	c.mu.Lock()
	delete(c.entries, roomID)
	c.mu.Unlock()
}

// InvalidateAll evicts every cached room.
func (c *DeviceCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Fetched reports whether a room has been fetched at least once since the
// last invalidation.
func (c *DeviceCache) Fetched(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[roomID].fetched
}

// copyDevices returns an independent copy of a device slice. Nested sensor
// and actuator slices are cloned as well so cache contents cannot be mutated
// through a returned copy.
func copyDevices(devices []model.Device) []model.Device {
	out := make([]model.Device, len(devices))
	copy(out, devices)
	for i := range out {
		if out[i].Sensors != nil {
			sensors := make([]model.Sensor, len(out[i].Sensors))
			copy(sensors, out[i].Sensors)
			out[i].Sensors = sensors
		}
		if out[i].Actuators != nil {
			actuators := make([]model.Actuator, len(out[i].Actuators))
			copy(actuators, out[i].Actuators)
			out[i].Actuators = actuators
		}
	}
	return out
}

// devicesEqual performs a structural comparison of two device lists,
// including order. Order matters because the backend returns a stable
// ordering and a reorder is a visible change.
func devicesEqual(a, b []model.Device) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
