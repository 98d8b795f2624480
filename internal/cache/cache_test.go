package cache

import (
	"testing"

	"github.com/kestrelhq/kestrel-sync/internal/model"
)

func testDevices(ids ...string) []model.Device {
	devices := make([]model.Device, 0, len(ids))
	for _, id := range ids {
		devices = append(devices, model.Device{
			ID:      id,
			Name:    "Device " + id,
			Type:    model.DeviceTypeLight,
			Status:  model.StatusOnline,
			Enabled: false,
		})
	}
	return devices
}

func TestDeviceCache_GetUnfetched(t *testing.T) {
	c := NewDeviceCache()

	devices, fetched := c.Get("room-1")
	if fetched {
		t.Error("Get() fetched = true for never-fetched room")
	}
	if len(devices) != 0 {
		t.Errorf("Get() returned %d devices, want 0", len(devices))
	}
	if devices == nil {
		t.Error("Get() returned nil, want empty slice")
	}
}

func TestDeviceCache_EmptyResultIsFetched(t *testing.T) {
	c := NewDeviceCache()

	c.Set("room-1", []model.Device{})

	_, fetched := c.Get("room-1")
	if !fetched {
		t.Error("Get() fetched = false after storing a deliberately empty result")
	}
}

func TestDeviceCache_SetReportsChange(t *testing.T) {
	c := NewDeviceCache()
	devices := testDevices("d1", "d2")

	t.Run("first set reports change", func(t *testing.T) {
		if !c.Set("room-1", devices) {
			t.Error("Set() = false on first write, want true")
		}
	})

	t.Run("identical content reports no change", func(t *testing.T) {
		if c.Set("room-1", testDevices("d1", "d2")) {
			t.Error("Set() = true for structurally identical content, want false")
		}
	})

	t.Run("field change reports change", func(t *testing.T) {
		updated := testDevices("d1", "d2")
		updated[0].Enabled = true
		if !c.Set("room-1", updated) {
			t.Error("Set() = false after enabled flag changed, want true")
		}
	})

	t.Run("membership change reports change", func(t *testing.T) {
		if !c.Set("room-1", testDevices("d1")) {
			t.Error("Set() = false after membership changed, want true")
		}
	})
}

func TestDeviceCache_Peek(t *testing.T) {
	c := NewDeviceCache()

	if got := c.Peek("room-1"); got != nil {
		t.Errorf("Peek() = %v for uncached room, want nil", got)
	}

	c.Set("room-1", testDevices("d1"))
	got := c.Peek("room-1")
	if len(got) != 1 || got[0].ID != "d1" {
		t.Errorf("Peek() = %v, want one device d1", got)
	}
}

func TestDeviceCache_Invalidate(t *testing.T) {
	c := NewDeviceCache()
	c.Set("room-1", testDevices("d1"))
	c.Set("room-2", testDevices("d2"))

	c.Invalidate("room-1")
	if c.Fetched("room-1") {
		t.Error("Fetched(room-1) = true after Invalidate")
	}
	if !c.Fetched("room-2") {
		t.Error("Fetched(room-2) = false, invalidation leaked to sibling")
	}

	c.InvalidateAll()
	if c.Fetched("room-2") {
		t.Error("Fetched(room-2) = true after InvalidateAll")
	}
}

func TestDeviceCache_ReturnedSliceIsIsolated(t *testing.T) {
	c := NewDeviceCache()
	c.Set("room-1", testDevices("d1"))

	got, _ := c.Get("room-1")
	got[0].Name = "mutated"

	again, _ := c.Get("room-1")
	if again[0].Name != "Device d1" {
		t.Errorf("cache content mutated through returned copy: %q", again[0].Name)
	}
}
