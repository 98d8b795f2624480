package view

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/bus"
	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// DeviceGateway is the slice of the backend client the device controller
// needs.
type DeviceGateway interface {
	Device(ctx context.Context, id string) (model.Device, error)
}

// DeviceStore is the slice of the data store the device controller needs.
// Lookup serves the instant render; ApplyDeviceDetail folds in the fetched
// detail and returns the merged record.
type DeviceStore interface {
	Device(id string) (model.Device, error)
	ApplyDeviceDetail(detail model.Device) model.Device
}

// DeviceController reconciles the device detail screen: instant render from
// the canonical store, background detail fetch with debounce and in-flight
// dedup, results published as device-updated events.
type DeviceController struct {
	gw       DeviceGateway
	store    DeviceStore
	bus      *bus.Bus
	guard    *inflightGuard
	debounce *debouncer
	logger   Logger

	mu     sync.Mutex
	active string
}

// NewDeviceController builds a controller over the shared bus.
func NewDeviceController(gw DeviceGateway, st DeviceStore, b *bus.Bus) *DeviceController {
	return &DeviceController{
		gw:       gw,
		store:    st,
		bus:      b,
		guard:    newInflightGuard(),
		debounce: newDebouncer(defaultDebounce),
		logger:   noopLogger{},
	}
}

// SetLogger installs a logger. Safe to leave unset.
func (dc *DeviceController) SetLogger(l Logger) {
	if l != nil {
		dc.logger = l
	}
}

// SetDebounce overrides the trailing debounce window.
func (dc *DeviceController) SetDebounce(d time.Duration) {
	dc.debounce = newDebouncer(d)
}

// Open activates a device's detail screen. The store's current record is
// returned for an instant render (sensors and actuators may still be
// missing) and a detail refresh is scheduled.
func (dc *DeviceController) Open(ctx context.Context, id string) (model.Device, error) {
	dc.mu.Lock()
	dc.active = id
	dc.mu.Unlock()

	dc.Request(ctx, id)
	return dc.store.Device(id)
}

// Request schedules a detail refresh. Bursts within the debounce window
// collapse into one fetch.
func (dc *DeviceController) Request(ctx context.Context, id string) {
	dc.debounce.trigger(func() {
		dc.refresh(ctx, id)
	})
}

// Close deactivates the screen.
func (dc *DeviceController) Close() {
	dc.debounce.stop()
	dc.mu.Lock()
	dc.active = ""
	dc.mu.Unlock()
}

func (dc *DeviceController) isActive(id string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.active == id
}

func (dc *DeviceController) refresh(ctx context.Context, id string) {
	if !dc.guard.acquire(id) {
		dc.logger.Debug("device refresh already in flight", "device_id", id)
		return
	}
	defer dc.guard.release(id)

	detail, err := dc.gw.Device(ctx, id)
	if err != nil {
		dc.logger.Warn("device detail fetch failed", "device_id", id, "error", err)
		return
	}

	if !dc.isActive(id) {
		dc.logger.Debug("discarding device detail for inactive screen", "device_id", id)
		return
	}

	merged := dc.store.ApplyDeviceDetail(detail)
	dc.bus.Publish(bus.DeviceUpdated(id), merged)
}
