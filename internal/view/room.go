package view

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/bus"
	"github.com/kestrelhq/kestrel-sync/internal/cache"
	"github.com/kestrelhq/kestrel-sync/internal/gateway"
	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// defaultDebounce is the trailing window for collapsing rapid repeat
// requests for the same screen.
const defaultDebounce = 100 * time.Millisecond

// RoomGateway is the slice of the backend client the room controller needs.
type RoomGateway interface {
	RoomDevices(ctx context.Context, roomID string) (gateway.RoomDetail, error)
}

// RoomStore is the slice of the data store the room controller needs.
type RoomStore interface {
	ApplyRoomDevices(roomID string, devices []model.Device)
}

// Logger is the minimal logging interface the controllers depend on.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// RoomController reconciles the room detail screen. One controller instance
// serves all rooms; "active" tracks which room the screen currently shows.
type RoomController struct {
	gw       RoomGateway
	store    RoomStore
	cache    *cache.DeviceCache
	bus      *bus.Bus
	guard    *inflightGuard
	debounce *debouncer
	logger   Logger

	mu     sync.Mutex
	active string
}

// NewRoomController builds a controller over the shared cache and bus.
func NewRoomController(gw RoomGateway, st RoomStore, c *cache.DeviceCache, b *bus.Bus) *RoomController {
	return &RoomController{
		gw:       gw,
		store:    st,
		cache:    c,
		bus:      b,
		guard:    newInflightGuard(),
		debounce: newDebouncer(defaultDebounce),
		logger:   noopLogger{},
	}
}

// SetLogger installs a logger. Safe to leave unset.
func (rc *RoomController) SetLogger(l Logger) {
	if l != nil {
		rc.logger = l
	}
}

// SetDebounce overrides the trailing debounce window. Intended for wiring
// and tests; zero collapses nothing.
func (rc *RoomController) SetDebounce(d time.Duration) {
	rc.debounce = newDebouncer(d)
}

// Open activates a room's detail screen. Cached devices are returned
// immediately for rendering (fromCache true) and a background refresh is
// scheduled; with a cold cache the caller shows a spinner until the
// room-devices-updated event arrives.
func (rc *RoomController) Open(ctx context.Context, roomID string) (devices []model.Device, fromCache bool) {
	rc.mu.Lock()
	rc.active = roomID
	rc.mu.Unlock()

	devices, fromCache = rc.cache.Get(roomID)
	rc.Request(ctx, roomID)
	return devices, fromCache
}

// Request schedules a refresh for a room's devices. Bursts within the
// debounce window collapse into one fetch.
func (rc *RoomController) Request(ctx context.Context, roomID string) {
	rc.debounce.trigger(func() {
		rc.refresh(ctx, roomID)
	})
}

// Close deactivates the screen. In-flight results for the previously active
// room are discarded on arrival.
func (rc *RoomController) Close() {
	rc.debounce.stop()
	rc.mu.Lock()
	rc.active = ""
	rc.mu.Unlock()
}

func (rc *RoomController) isActive(roomID string) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.active == roomID
}

// refresh performs the actual fetch. At most one refresh per room runs at a
// time; losers of the acquire race skip, since the winner's result reaches
// them through the bus.
func (rc *RoomController) refresh(ctx context.Context, roomID string) {
	if !rc.guard.acquire(roomID) {
		rc.logger.Debug("room refresh already in flight", "room_id", roomID)
		return
	}
	defer rc.guard.release(roomID)

	detail, err := rc.gw.RoomDevices(ctx, roomID)
	if err != nil {
		// The cache keeps whatever it had; a failed fetch must not poison it.
		rc.logger.Warn("room devices fetch failed", "room_id", roomID, "error", err)
		return
	}

	if !rc.isActive(roomID) {
		rc.logger.Debug("discarding room devices for inactive screen", "room_id", roomID)
		return
	}

	rc.store.ApplyRoomDevices(roomID, detail.Devices)
	if rc.cache.Set(roomID, detail.Devices) {
		rc.bus.Publish(bus.RoomDevicesUpdated(roomID), detail.Devices)
	}
}
