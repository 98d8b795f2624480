package store

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/bus"
	"github.com/kestrelhq/kestrel-sync/internal/cache"
	"github.com/kestrelhq/kestrel-sync/internal/gateway"
	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// defaultPollInterval is the collection refresh cadence when none is
// configured.
const defaultPollInterval = 30 * time.Second

// Gateway is the backend surface the store depends on. *gateway.Client
// satisfies it; tests substitute mocks.
type Gateway interface {
	Devices(ctx context.Context) ([]model.Device, error)
	Device(ctx context.Context, id string) (model.Device, error)
	Rooms(ctx context.Context) ([]model.Room, error)
	RoomDevices(ctx context.Context, id string) (gateway.RoomDetail, error)
	SetDevicePower(ctx context.Context, id string, enabled bool) error
	SetSensorEnabled(ctx context.Context, id string, enabled bool) error
	SetSensorThreshold(ctx context.Context, id string, minThreshold, maxThreshold *float64) error
	ControlActuator(ctx context.Context, id string, state bool) error
	ControlRoom(ctx context.Context, id string, action model.RoomAction) error
	Notifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	LatestSensorData(ctx context.Context, filter gateway.DataFilter) ([]gateway.DataPoint, error)
}

// Logger is the logging interface used by the store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Notifier surfaces transient user-facing messages (toasts). The panel API
// implements it by broadcasting to connected views.
type Notifier interface {
	Toast(kind model.NotificationKind, message string)
}

// noopNotifier is a notifier that does nothing.
type noopNotifier struct{}

func (noopNotifier) Toast(model.NotificationKind, string) {}

// View identifies which dashboard view is active, which decides what the
// initial load and poll ticks fetch. A rooms-only view does not need the full
// device list eagerly.
type View string

// View constants.
const (
	ViewRooms   View = "rooms"
	ViewDevices View = "devices"
	ViewAll     View = "all"
)

// Store owns the canonical collections for the current session.
// All public methods are safe for concurrent use.
type Store struct {
	gw       Gateway
	bus      *bus.Bus
	cache    *cache.DeviceCache
	logger   Logger
	notifier Notifier

	interval time.Duration

	mu            sync.RWMutex
	devices       []model.Device
	rooms         []model.Room
	sensors       []model.Sensor
	actuators     []model.Actuator
	notifications []model.Notification
	activeView    View

	// Guard flags for the async windows described in the package doc.
	flagMu  sync.Mutex
	polling bool
	toggles int
}

// New creates a store around the given gateway, event bus, and device cache.
func New(gw Gateway, b *bus.Bus, c *cache.DeviceCache) *Store {
	return &Store{
		gw:         gw,
		bus:        b,
		cache:      c,
		logger:     noopLogger{},
		notifier:   noopNotifier{},
		interval:   defaultPollInterval,
		activeView: ViewAll,
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetNotifier sets the toast notifier for the store.
func (s *Store) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetPollInterval overrides the default 30s refresh cadence. Must be called
// before Run.
func (s *Store) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// SetActiveView records which view is active. Subsequent loads and poll
// ticks fetch only the collections that view needs.
func (s *Store) SetActiveView(v View) {
	s.mu.Lock()
	s.activeView = v
	s.mu.Unlock()
}

// ActiveView returns the currently active view.
func (s *Store) ActiveView() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeView
}

// Devices returns a copy of the canonical device collection.
func (s *Store) Devices() []model.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// Device returns a single device from the canonical collection.
func (s *Store) Device(id string) (model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.ID == id {
			return d, nil
		}
	}
	return model.Device{}, ErrDeviceNotFound
}

// Rooms returns a copy of the canonical room collection.
func (s *Store) Rooms() []model.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Room, len(s.rooms))
	copy(out, s.rooms)
	return out
}

// Sensors returns a copy of the canonical sensor collection.
func (s *Store) Sensors() []model.Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Sensor, len(s.sensors))
	copy(out, s.sensors)
	return out
}

// SensorsByDevice returns the canonical sensors owned by a device.
func (s *Store) SensorsByDevice(deviceID string) []model.Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Sensor
	for _, sn := range s.sensors {
		if sn.DeviceID == deviceID {
			out = append(out, sn)
		}
	}
	return out
}

// Actuators returns a copy of the canonical actuator collection.
func (s *Store) Actuators() []model.Actuator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Actuator, len(s.actuators))
	copy(out, s.actuators)
	return out
}

// Notifications returns a copy of the canonical notification collection.
func (s *Store) Notifications() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount derives the unread notification count from the canonical
// collection. It is never stored independently, so it cannot drift.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// RoomDeviceCounts derives the number of member devices per room id from the
// canonical device collection.
func (s *Store) RoomDeviceCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int, len(s.rooms))
	for _, d := range s.devices {
		if d.RoomID != nil {
			counts[*d.RoomID]++
		}
	}
	return counts
}

// Snapshot is a point-in-time copy of the canonical state for the panel API.
type Snapshot struct {
	Devices       []model.Device       `json:"devices"`
	Rooms         []model.Room         `json:"rooms"`
	Sensors       []model.Sensor       `json:"sensors"`
	Actuators     []model.Actuator     `json:"actuators"`
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unread_count"`
}

// Snapshot returns a consistent copy of all canonical collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Devices:       make([]model.Device, len(s.devices)),
		Rooms:         make([]model.Room, len(s.rooms)),
		Sensors:       make([]model.Sensor, len(s.sensors)),
		Actuators:     make([]model.Actuator, len(s.actuators)),
		Notifications: make([]model.Notification, len(s.notifications)),
	}
	copy(snap.Devices, s.devices)
	copy(snap.Rooms, s.rooms)
	copy(snap.Sensors, s.sensors)
	copy(snap.Actuators, s.actuators)
	copy(snap.Notifications, s.notifications)
	for _, n := range s.notifications {
		if !n.Read {
			snap.UnreadCount++
		}
	}
	return snap
}

// beginToggle marks a user-initiated mutation window. Poll ticks are
// suppressed until the matching endToggle. Windows may nest: two independent
// toggles in flight keep polling suppressed until both settle.
func (s *Store) beginToggle() {
	s.flagMu.Lock()
	s.toggles++
	s.flagMu.Unlock()
}

// endToggle closes a mutation window.
func (s *Store) endToggle() {
	s.flagMu.Lock()
	s.toggles--
	s.flagMu.Unlock()
}

// toggling reports whether any mutation window is open.
func (s *Store) toggling() bool {
	s.flagMu.Lock()
	defer s.flagMu.Unlock()
	return s.toggles > 0
}
