package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/bus"
	"github.com/kestrelhq/kestrel-sync/internal/cache"
	"github.com/kestrelhq/kestrel-sync/internal/gateway"
	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// mockGateway is a test implementation of Gateway with per-operation error
// injection and call counting.
type mockGateway struct {
	mu sync.Mutex

	devices       []model.Device
	rooms         []model.Room
	roomDetails   map[string]gateway.RoomDetail
	deviceDetails map[string]model.Device
	notifications []model.Notification
	latest        []gateway.DataPoint

	devicesErr       error
	roomsErr         error
	notificationsErr error
	latestErr        error
	setPowerErr      error
	sensorEnableErr  error
	thresholdErr     error
	actuatorErr      error
	controlRoomErr   error
	markReadErr      error
	markAllErr       error

	calls map[string]int

	// blockPower, when non-nil, makes SetDevicePower wait until the channel
	// is closed. Used to hold a toggle window open.
	blockPower chan struct{}
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		roomDetails:   make(map[string]gateway.RoomDetail),
		deviceDetails: make(map[string]model.Device),
		calls:         make(map[string]int),
	}
}

func (m *mockGateway) count(op string) {
	m.mu.Lock()
	m.calls[op]++
	m.mu.Unlock()
}

func (m *mockGateway) callCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *mockGateway) Devices(context.Context) ([]model.Device, error) {
	m.count("devices")
	if m.devicesErr != nil {
		return nil, m.devicesErr
	}
	return m.devices, nil
}

func (m *mockGateway) Device(_ context.Context, id string) (model.Device, error) {
	m.count("device")
	if d, ok := m.deviceDetails[id]; ok {
		return d, nil
	}
	return model.Device{}, &gateway.APIError{HTTPStatus: 404, Message: "not found"}
}

func (m *mockGateway) Rooms(context.Context) ([]model.Room, error) {
	m.count("rooms")
	if m.roomsErr != nil {
		return nil, m.roomsErr
	}
	return m.rooms, nil
}

func (m *mockGateway) RoomDevices(_ context.Context, id string) (gateway.RoomDetail, error) {
	m.count("roomDevices")
	if d, ok := m.roomDetails[id]; ok {
		return d, nil
	}
	return gateway.RoomDetail{}, &gateway.APIError{HTTPStatus: 404, Message: "not found"}
}

func (m *mockGateway) SetDevicePower(context.Context, string, bool) error {
	m.count("setPower")
	if m.blockPower != nil {
		<-m.blockPower
	}
	return m.setPowerErr
}

func (m *mockGateway) SetSensorEnabled(context.Context, string, bool) error {
	m.count("sensorEnable")
	return m.sensorEnableErr
}

func (m *mockGateway) SetSensorThreshold(context.Context, string, *float64, *float64) error {
	m.count("threshold")
	return m.thresholdErr
}

func (m *mockGateway) ControlActuator(context.Context, string, bool) error {
	m.count("actuator")
	return m.actuatorErr
}

func (m *mockGateway) ControlRoom(context.Context, string, model.RoomAction) error {
	m.count("controlRoom")
	return m.controlRoomErr
}

func (m *mockGateway) Notifications(context.Context) ([]model.Notification, error) {
	m.count("notifications")
	if m.notificationsErr != nil {
		return nil, m.notificationsErr
	}
	return m.notifications, nil
}

func (m *mockGateway) MarkNotificationRead(context.Context, string) error {
	m.count("markRead")
	return m.markReadErr
}

func (m *mockGateway) MarkAllNotificationsRead(context.Context) error {
	m.count("markAll")
	return m.markAllErr
}

func (m *mockGateway) LatestSensorData(context.Context, gateway.DataFilter) ([]gateway.DataPoint, error) {
	m.count("latest")
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	return m.latest, nil
}

// recordingNotifier captures toasts for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	toasts []string
	kinds  []model.NotificationKind
}

func (r *recordingNotifier) Toast(kind model.NotificationKind, msg string) {
	r.mu.Lock()
	r.toasts = append(r.toasts, msg)
	r.kinds = append(r.kinds, kind)
	r.mu.Unlock()
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toasts)
}

func newTestStore(gw *mockGateway) (*Store, *bus.Bus, *cache.DeviceCache) {
	b := bus.New()
	c := cache.NewDeviceCache()
	s := New(gw, b, c)
	return s, b, c
}

func strPtr(v string) *string       { return &v }
func f64Ptr(v float64) *float64     { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func TestStore_ToggleDevicePower_Success(t *testing.T) {
	gw := newMockGateway()
	gw.devices = []model.Device{{ID: "d1", Name: "Lamp", Enabled: false}}
	gw.deviceDetails["d1"] = model.Device{
		ID: "d1", Name: "Lamp", Enabled: true,
		Sensors: []model.Sensor{{ID: "s1", DeviceID: "d1", Value: f64Ptr(20)}},
	}

	s, b, _ := newTestStore(gw)
	ctx := context.Background()
	if err := s.refreshDevices(ctx); err != nil {
		t.Fatalf("refreshDevices() error = %v", err)
	}

	published := 0
	b.Subscribe(bus.DeviceUpdated("d1"), func(any) { published++ })

	if err := s.ToggleDevicePower(ctx, "d1", true); err != nil {
		t.Fatalf("ToggleDevicePower() error = %v", err)
	}

	d, err := s.Device("d1")
	if err != nil {
		t.Fatalf("Device() error = %v", err)
	}
	if !d.Enabled {
		t.Error("device not enabled after successful toggle")
	}
	if published != 1 {
		t.Errorf("device-updated publishes = %d, want 1", published)
	}
	sensors := s.SensorsByDevice("d1")
	if len(sensors) != 1 || sensors[0].Value == nil || *sensors[0].Value != 20 {
		t.Errorf("sensors after confirmation fetch = %+v, want s1 with value 20", sensors)
	}
}

func TestStore_ToggleDevicePower_RollbackOnFailure(t *testing.T) {
	gw := newMockGateway()
	gw.devices = []model.Device{{ID: "d1", Enabled: false}}
	gw.setPowerErr = errors.New("backend rejected")

	notifier := &recordingNotifier{}
	s, _, _ := newTestStore(gw)
	s.SetNotifier(notifier)
	ctx := context.Background()
	s.refreshDevices(ctx)

	err := s.ToggleDevicePower(ctx, "d1", true)
	if err == nil {
		t.Fatal("ToggleDevicePower() error = nil, want failure")
	}

	d, _ := s.Device("d1")
	if d.Enabled {
		t.Error("device still enabled after rollback, want enabled=false")
	}
	if notifier.count() != 1 {
		t.Errorf("toasts = %d, want 1 error toast", notifier.count())
	}
}

func TestStore_ToggleDevicePower_UnknownDevice(t *testing.T) {
	gw := newMockGateway()
	s, _, _ := newTestStore(gw)

	err := s.ToggleDevicePower(context.Background(), "ghost", true)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("error = %v, want ErrDeviceNotFound", err)
	}
	if gw.callCount("setPower") != 0 {
		t.Error("remote call issued for unknown device")
	}
}

func TestStore_ToggleSensorEnabled_Rollback(t *testing.T) {
	gw := newMockGateway()
	gw.sensorEnableErr = errors.New("nope")

	s, _, _ := newTestStore(gw)
	s.ApplyDeviceDetail(model.Device{
		ID:      "d1",
		Sensors: []model.Sensor{{ID: "s1", DeviceID: "d1", Enabled: true}},
	})

	if err := s.ToggleSensorEnabled(context.Background(), "s1", false); err == nil {
		t.Fatal("ToggleSensorEnabled() error = nil, want failure")
	}

	sensors := s.SensorsByDevice("d1")
	if len(sensors) != 1 || !sensors[0].Enabled {
		t.Errorf("sensor enabled = false after rollback, want true")
	}
}

func TestStore_SetSensorThreshold(t *testing.T) {
	gw := newMockGateway()
	s, _, _ := newTestStore(gw)
	s.ApplyDeviceDetail(model.Device{
		ID:      "d1",
		Sensors: []model.Sensor{{ID: "s1", DeviceID: "d1", MaxThreshold: f64Ptr(24)}},
	})
	ctx := context.Background()

	if err := s.SetSensorThreshold(ctx, "s1", f64Ptr(10), f64Ptr(30)); err != nil {
		t.Fatalf("SetSensorThreshold() error = %v", err)
	}
	sensors := s.SensorsByDevice("d1")
	if sensors[0].MinThreshold == nil || *sensors[0].MinThreshold != 10 ||
		sensors[0].MaxThreshold == nil || *sensors[0].MaxThreshold != 30 {
		t.Errorf("thresholds = (%v, %v), want (10, 30)", sensors[0].MinThreshold, sensors[0].MaxThreshold)
	}

	gw.thresholdErr = errors.New("rejected")
	if err := s.SetSensorThreshold(ctx, "s1", nil, f64Ptr(50)); err == nil {
		t.Fatal("SetSensorThreshold() error = nil, want failure")
	}
	sensors = s.SensorsByDevice("d1")
	if sensors[0].MaxThreshold == nil || *sensors[0].MaxThreshold != 30 {
		t.Errorf("MaxThreshold = %v after rollback, want 30", sensors[0].MaxThreshold)
	}
}

func TestStore_ControlActuator_Optimistic(t *testing.T) {
	gw := newMockGateway()
	s, _, _ := newTestStore(gw)
	s.ApplyDeviceDetail(model.Device{
		ID:        "d1",
		Actuators: []model.Actuator{{ID: "a1", DeviceID: "d1"}},
	})

	if err := s.ControlActuator(context.Background(), "a1", true); err != nil {
		t.Fatalf("ControlActuator() error = %v", err)
	}

	actuators := s.Actuators()
	if len(actuators) != 1 || actuators[0].State == nil || !*actuators[0].State {
		t.Errorf("actuator state = %+v, want true", actuators)
	}
}

func TestStore_ControlRoom_EndToEnd(t *testing.T) {
	gw := newMockGateway()
	gw.rooms = []model.Room{{ID: "r1", Name: "Kitchen"}}
	gw.devices = []model.Device{
		{ID: "d1", RoomID: strPtr("r1"), Enabled: false},
		{ID: "d2", RoomID: strPtr("r1"), Enabled: false},
	}
	gw.roomDetails["r1"] = gateway.RoomDetail{
		Room: model.Room{ID: "r1", Name: "Kitchen"},
		Devices: []model.Device{
			{ID: "d1", RoomID: strPtr("r1"), Enabled: true},
			{ID: "d2", RoomID: strPtr("r1"), Enabled: true},
		},
	}

	s, b, c := newTestStore(gw)
	ctx := context.Background()
	s.refreshDevices(ctx)
	s.refreshRooms(ctx)

	published := 0
	completed := 0
	b.Subscribe(bus.RoomDevicesUpdated("r1"), func(any) { published++ })
	b.Subscribe(bus.RoomControlCompleted("r1"), func(any) { completed++ })

	if err := s.ControlRoom(ctx, "r1", model.RoomActionOn); err != nil {
		t.Fatalf("ControlRoom() error = %v", err)
	}

	for _, id := range []string{"d1", "d2"} {
		d, err := s.Device(id)
		if err != nil {
			t.Fatalf("Device(%s) error = %v", id, err)
		}
		if !d.Enabled {
			t.Errorf("device %s enabled = false after room-on, want true", id)
		}
	}
	if published != 1 {
		t.Errorf("room-devices-updated publishes = %d, want exactly 1", published)
	}
	if completed != 1 {
		t.Errorf("room-control-completed publishes = %d, want exactly 1", completed)
	}
	cached, fetched := c.Get("r1")
	if !fetched || len(cached) != 2 {
		t.Errorf("cache for r1 = (%d devices, fetched=%t), want (2, true)", len(cached), fetched)
	}
}

func TestStore_ControlRoom_UnknownRoom(t *testing.T) {
	gw := newMockGateway()
	gw.rooms = []model.Room{{ID: "r1", Name: "Kitchen"}}

	s, _, _ := newTestStore(gw)
	ctx := context.Background()
	s.refreshRooms(ctx)

	err := s.ControlRoom(ctx, "ghost", model.RoomActionOn)
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("ControlRoom(unknown) error = %v, want ErrRoomNotFound", err)
	}
	if got := gw.callCount("controlRoom"); got != 0 {
		t.Errorf("gateway ControlRoom calls = %d for unknown room, want 0", got)
	}
}

func TestStore_ControlRoom_FailureFallsBackToRefetch(t *testing.T) {
	gw := newMockGateway()
	gw.rooms = []model.Room{{ID: "r1", Name: "Kitchen"}}
	gw.devices = []model.Device{{ID: "d1", RoomID: strPtr("r1"), Enabled: false}}
	gw.controlRoomErr = errors.New("bulk failed")

	s, _, _ := newTestStore(gw)
	ctx := context.Background()
	s.refreshDevices(ctx)
	s.refreshRooms(ctx)

	before := gw.callCount("devices")
	if err := s.ControlRoom(ctx, "r1", model.RoomActionOn); err == nil {
		t.Fatal("ControlRoom() error = nil, want failure")
	}

	if gw.callCount("devices") != before+1 {
		t.Error("coarse rollback did not re-fetch the device list")
	}
	d, _ := s.Device("d1")
	if d.Enabled {
		t.Error("device enabled after failed room control and refetch, want false")
	}
}

func TestStore_UnreadCountDerivation(t *testing.T) {
	gw := newMockGateway()
	gw.notifications = []model.Notification{
		{ID: "n1", Read: false},
		{ID: "n2", Read: true},
		{ID: "n3", Read: false},
	}

	s, _, _ := newTestStore(gw)
	ctx := context.Background()
	if err := s.refreshNotifications(ctx); err != nil {
		t.Fatalf("refreshNotifications() error = %v", err)
	}

	if got := s.UnreadCount(); got != 2 {
		t.Errorf("UnreadCount() = %d, want 2", got)
	}

	s.MarkAllRead(ctx)
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("UnreadCount() after MarkAllRead = %d, want 0", got)
	}
	if gw.callCount("markAll") != 1 {
		t.Errorf("markAll remote calls = %d, want 1", gw.callCount("markAll"))
	}
}

func TestStore_MarkAllRead_LocalAuthorityOnRemoteFailure(t *testing.T) {
	gw := newMockGateway()
	gw.notifications = []model.Notification{{ID: "n1", Read: false}}
	gw.markAllErr = errors.New("backend down")

	s, _, _ := newTestStore(gw)
	ctx := context.Background()
	s.refreshNotifications(ctx)

	s.MarkAllRead(ctx)

	// Local read-state wins even though the remote sync failed.
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("UnreadCount() = %d after failed remote sync, want 0", got)
	}
}

func TestStore_MarkNotificationRead(t *testing.T) {
	gw := newMockGateway()
	gw.notifications = []model.Notification{
		{ID: "n1", Read: false},
		{ID: "n2", Read: false},
	}

	s, _, _ := newTestStore(gw)
	ctx := context.Background()
	s.refreshNotifications(ctx)

	if err := s.MarkNotificationRead(ctx, "n1"); err != nil {
		t.Fatalf("MarkNotificationRead() error = %v", err)
	}
	if got := s.UnreadCount(); got != 1 {
		t.Errorf("UnreadCount() = %d, want 1", got)
	}
	if gw.callCount("markRead") != 1 {
		t.Errorf("markRead remote calls = %d, want 1", gw.callCount("markRead"))
	}

	if err := s.MarkNotificationRead(ctx, "ghost"); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("error = %v, want ErrNotificationNotFound", err)
	}
}

func TestStore_RoomDeviceCounts(t *testing.T) {
	gw := newMockGateway()
	gw.devices = []model.Device{
		{ID: "d1", RoomID: strPtr("r1")},
		{ID: "d2", RoomID: strPtr("r1")},
		{ID: "d3", RoomID: strPtr("r2")},
		{ID: "d4"},
	}

	s, _, _ := newTestStore(gw)
	s.refreshDevices(context.Background())

	counts := s.RoomDeviceCounts()
	if counts["r1"] != 2 || counts["r2"] != 1 {
		t.Errorf("RoomDeviceCounts() = %v, want r1:2 r2:1", counts)
	}
	if _, ok := counts[""]; ok {
		t.Error("unassigned devices counted under empty room id")
	}
}
