package store

import (
	"context"
	"testing"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/bus"
	"github.com/kestrelhq/kestrel-sync/internal/gateway"
	"github.com/kestrelhq/kestrel-sync/internal/model"
)

func seedThermometer(s *Store, max float64, enabled bool) {
	s.ApplyDeviceDetail(model.Device{
		ID:   "d1",
		Name: "Thermostat",
		Sensors: []model.Sensor{{
			ID:           "s1",
			DeviceID:     "d1",
			Name:         "Living room temp",
			Kind:         model.SensorTemperature,
			Unit:         "°C",
			MaxThreshold: f64Ptr(max),
			Enabled:      enabled,
		}},
	})
}

func TestAlerts_RisingEdgeOnly(t *testing.T) {
	gw := newMockGateway()
	notifier := &recordingNotifier{}
	s, _, _ := newTestStore(gw)
	s.SetNotifier(notifier)
	seedThermometer(s, 24, true)

	// 18 in range, 25 crosses, 26 stays out, 24 returns to range.
	base := time.Now().UTC()
	for i, v := range []float64{18, 25, 26, 24} {
		s.applyLatestValues([]gateway.DataPoint{{
			SensorID:  "s1",
			Value:     v,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}})
	}

	if notifier.count() != 1 {
		t.Fatalf("alerts = %d for sequence [18 25 26 24] with max 24, want exactly 1", notifier.count())
	}
	if notifier.kinds[0] != model.NotificationWarning {
		t.Errorf("alert kind = %s, want warning", notifier.kinds[0])
	}
}

func TestAlerts_SecondCrossingAfterRecovery(t *testing.T) {
	gw := newMockGateway()
	notifier := &recordingNotifier{}
	s, _, _ := newTestStore(gw)
	s.SetNotifier(notifier)
	seedThermometer(s, 24, true)

	base := time.Now().UTC()
	for i, v := range []float64{25, 20, 25} {
		s.applyLatestValues([]gateway.DataPoint{{
			SensorID:  "s1",
			Value:     v,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}})
	}

	if notifier.count() != 2 {
		t.Errorf("alerts = %d, want 2 (one per distinct crossing)", notifier.count())
	}
}

func TestAlerts_DisabledSensorStaysSilent(t *testing.T) {
	gw := newMockGateway()
	notifier := &recordingNotifier{}
	s, _, _ := newTestStore(gw)
	s.SetNotifier(notifier)
	seedThermometer(s, 24, false)

	s.applyLatestValues([]gateway.DataPoint{{
		SensorID: "s1", Value: 30, Timestamp: time.Now().UTC(),
	}})

	if notifier.count() != 0 {
		t.Errorf("alerts = %d for disabled sensor, want 0", notifier.count())
	}
	// The reading itself is still stored.
	sensors := s.SensorsByDevice("d1")
	if sensors[0].Value == nil || *sensors[0].Value != 30 {
		t.Errorf("value = %v, want 30 stored despite sensor disabled", sensors[0].Value)
	}
}

func TestAlerts_StaleReadingIgnored(t *testing.T) {
	gw := newMockGateway()
	notifier := &recordingNotifier{}
	s, _, _ := newTestStore(gw)
	s.SetNotifier(notifier)
	seedThermometer(s, 24, true)

	now := time.Now().UTC()
	s.applyLatestValues([]gateway.DataPoint{{SensorID: "s1", Value: 20, Timestamp: now}})
	s.applyLatestValues([]gateway.DataPoint{{SensorID: "s1", Value: 30, Timestamp: now.Add(-time.Minute)}})

	sensors := s.SensorsByDevice("d1")
	if *sensors[0].Value != 20 {
		t.Errorf("value = %v, stale reading overwrote fresher one", *sensors[0].Value)
	}
	if notifier.count() != 0 {
		t.Errorf("alerts = %d from a stale reading, want 0", notifier.count())
	}
}

func TestAlerts_LocalNotificationAppended(t *testing.T) {
	gw := newMockGateway()
	s, b, _ := newTestStore(gw)
	s.SetNotifier(&recordingNotifier{})
	seedThermometer(s, 24, true)

	published := 0
	b.Subscribe(bus.NotificationsUpdated(), func(any) { published++ })

	s.applyLatestValues([]gateway.DataPoint{{
		SensorID: "s1", Value: 30, Timestamp: time.Now().UTC(),
	}})

	notifs := s.Notifications()
	if len(notifs) != 1 {
		t.Fatalf("notifications = %d, want 1 local alert", len(notifs))
	}
	if !notifs[0].Local || notifs[0].Kind != model.NotificationWarning || notifs[0].Read {
		t.Errorf("alert notification = %+v, want unread local warning", notifs[0])
	}
	if s.UnreadCount() != 1 {
		t.Errorf("UnreadCount() = %d, want 1", s.UnreadCount())
	}
	if published != 1 {
		t.Errorf("notifications-updated publishes = %d, want 1", published)
	}

	// A local alert is resolved without a remote round-trip.
	if err := s.MarkNotificationRead(context.Background(), notifs[0].ID); err != nil {
		t.Fatalf("MarkNotificationRead() error = %v", err)
	}
	if gw.callCount("markRead") != 0 {
		t.Error("local alert read-state was synced to the backend")
	}
}
