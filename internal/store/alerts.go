package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhq/kestrel-sync/internal/gateway"
	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// applyLatestValues merges fresh readings into the canonical sensor
// collection and raises rising-edge threshold alerts.
//
// The previous reading's over-threshold verdict is computed before the merge
// and compared with the new one; an alert fires only when a sensor moves
// from in-range (or unknown) to out-of-range. A sensor that stays out of
// range across ticks stays silent, and returning to normal produces nothing.
func (s *Store) applyLatestValues(points []gateway.DataPoint) {
	byID := make(map[string]gateway.DataPoint, len(points))
	for _, p := range points {
		byID[p.SensorID] = p
	}

	var alerts []model.Sensor

	s.mu.Lock()
	next := make([]model.Sensor, len(s.sensors))
	copy(next, s.sensors)
	for i, sensor := range next {
		p, ok := byID[sensor.ID]
		if !ok {
			continue
		}
		if staleThan(&p.Timestamp, sensor.LastUpdate) {
			continue
		}

		wasOver := sensor.OverThreshold()

		value := p.Value
		ts := p.Timestamp
		sensor.Value = &value
		sensor.LastUpdate = &ts
		next[i] = sensor

		if sensor.Enabled && sensor.OverThreshold() && !wasOver {
			alerts = append(alerts, sensor)
		}
	}
	s.sensors = next
	s.mu.Unlock()

	for _, sensor := range alerts {
		s.raiseThresholdAlert(sensor)
	}
}

// raiseThresholdAlert surfaces one rising-edge crossing: a toast, a local
// notification in the feed, and a bus publish so views refresh their badge.
func (s *Store) raiseThresholdAlert(sensor model.Sensor) {
	msg := fmt.Sprintf("%s is out of range: %.1f %s", sensor.Name, *sensor.Value, sensor.Unit)
	s.logger.Info("threshold crossed", "sensor_id", sensor.ID, "value", *sensor.Value)
	s.notifier.Toast(model.NotificationWarning, msg)

	s.mu.Lock()
	s.notifications = append([]model.Notification{{
		ID:        uuid.NewString(),
		Kind:      model.NotificationWarning,
		Message:   msg,
		CreatedAt: time.Now().UTC(),
		Local:     true,
	}}, s.notifications...)
	snapshot := make([]model.Notification, len(s.notifications))
	copy(snapshot, s.notifications)
	s.mu.Unlock()

	s.publishNotifications(snapshot)
}
