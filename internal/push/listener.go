package push

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// StateApplier is the slice of the data store the listener feeds. Both
// methods run the incoming update through the store's merge rules, so stale
// or duplicated pushes are harmless.
type StateApplier interface {
	ApplyDeviceStatus(id string, status model.Status, enabled *bool)
	ApplySensorReading(sensorID string, value float64, ts time.Time)
}

// Subscriber is implemented by *Client. Narrowed for testing.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// deviceStatusMessage is the wire format of a device status push.
type deviceStatusMessage struct {
	Status  model.Status `json:"status"`
	Enabled *bool        `json:"enabled,omitempty"`
}

// sensorReadingMessage is the wire format of a sensor reading push.
type sensorReadingMessage struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener subscribes to the backend push topics and folds messages into
// the data store.
type Listener struct {
	topics  Topics
	applier StateApplier
	qos     byte
}

// NewListener builds a listener for the given topic prefix.
func NewListener(prefix string, qos byte, applier StateApplier) *Listener {
	return &Listener{
		topics:  Topics{Prefix: prefix},
		applier: applier,
		qos:     qos,
	}
}

// Start subscribes to the push topics on the given client.
func (l *Listener) Start(sub Subscriber) error {
	if err := sub.Subscribe(l.topics.DeviceStatus(), l.qos, l.handleDeviceStatus); err != nil {
		return fmt.Errorf("subscribing to device status: %w", err)
	}
	if err := sub.Subscribe(l.topics.SensorReadings(), l.qos, l.handleSensorReading); err != nil {
		return fmt.Errorf("subscribing to sensor readings: %w", err)
	}
	return nil
}

func (l *Listener) handleDeviceStatus(topic string, payload []byte) error {
	id, ok := l.topics.ParseDeviceID(topic)
	if !ok {
		return fmt.Errorf("unexpected device status topic %q", topic)
	}

	var msg deviceStatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding device status for %s: %w", id, err)
	}
	if msg.Status != model.StatusOnline && msg.Status != model.StatusOffline {
		return fmt.Errorf("unknown device status %q for %s", msg.Status, id)
	}

	l.applier.ApplyDeviceStatus(id, msg.Status, msg.Enabled)
	return nil
}

func (l *Listener) handleSensorReading(topic string, payload []byte) error {
	id, ok := l.topics.ParseSensorID(topic)
	if !ok {
		return fmt.Errorf("unexpected sensor reading topic %q", topic)
	}

	var msg sensorReadingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding sensor reading for %s: %w", id, err)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	l.applier.ApplySensorReading(id, msg.Value, msg.Timestamp)
	return nil
}
