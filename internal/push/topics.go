package push

import "strings"

// Topic layout under the configured prefix:
//
//	<prefix>/devices/<device_id>/status    device connectivity and power
//	<prefix>/sensors/<sensor_id>/reading   individual sensor readings
//
// Device and sensor ids are single topic levels, so the subscribe patterns
// use the single-level wildcard.

// Topics builds subscribe patterns and parses entity ids for a prefix.
type Topics struct {
	Prefix string
}

// DeviceStatus returns the subscribe pattern for device status updates.
func (t Topics) DeviceStatus() string {
	return t.Prefix + "/devices/+/status"
}

// SensorReadings returns the subscribe pattern for sensor readings.
func (t Topics) SensorReadings() string {
	return t.Prefix + "/sensors/+/reading"
}

// ParseDeviceID extracts the device id from a status topic. The second
// return value is false when the topic does not match the layout.
func (t Topics) ParseDeviceID(topic string) (string, bool) {
	return t.parseID(topic, "devices", "status")
}

// ParseSensorID extracts the sensor id from a reading topic.
func (t Topics) ParseSensorID(topic string) (string, bool) {
	return t.parseID(topic, "sensors", "reading")
}

func (t Topics) parseID(topic, collection, leaf string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/"+collection+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/"+leaf)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
