package model

import "time"

// Device represents a registered device as reported by the backend.
type Device struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Type     DeviceType `json:"type"`
	Enabled  bool       `json:"enabled"`
	Status   Status     `json:"status"`
	RoomID   *string    `json:"room_id,omitempty"`
	LastSeen *time.Time `json:"last_seen,omitempty"`

	// Populated by detail fetches only; list fetches leave these nil.
	Sensors   []Sensor   `json:"sensors,omitempty"`
	Actuators []Actuator `json:"actuators,omitempty"`
}

// DeviceType classifies a device by capability.
type DeviceType string

// DeviceType constants.
const (
	DeviceTypeLight      DeviceType = "light"
	DeviceTypeSwitch     DeviceType = "switch"
	DeviceTypeThermostat DeviceType = "thermostat"
	DeviceTypeSensorHub  DeviceType = "sensor_hub"
	DeviceTypeCamera     DeviceType = "camera"
	DeviceTypeOther      DeviceType = "other"
)

// AllDeviceTypes returns all valid device type values.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceTypeLight, DeviceTypeSwitch, DeviceTypeThermostat,
		DeviceTypeSensorHub, DeviceTypeCamera, DeviceTypeOther,
	}
}

// Status represents device connectivity as seen by the backend.
type Status string

// Status constants.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Sensor represents a single measuring channel owned by a device.
//
// Value is nil when the backend has no reading yet, or when a particular
// fetch (typically a list endpoint) does not carry values. The two cases are
// deliberately indistinguishable on the wire; the store keeps the last known
// reading across value-less fetches.
type Sensor struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Kind         SensorKind `json:"kind"`
	Unit         string     `json:"unit"`
	Value        *float64   `json:"value,omitempty"`
	MinThreshold *float64   `json:"min_threshold,omitempty"`
	MaxThreshold *float64   `json:"max_threshold,omitempty"`
	Enabled      bool       `json:"enabled"`
	DeviceID     string     `json:"device_id"`
	LastUpdate   *time.Time `json:"last_update,omitempty"`
}

// SensorKind is the physical quantity a sensor measures.
type SensorKind string

// SensorKind constants.
const (
	SensorTemperature SensorKind = "temperature"
	SensorHumidity    SensorKind = "humidity"
	SensorGas         SensorKind = "gas"
	SensorLight       SensorKind = "light"
	SensorMotion      SensorKind = "motion"
	SensorPressure    SensorKind = "pressure"
)

// AllSensorKinds returns all valid sensor kind values.
func AllSensorKinds() []SensorKind {
	return []SensorKind{
		SensorTemperature, SensorHumidity, SensorGas,
		SensorLight, SensorMotion, SensorPressure,
	}
}

// OverThreshold reports whether the sensor's current reading lies outside its
// configured min/max bounds. A sensor with no reading or no bounds is never
// over threshold.
func (s Sensor) OverThreshold() bool {
	if s.Value == nil {
		return false
	}
	if s.MinThreshold != nil && *s.Value < *s.MinThreshold {
		return true
	}
	if s.MaxThreshold != nil && *s.Value > *s.MaxThreshold {
		return true
	}
	return false
}

// Actuator represents a controllable boolean channel owned by a device.
// State is nil when a fetch did not carry the actuator's state.
type Actuator struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Kind       ActuatorKind `json:"kind"`
	State      *bool        `json:"state,omitempty"`
	DeviceID   string       `json:"device_id"`
	LastUpdate *time.Time   `json:"last_update,omitempty"`
}

// ActuatorKind classifies an actuator.
type ActuatorKind string

// ActuatorKind constants.
const (
	ActuatorRelay  ActuatorKind = "relay"
	ActuatorValve  ActuatorKind = "valve"
	ActuatorDimmer ActuatorKind = "dimmer"
	ActuatorLock   ActuatorKind = "lock"
)

// Room represents a named group of devices. Membership is indirect: devices
// carry a RoomID, the room does not embed a device list.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// DeviceCount and AveragedSensors are backend-computed summary fields
	// present on list/detail responses.
	DeviceCount     int           `json:"device_count"`
	AveragedSensors []RoomAverage `json:"averaged_sensors,omitempty"`
}

// RoomAverage is a backend-aggregated sensor summary for a room.
type RoomAverage struct {
	Kind  SensorKind `json:"kind"`
	Unit  string     `json:"unit"`
	Value float64    `json:"value"`
}

// RoomAction is a bulk on/off command applied to every device in a room.
type RoomAction string

// RoomAction constants.
const (
	RoomActionOn  RoomAction = "on"
	RoomActionOff RoomAction = "off"
)

// Notification is a backend- or locally-generated user notification.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	Read      bool             `json:"read"`

	// Local marks a notification generated on this client (threshold
	// alerts); the backend does not know its id.
	Local bool `json:"local,omitempty"`
}

// NotificationKind is the severity class of a notification.
type NotificationKind string

// NotificationKind constants.
const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
)

// User is the account blob returned by the backend on login.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
