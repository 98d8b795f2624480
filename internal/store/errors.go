package store

import "errors"

// Domain errors for the store package. Check with errors.Is().
var (
	// ErrDeviceNotFound is returned when a device id is not in the canonical
	// collection.
	ErrDeviceNotFound = errors.New("store: device not found")

	// ErrSensorNotFound is returned when a sensor id is not in the canonical
	// collection.
	ErrSensorNotFound = errors.New("store: sensor not found")

	// ErrActuatorNotFound is returned when an actuator id is not in the
	// canonical collection.
	ErrActuatorNotFound = errors.New("store: actuator not found")

	// ErrRoomNotFound is returned when a room id is not in the canonical
	// collection.
	ErrRoomNotFound = errors.New("store: room not found")

	// ErrNotificationNotFound is returned when a notification id is not in
	// the canonical collection.
	ErrNotificationNotFound = errors.New("store: notification not found")
)
