package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/bus"
	"github.com/kestrelhq/kestrel-sync/internal/gateway"
	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// ToggleDevicePower flips a device's power flag with optimistic-update
// semantics:
//
//  1. snapshot the device collection
//  2. apply the flag locally
//  3. issue the remote call
//  4. on success, re-fetch the device's detail, merge its sensors and
//     actuators, and publish a device-updated event
//  5. on failure, restore the snapshot and surface an error toast
//
// Polling is suppressed for the whole window so a tick cannot observe or
// overwrite the unconfirmed optimistic state.
func (s *Store) ToggleDevicePower(ctx context.Context, id string, enabled bool) error {
	s.beginToggle()
	defer s.endToggle()

	snapshot, err := s.optimisticDevicePower(id, enabled)
	if err != nil {
		return err
	}

	if err := s.gw.SetDevicePower(ctx, id, enabled); err != nil {
		s.restoreDevices(snapshot)
		s.logger.Warn("device power toggle failed", "device_id", id, "error", err)
		s.notifier.Toast(model.NotificationError, "Could not switch device")
		return fmt.Errorf("toggling device %s: %w", id, err)
	}

	// Confirmation fetch. A failure here leaves the optimistic flag in
	// place (the command itself succeeded); the next poll reconciles.
	detail, err := s.gw.Device(ctx, id)
	if err != nil {
		s.logger.Warn("device detail refresh after toggle failed", "device_id", id, "error", err)
		if d, lookErr := s.Device(id); lookErr == nil {
			s.bus.Publish(bus.DeviceUpdated(id), d)
		}
		return nil
	}

	merged := s.ApplyDeviceDetail(detail)
	s.bus.Publish(bus.DeviceUpdated(id), merged)
	return nil
}

// ToggleSensorEnabled flips a sensor's enabled flag. Same optimistic shape
// as ToggleDevicePower but scoped to a single field, with no detail
// re-fetch: the gateway acknowledgement is the confirmation.
func (s *Store) ToggleSensorEnabled(ctx context.Context, id string, enabled bool) error {
	s.beginToggle()
	defer s.endToggle()

	snapshot, err := s.optimisticSensorEnabled(id, enabled)
	if err != nil {
		return err
	}

	if err := s.gw.SetSensorEnabled(ctx, id, enabled); err != nil {
		s.restoreSensors(snapshot)
		s.logger.Warn("sensor enable toggle failed", "sensor_id", id, "error", err)
		s.notifier.Toast(model.NotificationError, "Could not update sensor")
		return fmt.Errorf("toggling sensor %s: %w", id, err)
	}
	return nil
}

// SetSensorThreshold updates a sensor's alert bounds with the same
// optimistic shape as ToggleSensorEnabled.
func (s *Store) SetSensorThreshold(ctx context.Context, id string, minThreshold, maxThreshold *float64) error {
	s.beginToggle()
	defer s.endToggle()

	snapshot, err := s.optimisticSensorThreshold(id, minThreshold, maxThreshold)
	if err != nil {
		return err
	}

	if err := s.gw.SetSensorThreshold(ctx, id, minThreshold, maxThreshold); err != nil {
		s.restoreSensors(snapshot)
		s.logger.Warn("sensor threshold update failed", "sensor_id", id, "error", err)
		s.notifier.Toast(model.NotificationError, "Could not update sensor thresholds")
		return fmt.Errorf("setting thresholds for sensor %s: %w", id, err)
	}
	return nil
}

// ControlActuator sets an actuator's state, optimistically, without a detail
// re-fetch.
func (s *Store) ControlActuator(ctx context.Context, id string, state bool) error {
	s.beginToggle()
	defer s.endToggle()

	snapshot, err := s.optimisticActuatorState(id, state)
	if err != nil {
		return err
	}

	if err := s.gw.ControlActuator(ctx, id, state); err != nil {
		s.restoreActuators(snapshot)
		s.logger.Warn("actuator control failed", "actuator_id", id, "error", err)
		s.notifier.Toast(model.NotificationError, "Could not control actuator")
		return fmt.Errorf("controlling actuator %s: %w", id, err)
	}
	return nil
}

// ControlRoom applies a bulk on/off action to every device in a room, then
// re-fetches the room's membership, applies the confirmed enabled state to
// the member devices, seeds the device cache, and publishes a
// room-devices-updated event followed by a room-control-completed event.
// Unknown room ids fail fast with ErrRoomNotFound before any remote call.
//
// Rollback is deliberately coarser than the single-device path: a partial
// bulk failure cannot be attributed to a snapshot, so on failure the whole
// device collection is re-fetched instead of restored.
func (s *Store) ControlRoom(ctx context.Context, roomID string, action model.RoomAction) error {
	s.beginToggle()
	defer s.endToggle()

	if !s.hasRoom(roomID) {
		return ErrRoomNotFound
	}

	enabled := action == model.RoomActionOn
	s.optimisticRoomPower(roomID, enabled)

	if err := s.gw.ControlRoom(ctx, roomID, action); err != nil {
		s.logger.Warn("room control failed", "room_id", roomID, "action", action, "error", err)
		s.notifier.Toast(model.NotificationError, "Could not control room")
		if refetchErr := s.refreshDevices(ctx); refetchErr != nil {
			s.logger.Error("device refresh after failed room control also failed", "error", refetchErr)
		}
		return fmt.Errorf("controlling room %s: %w", roomID, err)
	}

	detail, err := s.gw.RoomDevices(ctx, roomID)
	if err != nil {
		s.logger.Warn("room detail refresh after control failed", "room_id", roomID, "error", err)
		return nil
	}

	s.ApplyRoomDevices(roomID, detail.Devices)
	s.cache.Set(roomID, detail.Devices)
	s.bus.Publish(bus.RoomDevicesUpdated(roomID), detail.Devices)
	s.bus.Publish(bus.RoomControlCompleted(roomID), map[string]any{
		"room_id": roomID,
		"action":  action,
	})
	return nil
}

// hasRoom reports whether the room id is present in the canonical room
// collection.
func (s *Store) hasRoom(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.rooms {
		if s.rooms[i].ID == roomID {
			return true
		}
	}
	return false
}

// ApplyDeviceDetail merges a device detail fetch (device record plus nested
// sensors and actuators) into the canonical collections and returns the
// merged device with its merged detail attached.
func (s *Store) ApplyDeviceDetail(detail model.Device) model.Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices = mergeDeviceLists(s.devices, overlayDevice(s.devices, detail))
	s.sensors = mergeSensorsForDevice(s.sensors, detail.ID, detail.Sensors)
	s.actuators = mergeActuatorsForDevice(s.actuators, detail.ID, detail.Actuators)

	merged := detail
	merged.Sensors = nil
	merged.Actuators = nil
	for _, d := range s.devices {
		if d.ID == detail.ID {
			merged = d
			break
		}
	}
	for _, sn := range s.sensors {
		if sn.DeviceID == detail.ID {
			merged.Sensors = append(merged.Sensors, sn)
		}
	}
	for _, a := range s.actuators {
		if a.DeviceID == detail.ID {
			merged.Actuators = append(merged.Actuators, a)
		}
	}
	return merged
}

// ApplyRoomDevices merges a confirmed room membership fetch into the
// canonical collections. Devices carrying nested detail have their sensors
// and actuators folded in as well. Cache seeding and event publishing are
// the caller's concern; controllers publish only when the cached content
// actually changed, room control always does.
func (s *Store) ApplyRoomDevices(roomID string, devices []model.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices = mergeDeviceLists(s.devices, overlayRoomDevices(s.devices, devices))
	for _, d := range devices {
		if d.Sensors != nil {
			s.sensors = mergeSensorsForDevice(s.sensors, d.ID, d.Sensors)
		}
		if d.Actuators != nil {
			s.actuators = mergeActuatorsForDevice(s.actuators, d.ID, d.Actuators)
		}
	}
}

// ApplyDeviceStatus folds a pushed connectivity/power update into the
// canonical device collection and publishes a device-updated event.
// Used by the MQTT push channel; unknown devices are ignored until the next
// list poll picks them up.
func (s *Store) ApplyDeviceStatus(id string, status model.Status, enabled *bool) {
	s.mu.Lock()
	updated := false
	next := make([]model.Device, len(s.devices))
	copy(next, s.devices)
	for i := range next {
		if next[i].ID != id {
			continue
		}
		next[i].Status = status
		if enabled != nil {
			next[i].Enabled = *enabled
		}
		now := time.Now().UTC()
		next[i].LastSeen = &now
		updated = true
		break
	}
	if updated {
		s.devices = next
	}
	s.mu.Unlock()

	if updated {
		if d, err := s.Device(id); err == nil {
			s.bus.Publish(bus.DeviceUpdated(id), d)
		}
	}
}

// ApplySensorReading folds a pushed reading into the canonical sensor
// collection through the same merge and alerting path as a polled fetch.
func (s *Store) ApplySensorReading(sensorID string, value float64, ts time.Time) {
	s.applyLatestValues([]gateway.DataPoint{{SensorID: sensorID, Value: value, Timestamp: ts}})
}

// optimisticDevicePower applies the power flag locally and returns the prior
// collection for rollback.
func (s *Store) optimisticDevicePower(id string, enabled bool) ([]model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]model.Device, len(s.devices))
	copy(snapshot, s.devices)

	for i := range s.devices {
		if s.devices[i].ID == id {
			next := make([]model.Device, len(s.devices))
			copy(next, s.devices)
			next[i].Enabled = enabled
			s.devices = next
			return snapshot, nil
		}
	}
	return nil, ErrDeviceNotFound
}

// optimisticRoomPower applies an enabled flag to every member of a room.
// No snapshot: the room path rolls back by re-fetching.
func (s *Store) optimisticRoomPower(roomID string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.Device, len(s.devices))
	copy(next, s.devices)
	for i := range next {
		if next[i].RoomID != nil && *next[i].RoomID == roomID {
			next[i].Enabled = enabled
		}
	}
	s.devices = next
}

// optimisticSensorEnabled applies the enabled flag locally and returns the
// prior collection for rollback.
func (s *Store) optimisticSensorEnabled(id string, enabled bool) ([]model.Sensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]model.Sensor, len(s.sensors))
	copy(snapshot, s.sensors)

	for i := range s.sensors {
		if s.sensors[i].ID == id {
			next := make([]model.Sensor, len(s.sensors))
			copy(next, s.sensors)
			next[i].Enabled = enabled
			s.sensors = next
			return snapshot, nil
		}
	}
	return nil, ErrSensorNotFound
}

// optimisticSensorThreshold applies new bounds locally and returns the prior
// collection for rollback.
func (s *Store) optimisticSensorThreshold(id string, minThreshold, maxThreshold *float64) ([]model.Sensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]model.Sensor, len(s.sensors))
	copy(snapshot, s.sensors)

	for i := range s.sensors {
		if s.sensors[i].ID == id {
			next := make([]model.Sensor, len(s.sensors))
			copy(next, s.sensors)
			next[i].MinThreshold = minThreshold
			next[i].MaxThreshold = maxThreshold
			s.sensors = next
			return snapshot, nil
		}
	}
	return nil, ErrSensorNotFound
}

// optimisticActuatorState applies the state locally and returns the prior
// collection for rollback.
func (s *Store) optimisticActuatorState(id string, state bool) ([]model.Actuator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]model.Actuator, len(s.actuators))
	copy(snapshot, s.actuators)

	for i := range s.actuators {
		if s.actuators[i].ID == id {
			next := make([]model.Actuator, len(s.actuators))
			copy(next, s.actuators)
			v := state
			next[i].State = &v
			now := time.Now().UTC()
			next[i].LastUpdate = &now
			s.actuators = next
			return snapshot, nil
		}
	}
	return nil, ErrActuatorNotFound
}

// restoreDevices rolls the device collection back to a snapshot.
func (s *Store) restoreDevices(snapshot []model.Device) {
	s.mu.Lock()
	s.devices = snapshot
	s.mu.Unlock()
}

// restoreSensors rolls the sensor collection back to a snapshot.
func (s *Store) restoreSensors(snapshot []model.Sensor) {
	s.mu.Lock()
	s.sensors = snapshot
	s.mu.Unlock()
}

// restoreActuators rolls the actuator collection back to a snapshot.
func (s *Store) restoreActuators(snapshot []model.Actuator) {
	s.mu.Lock()
	s.actuators = snapshot
	s.mu.Unlock()
}

// overlayDevice returns the current device list with one record replaced by
// the incoming one (or appended when new). mergeDeviceLists then applies the
// usual no-regression rules against the unmodified current list.
func overlayDevice(current []model.Device, incoming model.Device) []model.Device {
	out := make([]model.Device, 0, len(current)+1)
	replaced := false
	for _, d := range current {
		if d.ID == incoming.ID {
			out = append(out, incoming)
			replaced = true
			continue
		}
		out = append(out, d)
	}
	if !replaced {
		out = append(out, incoming)
	}
	return out
}

// overlayRoomDevices returns the current device list with one room's members
// replaced by a freshly confirmed set. Devices the fetch no longer lists for
// the room keep their record but only membership the backend confirmed
// remains attributed to the room.
func overlayRoomDevices(current []model.Device, roomDevices []model.Device) []model.Device {
	inRoom := make(map[string]model.Device, len(roomDevices))
	for _, d := range roomDevices {
		inRoom[d.ID] = d
	}

	out := make([]model.Device, 0, len(current)+len(roomDevices))
	seen := make(map[string]struct{}, len(current))
	for _, d := range current {
		seen[d.ID] = struct{}{}
		if updated, ok := inRoom[d.ID]; ok {
			out = append(out, updated)
			continue
		}
		out = append(out, d)
	}
	for _, d := range roomDevices {
		if _, ok := seen[d.ID]; !ok {
			out = append(out, d)
		}
	}
	return out
}
