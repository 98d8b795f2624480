// Package store implements the application data store: the canonical
// in-memory collections of rooms, devices, sensors, actuators, and
// notifications for the current session.
//
// The store is the single owner of canonical state. It is fed from three
// directions:
//
//   - polling loops that periodically re-fetch the backend's collections
//   - user intents (power toggles, room control, sensor/actuator commands)
//     applied optimistically and rolled back on remote failure
//   - detail fetches and push updates merged in from other components
//
// All writes go through pure merge functions that derive the next collection
// from the previous one; collections are replaced whole, never mutated in
// place. Incoming lists are authoritative for membership, while previously
// known value fields survive fetches that do not carry them — a list response
// without sensor values must never erase a reading the store already has.
//
// Guard flags serialize the async windows: at most one poll tick runs at a
// time, and polling is suppressed entirely while a user-initiated mutation is
// awaiting its confirmation fetch, so a tick cannot clobber an optimistic
// update. Flags are set before the first await point and cleared on every
// exit path.
//
// # Threshold alerting
//
// After each latest-values fetch the store evaluates every enabled sensor
// against its min/max bounds and raises a user-facing alert only on the
// rising edge: the tick where a reading first moves out of range. A sensor
// that stays out of range stays silent until it recovers and breaches again.
package store
