// Package bus provides the in-process event bus that connects independently
// running components of the sync core: the store, the detail controllers, and
// the panel WebSocket hub.
//
// Topics are structured values (entity kind + id + aspect) rather than
// concatenated strings, so a topic can be constructed for an unbounded set of
// entity ids without the typo and collision risks of string keys.
//
// Publish is synchronous: all handlers subscribed at call time run before
// Publish returns. Each handler is invoked in isolation; a panicking handler
// is recovered and logged so it cannot prevent the remaining handlers from
// running. There is no queuing and no delivery guarantee beyond "currently
// subscribed handlers".
//
// # Usage
//
//	b := bus.New()
//	unsub := b.Subscribe(bus.DeviceUpdated("dev-1"), func(payload any) {
//	    // reconcile local copy
//	})
//	defer unsub()
//
//	b.Publish(bus.DeviceUpdated("dev-1"), device)
//
// Subscribers must call the returned unsubscribe function on teardown, or the
// handler keeps firing against state that no longer exists.
package bus
