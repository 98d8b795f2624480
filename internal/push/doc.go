// Package push receives backend state changes over MQTT.
//
// The push channel is optional: with it disabled, polling alone keeps the
// panel current, just less promptly. When enabled, the daemon subscribes to
// the backend's device status and sensor reading topics and folds each
// message into the data store through the same merge path a polled fetch
// uses, so a late or duplicated push can never regress state.
//
// The client never publishes. Reconnection is handled by the paho library
// with exponential backoff, and subscriptions are restored on reconnect.
package push
