// Package api serves the local panel HTTP API and WebSocket feed for
// Kestrel Sync.
//
// The dashboard UI reads state snapshots and issues control actions over
// REST, and receives live updates by subscribing to event channels over a
// single WebSocket connection. Every event published on the internal bus is
// relayed to subscribed panel clients, so a view that subscribes to
// "device/abc/updated" sees the same stream the in-process views see.
//
// The server follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
