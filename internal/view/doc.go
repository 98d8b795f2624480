// Package view reconciles detail screens with the backend.
//
// A controller owns one screen's refresh behaviour: cached data is shown
// immediately when available and refreshed in the background, rapid repeat
// requests are collapsed by a trailing debounce, and a shared in-flight
// guard ensures at most one fetch per entity is ever outstanding. Results
// for a screen the user has already left are discarded, and a failed fetch
// never writes to the cache.
package view
