// Package cache provides the per-room device list cache shared by the store
// and the detail controllers.
//
// The cache is push-only by contract: it never performs network I/O and never
// populates itself. Whichever component performed the authoritative fetch for
// a room writes the result with Set; everyone else reads. Keeping exactly one
// component responsible for triggering the fetch for a given room is what
// prevents duplicate concurrent requests when several panels become visible
// at once. Do not "fix" this into a self-fetching cache.
//
// Entries carry a fetched marker so that a deliberately empty room (fetched,
// zero devices) is distinguishable from a room that has never been fetched.
// There is no expiry; entries live until invalidated or replaced, which is
// acceptable because the store's polling refreshes the same data.
package cache
