// Package gateway provides the typed HTTP client for the smart-home backend.
//
// Every backend response uses a common envelope:
//
//	{"status": true|false, "message": "...", "data": ...}
//
// The client unwraps the envelope and converts both transport failures and
// application failures (status=false or a non-2xx HTTP status) into a uniform
// error taxonomy:
//
//   - ErrUnreachable: the backend could not be reached at all. The error text
//     names the configured base URL so connectivity problems are diagnosable
//     from the message alone.
//   - *APIError: the backend answered but rejected the operation; it carries
//     the server-supplied message.
//
// The client holds the bearer token for the session; SetToken is safe to call
// concurrently with in-flight requests. All calls take a context and perform
// exactly one HTTP round trip; retries, caching, and merge semantics live in
// the store, not here.
package gateway
