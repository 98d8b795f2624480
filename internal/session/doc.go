// Package session persists the backend login across restarts.
//
// The daemon holds exactly one backend session: a bearer token plus the
// logged-in user record. Both are stored in a single SQLite row so a panel
// reboot resumes syncing without asking the user to log in again. Expired
// tokens are detected at load time by inspecting the JWT expiry claim (the
// signature is the backend's to verify, not ours) and treated as absent.
package session
