// Package config loads the daemon's configuration: built-in defaults,
// overlaid by the YAML file, overlaid by KESTREL_* environment variables.
// Load validates the merged result, so a *Config in hand is always usable.
//
// Credentials (backend email/password, MQTT password) belong in environment
// variables rather than the file.
//
//	cfg, err := config.Load("configs/config.yaml")
package config
