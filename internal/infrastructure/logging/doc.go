// Package logging wraps log/slog with the daemon's conventions: a service
// and version field on every record, level filtering, and a choice of JSON
// or text output driven by configuration.
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("sync started", "interval_s", cfg.Sync.PollInterval)
//
// Component loggers hang off the root via With:
//
//	pushLog := logger.With("component", "push")
//
// Never log tokens or credentials.
package logging
