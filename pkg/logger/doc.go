// Package logger provides the structured logging interface used across the harvester.
//
// It wraps zerolog and adds:
//   - Multiple log levels (Debug, Info, Warn, Error, Fatal)
//   - Structured logging with fields
//   - Colored console output on stderr, optional JSON file output
//   - A run_id field on every line so one harvest can be grepped out of a shared log
//   - A global logger instance plus NewNopLogger and TestLogger for tests
//
// Basic Usage:
//
//	err := logger.Initialize(&config.LoggingConfig{Level: "info"})
//
//	logger.Info("Harvest started")
//	logger.WithField("species", "blue_tang").Info("Cache used")
//	logger.WithError(err).Error("Observation query failed")
//
// Components receive a Logger explicitly and use the helpers for common events:
//
//	logger.LogRateLimit(log, time.Minute)
//	logger.LogHarvestProgress(log, requests, completed, total)
package logger
