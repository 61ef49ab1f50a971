package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs an API request outcome
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": float64(duration.Microseconds()) / 1000,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("HTTP request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		l.WarnWithFields("HTTP request client error", fields)
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	default:
		l.WarnWithFields("HTTP request failed", fields)
	}
}

// LogRateLimit logs that the shared quota is exhausted and a worker is pausing
func LogRateLimit(l Logger, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"wait":   wait,
		"action": "rate_limited",
	}).Warn("Rate limit reached, waiting for next window")
}

// LogHarvestProgress logs the run-wide counters
func LogHarvestProgress(l Logger, requests, completed, total int) {
	if total <= 0 {
		l.WithFields(map[string]interface{}{
			"requests":  requests,
			"completed": completed,
		}).Warn("Species total unknown, progress reported as 0%")
		return
	}

	percentage := float64(completed) / float64(total) * 100
	l.WithFields(map[string]interface{}{
		"requests":   requests,
		"completed":  completed,
		"total":      total,
		"percentage": fmt.Sprintf("%.2f%%", percentage),
	}).Info("Harvest progress")
}

// LogPhoto logs a single photo outcome; saved photos go to debug
func LogPhoto(l Logger, species string, index int, status, reason string, err error) {
	entry := l.WithFields(map[string]interface{}{
		"species": species,
		"index":   index,
		"status":  status,
	})
	if reason != "" {
		entry = entry.WithField("reason", reason)
	}

	switch {
	case err != nil:
		entry.WithError(err).Warn("Photo not saved")
	case status == "saved":
		entry.Debug("Photo saved")
	default:
		entry.Info("Photo rejected")
	}
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(config) > 0 {
		entry = entry.WithFields(config)
	}
	entry.Info("Component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
