// Package logging provides structured logging for lanlight.
//
// It wraps log/slog with the process-wide defaults: JSON or text output,
// level filtering, service and version fields on every entry, UTC
// timestamps, and durations written as strings ("30s").
//
// Configured by the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	lanLog := logger.Component("coordinator")
//	lanLog.Info("light found", "id", id)
//
// *Logger satisfies the small Logger interfaces declared by the device,
// coordinator, router and scheduler packages.
package logging
