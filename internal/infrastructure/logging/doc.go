// Package logging provides structured logging for ringclient.
//
// It wraps log/slog. Every record carries service=ringclient and the build
// version; subsystems add a component field.
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting client", "client_id", cfg.Client.ID)
//
//	// Per-package loggers carry a component field:
//	manager.SetLogger(logger.Component("collections"))
//	logger.Error("failed to connect", "error", err)
//
// Tests use Discard.
package logging
