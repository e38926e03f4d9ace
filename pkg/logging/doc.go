// Package logging provides structured logging configuration for credd.
//
// This package wraps log/slog to provide consistent logging across the admin
// server and CLI. It supports configurable log levels and output formats.
//
// # Usage
//
// Create a logger with desired configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("admin server started", "port", 4780)
//	logger.Error("pool daemon unreachable", "error", err)
//
// # Output Formats
//
//   - Text: Human-readable format for development
//   - JSON: Structured format for log aggregation systems
//
// For shipping to Loki, combine handlers:
//
//	loki := logging.NewLokiHandler("http://localhost:3100/loki/api/v1/push")
//	logger := slog.New(logging.NewMultiHandler(textHandler, loki))
//
// # Integration
//
// Components should accept a *slog.Logger in their constructor or via a setter.
// If no logger is provided, use logging.Nop() for a no-op logger.
package logging
