// Package logger provides structured logging backed by log/slog: JSON output
// in prod, colorized tint output everywhere else.
package logger
