// Package logger is a small slog factory used to build the structured logger
// handed to the audit sink and to application wiring.
package logger
