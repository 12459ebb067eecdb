package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Logger records security events. Implementations must be fire-and-forget:
// a sink failure never blocks or fails the calling operation.
type Logger interface {
	// Log records an event for the account. Severity defaults to
	// SeverityInfo; use options to attach metadata or raise severity.
	Log(ctx context.Context, accountID, action string, opts ...EventOption)
}

// Storage persists audit events.
type Storage interface {
	Store(ctx context.Context, event Event) error
}

type logger struct {
	storage Storage
}

// NewLogger creates an audit logger on the given storage. Storage errors
// are swallowed: audit is an observability concern, never a control-flow one.
func NewLogger(storage Storage) Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	return &logger{storage: storage}
}

func (l *logger) Log(ctx context.Context, accountID, action string, opts ...EventOption) {
	event := Event{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Action:    action,
		Severity:  SeverityInfo,
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&event)
	}

	// Fire-and-forget contract: sink failures are dropped
	_ = l.storage.Store(ctx, event)
}

// EventOption applies configuration to an Event during creation.
type EventOption func(*Event)

// WithMetadata adds a metadata entry to the event.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// WithSeverity sets the event severity.
func WithSeverity(severity Severity) EventOption {
	return func(e *Event) {
		e.Severity = severity
	}
}

// WithError attaches an error message to the event and raises the severity
// to SeverityAlert. Used for infrastructure problems, which must stand apart
// from ordinary failed-attempt events.
func WithError(err error) EventOption {
	return func(e *Event) {
		if err != nil {
			e.Error = err.Error()
			e.Severity = SeverityAlert
		}
	}
}
