package audit

import (
	"context"
	"log/slog"
)

// SlogStorage writes audit events to a structured logger. The default sink
// for deployments without a dedicated audit pipeline.
type SlogStorage struct {
	log *slog.Logger
}

// NewSlogStorage creates a slog-backed storage. A nil logger falls back to
// slog.Default().
func NewSlogStorage(log *slog.Logger) *SlogStorage {
	if log == nil {
		log = slog.Default()
	}
	return &SlogStorage{log: log}
}

func (s *SlogStorage) Store(ctx context.Context, event Event) error {
	attrs := []any{
		slog.String("event_id", event.ID),
		slog.String("account_id", event.AccountID),
		slog.String("action", event.Action),
		slog.String("severity", string(event.Severity)),
		slog.Time("created_at", event.CreatedAt),
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}

	level := slog.LevelInfo
	switch event.Severity {
	case SeverityWarn:
		level = slog.LevelWarn
	case SeverityAlert:
		level = slog.LevelError
	}

	s.log.Log(ctx, level, "security event", attrs...)
	return nil
}

// NoopStorage discards all events. Useful in tests and for callers that opt
// out of auditing.
type NoopStorage struct{}

func (NoopStorage) Store(ctx context.Context, event Event) error { return nil }
