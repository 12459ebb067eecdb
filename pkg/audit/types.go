package audit

import "time"

// Severity classifies audit events. Ordinary user errors (wrong code, rate
// limited) are SeverityInfo or SeverityWarn; infrastructure problems are
// SeverityAlert so they can be routed to paging instead of log archives.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityAlert Severity = "alert"
)

// Event is a single security event entry.
type Event struct {
	ID        string         `json:"id"`
	AccountID string         `json:"account_id"`
	Action    string         `json:"action"`
	Severity  Severity       `json:"severity"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
