package domain

import "time"

// Outcome of one export attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	// OutcomePending marks a claimed export whose provider call has not finished.
	OutcomePending Outcome = "pending"
)

// ExportAttempt records the last export of an insight to one provider.
type ExportAttempt struct {
	Outcome     Outcome   `json:"outcome"`
	ConfigID    string    `json:"config_id"`
	RemoteID    string    `json:"remote_id,omitempty"`
	RemoteURL   string    `json:"remote_url,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Message     string    `json:"message,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// ExportDestinations holds at most one attempt per provider.
type ExportDestinations map[string]ExportAttempt

// Succeeded reports whether the last attempt for provider succeeded.
func (d ExportDestinations) Succeeded(provider string) bool {
	attempt, ok := d[provider]
	return ok && attempt.Outcome == OutcomeSuccess
}

// InFlight reports whether provider holds a pending claim younger than staleAfter.
func (d ExportDestinations) InFlight(provider string, now time.Time, staleAfter time.Duration) bool {
	attempt, ok := d[provider]
	return ok && attempt.Outcome == OutcomePending && now.Sub(attempt.AttemptedAt) < staleAfter
}
