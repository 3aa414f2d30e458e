package models

import "time"

// Outbox message states.
const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// OutboxMessage is a durably queued alert delivery attempt. Rows are written
// when an inline dispatch degrades and drained by the outbox workers with
// backoff until sent or the attempt cap is reached.
type OutboxMessage struct {
	ID            string    `json:"id"`
	EmergencyID   string    `json:"emergency_id"`
	Channel       string    `json:"channel"`
	Recipients    []string  `json:"recipients"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Attempts      int       `json:"attempts"`
	Status        string    `json:"status"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
