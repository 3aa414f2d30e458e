package models

import "time"

// ConfirmationAcknowledged is the only acknowledgement status in current
// scope; modeled as a value rather than a bool for extensibility.
const ConfirmationAcknowledged = "acknowledged"

// Confirmation is one responder's acknowledgement of an Emergency.
// At most one exists per (emergency, responder) pair and it is never
// updated after insert.
type Confirmation struct {
	ResponderID    string    `json:"responder_id"`
	ResponderEmail string    `json:"responder_email"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
	Status         string    `json:"status"`
}
