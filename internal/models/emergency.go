package models

import (
	"time"
)

// Emergency status values. Cleared, cancelled and resolved are terminal:
// no further status change or confirmation is accepted afterward.
const (
	StatusActive     = "active"
	StatusInProgress = "in-progress"
	StatusCleared    = "cleared"
	StatusCancelled  = "cancelled"
	StatusResolved   = "resolved"
)

// DefaultEmergencyType is used when a trigger carries no type.
const DefaultEmergencyType = "CPR Required"

// DefaultPatientStatus is used when a trigger carries no patient status.
const DefaultPatientStatus = "Critical"

// DefaultLocation is used when a trigger carries no location string.
const DefaultLocation = "Unknown Location"

var validStatuses = map[string]bool{
	StatusActive:     true,
	StatusInProgress: true,
	StatusCleared:    true,
	StatusCancelled:  true,
	StatusResolved:   true,
}

var terminalStatuses = map[string]bool{
	StatusCleared:   true,
	StatusCancelled: true,
	StatusResolved:  true,
}

// ValidStatus reports whether s is a defined emergency status.
func ValidStatus(s string) bool {
	return validStatuses[s]
}

// TerminalStatus reports whether s admits no further transitions.
func TerminalStatus(s string) bool {
	return terminalStatuses[s]
}

// TerminalStatuses returns the terminal status values, for use in queries.
func TerminalStatuses() []string {
	return []string{StatusCleared, StatusCancelled, StatusResolved}
}

// ValidCoordinates reports whether lat/lng form a real geographic point.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Emergency is one SOS event record. Field names on the wire follow the
// dashboard's store schema.
type Emergency struct {
	ID                 string                  `json:"id"`
	DeviceID           string                  `json:"device_id"`
	Status             string                  `json:"status"`
	Type               string                  `json:"type"`
	Location           string                  `json:"location"`
	Latitude           float64                 `json:"latitude"`
	Longitude          float64                 `json:"longitude"`
	PatientStatus      string                  `json:"patient_status"`
	Description        string                  `json:"description"`
	TriggeredBy        string                  `json:"triggered_by"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
	UpdatedBy          string                  `json:"updated_by,omitempty"`
	ClearedAt          *time.Time              `json:"cleared_at,omitempty"`
	ClearedBy          string                  `json:"cleared_by,omitempty"`
	RespondersNotified int                     `json:"responders_notified"`
	Confirmations      map[string]Confirmation `json:"confirmations"`
	Version            int64                   `json:"version"`
}

// EmergencyInput carries trigger parameters before defaulting. Coordinates
// are pointers so absent and zero can be told apart.
type EmergencyInput struct {
	DeviceID      string   `json:"device_id"`
	Type          string   `json:"type"`
	Location      string   `json:"location"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	PatientStatus string   `json:"patient_status"`
	Description   string   `json:"description"`
	TriggeredBy   string   `json:"triggered_by"`
}
