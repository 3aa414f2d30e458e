package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidStatus(t *testing.T) {
	tests := []struct {
		status string
		valid  bool
	}{
		{StatusActive, true},
		{StatusInProgress, true},
		{StatusCleared, true},
		{StatusCancelled, true},
		{StatusResolved, true},
		{"", false},
		{"open", false},
		{"ACTIVE", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidStatus(tt.status), "status %q", tt.status)
	}
}

func TestTerminalStatus(t *testing.T) {
	tests := []struct {
		status   string
		terminal bool
	}{
		{StatusActive, false},
		{StatusInProgress, false},
		{StatusCleared, true},
		{StatusCancelled, true},
		{StatusResolved, true},
		{"unknown", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.terminal, TerminalStatus(tt.status), "status %q", tt.status)
	}
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(28.7041, 77.1025))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(90.5, 0))
	assert.False(t, ValidCoordinates(0, -181))
}
