package directory

import (
	"context"
	"errors"
	"fmt"

	"emergency-service/internal/emergency"
	"emergency-service/internal/logging"
	"emergency-service/internal/models"
)

// Registry is the read-only view over the externally owned user registry.
type Registry interface {
	ResponderEmails(ctx context.Context, roles []string) ([]string, error)
	UserRole(ctx context.Context, id string) (string, error)
}

// Directory resolves notifiable responder contacts. It holds no state of
// its own; every call reads the registry.
type Directory struct {
	reg    Registry
	logger *logging.Logger
}

// New constructs a Directory.
func New(reg Registry, logger *logging.Logger) *Directory {
	return &Directory{reg: reg, logger: logger}
}

// ResponderEmails returns the de-duplicated addresses of users whose role is
// notifiable (ambulance, responder). Registry failure surfaces as
// ErrDirectoryUnavailable so callers can tell "no responders exist" from
// "lookup failed".
func (d *Directory) ResponderEmails(ctx context.Context) ([]string, error) {
	emails, err := d.reg.ResponderEmails(ctx, models.NotifiableRoles())
	if err != nil {
		d.logger.Errorf("Responder lookup failed: %v", err)
		return nil, fmt.Errorf("%w: %v", emergency.ErrDirectoryUnavailable, err)
	}

	seen := make(map[string]bool, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out, nil
}

// Role returns the registry role of a user, ErrNotFound for unknown ids.
func (d *Directory) Role(ctx context.Context, userID string) (string, error) {
	role, err := d.reg.UserRole(ctx, userID)
	if err != nil {
		if errors.Is(err, emergency.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", emergency.ErrDirectoryUnavailable, err)
	}
	return role, nil
}
