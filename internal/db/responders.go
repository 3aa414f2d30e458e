package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"emergency-service/internal/emergency"
)

// ResponderEmails projects the user registry to the addresses of users whose
// role is in roles, skipping empty emails. The registry is externally owned;
// this is a read-only view.
func (d *DB) ResponderEmails(ctx context.Context, roles []string) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT email FROM users
	WHERE role = ANY($1) AND email <> ''`,
		roles,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read user registry: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan user email: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user registry: %w", err)
	}
	return emails, nil
}

// UserRole returns the role of the user with the given id.
func (d *DB) UserRole(ctx context.Context, id string) (string, error) {
	var role string
	err := d.Pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("user %s: %w", id, emergency.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get role for user %s: %w", id, err)
	}
	return role, nil
}
