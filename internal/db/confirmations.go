package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"emergency-service/internal/emergency"
	"emergency-service/internal/models"
)

// InsertConfirmation records a responder acknowledgement. The insert is
// write-if-absent on (emergency_id, responder_id), so a concurrent retry by
// the same responder cannot produce a second row or overwrite the first
// timestamp. Runs in a transaction with the parent row locked so a
// concurrent clear cannot slip between the terminal check and the insert.
func (d *DB) InsertConfirmation(ctx context.Context, emergencyID string, c models.Confirmation) error {
	err := pgx.BeginFunc(ctx, d.Pool, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx,
			`SELECT status FROM emergencies WHERE id = $1 FOR UPDATE`,
			emergencyID,
		).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("emergency %s: %w", emergencyID, emergency.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read emergency %s: %w", emergencyID, err)
		}
		if models.TerminalStatus(status) {
			return fmt.Errorf("emergency %s is %s: %w", emergencyID, status, emergency.ErrInvalidState)
		}

		tag, err := tx.Exec(ctx, `
		INSERT INTO confirmations (emergency_id, responder_id, responder_email, confirmed_at, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (emergency_id, responder_id) DO NOTHING`,
			emergencyID,
			c.ResponderID,
			c.ResponderEmail,
			c.ConfirmedAt,
			c.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to insert confirmation: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("responder %s on emergency %s: %w", c.ResponderID, emergencyID, emergency.ErrAlreadyConfirmed)
		}

		_, err = tx.Exec(ctx, `
		UPDATE emergencies SET updated_at = $2, version = version + 1 WHERE id = $1`,
			emergencyID, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to touch emergency %s: %w", emergencyID, err)
		}
		return nil
	})
	return err
}

// confirmationsFor loads the confirmation map for an emergency.
func (d *DB) confirmationsFor(ctx context.Context, emergencyID string) (map[string]models.Confirmation, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT responder_id, responder_email, confirmed_at, status
	FROM confirmations
	WHERE emergency_id = $1`,
		emergencyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmations for %s: %w", emergencyID, err)
	}
	defer rows.Close()

	out := map[string]models.Confirmation{}
	for rows.Next() {
		var c models.Confirmation
		if err := rows.Scan(&c.ResponderID, &c.ResponderEmail, &c.ConfirmedAt, &c.Status); err != nil {
			return nil, fmt.Errorf("failed to scan confirmation: %w", err)
		}
		out[c.ResponderID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read confirmations for %s: %w", emergencyID, err)
	}
	return out, nil
}
