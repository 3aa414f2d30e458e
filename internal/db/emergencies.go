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

// CreateEmergency inserts a new emergency record.
func (d *DB) CreateEmergency(ctx context.Context, e models.Emergency) error {
	query := `
	INSERT INTO emergencies (
		id, device_id, status, type, location, latitude, longitude,
		patient_status, description, triggered_by, created_at, updated_at,
		responders_notified, version
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
	)`

	_, err := d.Pool.Exec(ctx, query,
		e.ID,
		e.DeviceID,
		e.Status,
		e.Type,
		e.Location,
		e.Latitude,
		e.Longitude,
		e.PatientStatus,
		e.Description,
		e.TriggeredBy,
		e.CreatedAt,
		e.UpdatedAt,
		e.RespondersNotified,
		e.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert emergency: %w", err)
	}
	return nil
}

// GetEmergency fetches one emergency with its confirmations.
func (d *DB) GetEmergency(ctx context.Context, id string) (models.Emergency, error) {
	query := `
	SELECT id, device_id, status, type, location, latitude, longitude,
	       patient_status, description, triggered_by, created_at, updated_at,
	       updated_by, cleared_at, cleared_by, responders_notified, version
	FROM emergencies
	WHERE id = $1`

	var e models.Emergency
	err := d.Pool.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.DeviceID,
		&e.Status,
		&e.Type,
		&e.Location,
		&e.Latitude,
		&e.Longitude,
		&e.PatientStatus,
		&e.Description,
		&e.TriggeredBy,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.UpdatedBy,
		&e.ClearedAt,
		&e.ClearedBy,
		&e.RespondersNotified,
		&e.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Emergency{}, fmt.Errorf("emergency %s: %w", id, emergency.ErrNotFound)
		}
		return models.Emergency{}, fmt.Errorf("failed to get emergency %s: %w", id, err)
	}

	e.Confirmations, err = d.confirmationsFor(ctx, id)
	if err != nil {
		return models.Emergency{}, err
	}
	return e, nil
}

// UpdateEmergencyStatus transitions status with a terminal-state guard and a
// version bump. Same-status writes are accepted and still refresh
// updated_at.
func (d *DB) UpdateEmergencyStatus(ctx context.Context, id, status, actor string) error {
	query := `
	UPDATE emergencies
	SET status = $2, updated_by = $3, updated_at = $4, version = version + 1
	WHERE id = $1 AND status NOT IN ('cleared', 'cancelled', 'resolved')`

	tag, err := d.Pool.Exec(ctx, query, id, status, actor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update emergency %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return d.refusalReason(ctx, id)
	}
	return nil
}

// ClearEmergency transitions to cleared and records the audit fields.
func (d *DB) ClearEmergency(ctx context.Context, id, actor string) error {
	now := time.Now().UTC()
	query := `
	UPDATE emergencies
	SET status = 'cleared', cleared_by = $2, cleared_at = $3,
	    updated_by = $2, updated_at = $3, version = version + 1
	WHERE id = $1 AND status NOT IN ('cleared', 'cancelled', 'resolved')`

	tag, err := d.Pool.Exec(ctx, query, id, actor, now)
	if err != nil {
		return fmt.Errorf("failed to clear emergency %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return d.refusalReason(ctx, id)
	}
	return nil
}

// ListActiveEmergencies returns active records oldest first.
func (d *DB) ListActiveEmergencies(ctx context.Context) ([]models.Emergency, error) {
	query := `
	SELECT id, device_id, status, type, location, latitude, longitude,
	       patient_status, description, triggered_by, created_at, updated_at,
	       updated_by, cleared_at, cleared_by, responders_notified, version
	FROM emergencies
	WHERE status = 'active'
	ORDER BY created_at ASC`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active emergencies: %w", err)
	}
	defer rows.Close()

	var list []models.Emergency
	for rows.Next() {
		var e models.Emergency
		err := rows.Scan(
			&e.ID,
			&e.DeviceID,
			&e.Status,
			&e.Type,
			&e.Location,
			&e.Latitude,
			&e.Longitude,
			&e.PatientStatus,
			&e.Description,
			&e.TriggeredBy,
			&e.CreatedAt,
			&e.UpdatedAt,
			&e.UpdatedBy,
			&e.ClearedAt,
			&e.ClearedBy,
			&e.RespondersNotified,
			&e.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan emergency: %w", err)
		}
		e.Confirmations = map[string]models.Confirmation{}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active emergencies: %w", err)
	}

	for i := range list {
		list[i].Confirmations, err = d.confirmationsFor(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return list, nil
}

// refusalReason distinguishes a missing record from a terminal one after a
// conditional update matched nothing.
func (d *DB) refusalReason(ctx context.Context, id string) error {
	var status string
	err := d.Pool.QueryRow(ctx, `SELECT status FROM emergencies WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("emergency %s: %w", id, emergency.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read emergency %s: %w", id, err)
	}
	return fmt.Errorf("emergency %s is %s: %w", id, status, emergency.ErrInvalidState)
}
