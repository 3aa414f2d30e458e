package db

import (
	"context"
	"fmt"
)

// Schema holds the DDL for the emergency store. Applied idempotently at
// startup; the users table is owned by the auth registry and only read here,
// so it is created only if the registry has not provisioned it yet.
const Schema = `
CREATE TABLE IF NOT EXISTS emergencies (
	id UUID PRIMARY KEY,
	device_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('active', 'in-progress', 'cleared', 'cancelled', 'resolved')),
	type TEXT NOT NULL,
	location TEXT NOT NULL,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	patient_status TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	triggered_by TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	updated_by TEXT NOT NULL DEFAULT '',
	cleared_at TIMESTAMPTZ,
	cleared_by TEXT NOT NULL DEFAULT '',
	responders_notified INT NOT NULL DEFAULT 0,
	version BIGINT NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_emergencies_status_created
	ON emergencies (status, created_at);

CREATE TABLE IF NOT EXISTS confirmations (
	emergency_id UUID NOT NULL REFERENCES emergencies(id),
	responder_id TEXT NOT NULL,
	responder_email TEXT NOT NULL DEFAULT '',
	confirmed_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL DEFAULT 'acknowledged',
	PRIMARY KEY (emergency_id, responder_id)
);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	emergency_id UUID NOT NULL,
	channel TEXT NOT NULL,
	recipients TEXT[] NOT NULL,
	subject TEXT NOT NULL,
	body TEXT NOT NULL,
	attempts INT NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	next_attempt_at TIMESTAMPTZ NOT NULL,
	last_error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outbox_due
	ON outbox (status, next_attempt_at);
`

// Migrate applies the schema.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
