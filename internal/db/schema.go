package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the full DDL for the scheduling engine. cmd/seed applies it
// with --init; statements are idempotent so re-running is safe.
const Schema = `
CREATE TABLE IF NOT EXISTS patients (
	id          uuid PRIMARY KEY,
	full_name   text NOT NULL,
	email       text,
	created_at  timestamptz NOT NULL DEFAULT now(),
	updated_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS professionals (
	id          uuid PRIMARY KEY,
	full_name   text NOT NULL,
	specialty   text,
	created_at  timestamptz NOT NULL DEFAULT now(),
	updated_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS services (
	id          uuid PRIMARY KEY,
	name        text NOT NULL,
	description text,
	created_at  timestamptz NOT NULL DEFAULT now(),
	updated_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS professional_services (
	id              uuid PRIMARY KEY,
	professional_id uuid NOT NULL REFERENCES professionals (id) ON DELETE CASCADE,
	service_id      uuid NOT NULL REFERENCES services (id) ON DELETE CASCADE,
	created_at      timestamptz NOT NULL DEFAULT now(),
	UNIQUE (professional_id, service_id)
);

CREATE TABLE IF NOT EXISTS professional_schedules (
	id              uuid PRIMARY KEY,
	professional_id uuid NOT NULL REFERENCES professionals (id) ON DELETE CASCADE,
	name            text,
	created_at      timestamptz NOT NULL DEFAULT now(),
	updated_at      timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS daily_schedules (
	id                       uuid PRIMARY KEY,
	professional_schedule_id uuid NOT NULL REFERENCES professional_schedules (id) ON DELETE CASCADE,
	schedule_date            date NOT NULL,
	work_start               text NOT NULL,
	work_end                 text NOT NULL,
	created_at               timestamptz NOT NULL DEFAULT now(),
	updated_at               timestamptz NOT NULL DEFAULT now(),
	UNIQUE (professional_schedule_id, schedule_date)
);

CREATE TABLE IF NOT EXISTS breaks (
	id                uuid PRIMARY KEY,
	daily_schedule_id uuid NOT NULL REFERENCES daily_schedules (id) ON DELETE CASCADE,
	start_time        timestamptz NOT NULL,
	end_time          timestamptz NOT NULL,
	reason            text NOT NULL,
	created_at        timestamptz NOT NULL DEFAULT now(),
	updated_at        timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS slots (
	id                uuid PRIMARY KEY,
	daily_schedule_id uuid NOT NULL REFERENCES daily_schedules (id) ON DELETE CASCADE,
	start_time        timestamptz NOT NULL,
	end_time          timestamptz NOT NULL,
	is_reserved       boolean NOT NULL DEFAULT false,
	is_blocked        boolean NOT NULL DEFAULT false,
	appointment_id    uuid,
	break_id          uuid REFERENCES breaks (id) ON DELETE SET NULL,
	created_at        timestamptz NOT NULL DEFAULT now(),
	updated_at        timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_slots_daily_schedule ON slots (daily_schedule_id);

CREATE TABLE IF NOT EXISTS appointments (
	id               uuid PRIMARY KEY,
	patient_id       uuid NOT NULL REFERENCES patients (id) ON DELETE RESTRICT,
	professional_id  uuid NOT NULL REFERENCES professionals (id) ON DELETE RESTRICT,
	service_id       uuid NOT NULL REFERENCES services (id) ON DELETE RESTRICT,
	slot_id          uuid NOT NULL UNIQUE REFERENCES slots (id) ON DELETE RESTRICT,
	start_time       timestamptz NOT NULL,
	end_time         timestamptz NOT NULL,
	appointment_type text NOT NULL,
	status           text NOT NULL DEFAULT 'scheduled',
	notes            text,
	created_at       timestamptz NOT NULL DEFAULT now(),
	updated_at       timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments (patient_id);
`

func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
