package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional

	err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.Specialty,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfessionalNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanService(row pgx.Row) (*ClinicService, error) {
	var s ClinicService

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanSlot(row pgx.Row) (*schedule.Slot, error) {
	var s schedule.Slot

	err := row.Scan(
		&s.ID,
		&s.DailyScheduleID,
		&s.StartTime,
		&s.EndTime,
		&s.IsReserved,
		&s.IsBlocked,
		&s.AppointmentID,
		&s.BreakID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schedule.ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProfessionalID,
		&a.ServiceID,
		&a.SlotID,
		&a.StartTime,
		&a.EndTime,
		&a.Type,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

const appointmentColumns = `id, patient_id, professional_id, service_id, slot_id, start_time, end_time, appointment_type, status, notes, created_at, updated_at`

// Directory lookups

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, full_name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetProfessionalByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, full_name, specialty, created_at, updated_at
		FROM professionals
		WHERE id = $1
	`, id)
	return scanProfessional(row)
}

func (r *PgRepository) GetServiceByID(ctx context.Context, id uuid.UUID) (*ClinicService, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM services
		WHERE id = $1
	`, id)
	return scanService(row)
}

func (r *PgRepository) ProfessionalOffersService(ctx context.Context, professionalID, serviceID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM professional_services
			WHERE professional_id = $1 AND service_id = $2
		)
	`, professionalID, serviceID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) CreateServiceOffering(ctx context.Context, professionalID, serviceID uuid.UUID) (*ServiceOffering, error) {
	id := uuid.New()

	var so ServiceOffering
	err := r.pool.QueryRow(ctx, `
		INSERT INTO professional_services (id, professional_id, service_id, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, professional_id, service_id, created_at
	`, id, professionalID, serviceID).Scan(&so.ID, &so.ProfessionalID, &so.ServiceID, &so.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert service offering: %w", err)
	}

	return &so, nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*schedule.Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, daily_schedule_id, start_time, end_time, is_reserved, is_blocked, appointment_id, break_id, created_at, updated_at
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

// Appointments

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	a, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.loadDetail(ctx, a)
}

func (r *PgRepository) loadDetail(ctx context.Context, a *Appointment) (*AppointmentDetail, error) {
	patient, err := r.GetPatientByID(ctx, a.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load appointment patient: %w", err)
	}
	professional, err := r.GetProfessionalByID(ctx, a.ProfessionalID)
	if err != nil {
		return nil, fmt.Errorf("load appointment professional: %w", err)
	}
	service, err := r.GetServiceByID(ctx, a.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("load appointment service: %w", err)
	}
	slot, err := r.GetSlotByID(ctx, a.SlotID)
	if err != nil {
		return nil, fmt.Errorf("load appointment slot: %w", err)
	}

	return &AppointmentDetail{
		Appointment:  *a,
		Patient:      patient,
		Professional: professional,
		Service:      service,
		Slot:         slot,
	}, nil
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY start_time
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]AppointmentDetail, 0, len(appointments))
	for i := range appointments {
		detail, err := r.loadDetail(ctx, &appointments[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *detail)
	}

	return result, nil
}

// claimSlot conditionally reserves a slot inside tx and returns its
// bounds. Zero rows affected means the slot was not free; the follow-up
// read distinguishes blocked from reserved.
func claimSlot(ctx context.Context, tx pgx.Tx, slotID uuid.UUID) (*schedule.Slot, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE slots
		SET is_reserved = true,
		    updated_at = now()
		WHERE id = $1
		  AND NOT is_reserved
		  AND NOT is_blocked
	`, slotID)
	if err != nil {
		return nil, fmt.Errorf("claim slot: %w", err)
	}

	if tag.RowsAffected() == 0 {
		row := tx.QueryRow(ctx, `
			SELECT id, daily_schedule_id, start_time, end_time, is_reserved, is_blocked, appointment_id, break_id, created_at, updated_at
			FROM slots
			WHERE id = $1
		`, slotID)
		slot, err := scanSlot(row)
		if err != nil {
			return nil, err
		}
		if slot.IsBlocked {
			return nil, schedule.ErrSlotBlocked
		}
		return nil, ErrSlotAlreadyReserved
	}

	row := tx.QueryRow(ctx, `
		SELECT id, daily_schedule_id, start_time, end_time, is_reserved, is_blocked, appointment_id, break_id, created_at, updated_at
		FROM slots
		WHERE id = $1
	`, slotID)
	return scanSlot(row)
}

func (r *PgRepository) CreateAppointmentClaimingSlot(ctx context.Context, a *Appointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create appointment: %w", err)
	}
	defer tx.Rollback(ctx)

	slot, err := claimSlot(ctx, tx, a.SlotID)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, professional_id, service_id, slot_id, start_time, end_time, appointment_type, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, a.PatientID, a.ProfessionalID, a.ServiceID, a.SlotID, slot.StartTime, slot.EndTime, a.Type, a.Status, a.Notes)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE slots SET appointment_id = $2, updated_at = now() WHERE id = $1
	`, a.SlotID, created.ID); err != nil {
		return nil, fmt.Errorf("bind slot to appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create appointment: %w", err)
	}

	return created, nil
}

func (r *PgRepository) ReassignAppointmentSlot(ctx context.Context, a *Appointment, oldSlotID, newSlotID uuid.UUID) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reassign slot: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE slots
		SET is_reserved = false,
		    appointment_id = NULL,
		    updated_at = now()
		WHERE id = $1
	`, oldSlotID); err != nil {
		return nil, fmt.Errorf("release old slot: %w", err)
	}

	slot, err := claimSlot(ctx, tx, newSlotID)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    professional_id = $3,
		    service_id = $4,
		    slot_id = $5,
		    start_time = $6,
		    end_time = $7,
		    appointment_type = $8,
		    status = $9,
		    notes = $10,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, a.ID, a.PatientID, a.ProfessionalID, a.ServiceID, newSlotID, slot.StartTime, slot.EndTime, a.Type, a.Status, a.Notes)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE slots SET appointment_id = $2, updated_at = now() WHERE id = $1
	`, newSlotID, updated.ID); err != nil {
		return nil, fmt.Errorf("bind new slot to appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reassign slot: %w", err)
	}

	return updated, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    professional_id = $3,
		    service_id = $4,
		    appointment_type = $5,
		    status = $6,
		    notes = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, a.ID, a.PatientID, a.ProfessionalID, a.ServiceID, a.Type, a.Status, a.Notes)

	return scanAppointment(row)
}

func (r *PgRepository) DeleteAppointmentReleasingSlot(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete appointment: %w", err)
	}
	defer tx.Rollback(ctx)

	var slotID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT slot_id FROM appointments WHERE id = $1
	`, id).Scan(&slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE slots
		SET is_reserved = false,
		    appointment_id = NULL,
		    updated_at = now()
		WHERE id = $1
	`, slotID); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete appointment: %w", err)
	}

	return nil
}
