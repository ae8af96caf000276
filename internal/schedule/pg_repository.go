package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanProfessionalSchedule(row pgx.Row) (*ProfessionalSchedule, error) {
	var ps ProfessionalSchedule

	err := row.Scan(
		&ps.ID,
		&ps.ProfessionalID,
		&ps.Name,
		&ps.CreatedAt,
		&ps.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfessionalScheduleNotFound
		}
		return nil, err
	}

	return &ps, nil
}

func scanDailySchedule(row pgx.Row) (*DailySchedule, error) {
	var ds DailySchedule

	err := row.Scan(
		&ds.ID,
		&ds.ProfessionalScheduleID,
		&ds.Date,
		&ds.WorkStart,
		&ds.WorkEnd,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDailyScheduleNotFound
		}
		return nil, err
	}

	return &ds, nil
}

func scanBreak(row pgx.Row) (*Break, error) {
	var b Break

	err := row.Scan(
		&b.ID,
		&b.DailyScheduleID,
		&b.StartTime,
		&b.EndTime,
		&b.Reason,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBreakNotFound
		}
		return nil, err
	}

	return &b, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

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
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

// Professional schedules

func (r *PgRepository) CreateProfessionalSchedule(ctx context.Context, ps *ProfessionalSchedule) (*ProfessionalSchedule, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO professional_schedules (id, professional_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, professional_id, name, created_at, updated_at
	`, id, ps.ProfessionalID, ps.Name)

	return scanProfessionalSchedule(row)
}

func (r *PgRepository) GetProfessionalScheduleByID(ctx context.Context, id uuid.UUID) (*ProfessionalSchedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, professional_id, name, created_at, updated_at
		FROM professional_schedules
		WHERE id = $1
	`, id)
	return scanProfessionalSchedule(row)
}

// Daily schedules

func (r *PgRepository) CreateDailySchedule(ctx context.Context, ds *DailySchedule) (*DailySchedule, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO daily_schedules (id, professional_schedule_id, schedule_date, work_start, work_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, professional_schedule_id, schedule_date, work_start, work_end, created_at, updated_at
	`, id, ds.ProfessionalScheduleID, ds.Date, ds.WorkStart, ds.WorkEnd)

	return scanDailySchedule(row)
}

func (r *PgRepository) UpdateDailySchedule(ctx context.Context, ds *DailySchedule) (*DailySchedule, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE daily_schedules
		SET professional_schedule_id = $2,
		    schedule_date = $3,
		    work_start = $4,
		    work_end = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, professional_schedule_id, schedule_date, work_start, work_end, created_at, updated_at
	`, ds.ID, ds.ProfessionalScheduleID, ds.Date, ds.WorkStart, ds.WorkEnd)

	return scanDailySchedule(row)
}

func (r *PgRepository) GetDailyScheduleByID(ctx context.Context, id uuid.UUID) (*DailySchedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, professional_schedule_id, schedule_date, work_start, work_end, created_at, updated_at
		FROM daily_schedules
		WHERE id = $1
	`, id)
	return scanDailySchedule(row)
}

func (r *PgRepository) GetDailyScheduleByDay(ctx context.Context, scheduleID uuid.UUID, date time.Time) (*DailySchedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, professional_schedule_id, schedule_date, work_start, work_end, created_at, updated_at
		FROM daily_schedules
		WHERE professional_schedule_id = $1 AND schedule_date = $2
	`, scheduleID, date)
	return scanDailySchedule(row)
}

func (r *PgRepository) ListDailySchedulesBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]DailySchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, professional_schedule_id, schedule_date, work_start, work_end, created_at, updated_at
		FROM daily_schedules
		WHERE professional_schedule_id = $1
		ORDER BY schedule_date
	`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DailySchedule
	for rows.Next() {
		ds, err := scanDailySchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ds)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Breaks

func (r *PgRepository) CreateBreak(ctx context.Context, b *Break) (*Break, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO breaks (id, daily_schedule_id, start_time, end_time, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, daily_schedule_id, start_time, end_time, reason, created_at, updated_at
	`, id, b.DailyScheduleID, b.StartTime, b.EndTime, b.Reason)

	return scanBreak(row)
}

func (r *PgRepository) UpdateBreak(ctx context.Context, b *Break) (*Break, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE breaks
		SET daily_schedule_id = $2,
		    start_time = $3,
		    end_time = $4,
		    reason = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, daily_schedule_id, start_time, end_time, reason, created_at, updated_at
	`, b.ID, b.DailyScheduleID, b.StartTime, b.EndTime, b.Reason)

	return scanBreak(row)
}

func (r *PgRepository) GetBreakByID(ctx context.Context, id uuid.UUID) (*Break, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, daily_schedule_id, start_time, end_time, reason, created_at, updated_at
		FROM breaks
		WHERE id = $1
	`, id)
	return scanBreak(row)
}

func (r *PgRepository) ListBreaksByDailySchedule(ctx context.Context, dailyScheduleID uuid.UUID) ([]Break, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, daily_schedule_id, start_time, end_time, reason, created_at, updated_at
		FROM breaks
		WHERE daily_schedule_id = $1
		ORDER BY start_time
	`, dailyScheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Break
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Slots

func (r *PgRepository) CreateSlots(ctx context.Context, slots []Slot) ([]Slot, error) {
	if len(slots) == 0 {
		return []Slot{}, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin slot batch: %w", err)
	}
	defer tx.Rollback(ctx)

	created := make([]Slot, 0, len(slots))
	for _, s := range slots {
		id := s.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO slots (id, daily_schedule_id, start_time, end_time, is_reserved, is_blocked, appointment_id, break_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			RETURNING id, daily_schedule_id, start_time, end_time, is_reserved, is_blocked, appointment_id, break_id, created_at, updated_at
		`, id, s.DailyScheduleID, s.StartTime, s.EndTime, s.IsReserved, s.IsBlocked, s.AppointmentID, s.BreakID)

		saved, err := scanSlot(row)
		if err != nil {
			return nil, fmt.Errorf("insert slot: %w", err)
		}
		created = append(created, *saved)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit slot batch: %w", err)
	}

	return created, nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, daily_schedule_id, start_time, end_time, is_reserved, is_blocked, appointment_id, break_id, created_at, updated_at
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListSlotsByDailySchedule(ctx context.Context, dailyScheduleID uuid.UUID) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, daily_schedule_id, start_time, end_time, is_reserved, is_blocked, appointment_id, break_id, created_at, updated_at
		FROM slots
		WHERE daily_schedule_id = $1
		ORDER BY start_time
	`, dailyScheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CountSlotsByDailySchedule(ctx context.Context, dailyScheduleID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM slots WHERE daily_schedule_id = $1
	`, dailyScheduleID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PgRepository) SaveSlot(ctx context.Context, s *Slot) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE slots
		SET is_reserved = $2,
		    is_blocked = $3,
		    appointment_id = $4,
		    break_id = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, daily_schedule_id, start_time, end_time, is_reserved, is_blocked, appointment_id, break_id, created_at, updated_at
	`, s.ID, s.IsReserved, s.IsBlocked, s.AppointmentID, s.BreakID)

	return scanSlot(row)
}
