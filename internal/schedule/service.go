package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/metrics"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
)

var (
	ErrInvalidTimeOfDay    = errors.New("work time must be a valid HH:MM value")
	ErrInvalidWorkHours    = errors.New("work start must be before work end")
	ErrDayAlreadyScheduled = errors.New("a daily schedule already exists for this date")
	ErrInvalidBreakRange   = errors.New("break start must be before break end")
	ErrBreakReasonRequired = errors.New("break reason is required")
	ErrBreakOutsideWindow  = errors.New("break must lie fully within the working hours")
	ErrBreakOverlap        = errors.New("break overlaps an existing break")
	ErrInvalidSlotDuration = errors.New("slot duration must be between 1 and 240 minutes")
	ErrSlotsAlreadyExist   = errors.New("slots were already generated for this daily schedule")
	ErrSlotBlocked         = errors.New("slot is blocked and cannot be reserved")
	ErrSlotReserved        = errors.New("slot is reserved and cannot be blocked")
	ErrScheduleBusy        = errors.New("schedule is currently being modified, please retry")
)

// Service implements the daily-schedule registry, break registry, slot
// generator and slot reservation gate. Break mutations and slot
// generation run under a per-schedule Redis lock so two concurrent
// writers cannot both validate against a stale snapshot.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

// Professional schedules (thin parent records)

func (s *Service) CreateProfessionalSchedule(ctx context.Context, professionalID uuid.UUID, name *string) (*ProfessionalSchedule, error) {
	ps, err := s.repo.CreateProfessionalSchedule(ctx, &ProfessionalSchedule{
		ProfessionalID: professionalID,
		Name:           name,
	})
	if err != nil {
		return nil, fmt.Errorf("create professional schedule: %w", err)
	}
	return ps, nil
}

func (s *Service) GetProfessionalSchedule(ctx context.Context, id uuid.UUID) (*ProfessionalSchedule, error) {
	return s.repo.GetProfessionalScheduleByID(ctx, id)
}

func (s *Service) ListDailySchedules(ctx context.Context, scheduleID uuid.UUID) ([]DailySchedule, error) {
	if _, err := s.repo.GetProfessionalScheduleByID(ctx, scheduleID); err != nil {
		return nil, err
	}
	return s.repo.ListDailySchedulesBySchedule(ctx, scheduleID)
}

// Daily schedules

// CreateDailySchedule registers one working-hours record for a
// (professional schedule, date) pair. The date is normalized to its UTC
// calendar day.
func (s *Service) CreateDailySchedule(ctx context.Context, scheduleID uuid.UUID, date time.Time, workStart, workEnd string) (*DailySchedule, error) {
	if _, err := s.repo.GetProfessionalScheduleByID(ctx, scheduleID); err != nil {
		return nil, err
	}

	if err := validateWorkHours(workStart, workEnd); err != nil {
		return nil, err
	}

	day := toUTCDate(date)

	existing, err := s.repo.GetDailyScheduleByDay(ctx, scheduleID, day)
	if err != nil && !errors.Is(err, ErrDailyScheduleNotFound) {
		return nil, fmt.Errorf("check schedule day uniqueness: %w", err)
	}
	if existing != nil {
		return nil, ErrDayAlreadyScheduled
	}

	ds, err := s.repo.CreateDailySchedule(ctx, &DailySchedule{
		ProfessionalScheduleID: scheduleID,
		Date:                   day,
		WorkStart:              workStart,
		WorkEnd:                workEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("create daily schedule: %w", err)
	}

	s.log.Info().
		Str("daily_schedule_id", ds.ID.String()).
		Str("date", day.Format("2006-01-02")).
		Str("work_start", workStart).
		Str("work_end", workEnd).
		Msg("daily schedule created")

	return ds, nil
}

// DailySchedulePatch carries the optional fields of a partial update.
type DailySchedulePatch struct {
	ProfessionalScheduleID *uuid.UUID
	Date                   *time.Time
	WorkStart              *string
	WorkEnd                *string
}

// UpdateDailySchedule re-validates hour ordering with merged
// current+incoming values, and re-checks the per-day uniqueness
// (excluding the record itself) when the parent or date moves.
func (s *Service) UpdateDailySchedule(ctx context.Context, id uuid.UUID, patch DailySchedulePatch) (*DailySchedule, error) {
	ds, err := s.repo.GetDailyScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workStart := ds.WorkStart
	if patch.WorkStart != nil {
		workStart = *patch.WorkStart
	}
	workEnd := ds.WorkEnd
	if patch.WorkEnd != nil {
		workEnd = *patch.WorkEnd
	}
	if err := validateWorkHours(workStart, workEnd); err != nil {
		return nil, err
	}

	scheduleID := ds.ProfessionalScheduleID
	if patch.ProfessionalScheduleID != nil {
		scheduleID = *patch.ProfessionalScheduleID
	}
	day := ds.Date
	if patch.Date != nil {
		day = toUTCDate(*patch.Date)
	}

	if scheduleID != ds.ProfessionalScheduleID || !day.Equal(ds.Date) {
		if scheduleID != ds.ProfessionalScheduleID {
			if _, err := s.repo.GetProfessionalScheduleByID(ctx, scheduleID); err != nil {
				return nil, err
			}
		}

		existing, err := s.repo.GetDailyScheduleByDay(ctx, scheduleID, day)
		if err != nil && !errors.Is(err, ErrDailyScheduleNotFound) {
			return nil, fmt.Errorf("check schedule day uniqueness: %w", err)
		}
		if existing != nil && existing.ID != id {
			return nil, ErrDayAlreadyScheduled
		}
	}

	ds.ProfessionalScheduleID = scheduleID
	ds.Date = day
	ds.WorkStart = workStart
	ds.WorkEnd = workEnd

	updated, err := s.repo.UpdateDailySchedule(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("update daily schedule: %w", err)
	}
	return updated, nil
}

func (s *Service) GetDailySchedule(ctx context.Context, id uuid.UUID) (*DailySchedule, error) {
	return s.repo.GetDailyScheduleByID(ctx, id)
}

// Breaks

// CreateBreak registers a break inside a daily schedule. Containment is
// checked against the schedule's UTC-anchored work window and overlap
// against the sibling breaks, all inside the per-schedule lock.
func (s *Service) CreateBreak(ctx context.Context, dailyScheduleID uuid.UUID, start, end time.Time, reason string) (*Break, error) {
	if reason == "" {
		return nil, ErrBreakReasonRequired
	}

	var created *Break

	err := s.locker.WithScheduleLock(ctx, dailyScheduleID, func(lockCtx context.Context) error {
		ds, err := s.repo.GetDailyScheduleByID(lockCtx, dailyScheduleID)
		if err != nil {
			return err
		}

		if err := s.validateBreakBounds(lockCtx, ds, start, end, uuid.Nil); err != nil {
			return err
		}

		created, err = s.repo.CreateBreak(lockCtx, &Break{
			DailyScheduleID: dailyScheduleID,
			StartTime:       start,
			EndTime:         end,
			Reason:          reason,
		})
		if err != nil {
			return fmt.Errorf("create break: %w", err)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	s.log.Info().
		Str("break_id", created.ID.String()).
		Str("daily_schedule_id", dailyScheduleID.String()).
		Time("start", start).
		Time("end", end).
		Msg("break created")

	return created, nil
}

// BreakPatch carries the optional fields of a partial break update.
type BreakPatch struct {
	DailyScheduleID *uuid.UUID
	StartTime       *time.Time
	EndTime         *time.Time
	Reason          *string
}

// UpdateBreak re-runs every creation validation with merged values,
// excluding the break itself from the overlap check.
func (s *Service) UpdateBreak(ctx context.Context, id uuid.UUID, patch BreakPatch) (*Break, error) {
	b, err := s.repo.GetBreakByID(ctx, id)
	if err != nil {
		return nil, err
	}

	scheduleID := b.DailyScheduleID
	if patch.DailyScheduleID != nil {
		scheduleID = *patch.DailyScheduleID
	}
	start := b.StartTime
	if patch.StartTime != nil {
		start = *patch.StartTime
	}
	end := b.EndTime
	if patch.EndTime != nil {
		end = *patch.EndTime
	}
	reason := b.Reason
	if patch.Reason != nil {
		reason = *patch.Reason
	}
	if reason == "" {
		return nil, ErrBreakReasonRequired
	}

	var updated *Break

	err = s.locker.WithScheduleLock(ctx, scheduleID, func(lockCtx context.Context) error {
		ds, err := s.repo.GetDailyScheduleByID(lockCtx, scheduleID)
		if err != nil {
			return err
		}

		if err := s.validateBreakBounds(lockCtx, ds, start, end, id); err != nil {
			return err
		}

		b.DailyScheduleID = scheduleID
		b.StartTime = start
		b.EndTime = end
		b.Reason = reason

		updated, err = s.repo.UpdateBreak(lockCtx, b)
		if err != nil {
			return fmt.Errorf("update break: %w", err)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	return updated, nil
}

func (s *Service) GetBreak(ctx context.Context, id uuid.UUID) (*Break, error) {
	return s.repo.GetBreakByID(ctx, id)
}

// ListBreaks returns every break of a daily schedule, unpaginated; the
// set is bounded by a single day's break count.
func (s *Service) ListBreaks(ctx context.Context, dailyScheduleID uuid.UUID) ([]Break, error) {
	if _, err := s.repo.GetDailyScheduleByID(ctx, dailyScheduleID); err != nil {
		return nil, err
	}
	return s.repo.ListBreaksByDailySchedule(ctx, dailyScheduleID)
}

// validateBreakBounds checks ordering, containment in the UTC work
// window, and half-open overlap against sibling breaks. excludeID skips
// the break being updated.
func (s *Service) validateBreakBounds(ctx context.Context, ds *DailySchedule, start, end time.Time, excludeID uuid.UUID) error {
	if !start.Before(end) {
		return ErrInvalidBreakRange
	}

	windowStart, windowEnd, err := workWindow(ds)
	if err != nil {
		return ErrInvalidTimeOfDay
	}

	if start.Before(windowStart) || end.After(windowEnd) {
		return ErrBreakOutsideWindow
	}

	siblings, err := s.repo.ListBreaksByDailySchedule(ctx, ds.ID)
	if err != nil {
		return fmt.Errorf("list sibling breaks: %w", err)
	}

	for _, sib := range siblings {
		if sib.ID == excludeID {
			continue
		}
		if intervalsOverlap(sib.StartTime, sib.EndTime, start, end) {
			return ErrBreakOverlap
		}
	}

	return nil
}

// Slot generation

// GenerateSlots partitions a daily schedule's work window into
// consecutive durationMinutes-long free slots, dropping any candidate
// that overlaps a break and the trailing remainder that no longer fits.
// The whole read-partition-persist sequence runs against one break
// snapshot, under the per-schedule lock. Generating twice for the same
// schedule is rejected: duplicate generation would silently double the
// bookable capacity of a day.
func (s *Service) GenerateSlots(ctx context.Context, dailyScheduleID uuid.UUID, durationMinutes int) ([]Slot, error) {
	if durationMinutes < MinSlotDurationMinutes || durationMinutes > MaxSlotDurationMinutes {
		return nil, ErrInvalidSlotDuration
	}

	var generated []Slot

	err := s.locker.WithScheduleLock(ctx, dailyScheduleID, func(lockCtx context.Context) error {
		ds, err := s.repo.GetDailyScheduleByID(lockCtx, dailyScheduleID)
		if err != nil {
			return err
		}

		existing, err := s.repo.CountSlotsByDailySchedule(lockCtx, dailyScheduleID)
		if err != nil {
			return fmt.Errorf("count existing slots: %w", err)
		}
		if existing > 0 {
			return ErrSlotsAlreadyExist
		}

		breaks, err := s.repo.ListBreaksByDailySchedule(lockCtx, dailyScheduleID)
		if err != nil {
			return fmt.Errorf("load breaks: %w", err)
		}

		windowStart, windowEnd, err := workWindow(ds)
		if err != nil {
			return ErrInvalidTimeOfDay
		}

		candidates := partitionWindow(windowStart, windowEnd, time.Duration(durationMinutes)*time.Minute, breaks)
		for i := range candidates {
			candidates[i].DailyScheduleID = dailyScheduleID
		}

		generated, err = s.repo.CreateSlots(lockCtx, candidates)
		if err != nil {
			return fmt.Errorf("persist slots: %w", err)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	metrics.SlotsGenerated.Add(float64(len(generated)))

	s.log.Info().
		Str("daily_schedule_id", dailyScheduleID.String()).
		Int("duration_minutes", durationMinutes).
		Int("slots", len(generated)).
		Msg("slots generated")

	return generated, nil
}

// Slot reservation gate

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.repo.GetSlotByID(ctx, id)
}

func (s *Service) ListSlots(ctx context.Context, dailyScheduleID uuid.UUID) ([]Slot, error) {
	if _, err := s.repo.GetDailyScheduleByID(ctx, dailyScheduleID); err != nil {
		return nil, err
	}
	return s.repo.ListSlotsByDailySchedule(ctx, dailyScheduleID)
}

// SetSlotReserved flips a slot's reserved flag. Reserving a blocked
// slot is rejected; releasing also detaches the owning appointment
// back-reference.
func (s *Service) SetSlotReserved(ctx context.Context, slotID uuid.UUID, reserved bool) (*Slot, error) {
	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	if reserved && slot.IsBlocked {
		return nil, ErrSlotBlocked
	}

	slot.IsReserved = reserved
	if !reserved {
		slot.AppointmentID = nil
	}

	saved, err := s.repo.SaveSlot(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("save slot: %w", err)
	}
	return saved, nil
}

// SetSlotBlocked flips a slot's blocked flag. Blocking a reserved slot
// is rejected; unblocking detaches the causing break back-reference.
func (s *Service) SetSlotBlocked(ctx context.Context, slotID uuid.UUID, blocked bool, breakID *uuid.UUID) (*Slot, error) {
	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	if blocked && slot.IsReserved {
		return nil, ErrSlotReserved
	}

	slot.IsBlocked = blocked
	if blocked {
		if breakID != nil {
			if _, err := s.repo.GetBreakByID(ctx, *breakID); err != nil {
				return nil, err
			}
			slot.BreakID = breakID
		}
	} else {
		slot.BreakID = nil
	}

	saved, err := s.repo.SaveSlot(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("save slot: %w", err)
	}
	return saved, nil
}

func validateWorkHours(workStart, workEnd string) error {
	startMin, err := parseTimeOfDay(workStart)
	if err != nil {
		return ErrInvalidTimeOfDay
	}
	endMin, err := parseTimeOfDay(workEnd)
	if err != nil {
		return ErrInvalidTimeOfDay
	}
	if startMin >= endMin {
		return ErrInvalidWorkHours
	}
	return nil
}

func toUTCDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
