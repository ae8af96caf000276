package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProfessionalScheduleNotFound = errors.New("professional schedule not found")
	ErrDailyScheduleNotFound        = errors.New("daily schedule not found")
	ErrBreakNotFound                = errors.New("break not found")
	ErrSlotNotFound                 = errors.New("slot not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreateProfessionalSchedule(ctx context.Context, ps *ProfessionalSchedule) (*ProfessionalSchedule, error)
	GetProfessionalScheduleByID(ctx context.Context, id uuid.UUID) (*ProfessionalSchedule, error)

	CreateDailySchedule(ctx context.Context, ds *DailySchedule) (*DailySchedule, error)
	UpdateDailySchedule(ctx context.Context, ds *DailySchedule) (*DailySchedule, error)
	GetDailyScheduleByID(ctx context.Context, id uuid.UUID) (*DailySchedule, error)
	// GetDailyScheduleByDay looks up the unique schedule for one
	// (professional schedule, date) combination.
	GetDailyScheduleByDay(ctx context.Context, scheduleID uuid.UUID, date time.Time) (*DailySchedule, error)
	ListDailySchedulesBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]DailySchedule, error)

	CreateBreak(ctx context.Context, b *Break) (*Break, error)
	UpdateBreak(ctx context.Context, b *Break) (*Break, error)
	GetBreakByID(ctx context.Context, id uuid.UUID) (*Break, error)
	ListBreaksByDailySchedule(ctx context.Context, dailyScheduleID uuid.UUID) ([]Break, error)

	CreateSlots(ctx context.Context, slots []Slot) ([]Slot, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListSlotsByDailySchedule(ctx context.Context, dailyScheduleID uuid.UUID) ([]Slot, error)
	CountSlotsByDailySchedule(ctx context.Context, dailyScheduleID uuid.UUID) (int, error)

	// SaveSlot is the single write path for slot state: the reservation
	// gate and the booking workflow both go through it, so there is no
	// divergent flag-update logic.
	SaveSlot(ctx context.Context, s *Slot) (*Slot, error)
}
