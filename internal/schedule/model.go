package schedule

import (
	"time"

	"github.com/google/uuid"
)

// ProfessionalSchedule is the root agenda owned by one professional.
type ProfessionalSchedule struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	Name           *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DailySchedule is one professional's working-hours window for one
// calendar date. WorkStart/WorkEnd are "HH:MM" times of day; absolute
// instants are derived by anchoring them to UTC midnight of Date.
type DailySchedule struct {
	ID                     uuid.UUID
	ProfessionalScheduleID uuid.UUID
	Date                   time.Time
	WorkStart              string
	WorkEnd                string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Break is a sub-interval of a daily schedule during which no slot may
// be booked. Bounds are absolute instants, half-open [Start, End).
type Break struct {
	ID              uuid.UUID
	DailyScheduleID uuid.UUID
	StartTime       time.Time
	EndTime         time.Time
	Reason          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Slot is a fixed-duration bookable sub-interval of a daily schedule.
// Reserved and blocked are mutually exclusive states: a reserved slot
// belongs to exactly one appointment, a blocked slot is unavailable for
// other reasons (optionally tied to the break that caused it).
type Slot struct {
	ID              uuid.UUID
	DailyScheduleID uuid.UUID
	StartTime       time.Time
	EndTime         time.Time
	IsReserved      bool
	IsBlocked       bool
	AppointmentID   *uuid.UUID
	BreakID         *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsFree reports whether the slot can still be claimed by an appointment.
func (s *Slot) IsFree() bool {
	return !s.IsReserved && !s.IsBlocked
}
