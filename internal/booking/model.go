package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Valid reports whether s is one of the five known statuses. The status
// field is deliberately a free-form enum: any known value may be set at
// any time, there is no enforced transition table.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

type Patient struct {
	ID        uuid.UUID
	FullName  string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Professional struct {
	ID        uuid.UUID
	FullName  string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClinicService is a bookable medical service from the clinic catalog.
type ClinicService struct {
	ID          uuid.UUID
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ServiceOffering associates a professional with a service they offer.
// Appointment creation is gated on this association existing.
type ServiceOffering struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	CreatedAt      time.Time
}

// Appointment binds a patient, a professional, a service and exactly one
// slot. Start/end are copied from the bound slot at creation and again
// on every slot reassignment.
type Appointment struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	SlotID         uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	Type           string
	Status         AppointmentStatus
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type AppointmentDetail struct {
	Appointment
	Patient      *Patient
	Professional *Professional
	Service      *ClinicService
	Slot         *schedule.Slot
}
