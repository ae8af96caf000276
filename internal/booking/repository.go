package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrServiceNotFound      = errors.New("service not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrSlotAlreadyReserved  = errors.New("slot is already reserved")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetProfessionalByID(ctx context.Context, id uuid.UUID) (*Professional, error)
	GetServiceByID(ctx context.Context, id uuid.UUID) (*ClinicService, error)

	// ProfessionalOffersService is the membership test against the
	// professional/service association set.
	ProfessionalOffersService(ctx context.Context, professionalID, serviceID uuid.UUID) (bool, error)
	CreateServiceOffering(ctx context.Context, professionalID, serviceID uuid.UUID) (*ServiceOffering, error)

	GetSlotByID(ctx context.Context, id uuid.UUID) (*schedule.Slot, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)

	// CreateAppointmentClaimingSlot inserts the appointment and claims
	// its slot in one transaction. The claim is a conditional update
	// (reserved only if currently free); zero rows affected surfaces as
	// ErrSlotAlreadyReserved or schedule.ErrSlotBlocked.
	CreateAppointmentClaimingSlot(ctx context.Context, a *Appointment) (*Appointment, error)

	// ReassignAppointmentSlot releases the old slot, claims the new one
	// and rewrites the appointment (including the copied slot bounds) in
	// one transaction.
	ReassignAppointmentSlot(ctx context.Context, a *Appointment, oldSlotID, newSlotID uuid.UUID) (*Appointment, error)

	// UpdateAppointment rewrites the appointment's primitive fields and
	// referents without touching any slot.
	UpdateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)

	// DeleteAppointmentReleasingSlot removes the appointment and frees
	// its bound slot in one transaction.
	DeleteAppointmentReleasingSlot(ctx context.Context, id uuid.UUID) error
}
