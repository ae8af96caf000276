package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/metrics"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

var (
	ErrServiceNotOffered = errors.New("professional does not offer this service")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
	ErrTypeRequired      = errors.New("appointment type is required")
	ErrInvalidStatus     = errors.New("unknown appointment status")
	ErrOfferingExists    = errors.New("professional already offers this service")
)

// Service implements the appointment workflow. Slot claims go through a
// per-slot Redis lock plus a conditional update inside the repository
// transaction, so two concurrent requests for the same slot cannot both
// book it.
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

type CreateAppointmentInput struct {
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	SlotID         uuid.UUID
	Type           string
	Notes          *string
}

// CreateAppointment validates every referent, checks the professional
// offers the service, then claims the slot and inserts
// the appointment atomically. The appointment's bounds are copied from
// the slot; status defaults to scheduled.
func (s *Service) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*AppointmentDetail, error) {
	if in.Type == "" {
		return nil, ErrTypeRequired
	}

	if _, err := s.repo.GetPatientByID(ctx, in.PatientID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetProfessionalByID(ctx, in.ProfessionalID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetServiceByID(ctx, in.ServiceID); err != nil {
		return nil, err
	}

	offers, err := s.repo.ProfessionalOffersService(ctx, in.ProfessionalID, in.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("check service offering: %w", err)
	}
	if !offers {
		return nil, ErrServiceNotOffered
	}

	slot, err := s.repo.GetSlotByID(ctx, in.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.IsReserved {
		metrics.BookingConflicts.Inc()
		return nil, ErrSlotAlreadyReserved
	}
	if slot.IsBlocked {
		return nil, schedule.ErrSlotBlocked
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, in.SlotID, func(lockCtx context.Context) error {
		appt, err := s.repo.CreateAppointmentClaimingSlot(lockCtx, &Appointment{
			PatientID:      in.PatientID,
			ProfessionalID: in.ProfessionalID,
			ServiceID:      in.ServiceID,
			SlotID:         in.SlotID,
			Type:           in.Type,
			Status:         StatusScheduled,
			Notes:          in.Notes,
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		if errors.Is(err, ErrSlotAlreadyReserved) {
			metrics.BookingConflicts.Inc()
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("slot_id", in.SlotID.String()).
		Str("patient_id", in.PatientID.String()).
		Msg("appointment created")

	return s.repo.GetAppointmentDetail(ctx, created.ID)
}

type AppointmentPatch struct {
	PatientID      *uuid.UUID
	ProfessionalID *uuid.UUID
	ServiceID      *uuid.UUID
	SlotID         *uuid.UUID
	Type           *string
	Status         *AppointmentStatus
	Notes          *string
}

// UpdateAppointment applies a partial update. Referent changes are
// re-validated; a professional or service change re-runs the offering
// check with the merged pair; a slot change releases the old slot and
// claims the new one, copying the new bounds. Status accepts any of the
// five known values, with no transition table.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (*AppointmentDetail, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.PatientID != nil && *patch.PatientID != appt.PatientID {
		if _, err := s.repo.GetPatientByID(ctx, *patch.PatientID); err != nil {
			return nil, err
		}
		appt.PatientID = *patch.PatientID
	}

	professionalChanged := patch.ProfessionalID != nil && *patch.ProfessionalID != appt.ProfessionalID
	if professionalChanged {
		if _, err := s.repo.GetProfessionalByID(ctx, *patch.ProfessionalID); err != nil {
			return nil, err
		}
		appt.ProfessionalID = *patch.ProfessionalID
	}

	serviceChanged := patch.ServiceID != nil && *patch.ServiceID != appt.ServiceID
	if serviceChanged {
		if _, err := s.repo.GetServiceByID(ctx, *patch.ServiceID); err != nil {
			return nil, err
		}
		appt.ServiceID = *patch.ServiceID
	}

	if professionalChanged || serviceChanged {
		offers, err := s.repo.ProfessionalOffersService(ctx, appt.ProfessionalID, appt.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("check service offering: %w", err)
		}
		if !offers {
			return nil, ErrServiceNotOffered
		}
	}

	if patch.Type != nil {
		if *patch.Type == "" {
			return nil, ErrTypeRequired
		}
		appt.Type = *patch.Type
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		appt.Status = *patch.Status
	}
	if patch.Notes != nil {
		appt.Notes = patch.Notes
	}

	if patch.SlotID != nil && *patch.SlotID != appt.SlotID {
		newSlot, err := s.repo.GetSlotByID(ctx, *patch.SlotID)
		if err != nil {
			return nil, err
		}
		if newSlot.IsReserved && (newSlot.AppointmentID == nil || *newSlot.AppointmentID != id) {
			return nil, ErrSlotAlreadyReserved
		}
		if newSlot.IsBlocked {
			return nil, schedule.ErrSlotBlocked
		}

		oldSlotID := appt.SlotID
		var updated *Appointment

		err = s.locker.WithSlotLock(ctx, newSlot.ID, func(lockCtx context.Context) error {
			a, err := s.repo.ReassignAppointmentSlot(lockCtx, appt, oldSlotID, newSlot.ID)
			if err != nil {
				return err
			}
			updated = a
			return nil
		})
		if err != nil {
			if errors.Is(err, redisclient.ErrLockNotAcquired) {
				return nil, ErrSlotBeingBooked
			}
			return nil, err
		}

		s.log.Info().
			Str("appointment_id", id.String()).
			Str("old_slot_id", oldSlotID.String()).
			Str("new_slot_id", newSlot.ID.String()).
			Msg("appointment slot reassigned")

		return s.repo.GetAppointmentDetail(ctx, updated.ID)
	}

	updated, err := s.repo.UpdateAppointment(ctx, appt)
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	return s.repo.GetAppointmentDetail(ctx, updated.ID)
}

// DeleteAppointment removes an appointment and releases its slot back
// to free.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteAppointmentReleasingSlot(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("appointment_id", id.String()).Msg("appointment deleted")
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	return s.repo.GetAppointmentDetail(ctx, id)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	return s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
}

// CreateServiceOffering registers that a professional offers a service.
func (s *Service) CreateServiceOffering(ctx context.Context, professionalID, serviceID uuid.UUID) (*ServiceOffering, error) {
	if _, err := s.repo.GetProfessionalByID(ctx, professionalID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetServiceByID(ctx, serviceID); err != nil {
		return nil, err
	}

	offers, err := s.repo.ProfessionalOffersService(ctx, professionalID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("check service offering: %w", err)
	}
	if offers {
		return nil, ErrOfferingExists
	}

	return s.repo.CreateServiceOffering(ctx, professionalID, serviceID)
}
