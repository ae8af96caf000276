package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/booking"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

const dateLayout = "2006-01-02"

type CreateProfessionalScheduleRequest struct {
	ProfessionalID string  `json:"professional_id"`
	Name           *string `json:"name,omitempty"`
}

type ProfessionalScheduleResponse struct {
	ID             uuid.UUID `json:"id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	Name           *string   `json:"name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toProfessionalScheduleResponse(ps *schedule.ProfessionalSchedule) ProfessionalScheduleResponse {
	return ProfessionalScheduleResponse{
		ID:             ps.ID,
		ProfessionalID: ps.ProfessionalID,
		Name:           ps.Name,
		CreatedAt:      ps.CreatedAt,
		UpdatedAt:      ps.UpdatedAt,
	}
}

type CreateDailyScheduleRequest struct {
	ProfessionalScheduleID string `json:"professional_schedule_id"`
	Date                   string `json:"date"`
	WorkStart              string `json:"work_start"`
	WorkEnd                string `json:"work_end"`
}

type UpdateDailyScheduleRequest struct {
	ProfessionalScheduleID *string `json:"professional_schedule_id,omitempty"`
	Date                   *string `json:"date,omitempty"`
	WorkStart              *string `json:"work_start,omitempty"`
	WorkEnd                *string `json:"work_end,omitempty"`
}

type DailyScheduleResponse struct {
	ID                     uuid.UUID `json:"id"`
	ProfessionalScheduleID uuid.UUID `json:"professional_schedule_id"`
	Date                   string    `json:"date"`
	WorkStart              string    `json:"work_start"`
	WorkEnd                string    `json:"work_end"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func toDailyScheduleResponse(ds *schedule.DailySchedule) DailyScheduleResponse {
	return DailyScheduleResponse{
		ID:                     ds.ID,
		ProfessionalScheduleID: ds.ProfessionalScheduleID,
		Date:                   ds.Date.Format(dateLayout),
		WorkStart:              ds.WorkStart,
		WorkEnd:                ds.WorkEnd,
		CreatedAt:              ds.CreatedAt,
		UpdatedAt:              ds.UpdatedAt,
	}
}

type CreateBreakRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Reason    string    `json:"reason"`
}

type UpdateBreakRequest struct {
	DailyScheduleID *string    `json:"daily_schedule_id,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Reason          *string    `json:"reason,omitempty"`
}

type BreakResponse struct {
	ID              uuid.UUID `json:"id"`
	DailyScheduleID uuid.UUID `json:"daily_schedule_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Reason          string    `json:"reason"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toBreakResponse(b *schedule.Break) BreakResponse {
	return BreakResponse{
		ID:              b.ID,
		DailyScheduleID: b.DailyScheduleID,
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		Reason:          b.Reason,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type GenerateSlotsRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

type UpdateSlotRequest struct {
	IsReserved *bool   `json:"is_reserved,omitempty"`
	IsBlocked  *bool   `json:"is_blocked,omitempty"`
	BreakID    *string `json:"break_id,omitempty"`
}

type SlotResponse struct {
	ID              uuid.UUID  `json:"id"`
	DailyScheduleID uuid.UUID  `json:"daily_schedule_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	IsReserved      bool       `json:"is_reserved"`
	IsBlocked       bool       `json:"is_blocked"`
	AppointmentID   *uuid.UUID `json:"appointment_id,omitempty"`
	BreakID         *uuid.UUID `json:"break_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toSlotResponse(s *schedule.Slot) SlotResponse {
	return SlotResponse{
		ID:              s.ID,
		DailyScheduleID: s.DailyScheduleID,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		IsReserved:      s.IsReserved,
		IsBlocked:       s.IsBlocked,
		AppointmentID:   s.AppointmentID,
		BreakID:         s.BreakID,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func toSlotResponses(slots []schedule.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, toSlotResponse(&slots[i]))
	}
	return out
}

type CreateAppointmentRequest struct {
	PatientID      string  `json:"patient_id"`
	ProfessionalID string  `json:"professional_id"`
	ServiceID      string  `json:"service_id"`
	SlotID         string  `json:"slot_id"`
	Type           string  `json:"type"`
	Notes          *string `json:"notes,omitempty"`
}

type UpdateAppointmentRequest struct {
	PatientID      *string `json:"patient_id,omitempty"`
	ProfessionalID *string `json:"professional_id,omitempty"`
	ServiceID      *string `json:"service_id,omitempty"`
	SlotID         *string `json:"slot_id,omitempty"`
	Type           *string `json:"type,omitempty"`
	Status         *string `json:"status,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

type PatientResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    *string   `json:"email,omitempty"`
}

type ProfessionalResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Specialty *string   `json:"specialty,omitempty"`
}

type ServiceResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID             `json:"id"`
	PatientID      uuid.UUID             `json:"patient_id"`
	ProfessionalID uuid.UUID             `json:"professional_id"`
	ServiceID      uuid.UUID             `json:"service_id"`
	SlotID         uuid.UUID             `json:"slot_id"`
	StartTime      time.Time             `json:"start_time"`
	EndTime        time.Time             `json:"end_time"`
	Type           string                `json:"type"`
	Status         string                `json:"status"`
	Notes          *string               `json:"notes,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Patient        *PatientResponse      `json:"patient,omitempty"`
	Professional   *ProfessionalResponse `json:"professional,omitempty"`
	Service        *ServiceResponse      `json:"service,omitempty"`
	Slot           *SlotResponse         `json:"slot,omitempty"`
}

func toAppointmentResponse(d *booking.AppointmentDetail) AppointmentResponse {
	resp := AppointmentResponse{
		ID:             d.ID,
		PatientID:      d.PatientID,
		ProfessionalID: d.ProfessionalID,
		ServiceID:      d.ServiceID,
		SlotID:         d.SlotID,
		StartTime:      d.StartTime,
		EndTime:        d.EndTime,
		Type:           d.Type,
		Status:         string(d.Status),
		Notes:          d.Notes,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.Patient != nil {
		resp.Patient = &PatientResponse{ID: d.Patient.ID, FullName: d.Patient.FullName, Email: d.Patient.Email}
	}
	if d.Professional != nil {
		resp.Professional = &ProfessionalResponse{ID: d.Professional.ID, FullName: d.Professional.FullName, Specialty: d.Professional.Specialty}
	}
	if d.Service != nil {
		resp.Service = &ServiceResponse{ID: d.Service.ID, Name: d.Service.Name, Description: d.Service.Description}
	}
	if d.Slot != nil {
		slot := toSlotResponse(d.Slot)
		resp.Slot = &slot
	}
	return resp
}

type CreateServiceOfferingRequest struct {
	ProfessionalID string `json:"professional_id"`
	ServiceID      string `json:"service_id"`
}

type ServiceOfferingResponse struct {
	ID             uuid.UUID `json:"id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	ServiceID      uuid.UUID `json:"service_id"`
	CreatedAt      time.Time `json:"created_at"`
}
