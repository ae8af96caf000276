package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

// fakeRepo is an in-memory Repository mirroring the transactional claim
// semantics of the Postgres implementation.
type fakeRepo struct {
	patients      map[uuid.UUID]*Patient
	professionals map[uuid.UUID]*Professional
	services      map[uuid.UUID]*ClinicService
	offerings     map[uuid.UUID]*ServiceOffering
	slots         map[uuid.UUID]*schedule.Slot
	appointments  map[uuid.UUID]*Appointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients:      map[uuid.UUID]*Patient{},
		professionals: map[uuid.UUID]*Professional{},
		services:      map[uuid.UUID]*ClinicService{},
		offerings:     map[uuid.UUID]*ServiceOffering{},
		slots:         map[uuid.UUID]*schedule.Slot{},
		appointments:  map[uuid.UUID]*Appointment{},
	}
}

func (r *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	out := *p
	return &out, nil
}

func (r *fakeRepo) GetProfessionalByID(_ context.Context, id uuid.UUID) (*Professional, error) {
	p, ok := r.professionals[id]
	if !ok {
		return nil, ErrProfessionalNotFound
	}
	out := *p
	return &out, nil
}

func (r *fakeRepo) GetServiceByID(_ context.Context, id uuid.UUID) (*ClinicService, error) {
	s, ok := r.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	out := *s
	return &out, nil
}

func (r *fakeRepo) ProfessionalOffersService(_ context.Context, professionalID, serviceID uuid.UUID) (bool, error) {
	for _, o := range r.offerings {
		if o.ProfessionalID == professionalID && o.ServiceID == serviceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) CreateServiceOffering(_ context.Context, professionalID, serviceID uuid.UUID) (*ServiceOffering, error) {
	o := &ServiceOffering{
		ID:             uuid.New(),
		ProfessionalID: professionalID,
		ServiceID:      serviceID,
		CreatedAt:      time.Now(),
	}
	r.offerings[o.ID] = o
	out := *o
	return &out, nil
}

func (r *fakeRepo) GetSlotByID(_ context.Context, id uuid.UUID) (*schedule.Slot, error) {
	s, ok := r.slots[id]
	if !ok {
		return nil, schedule.ErrSlotNotFound
	}
	out := *s
	return &out, nil
}

func (r *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (r *fakeRepo) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	a, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &AppointmentDetail{Appointment: *a}
	if p, ok := r.patients[a.PatientID]; ok {
		cp := *p
		detail.Patient = &cp
	}
	if p, ok := r.professionals[a.ProfessionalID]; ok {
		cp := *p
		detail.Professional = &cp
	}
	if s, ok := r.services[a.ServiceID]; ok {
		cp := *s
		detail.Service = &cp
	}
	if s, ok := r.slots[a.SlotID]; ok {
		cp := *s
		detail.Slot = &cp
	}
	return detail, nil
}

func (r *fakeRepo) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	var out []AppointmentDetail
	for id, a := range r.appointments {
		if a.PatientID != patientID {
			continue
		}
		d, err := r.GetAppointmentDetail(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) claimSlot(id uuid.UUID) (*schedule.Slot, error) {
	slot, ok := r.slots[id]
	if !ok {
		return nil, schedule.ErrSlotNotFound
	}
	if slot.IsBlocked {
		return nil, schedule.ErrSlotBlocked
	}
	if slot.IsReserved {
		return nil, ErrSlotAlreadyReserved
	}
	slot.IsReserved = true
	return slot, nil
}

func (r *fakeRepo) CreateAppointmentClaimingSlot(_ context.Context, a *Appointment) (*Appointment, error) {
	slot, err := r.claimSlot(a.SlotID)
	if err != nil {
		return nil, err
	}

	cp := *a
	cp.ID = uuid.New()
	cp.StartTime = slot.StartTime
	cp.EndTime = slot.EndTime
	r.appointments[cp.ID] = &cp
	slot.AppointmentID = &cp.ID

	out := cp
	return &out, nil
}

func (r *fakeRepo) ReassignAppointmentSlot(_ context.Context, a *Appointment, oldSlotID, newSlotID uuid.UUID) (*Appointment, error) {
	if old, ok := r.slots[oldSlotID]; ok {
		old.IsReserved = false
		old.AppointmentID = nil
	}

	slot, err := r.claimSlot(newSlotID)
	if err != nil {
		return nil, err
	}

	cp := *a
	cp.SlotID = newSlotID
	cp.StartTime = slot.StartTime
	cp.EndTime = slot.EndTime
	r.appointments[cp.ID] = &cp
	slot.AppointmentID = &cp.ID

	out := cp
	return &out, nil
}

func (r *fakeRepo) UpdateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	if _, ok := r.appointments[a.ID]; !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	r.appointments[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRepo) DeleteAppointmentReleasingSlot(_ context.Context, id uuid.UUID) error {
	a, ok := r.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	if slot, ok := r.slots[a.SlotID]; ok {
		slot.IsReserved = false
		slot.AppointmentID = nil
	}
	delete(r.appointments, id)
	return nil
}

type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passLocker) WithScheduleLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type failLocker struct{}

func (failLocker) WithSlotLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func (failLocker) WithScheduleLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type fixture struct {
	repo         *fakeRepo
	svc          *Service
	patient      *Patient
	professional *Professional
	service      *ClinicService
	slot         *schedule.Slot
	slot2        *schedule.Slot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRepo()

	patient := &Patient{ID: uuid.New(), FullName: "Ada Vance"}
	professional := &Professional{ID: uuid.New(), FullName: "Dr. Okafor"}
	service := &ClinicService{ID: uuid.New(), Name: "General Consultation"}
	repo.patients[patient.ID] = patient
	repo.professionals[professional.ID] = professional
	repo.services[service.ID] = service

	_, err := repo.CreateServiceOffering(context.Background(), professional.ID, service.ID)
	require.NoError(t, err)

	dailyScheduleID := uuid.New()
	slot := &schedule.Slot{
		ID:              uuid.New(),
		DailyScheduleID: dailyScheduleID,
		StartTime:       time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
	slot2 := &schedule.Slot{
		ID:              uuid.New(),
		DailyScheduleID: dailyScheduleID,
		StartTime:       time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		EndTime:         time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
	}
	repo.slots[slot.ID] = slot
	repo.slots[slot2.ID] = slot2

	return &fixture{
		repo:         repo,
		svc:          NewService(repo, passLocker{}, zerolog.Nop()),
		patient:      patient,
		professional: professional,
		service:      service,
		slot:         slot,
		slot2:        slot2,
	}
}

func (f *fixture) createInput() CreateAppointmentInput {
	return CreateAppointmentInput{
		PatientID:      f.patient.ID,
		ProfessionalID: f.professional.ID,
		ServiceID:      f.service.ID,
		SlotID:         f.slot.ID,
		Type:           "consultation",
	}
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)

	detail, err := f.svc.CreateAppointment(context.Background(), f.createInput())
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, detail.Status)
	assert.Equal(t, f.slot.StartTime, detail.StartTime)
	assert.Equal(t, f.slot.EndTime, detail.EndTime)
	require.NotNil(t, detail.Slot)
	assert.True(t, detail.Slot.IsReserved)
	require.NotNil(t, detail.Slot.AppointmentID)
	assert.Equal(t, detail.ID, *detail.Slot.AppointmentID)
	require.NotNil(t, detail.Patient)
	assert.Equal(t, f.patient.FullName, detail.Patient.FullName)
}

func TestCreateAppointmentMissingReferents(t *testing.T) {
	f := newFixture(t)

	in := f.createInput()
	in.PatientID = uuid.New()
	_, err := f.svc.CreateAppointment(context.Background(), in)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	in = f.createInput()
	in.ProfessionalID = uuid.New()
	_, err = f.svc.CreateAppointment(context.Background(), in)
	assert.ErrorIs(t, err, ErrProfessionalNotFound)

	in = f.createInput()
	in.ServiceID = uuid.New()
	_, err = f.svc.CreateAppointment(context.Background(), in)
	assert.ErrorIs(t, err, ErrServiceNotFound)

	in = f.createInput()
	in.SlotID = uuid.New()
	_, err = f.svc.CreateAppointment(context.Background(), in)
	assert.ErrorIs(t, err, schedule.ErrSlotNotFound)

	in = f.createInput()
	in.Type = ""
	_, err = f.svc.CreateAppointment(context.Background(), in)
	assert.ErrorIs(t, err, ErrTypeRequired)
}

func TestCreateAppointmentServiceNotOffered(t *testing.T) {
	f := newFixture(t)

	other := &ClinicService{ID: uuid.New(), Name: "Dermatology Exam"}
	f.repo.services[other.ID] = other

	in := f.createInput()
	in.ServiceID = other.ID
	_, err := f.svc.CreateAppointment(context.Background(), in)
	assert.ErrorIs(t, err, ErrServiceNotOffered)
}

func TestCreateAppointmentSlotTaken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAppointment(context.Background(), f.createInput())
	require.NoError(t, err)

	_, err = f.svc.CreateAppointment(context.Background(), f.createInput())
	assert.ErrorIs(t, err, ErrSlotAlreadyReserved)
}

func TestCreateAppointmentSlotBlocked(t *testing.T) {
	f := newFixture(t)
	f.slot.IsBlocked = true

	_, err := f.svc.CreateAppointment(context.Background(), f.createInput())
	assert.ErrorIs(t, err, schedule.ErrSlotBlocked)
}

func TestCreateAppointmentLockBusy(t *testing.T) {
	f := newFixture(t)
	busy := NewService(f.repo, failLocker{}, zerolog.Nop())

	_, err := busy.CreateAppointment(context.Background(), f.createInput())
	assert.ErrorIs(t, err, ErrSlotBeingBooked)
}

func TestUpdateAppointmentFields(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateAppointment(context.Background(), f.createInput())
	require.NoError(t, err)

	status := StatusConfirmed
	notes := "arrive 10 minutes early"
	updated, err := f.svc.UpdateAppointment(context.Background(), created.ID, AppointmentPatch{
		Status: &status,
		Notes:  &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, notes, *updated.Notes)

	// Slot binding is untouched by a field-only update.
	assert.Equal(t, created.SlotID, updated.SlotID)
}

func TestUpdateAppointmentUnknownStatus(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateAppointment(context.Background(), f.createInput())
	require.NoError(t, err)

	bogus := AppointmentStatus("rescheduled")
	_, err = f.svc.UpdateAppointment(context.Background(), created.ID, AppointmentPatch{Status: &bogus})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateAppointmentStatusAnyOrder(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateAppointment(context.Background(), f.createInput())
	require.NoError(t, err)

	// No transition table: completed back to scheduled is accepted.
	for _, status := range []AppointmentStatus{StatusCompleted, StatusScheduled, StatusNoShow, StatusCancelled} {
		s := status
		updated, err := f.svc.UpdateAppointment(context.Background(), created.ID, AppointmentPatch{Status: &s})
		require.NoError(t, err)
		assert.Equal(t, s, updated.Status)
	}
}

func TestUpdateAppointmentReassignSlot(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateAppointment(context.Background(), f.createInput())
	require.NoError(t, err)

	updated, err := f.svc.UpdateAppointment(context.Background(), created.ID, AppointmentPatch{SlotID: &f.slot2.ID})
	require.NoError(t, err)

	assert.Equal(t, f.slot2.ID, updated.SlotID)
	assert.Equal(t, f.slot2.StartTime, updated.StartTime)
	assert.Equal(t, f.slot2.EndTime, updated.EndTime)

	// Old slot is free again, new slot holds the back-reference.
	assert.False(t, f.repo.slots[f.slot.ID].IsReserved)
	assert.Nil(t, f.repo.slots[f.slot.ID].AppointmentID)
	assert.True(t, f.repo.slots[f.slot2.ID].IsReserved)
	require.NotNil(t, f.repo.slots[f.slot2.ID].AppointmentID)
	assert.Equal(t, created.ID, *f.repo.slots[f.slot2.ID].AppointmentID)
}

func TestUpdateAppointmentReassignToTakenSlot(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateAppointment(context.Background(), f.createInput())
	require.NoError(t, err)

	otherPatient := &Patient{ID: uuid.New(), FullName: "Finn Holt"}
	f.repo.patients[otherPatient.ID] = otherPatient

	in := f.createInput()
	in.PatientID = otherPatient.ID
	in.SlotID = f.slot2.ID
	_, err = f.svc.CreateAppointment(context.Background(), in)
	require.NoError(t, err)

	_, err = f.svc.UpdateAppointment(context.Background(), created.ID, AppointmentPatch{SlotID: &f.slot2.ID})
	assert.ErrorIs(t, err, ErrSlotAlreadyReserved)
}

func TestUpdateAppointmentOfferingRecheck(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateAppointment(context.Background(), f.createInput())
	require.NoError(t, err)

	// New professional does not offer the appointment's current service.
	other := &Professional{ID: uuid.New(), FullName: "Dr. Lindqvist"}
	f.repo.professionals[other.ID] = other

	_, err = f.svc.UpdateAppointment(context.Background(), created.ID, AppointmentPatch{ProfessionalID: &other.ID})
	assert.ErrorIs(t, err, ErrServiceNotOffered)
}

func TestDeleteAppointmentReleasesSlot(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateAppointment(context.Background(), f.createInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAppointment(context.Background(), created.ID))

	_, err = f.svc.GetAppointment(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	slot := f.repo.slots[f.slot.ID]
	assert.False(t, slot.IsReserved)
	assert.Nil(t, slot.AppointmentID)

	// The freed slot is immediately bookable again.
	_, err = f.svc.CreateAppointment(context.Background(), f.createInput())
	assert.NoError(t, err)
}

func TestDeleteAppointmentNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.DeleteAppointment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestListAppointmentsByPatient(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateAppointment(context.Background(), f.createInput())
	require.NoError(t, err)

	list, err := f.svc.ListAppointmentsByPatient(context.Background(), f.patient.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	_, err = f.svc.ListAppointmentsByPatient(context.Background(), uuid.New(), 0, 0)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestCreateServiceOffering(t *testing.T) {
	f := newFixture(t)

	other := &ClinicService{ID: uuid.New(), Name: "Eye Exam"}
	f.repo.services[other.ID] = other

	offering, err := f.svc.CreateServiceOffering(context.Background(), f.professional.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, f.professional.ID, offering.ProfessionalID)
	assert.Equal(t, other.ID, offering.ServiceID)

	_, err = f.svc.CreateServiceOffering(context.Background(), f.professional.ID, other.ID)
	assert.ErrorIs(t, err, ErrOfferingExists)

	_, err = f.svc.CreateServiceOffering(context.Background(), uuid.New(), other.ID)
	assert.ErrorIs(t, err, ErrProfessionalNotFound)

	_, err = f.svc.CreateServiceOffering(context.Background(), f.professional.ID, uuid.New())
	assert.ErrorIs(t, err, ErrServiceNotFound)
}
