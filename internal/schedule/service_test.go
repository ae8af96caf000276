package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	professionalSchedules map[uuid.UUID]*ProfessionalSchedule
	dailySchedules        map[uuid.UUID]*DailySchedule
	breaks                map[uuid.UUID]*Break
	slots                 map[uuid.UUID]*Slot
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		professionalSchedules: map[uuid.UUID]*ProfessionalSchedule{},
		dailySchedules:        map[uuid.UUID]*DailySchedule{},
		breaks:                map[uuid.UUID]*Break{},
		slots:                 map[uuid.UUID]*Slot{},
	}
}

func (r *fakeRepo) CreateProfessionalSchedule(_ context.Context, ps *ProfessionalSchedule) (*ProfessionalSchedule, error) {
	cp := *ps
	cp.ID = uuid.New()
	r.professionalSchedules[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRepo) GetProfessionalScheduleByID(_ context.Context, id uuid.UUID) (*ProfessionalSchedule, error) {
	ps, ok := r.professionalSchedules[id]
	if !ok {
		return nil, ErrProfessionalScheduleNotFound
	}
	out := *ps
	return &out, nil
}

func (r *fakeRepo) CreateDailySchedule(_ context.Context, ds *DailySchedule) (*DailySchedule, error) {
	cp := *ds
	cp.ID = uuid.New()
	r.dailySchedules[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRepo) UpdateDailySchedule(_ context.Context, ds *DailySchedule) (*DailySchedule, error) {
	if _, ok := r.dailySchedules[ds.ID]; !ok {
		return nil, ErrDailyScheduleNotFound
	}
	cp := *ds
	r.dailySchedules[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRepo) GetDailyScheduleByID(_ context.Context, id uuid.UUID) (*DailySchedule, error) {
	ds, ok := r.dailySchedules[id]
	if !ok {
		return nil, ErrDailyScheduleNotFound
	}
	out := *ds
	return &out, nil
}

func (r *fakeRepo) GetDailyScheduleByDay(_ context.Context, scheduleID uuid.UUID, date time.Time) (*DailySchedule, error) {
	for _, ds := range r.dailySchedules {
		if ds.ProfessionalScheduleID == scheduleID && ds.Date.Equal(date) {
			out := *ds
			return &out, nil
		}
	}
	return nil, ErrDailyScheduleNotFound
}

func (r *fakeRepo) ListDailySchedulesBySchedule(_ context.Context, scheduleID uuid.UUID) ([]DailySchedule, error) {
	var out []DailySchedule
	for _, ds := range r.dailySchedules {
		if ds.ProfessionalScheduleID == scheduleID {
			out = append(out, *ds)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateBreak(_ context.Context, b *Break) (*Break, error) {
	cp := *b
	cp.ID = uuid.New()
	r.breaks[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRepo) UpdateBreak(_ context.Context, b *Break) (*Break, error) {
	if _, ok := r.breaks[b.ID]; !ok {
		return nil, ErrBreakNotFound
	}
	cp := *b
	r.breaks[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRepo) GetBreakByID(_ context.Context, id uuid.UUID) (*Break, error) {
	b, ok := r.breaks[id]
	if !ok {
		return nil, ErrBreakNotFound
	}
	out := *b
	return &out, nil
}

func (r *fakeRepo) ListBreaksByDailySchedule(_ context.Context, dailyScheduleID uuid.UUID) ([]Break, error) {
	var out []Break
	for _, b := range r.breaks {
		if b.DailyScheduleID == dailyScheduleID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateSlots(_ context.Context, slots []Slot) ([]Slot, error) {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		cp := s
		cp.ID = uuid.New()
		r.slots[cp.ID] = &cp
		out = append(out, cp)
	}
	return out, nil
}

func (r *fakeRepo) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	out := *s
	return &out, nil
}

func (r *fakeRepo) ListSlotsByDailySchedule(_ context.Context, dailyScheduleID uuid.UUID) ([]Slot, error) {
	var out []Slot
	for _, s := range r.slots {
		if s.DailyScheduleID == dailyScheduleID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeRepo) CountSlotsByDailySchedule(_ context.Context, dailyScheduleID uuid.UUID) (int, error) {
	n := 0
	for _, s := range r.slots {
		if s.DailyScheduleID == dailyScheduleID {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) SaveSlot(_ context.Context, s *Slot) (*Slot, error) {
	if _, ok := r.slots[s.ID]; !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	r.slots[cp.ID] = &cp
	out := cp
	return &out, nil
}

// passLocker runs the critical section inline without any Redis.
type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passLocker) WithScheduleLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// failLocker simulates a lost lock race.
type failLocker struct{}

func (failLocker) WithSlotLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func (failLocker) WithScheduleLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, passLocker{}, zerolog.Nop())
}

func mustProfessionalSchedule(t *testing.T, svc *Service) *ProfessionalSchedule {
	t.Helper()
	ps, err := svc.CreateProfessionalSchedule(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	return ps
}

func mustDailySchedule(t *testing.T, svc *Service, scheduleID uuid.UUID, workStart, workEnd string) *DailySchedule {
	t.Helper()
	ds, err := svc.CreateDailySchedule(context.Background(),
		scheduleID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), workStart, workEnd)
	require.NoError(t, err)
	return ds
}

func TestCreateDailySchedule(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)

	ds, err := svc.CreateDailySchedule(context.Background(),
		ps.ID, time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC), "09:00", "17:00")
	require.NoError(t, err)

	// Date is normalized to UTC midnight regardless of the input clock.
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), ds.Date)
	assert.Equal(t, "09:00", ds.WorkStart)
	assert.Equal(t, "17:00", ds.WorkEnd)
}

func TestCreateDailyScheduleValidation(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateDailySchedule(context.Background(), uuid.New(), date, "09:00", "17:00")
	assert.ErrorIs(t, err, ErrProfessionalScheduleNotFound)

	_, err = svc.CreateDailySchedule(context.Background(), ps.ID, date, "bogus", "17:00")
	assert.ErrorIs(t, err, ErrInvalidTimeOfDay)

	_, err = svc.CreateDailySchedule(context.Background(), ps.ID, date, "17:00", "09:00")
	assert.ErrorIs(t, err, ErrInvalidWorkHours)

	_, err = svc.CreateDailySchedule(context.Background(), ps.ID, date, "09:00", "09:00")
	assert.ErrorIs(t, err, ErrInvalidWorkHours)
}

func TestCreateDailyScheduleDuplicateDay(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	mustDailySchedule(t, svc, ps.ID, "09:00", "17:00")

	_, err := svc.CreateDailySchedule(context.Background(),
		ps.ID, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), "10:00", "16:00")
	assert.ErrorIs(t, err, ErrDayAlreadyScheduled)

	// A different date is fine.
	_, err = svc.CreateDailySchedule(context.Background(),
		ps.ID, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), "09:00", "17:00")
	assert.NoError(t, err)
}

func TestUpdateDailySchedule(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "17:00")

	workStart := "10:00"
	updated, err := svc.UpdateDailySchedule(context.Background(), ds.ID, DailySchedulePatch{WorkStart: &workStart})
	require.NoError(t, err)
	assert.Equal(t, "10:00", updated.WorkStart)
	assert.Equal(t, "17:00", updated.WorkEnd)

	// Merged validation: moving only the end below the current start fails.
	workEnd := "09:30"
	_, err = svc.UpdateDailySchedule(context.Background(), ds.ID, DailySchedulePatch{WorkEnd: &workEnd})
	assert.ErrorIs(t, err, ErrInvalidWorkHours)

	// Re-saving the same date does not trip the uniqueness check on itself.
	sameDay := ds.Date
	_, err = svc.UpdateDailySchedule(context.Background(), ds.ID, DailySchedulePatch{Date: &sameDay})
	assert.NoError(t, err)
}

func TestUpdateDailyScheduleDuplicateDay(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	mustDailySchedule(t, svc, ps.ID, "09:00", "17:00")

	other, err := svc.CreateDailySchedule(context.Background(),
		ps.ID, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), "09:00", "17:00")
	require.NoError(t, err)

	conflictDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err = svc.UpdateDailySchedule(context.Background(), other.ID, DailySchedulePatch{Date: &conflictDate})
	assert.ErrorIs(t, err, ErrDayAlreadyScheduled)
}

func TestCreateBreak(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "17:00")

	b, err := svc.CreateBreak(context.Background(), ds.ID,
		time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC),
		"lunch")
	require.NoError(t, err)
	assert.Equal(t, ds.ID, b.DailyScheduleID)
	assert.Equal(t, "lunch", b.Reason)
}

func TestCreateBreakValidation(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "17:00")

	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
	}

	_, err := svc.CreateBreak(context.Background(), ds.ID, at(12, 0), at(13, 0), "")
	assert.ErrorIs(t, err, ErrBreakReasonRequired)

	_, err = svc.CreateBreak(context.Background(), uuid.New(), at(12, 0), at(13, 0), "lunch")
	assert.ErrorIs(t, err, ErrDailyScheduleNotFound)

	_, err = svc.CreateBreak(context.Background(), ds.ID, at(13, 0), at(12, 0), "lunch")
	assert.ErrorIs(t, err, ErrInvalidBreakRange)

	_, err = svc.CreateBreak(context.Background(), ds.ID, at(12, 0), at(12, 0), "lunch")
	assert.ErrorIs(t, err, ErrInvalidBreakRange)

	_, err = svc.CreateBreak(context.Background(), ds.ID, at(8, 0), at(9, 30), "early")
	assert.ErrorIs(t, err, ErrBreakOutsideWindow)

	_, err = svc.CreateBreak(context.Background(), ds.ID, at(16, 30), at(17, 30), "late")
	assert.ErrorIs(t, err, ErrBreakOutsideWindow)

	// Exactly the work window is allowed.
	_, err = svc.CreateBreak(context.Background(), ds.ID, at(9, 0), at(17, 0), "full day off")
	assert.NoError(t, err)
}

func TestCreateBreakOverlap(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "17:00")

	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
	}

	_, err := svc.CreateBreak(context.Background(), ds.ID, at(12, 0), at(13, 0), "lunch")
	require.NoError(t, err)

	_, err = svc.CreateBreak(context.Background(), ds.ID, at(12, 30), at(13, 30), "meeting")
	assert.ErrorIs(t, err, ErrBreakOverlap)

	// Touching the existing break is allowed.
	_, err = svc.CreateBreak(context.Background(), ds.ID, at(13, 0), at(13, 30), "meeting")
	assert.NoError(t, err)
}

func TestUpdateBreakExcludesItselfFromOverlap(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "17:00")

	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
	}

	b, err := svc.CreateBreak(context.Background(), ds.ID, at(12, 0), at(13, 0), "lunch")
	require.NoError(t, err)

	// Shrinking the break within its own previous bounds must not
	// conflict with itself.
	newEnd := at(12, 30)
	updated, err := svc.UpdateBreak(context.Background(), b.ID, BreakPatch{EndTime: &newEnd})
	require.NoError(t, err)
	assert.Equal(t, newEnd, updated.EndTime)
}

func TestBreakMutationLockBusy(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "17:00")

	busy := NewService(repo, failLocker{}, zerolog.Nop())

	_, err := busy.CreateBreak(context.Background(), ds.ID,
		time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC),
		"lunch")
	assert.ErrorIs(t, err, ErrScheduleBusy)

	_, err = busy.GenerateSlots(context.Background(), ds.ID, 30)
	assert.ErrorIs(t, err, ErrScheduleBusy)
}

func TestGenerateSlots(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "17:00")

	_, err := svc.CreateBreak(context.Background(), ds.ID,
		time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC),
		"lunch")
	require.NoError(t, err)

	slots, err := svc.GenerateSlots(context.Background(), ds.ID, 30)
	require.NoError(t, err)
	assert.Len(t, slots, 14)

	for _, s := range slots {
		assert.Equal(t, ds.ID, s.DailyScheduleID)
		assert.True(t, s.IsFree())
	}
}

func TestGenerateSlotsValidation(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "17:00")

	_, err := svc.GenerateSlots(context.Background(), ds.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidSlotDuration)

	_, err = svc.GenerateSlots(context.Background(), ds.ID, 241)
	assert.ErrorIs(t, err, ErrInvalidSlotDuration)

	_, err = svc.GenerateSlots(context.Background(), uuid.New(), 30)
	assert.ErrorIs(t, err, ErrDailyScheduleNotFound)
}

func TestGenerateSlotsTwiceConflicts(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "17:00")

	_, err := svc.GenerateSlots(context.Background(), ds.ID, 30)
	require.NoError(t, err)

	_, err = svc.GenerateSlots(context.Background(), ds.ID, 30)
	assert.ErrorIs(t, err, ErrSlotsAlreadyExist)
}

func TestSlotReservationGate(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "10:00")

	slots, err := svc.GenerateSlots(context.Background(), ds.ID, 30)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	slotID := slots[0].ID

	reserved, err := svc.SetSlotReserved(context.Background(), slotID, true)
	require.NoError(t, err)
	assert.True(t, reserved.IsReserved)

	// A reserved slot cannot be blocked.
	_, err = svc.SetSlotBlocked(context.Background(), slotID, true, nil)
	assert.ErrorIs(t, err, ErrSlotReserved)

	released, err := svc.SetSlotReserved(context.Background(), slotID, false)
	require.NoError(t, err)
	assert.False(t, released.IsReserved)
	assert.Nil(t, released.AppointmentID)

	blocked, err := svc.SetSlotBlocked(context.Background(), slotID, true, nil)
	require.NoError(t, err)
	assert.True(t, blocked.IsBlocked)

	// A blocked slot cannot be reserved.
	_, err = svc.SetSlotReserved(context.Background(), slotID, true)
	assert.ErrorIs(t, err, ErrSlotBlocked)

	unblocked, err := svc.SetSlotBlocked(context.Background(), slotID, false, nil)
	require.NoError(t, err)
	assert.False(t, unblocked.IsBlocked)
	assert.Nil(t, unblocked.BreakID)
}

func TestSetSlotBlockedWithBreak(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "10:00")

	slots, err := svc.GenerateSlots(context.Background(), ds.ID, 30)
	require.NoError(t, err)
	slotID := slots[0].ID

	unknown := uuid.New()
	_, err = svc.SetSlotBlocked(context.Background(), slotID, true, &unknown)
	assert.ErrorIs(t, err, ErrBreakNotFound)

	b, err := svc.CreateBreak(context.Background(), ds.ID,
		time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		"emergency")
	require.NoError(t, err)

	blocked, err := svc.SetSlotBlocked(context.Background(), slotID, true, &b.ID)
	require.NoError(t, err)
	require.NotNil(t, blocked.BreakID)
	assert.Equal(t, b.ID, *blocked.BreakID)
}

func TestReleaseDetachesAppointment(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ps := mustProfessionalSchedule(t, svc)
	ds := mustDailySchedule(t, svc, ps.ID, "09:00", "10:00")

	slots, err := svc.GenerateSlots(context.Background(), ds.ID, 30)
	require.NoError(t, err)
	slotID := slots[0].ID

	apptID := uuid.New()
	slot := repo.slots[slotID]
	slot.IsReserved = true
	slot.AppointmentID = &apptID

	released, err := svc.SetSlotReserved(context.Background(), slotID, false)
	require.NoError(t, err)
	assert.False(t, released.IsReserved)
	assert.Nil(t, released.AppointmentID)
}
