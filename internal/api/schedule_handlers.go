package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func createProfessionalScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProfessionalScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		professionalID, err := uuid.Parse(req.ProfessionalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}

		ps, err := svc.CreateProfessionalSchedule(r.Context(), professionalID, req.Name)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toProfessionalScheduleResponse(ps))
	}
}

func getProfessionalScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "id must be a valid UUID")
			return
		}

		ps, err := svc.GetProfessionalSchedule(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toProfessionalScheduleResponse(ps))
	}
}

func listDailySchedulesHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "id must be a valid UUID")
			return
		}

		days, err := svc.ListDailySchedules(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]DailyScheduleResponse, 0, len(days))
		for i := range days {
			resp = append(resp, toDailyScheduleResponse(&days[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createDailyScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDailyScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		scheduleID, err := uuid.Parse(req.ProfessionalScheduleID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "professional_schedule_id must be a valid UUID")
			return
		}

		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted as YYYY-MM-DD")
			return
		}

		ds, err := svc.CreateDailySchedule(r.Context(), scheduleID, date, req.WorkStart, req.WorkEnd)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toDailyScheduleResponse(ds))
	}
}

func getDailyScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_daily_schedule_id", "id must be a valid UUID")
			return
		}

		ds, err := svc.GetDailySchedule(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDailyScheduleResponse(ds))
	}
}

func updateDailyScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_daily_schedule_id", "id must be a valid UUID")
			return
		}

		var req UpdateDailyScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var patch schedule.DailySchedulePatch
		if req.ProfessionalScheduleID != nil {
			scheduleID, err := uuid.Parse(*req.ProfessionalScheduleID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_schedule_id", "professional_schedule_id must be a valid UUID")
				return
			}
			patch.ProfessionalScheduleID = &scheduleID
		}
		if req.Date != nil {
			date, err := time.Parse(dateLayout, *req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted as YYYY-MM-DD")
				return
			}
			patch.Date = &date
		}
		patch.WorkStart = req.WorkStart
		patch.WorkEnd = req.WorkEnd

		ds, err := svc.UpdateDailySchedule(r.Context(), id, patch)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDailyScheduleResponse(ds))
	}
}

func createBreakHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dailyScheduleID, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_daily_schedule_id", "id must be a valid UUID")
			return
		}

		var req CreateBreakRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := svc.CreateBreak(r.Context(), dailyScheduleID, req.StartTime, req.EndTime, req.Reason)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBreakResponse(b))
	}
}

func listBreaksHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dailyScheduleID, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_daily_schedule_id", "id must be a valid UUID")
			return
		}

		breaks, err := svc.ListBreaks(r.Context(), dailyScheduleID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]BreakResponse, 0, len(breaks))
		for i := range breaks {
			resp = append(resp, toBreakResponse(&breaks[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getBreakHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_break_id", "id must be a valid UUID")
			return
		}

		b, err := svc.GetBreak(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBreakResponse(b))
	}
}

func updateBreakHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_break_id", "id must be a valid UUID")
			return
		}

		var req UpdateBreakRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patch := schedule.BreakPatch{
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Reason:    req.Reason,
		}
		if req.DailyScheduleID != nil {
			scheduleID, err := uuid.Parse(*req.DailyScheduleID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_daily_schedule_id", "daily_schedule_id must be a valid UUID")
				return
			}
			patch.DailyScheduleID = &scheduleID
		}

		b, err := svc.UpdateBreak(r.Context(), id, patch)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBreakResponse(b))
	}
}

func generateSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dailyScheduleID, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_daily_schedule_id", "id must be a valid UUID")
			return
		}

		var req GenerateSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slots, err := svc.GenerateSlots(r.Context(), dailyScheduleID, req.DurationMinutes)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSlotResponses(slots))
	}
}

func listSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dailyScheduleID, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_daily_schedule_id", "id must be a valid UUID")
			return
		}

		slots, err := svc.ListSlots(r.Context(), dailyScheduleID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func getSlotHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		slot, err := svc.GetSlot(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

// updateSlotHandler flips the reservation or blocking state of one slot.
// Only one of is_reserved and is_blocked may be supplied per request so
// each call maps to exactly one gate transition.
func updateSlotHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		var req UpdateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if (req.IsReserved == nil) == (req.IsBlocked == nil) {
			writeError(w, http.StatusBadRequest, "invalid_slot_update", "exactly one of is_reserved or is_blocked is required")
			return
		}

		var (
			slot *schedule.Slot
			err  error
		)
		if req.IsReserved != nil {
			slot, err = svc.SetSlotReserved(r.Context(), id, *req.IsReserved)
		} else {
			var breakID *uuid.UUID
			if req.BreakID != nil {
				parsed, parseErr := uuid.Parse(*req.BreakID)
				if parseErr != nil {
					writeError(w, http.StatusBadRequest, "invalid_break_id", "break_id must be a valid UUID")
					return
				}
				breakID = &parsed
			}
			slot, err = svc.SetSlotBlocked(r.Context(), id, *req.IsBlocked, breakID)
		}
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrProfessionalScheduleNotFound):
		writeError(w, http.StatusNotFound, "professional_schedule_not_found", err.Error())
	case errors.Is(err, schedule.ErrDailyScheduleNotFound):
		writeError(w, http.StatusNotFound, "daily_schedule_not_found", err.Error())
	case errors.Is(err, schedule.ErrBreakNotFound):
		writeError(w, http.StatusNotFound, "break_not_found", err.Error())
	case errors.Is(err, schedule.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, schedule.ErrInvalidTimeOfDay),
		errors.Is(err, schedule.ErrInvalidWorkHours),
		errors.Is(err, schedule.ErrInvalidBreakRange),
		errors.Is(err, schedule.ErrBreakReasonRequired),
		errors.Is(err, schedule.ErrBreakOutsideWindow),
		errors.Is(err, schedule.ErrInvalidSlotDuration):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, schedule.ErrDayAlreadyScheduled):
		writeError(w, http.StatusConflict, "day_already_scheduled", err.Error())
	case errors.Is(err, schedule.ErrBreakOverlap):
		writeError(w, http.StatusConflict, "break_overlap", err.Error())
	case errors.Is(err, schedule.ErrSlotsAlreadyExist):
		writeError(w, http.StatusConflict, "slots_already_generated", err.Error())
	case errors.Is(err, schedule.ErrSlotBlocked):
		writeError(w, http.StatusConflict, "slot_blocked", err.Error())
	case errors.Is(err, schedule.ErrSlotReserved):
		writeError(w, http.StatusConflict, "slot_reserved", err.Error())
	case errors.Is(err, schedule.ErrScheduleBusy):
		writeError(w, http.StatusConflict, "schedule_busy", "schedule is currently being modified, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
