package httpapi

import (
	"net/http"

	appSlot "github.com/prakhar-shukla17/SlotSwapper/internal/application/slot"
	domainSlot "github.com/prakhar-shukla17/SlotSwapper/internal/domain/slot"
)

type slotCreateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Location    *string `json:"location,omitempty"`
	Recurrence  *string `json:"recurrence,omitempty"`
}

type slotUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	Location    *string `json:"location,omitempty"`
	Recurrence  *string `json:"recurrence,omitempty"`
}

type slotStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) createSlot(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	var req slotCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid date, want YYYY-MM-DD")
		return
	}
	in := appSlot.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
	}
	if req.Recurrence != nil {
		rec := domainSlot.Recurrence(*req.Recurrence)
		in.Recurrence = &rec
	}
	created, err := s.slotSvc.Create(r.Context(), u.UserID, in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) listSlots(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	filter := domainSlot.Filter{OwnerID: u.UserID}
	if v := r.URL.Query().Get("status"); v != "" {
		st := domainSlot.Status(v)
		if !domainSlot.ValidStatus(st) {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid status")
			return
		}
		filter.Status = &st
	}
	if v := r.URL.Query().Get("from"); v != "" {
		from, err := parseDate(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid from date")
			return
		}
		filter.From = &from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := parseDate(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid to date")
			return
		}
		filter.To = &to
	}
	slots, err := s.slotSvc.List(r.Context(), filter)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}

func (s *Server) getSlot(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	id, err := parseUUIDParam(r, "slotId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid slotId")
		return
	}
	sl, err := s.slotSvc.Get(r.Context(), id, u.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sl)
}

func (s *Server) updateSlot(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	id, err := parseUUIDParam(r, "slotId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid slotId")
		return
	}
	var req slotUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	in := appSlot.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid date, want YYYY-MM-DD")
			return
		}
		in.Date = &date
	}
	if req.Recurrence != nil {
		rec := domainSlot.Recurrence(*req.Recurrence)
		in.Recurrence = &rec
	}
	updated, err := s.slotSvc.Update(r.Context(), id, u.UserID, in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteSlot(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	id, err := parseUUIDParam(r, "slotId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid slotId")
		return
	}
	if err := s.slotSvc.Delete(r.Context(), id, u.UserID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"slot_id": id, "status": "DELETED"})
}

func (s *Server) setSlotStatus(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	id, err := parseUUIDParam(r, "slotId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid slotId")
		return
	}
	var req slotStatusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	updated, err := s.slotSvc.SetStatus(r.Context(), id, u.UserID, domainSlot.Status(req.Status))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
