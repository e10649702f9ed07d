package httpapi

import (
	"net/http"

	"github.com/google/uuid"
)

type swapProposeRequest struct {
	OfferedSlotID   uuid.UUID `json:"offered_slot_id"`
	RequestedSlotID uuid.UUID `json:"requested_slot_id"`
	Message         *string   `json:"message,omitempty"`
}

type swapRespondRequest struct {
	Accept  bool    `json:"accept"`
	Message *string `json:"message,omitempty"`
}

func (s *Server) marketplace(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	slots, err := s.swapSvc.Marketplace(r.Context(), u.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}

func (s *Server) proposeSwap(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	var req swapProposeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if req.OfferedSlotID == uuid.Nil || req.RequestedSlotID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "offered_slot_id and requested_slot_id are required")
		return
	}
	created, err := s.swapSvc.Propose(r.Context(), u.UserID, req.OfferedSlotID, req.RequestedSlotID, req.Message)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) listSentSwaps(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	requests, err := s.swapSvc.ListSent(r.Context(), u.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

func (s *Server) listReceivedSwaps(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	requests, err := s.swapSvc.ListReceived(r.Context(), u.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

func (s *Server) getSwap(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	req, err := s.swapSvc.Get(r.Context(), id, u.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (s *Server) respondSwap(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	var req swapRespondRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	resolved, err := s.swapSvc.Respond(r.Context(), id, u.UserID, req.Accept, req.Message)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resolved)
}

func (s *Server) cancelSwap(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	cancelled, err := s.swapSvc.Cancel(r.Context(), id, u.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cancelled)
}
