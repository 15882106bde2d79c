package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	rostererrors "demesne/contexts/realm-community/subject-roster/domain/errors"
	rosterhttp "demesne/contexts/realm-community/subject-roster/transport/http"
)

func writeRosterError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, rosterhttp.ErrorResponse{Code: code, Message: message})
}

func writeRosterDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rostererrors.ErrSubjectNotFound),
		errors.Is(err, rostererrors.ErrStandingNotFound):
		writeRosterError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, rostererrors.ErrSubjectExists),
		errors.Is(err, rostererrors.ErrAlreadyJoined):
		writeRosterError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, rostererrors.ErrInvalidRosterInput):
		writeRosterError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeRosterError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *Server) handleRegisterSubject(w http.ResponseWriter, r *http.Request) {
	var req rosterhttp.RegisterSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRosterError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.roster.Handler.RegisterSubjectHandler(r.Context(), req)
	if err != nil {
		writeRosterDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	resp, err := s.roster.Handler.GetSubjectHandler(r.Context(), r.PathValue("player_id"))
	if err != nil {
		writeRosterDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrainSkills(w http.ResponseWriter, r *http.Request) {
	var req rosterhttp.TrainSkillsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRosterError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.roster.Handler.TrainSkillsHandler(r.Context(), r.PathValue("player_id"), req)
	if err != nil {
		writeRosterDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRoster(w http.ResponseWriter, r *http.Request) {
	resp, err := s.roster.Handler.ListRosterHandler(r.Context(), r.PathValue("settlement_id"))
	if err != nil {
		writeRosterDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJoinSettlement(w http.ResponseWriter, r *http.Request) {
	resp, err := s.roster.Handler.JoinSettlementHandler(
		r.Context(),
		r.PathValue("settlement_id"),
		r.PathValue("player_id"),
	)
	if err != nil {
		writeRosterDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	resp, err := s.roster.Handler.CheckInHandler(
		r.Context(),
		r.PathValue("settlement_id"),
		r.PathValue("player_id"),
	)
	if err != nil {
		writeRosterDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdjustReputation(w http.ResponseWriter, r *http.Request) {
	var req rosterhttp.AdjustReputationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRosterError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.roster.Handler.AdjustReputationHandler(
		r.Context(),
		r.PathValue("settlement_id"),
		r.PathValue("player_id"),
		req,
	)
	if err != nil {
		writeRosterDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
