package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	treasuryerrors "demesne/contexts/realm-economy/treasury-service/domain/errors"
	treasuryhttp "demesne/contexts/realm-economy/treasury-service/transport/http"
)

func writeTreasuryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, treasuryhttp.ErrorResponse{Code: code, Message: message})
}

func writeTreasuryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, treasuryerrors.ErrSettlementNotFound):
		writeTreasuryError(w, http.StatusNotFound, "settlement_not_found", err.Error())
	case errors.Is(err, treasuryerrors.ErrNotAuthorized):
		writeTreasuryError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, treasuryerrors.ErrCooldownActive):
		writeTreasuryError(w, http.StatusConflict, "cooldown_active", err.Error())
	case errors.Is(err, treasuryerrors.ErrEmptyRewardPool):
		writeTreasuryError(w, http.StatusConflict, "empty_reward_pool", err.Error())
	case errors.Is(err, treasuryerrors.ErrInsufficientTreasury):
		writeTreasuryError(w, http.StatusConflict, "insufficient_treasury", err.Error())
	case errors.Is(err, treasuryerrors.ErrSettlementExists):
		writeTreasuryError(w, http.StatusConflict, "settlement_exists", err.Error())
	case errors.Is(err, treasuryerrors.ErrDistributionBusy):
		writeTreasuryError(w, http.StatusServiceUnavailable, "distribution_busy", err.Error())
	case errors.Is(err, treasuryerrors.ErrInvalidTreasuryInput):
		writeTreasuryError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeTreasuryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func resolvePlayerID(r *http.Request) string {
	if fromHeader := strings.TrimSpace(r.Header.Get("X-Player-Id")); fromHeader != "" {
		return fromHeader
	}
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func (s *Server) handleFoundSettlement(w http.ResponseWriter, r *http.Request) {
	var req treasuryhttp.FoundSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.treasury.Handler.FoundSettlementHandler(r.Context(), req)
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	resp, err := s.treasury.Handler.GetSettlementHandler(r.Context(), r.PathValue("settlement_id"))
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccrueIncome(w http.ResponseWriter, r *http.Request) {
	var req treasuryhttp.AccrueIncomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.treasury.Handler.AccrueIncomeHandler(r.Context(), r.PathValue("settlement_id"), req)
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	playerID := resolvePlayerID(r)
	if playerID == "" {
		writeTreasuryError(w, http.StatusUnauthorized, "missing_player", "X-Player-Id header is required")
		return
	}
	resp, err := s.treasury.Handler.DistributeHandler(r.Context(), playerID, r.PathValue("settlement_id"))
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetRewardRate(w http.ResponseWriter, r *http.Request) {
	playerID := resolvePlayerID(r)
	if playerID == "" {
		writeTreasuryError(w, http.StatusUnauthorized, "missing_player", "X-Player-Id header is required")
		return
	}
	var req treasuryhttp.SetRewardRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.treasury.Handler.SetRewardRateHandler(r.Context(), playerID, r.PathValue("settlement_id"), req)
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCooldown(w http.ResponseWriter, r *http.Request) {
	resp, err := s.treasury.Handler.CooldownHandler(r.Context(), r.PathValue("settlement_id"))
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeTreasuryError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.treasury.Handler.HistoryHandler(r.Context(), r.PathValue("settlement_id"), limit)
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEstimatedShare(w http.ResponseWriter, r *http.Request) {
	playerID := strings.TrimSpace(r.URL.Query().Get("player_id"))
	if playerID == "" {
		playerID = resolvePlayerID(r)
	}
	if playerID == "" {
		writeTreasuryError(w, http.StatusBadRequest, "missing_player", "player_id is required")
		return
	}
	resp, err := s.treasury.Handler.EstimatedShareHandler(r.Context(), r.PathValue("settlement_id"), playerID)
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
