package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"demesne/contexts/realm-community/subject-roster/application"
	"demesne/contexts/realm-community/subject-roster/domain/entities"
	"demesne/contexts/realm-community/subject-roster/ports"
	httptransport "demesne/contexts/realm-community/subject-roster/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) RegisterSubjectHandler(
	ctx context.Context,
	req httptransport.RegisterSubjectRequest,
) (httptransport.SubjectDTO, error) {
	subject, err := h.Service.RegisterSubject(ctx, application.RegisterSubjectInput{
		PlayerID:   req.PlayerID,
		PlayerName: req.PlayerName,
		Attack:     req.Attack,
		Defense:    req.Defense,
		Leadership: req.Leadership,
		Building:   req.Building,
	})
	if err != nil {
		h.logWarn("roster_http_register_subject_failed", err,
			"player_id", strings.TrimSpace(req.PlayerID),
		)
		return httptransport.SubjectDTO{}, err
	}
	return subjectToDTO(subject), nil
}

func (h Handler) GetSubjectHandler(ctx context.Context, playerID string) (httptransport.SubjectDTO, error) {
	subject, err := h.Service.GetSubject(ctx, playerID)
	if err != nil {
		return httptransport.SubjectDTO{}, err
	}
	return subjectToDTO(subject), nil
}

func (h Handler) TrainSkillsHandler(
	ctx context.Context,
	playerID string,
	req httptransport.TrainSkillsRequest,
) (httptransport.SubjectDTO, error) {
	subject, err := h.Service.TrainSkills(ctx, application.TrainSkillsInput{
		PlayerID:   playerID,
		Attack:     req.Attack,
		Defense:    req.Defense,
		Leadership: req.Leadership,
		Building:   req.Building,
	})
	if err != nil {
		h.logWarn("roster_http_train_skills_failed", err,
			"player_id", strings.TrimSpace(playerID),
		)
		return httptransport.SubjectDTO{}, err
	}
	return subjectToDTO(subject), nil
}

func (h Handler) JoinSettlementHandler(
	ctx context.Context,
	settlementID string,
	playerID string,
) (httptransport.StandingDTO, error) {
	standing, err := h.Service.JoinSettlement(ctx, settlementID, playerID)
	if err != nil {
		h.logWarn("roster_http_join_settlement_failed", err,
			"settlement_id", strings.TrimSpace(settlementID),
			"player_id", strings.TrimSpace(playerID),
		)
		return httptransport.StandingDTO{}, err
	}
	return standingToDTO(standing), nil
}

func (h Handler) CheckInHandler(
	ctx context.Context,
	settlementID string,
	playerID string,
) (httptransport.StandingDTO, error) {
	standing, err := h.Service.CheckIn(ctx, settlementID, playerID)
	if err != nil {
		h.logWarn("roster_http_check_in_failed", err,
			"settlement_id", strings.TrimSpace(settlementID),
			"player_id", strings.TrimSpace(playerID),
		)
		return httptransport.StandingDTO{}, err
	}
	return standingToDTO(standing), nil
}

func (h Handler) AdjustReputationHandler(
	ctx context.Context,
	settlementID string,
	playerID string,
	req httptransport.AdjustReputationRequest,
) (httptransport.StandingDTO, error) {
	standing, err := h.Service.AdjustReputation(ctx, settlementID, playerID, req.Delta)
	if err != nil {
		h.logWarn("roster_http_adjust_reputation_failed", err,
			"settlement_id", strings.TrimSpace(settlementID),
			"player_id", strings.TrimSpace(playerID),
		)
		return httptransport.StandingDTO{}, err
	}
	return standingToDTO(standing), nil
}

func (h Handler) ListRosterHandler(ctx context.Context, settlementID string) (httptransport.RosterResponse, error) {
	entries, err := h.Service.ListBySettlement(ctx, settlementID)
	if err != nil {
		return httptransport.RosterResponse{}, err
	}
	dtos := make([]httptransport.RosterEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, rosterEntryToDTO(entry))
	}
	return httptransport.RosterResponse{
		SettlementID: strings.TrimSpace(settlementID),
		Entries:      dtos,
	}, nil
}

func (h Handler) logWarn(event string, err error, attrs ...any) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "realm-community/subject-roster",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	logger.Warn("roster http request failed", fields...)
}

func subjectToDTO(subject entities.Subject) httptransport.SubjectDTO {
	return httptransport.SubjectDTO{
		PlayerID:    subject.PlayerID,
		PlayerName:  subject.PlayerName,
		Attack:      subject.Attack,
		Defense:     subject.Defense,
		Leadership:  subject.Leadership,
		Building:    subject.Building,
		SkillTotal:  subject.SkillTotal(),
		GoldBalance: subject.GoldBalance,
		CreatedAt:   subject.CreatedAt.Format(time.RFC3339),
	}
}

func standingToDTO(standing entities.Standing) httptransport.StandingDTO {
	dto := httptransport.StandingDTO{
		SettlementID: standing.SettlementID,
		PlayerID:     standing.PlayerID,
		Reputation:   standing.Reputation,
		JoinedAt:     standing.JoinedAt.Format(time.RFC3339),
	}
	if !standing.LastCheckInAt.IsZero() {
		dto.LastCheckInAt = standing.LastCheckInAt.Format(time.RFC3339)
	}
	return dto
}

func rosterEntryToDTO(entry ports.RosterEntry) httptransport.RosterEntryDTO {
	return httptransport.RosterEntryDTO{
		Subject:  subjectToDTO(entry.Subject),
		Standing: standingToDTO(entry.Standing),
	}
}
