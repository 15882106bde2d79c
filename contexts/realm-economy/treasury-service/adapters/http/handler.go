package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "demesne/contexts/realm-economy/treasury-service/application"
	"demesne/contexts/realm-economy/treasury-service/application/commands"
	"demesne/contexts/realm-economy/treasury-service/application/queries"
	"demesne/contexts/realm-economy/treasury-service/domain/entities"
	httptransport "demesne/contexts/realm-economy/treasury-service/transport/http"
)

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

func (h Handler) FoundSettlementHandler(
	ctx context.Context,
	req httptransport.FoundSettlementRequest,
) (httptransport.SettlementDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	settlement, err := h.Commands.FoundSettlement(ctx, commands.FoundSettlementCommand{
		Name:            req.Name,
		RulerID:         req.RulerID,
		InitialTreasury: req.InitialTreasury,
	})
	if err != nil {
		logger.Warn("treasury http found settlement failed",
			"event", "treasury_http_found_settlement_failed",
			"module", "realm-economy/treasury-service",
			"layer", "adapter",
			"name", strings.TrimSpace(req.Name),
			"ruler_id", strings.TrimSpace(req.RulerID),
			"error", err.Error(),
		)
		return httptransport.SettlementDTO{}, err
	}
	logger.Info("treasury http found settlement completed",
		"event", "treasury_http_found_settlement_completed",
		"module", "realm-economy/treasury-service",
		"layer", "adapter",
		"settlement_id", settlement.ID,
	)
	return settlementToDTO(settlement), nil
}

func (h Handler) GetSettlementHandler(ctx context.Context, settlementID string) (httptransport.SettlementDTO, error) {
	settlement, err := h.Queries.GetSettlement(ctx, settlementID)
	if err != nil {
		return httptransport.SettlementDTO{}, err
	}
	return settlementToDTO(settlement), nil
}

func (h Handler) AccrueIncomeHandler(
	ctx context.Context,
	settlementID string,
	req httptransport.AccrueIncomeRequest,
) (httptransport.SettlementDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	settlement, err := h.Commands.AccrueIncome(ctx, commands.AccrueIncomeCommand{
		SettlementID: settlementID,
		Amount:       req.Amount,
	})
	if err != nil {
		logger.Warn("treasury http accrue income failed",
			"event", "treasury_http_accrue_income_failed",
			"module", "realm-economy/treasury-service",
			"layer", "adapter",
			"settlement_id", strings.TrimSpace(settlementID),
			"amount", req.Amount,
			"error", err.Error(),
		)
		return httptransport.SettlementDTO{}, err
	}
	return settlementToDTO(settlement), nil
}

func (h Handler) DistributeHandler(
	ctx context.Context,
	userID string,
	settlementID string,
) (httptransport.DistributeResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	outcome, err := h.Commands.Distribute(ctx, commands.DistributeCommand{
		SettlementID: settlementID,
		TriggeredBy:  userID,
	})
	if err != nil {
		logger.Warn("treasury http distribute failed",
			"event", "treasury_http_distribute_failed",
			"module", "realm-economy/treasury-service",
			"layer", "adapter",
			"settlement_id", strings.TrimSpace(settlementID),
			"triggered_by", strings.TrimSpace(userID),
			"error", err.Error(),
		)
		return httptransport.DistributeResponse{}, err
	}
	logger.Info("treasury http distribute completed",
		"event", "treasury_http_distribute_completed",
		"module", "realm-economy/treasury-service",
		"layer", "adapter",
		"settlement_id", strings.TrimSpace(settlementID),
		"distributed", outcome.Distributed,
		"eligible_count", outcome.EligibleCount,
	)
	response := httptransport.DistributeResponse{
		Distributed:   outcome.Distributed,
		EligibleCount: outcome.EligibleCount,
		NextAttemptAt: outcome.NextAttemptAt.Format(time.RFC3339),
	}
	if outcome.Record != nil {
		record := recordToDTO(*outcome.Record)
		response.Record = &record
	}
	return response, nil
}

func (h Handler) SetRewardRateHandler(
	ctx context.Context,
	userID string,
	settlementID string,
	req httptransport.SetRewardRateRequest,
) (httptransport.SettlementDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	settlement, err := h.Commands.SetRewardRate(ctx, commands.SetRewardRateCommand{
		SettlementID:   settlementID,
		Rate:           req.Rate,
		ActingPlayerID: userID,
	})
	if err != nil {
		logger.Warn("treasury http set reward rate failed",
			"event", "treasury_http_set_reward_rate_failed",
			"module", "realm-economy/treasury-service",
			"layer", "adapter",
			"settlement_id", strings.TrimSpace(settlementID),
			"acting_player_id", strings.TrimSpace(userID),
			"error", err.Error(),
		)
		return httptransport.SettlementDTO{}, err
	}
	return settlementToDTO(settlement), nil
}

func (h Handler) CooldownHandler(ctx context.Context, settlementID string) (httptransport.CooldownResponse, error) {
	status, err := h.Queries.Cooldown(ctx, settlementID)
	if err != nil {
		return httptransport.CooldownResponse{}, err
	}
	response := httptransport.CooldownResponse{
		Open:             status.Open,
		RemainingSeconds: int64(status.Remaining / time.Second),
	}
	if !status.NextAttemptAt.IsZero() {
		response.NextAttemptAt = status.NextAttemptAt.Format(time.RFC3339)
	}
	return response, nil
}

func (h Handler) HistoryHandler(
	ctx context.Context,
	settlementID string,
	limit int,
) (httptransport.HistoryResponse, error) {
	records, err := h.Queries.History(ctx, settlementID, limit)
	if err != nil {
		return httptransport.HistoryResponse{}, err
	}
	dtos := make([]httptransport.DistributionRecordDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, recordToDTO(record))
	}
	return httptransport.HistoryResponse{
		SettlementID: strings.TrimSpace(settlementID),
		Records:      dtos,
	}, nil
}

func (h Handler) EstimatedShareHandler(
	ctx context.Context,
	settlementID string,
	playerID string,
) (httptransport.EstimatedShareResponse, error) {
	share, err := h.Queries.EstimatedShare(ctx, playerID, settlementID)
	if err != nil {
		return httptransport.EstimatedShareResponse{}, err
	}
	return httptransport.EstimatedShareResponse{
		SettlementID:   strings.TrimSpace(settlementID),
		PlayerID:       strings.TrimSpace(playerID),
		EstimatedShare: share,
	}, nil
}

func settlementToDTO(settlement entities.Settlement) httptransport.SettlementDTO {
	dto := httptransport.SettlementDTO{
		ID:                      settlement.ID,
		Name:                    settlement.Name,
		RulerID:                 settlement.RulerID,
		TreasuryGold:            settlement.TreasuryGold,
		TotalRewardsDistributed: settlement.TotalRewardsDistributed,
		PendingRewardPool:       settlement.PendingRewardPool,
		SubjectRewardRate:       settlement.SubjectRewardRate,
		CreatedAt:               settlement.CreatedAt.Format(time.RFC3339),
		UpdatedAt:               settlement.UpdatedAt.Format(time.RFC3339),
	}
	if !settlement.LastDistributionAt.IsZero() {
		dto.LastDistributionAt = settlement.LastDistributionAt.Format(time.RFC3339)
	}
	return dto
}

func recordToDTO(record entities.DistributionRecord) httptransport.DistributionRecordDTO {
	recipients := make([]httptransport.RecipientDTO, 0, len(record.Recipients))
	for _, recipient := range record.Recipients {
		recipients = append(recipients, httptransport.RecipientDTO{
			PlayerID:     recipient.PlayerID,
			PlayerName:   recipient.PlayerName,
			GoldReceived: recipient.GoldReceived,
			MeritScore:   recipient.MeritScore,
			Reputation:   recipient.Reputation,
			SkillTotal:   recipient.SkillTotal,
		})
	}
	return httptransport.DistributionRecordDTO{
		ID:           record.ID,
		SettlementID: record.SettlementID,
		TotalPool:    record.TotalPool,
		Recipients:   recipients,
		OccurredAt:   record.OccurredAt.Format(time.RFC3339),
	}
}
