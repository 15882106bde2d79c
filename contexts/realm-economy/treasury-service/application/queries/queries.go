package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "demesne/contexts/realm-economy/treasury-service/application"
	"demesne/contexts/realm-economy/treasury-service/domain/entities"
	"demesne/contexts/realm-economy/treasury-service/ports"
)

type UseCase struct {
	Repository  ports.Repository
	Subjects    ports.SubjectSource
	Eligibility ports.EligibilityEvaluator
	Merit       ports.MeritScorer
	Pool        ports.RewardPoolSource
	Clock       ports.Clock
	Logger      *slog.Logger
}

type CooldownStatus struct {
	Open          bool
	Remaining     time.Duration
	NextAttemptAt time.Time
}

func (uc UseCase) GetSettlement(ctx context.Context, settlementID string) (entities.Settlement, error) {
	logger := application.ResolveLogger(uc.Logger)
	normalized := strings.TrimSpace(settlementID)
	settlement, err := uc.Repository.GetSettlement(ctx, normalized)
	if err != nil {
		logger.Warn("settlement query failed",
			"event", "treasury_query_get_settlement_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", normalized,
			"error", err.Error(),
		)
		return entities.Settlement{}, err
	}
	return settlement, nil
}

func (uc UseCase) Cooldown(ctx context.Context, settlementID string) (CooldownStatus, error) {
	settlement, err := uc.GetSettlement(ctx, settlementID)
	if err != nil {
		return CooldownStatus{}, err
	}
	now := uc.now()
	status := CooldownStatus{
		Open:      settlement.CanDistribute(now),
		Remaining: settlement.RemainingCooldown(now),
	}
	if !status.Open {
		status.NextAttemptAt = settlement.LastDistributionAt.Add(entities.CooldownPeriod)
	}
	return status, nil
}

// History returns the most-recent-first distribution log, capped at the
// history capacity regardless of the requested limit.
func (uc UseCase) History(ctx context.Context, settlementID string, limit int) ([]entities.DistributionRecord, error) {
	logger := application.ResolveLogger(uc.Logger)
	normalized := strings.TrimSpace(settlementID)
	if limit <= 0 || limit > entities.HistoryCapacity {
		limit = entities.HistoryCapacity
	}
	records, err := uc.Repository.ListHistory(ctx, normalized, limit)
	if err != nil {
		logger.Warn("distribution history query failed",
			"event", "treasury_query_history_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", normalized,
			"error", err.Error(),
		)
		return nil, err
	}
	return records, nil
}

// EstimatedShare previews a player's payout against the current pending pool
// and the full current eligible set. Read-only; returns 0 for ineligible or
// zero-merit players. A lone participant simply estimates the whole pool as
// a property of the data, not a special case.
func (uc UseCase) EstimatedShare(ctx context.Context, playerID string, settlementID string) (int64, error) {
	logger := application.ResolveLogger(uc.Logger)
	normalizedPlayerID := strings.TrimSpace(playerID)
	normalizedSettlementID := strings.TrimSpace(settlementID)

	settlement, err := uc.Repository.GetSettlement(ctx, normalizedSettlementID)
	if err != nil {
		logger.Warn("estimated share settlement lookup failed",
			"event", "treasury_query_estimated_share_lookup_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", normalizedSettlementID,
			"error", err.Error(),
		)
		return 0, err
	}

	pool, err := uc.Pool.PendingPool(ctx, normalizedSettlementID)
	if err != nil {
		return 0, err
	}
	if pool <= 0 {
		return 0, nil
	}
	if pool > settlement.TreasuryGold {
		pool = settlement.TreasuryGold
	}

	subjects, err := uc.Subjects.ListSubjects(ctx, normalizedSettlementID)
	if err != nil {
		return 0, err
	}

	var totalMerit int64
	var playerMerit int64
	var playerEligible bool
	for _, subject := range subjects {
		if !uc.Eligibility.IsEligible(subject, settlement) {
			continue
		}
		merit := uc.Merit.MeritScore(subject, settlement.ID)
		if merit <= 0 {
			continue
		}
		totalMerit += merit
		if subject.PlayerID == normalizedPlayerID {
			playerMerit = merit
			playerEligible = true
		}
	}
	if !playerEligible || totalMerit == 0 {
		return 0, nil
	}
	return pool * playerMerit / totalMerit, nil
}

func (uc UseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
