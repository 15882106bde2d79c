package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "demesne/contexts/realm-economy/treasury-service/application"
	"demesne/contexts/realm-economy/treasury-service/domain/entities"
	domainerrors "demesne/contexts/realm-economy/treasury-service/domain/errors"
	"demesne/contexts/realm-economy/treasury-service/ports"
)

type FoundSettlementCommand struct {
	Name            string
	RulerID         string
	InitialTreasury int64
}

type AccrueIncomeCommand struct {
	SettlementID string
	Amount       int64
}

type DistributeCommand struct {
	SettlementID string
	TriggeredBy  string
}

type SetRewardRateCommand struct {
	SettlementID   string
	Rate           int
	ActingPlayerID string
}

// DistributionOutcome reports one distribution attempt. Record is nil when
// no payout happened; on the no-eligible path the cooldown window is still
// spent and NextAttemptAt reflects the advanced timestamp.
type DistributionOutcome struct {
	Distributed   bool
	Record        *entities.DistributionRecord
	EligibleCount int
	NextAttemptAt time.Time
}

type UseCase struct {
	Repository  ports.Repository
	Subjects    ports.SubjectSource
	Eligibility ports.EligibilityEvaluator
	Merit       ports.MeritScorer
	Pool        ports.RewardPoolSource
	Locker      ports.SettlementLocker
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Outbox      ports.OutboxWriter
	Logger      *slog.Logger
}

func (uc UseCase) FoundSettlement(ctx context.Context, cmd FoundSettlementCommand) (entities.Settlement, error) {
	logger := application.ResolveLogger(uc.Logger)
	name := strings.TrimSpace(cmd.Name)
	rulerID := strings.TrimSpace(cmd.RulerID)
	if name == "" || rulerID == "" || cmd.InitialTreasury < 0 {
		logger.Warn("settlement founding invalid input",
			"event", "treasury_found_settlement_invalid_input",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"name", name,
			"ruler_id", rulerID,
		)
		return entities.Settlement{}, domainerrors.ErrInvalidTreasuryInput
	}

	settlementID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("settlement founding id generation failed",
			"event", "treasury_found_settlement_id_generation_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"error", err.Error(),
		)
		return entities.Settlement{}, err
	}

	now := uc.now()
	settlement := entities.Settlement{
		ID:                settlementID,
		Name:              name,
		RulerID:           rulerID,
		TreasuryGold:      cmd.InitialTreasury,
		SubjectRewardRate: entities.MaxRewardRate / 2,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.Repository.CreateSettlement(ctx, settlement); err != nil {
		logger.Error("settlement founding persistence failed",
			"event", "treasury_found_settlement_persistence_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"error", err.Error(),
		)
		return entities.Settlement{}, err
	}
	logger.Info("settlement founded",
		"event", "treasury_settlement_founded",
		"module", "realm-economy/treasury-service",
		"layer", "application",
		"settlement_id", settlementID,
		"ruler_id", rulerID,
		"initial_treasury", cmd.InitialTreasury,
	)
	return settlement, nil
}

func (uc UseCase) AccrueIncome(ctx context.Context, cmd AccrueIncomeCommand) (entities.Settlement, error) {
	logger := application.ResolveLogger(uc.Logger)
	settlementID := strings.TrimSpace(cmd.SettlementID)
	if cmd.Amount <= 0 {
		logger.Warn("income accrual invalid amount",
			"event", "treasury_accrue_income_invalid_amount",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"amount", cmd.Amount,
		)
		return entities.Settlement{}, domainerrors.ErrInvalidTreasuryInput
	}
	settlement, err := uc.Repository.GetSettlement(ctx, settlementID)
	if err != nil {
		return entities.Settlement{}, err
	}

	// The pending pool accrues rate% of each income credit; the engine only
	// ever validates the resulting quantity against the treasury.
	poolDelta := cmd.Amount * int64(settlement.SubjectRewardRate) / 100
	now := uc.now()
	if err := uc.Repository.AccrueIncome(ctx, settlementID, cmd.Amount, poolDelta, now); err != nil {
		logger.Error("income accrual persistence failed",
			"event", "treasury_accrue_income_persistence_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"amount", cmd.Amount,
			"error", err.Error(),
		)
		return entities.Settlement{}, err
	}
	logger.Info("settlement income accrued",
		"event", "treasury_income_accrued",
		"module", "realm-economy/treasury-service",
		"layer", "application",
		"settlement_id", settlementID,
		"amount", cmd.Amount,
		"pool_delta", poolDelta,
	)
	return uc.Repository.GetSettlement(ctx, settlementID)
}

// Distribute runs one merit-weighted payout round for a settlement.
// Preconditions, in order: settlement exists, cooldown gate open, pool
// positive, pool within treasury. The payout itself is applied as a single
// atomic repository call under the per-settlement lock.
func (uc UseCase) Distribute(ctx context.Context, cmd DistributeCommand) (DistributionOutcome, error) {
	logger := application.ResolveLogger(uc.Logger)
	settlementID := strings.TrimSpace(cmd.SettlementID)

	release, err := uc.Locker.Acquire(ctx, settlementID)
	if err != nil {
		logger.Warn("distribution lock acquisition failed",
			"event", "treasury_distribute_lock_busy",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"error", err.Error(),
		)
		return DistributionOutcome{}, err
	}
	defer release()

	settlement, err := uc.Repository.GetSettlement(ctx, settlementID)
	if err != nil {
		logger.Warn("distribution settlement lookup failed",
			"event", "treasury_distribute_settlement_lookup_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"error", err.Error(),
		)
		return DistributionOutcome{}, err
	}

	now := uc.now()
	if !settlement.CanDistribute(now) {
		logger.Warn("distribution attempted during cooldown",
			"event", "treasury_distribute_cooldown_active",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"remaining", settlement.RemainingCooldown(now).String(),
		)
		return DistributionOutcome{
			NextAttemptAt: settlement.LastDistributionAt.Add(entities.CooldownPeriod),
		}, domainerrors.ErrCooldownActive
	}

	pool, err := uc.Pool.PendingPool(ctx, settlementID)
	if err != nil {
		return DistributionOutcome{}, err
	}
	if pool <= 0 {
		logger.Warn("distribution attempted with empty pool",
			"event", "treasury_distribute_empty_pool",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"pool", pool,
		)
		return DistributionOutcome{}, domainerrors.ErrEmptyRewardPool
	}
	if pool > settlement.TreasuryGold {
		// The pool is derived upstream from rate and treasury; exceeding the
		// balance signals an upstream inconsistency, not a user mistake.
		logger.Error("distribution pool exceeds treasury",
			"event", "treasury_distribute_insufficient_treasury",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"pool", pool,
			"treasury_gold", settlement.TreasuryGold,
		)
		return DistributionOutcome{}, domainerrors.ErrInsufficientTreasury
	}

	subjects, err := uc.Subjects.ListSubjects(ctx, settlementID)
	if err != nil {
		logger.Error("distribution subject listing failed",
			"event", "treasury_distribute_subject_listing_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"error", err.Error(),
		)
		return DistributionOutcome{}, err
	}

	participants := uc.participants(subjects, settlement)
	if len(participants) == 0 {
		// A ruler with no eligible subjects still spends the cooldown window
		// rather than being able to retry every tick.
		if err := uc.Repository.TouchLastDistribution(ctx, settlementID, now); err != nil {
			logger.Error("distribution cooldown touch failed",
				"event", "treasury_distribute_touch_failed",
				"module", "realm-economy/treasury-service",
				"layer", "application",
				"settlement_id", settlementID,
				"error", err.Error(),
			)
			return DistributionOutcome{}, err
		}
		logger.Info("distribution skipped with no eligible subjects",
			"event", "treasury_distribute_no_eligible_subjects",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"subject_count", len(subjects),
		)
		return DistributionOutcome{
			NextAttemptAt: now.Add(entities.CooldownPeriod),
		}, nil
	}

	var totalMerit int64
	for _, p := range participants {
		totalMerit += p.merit
	}

	recipients := make([]entities.RecipientRecord, 0, len(participants))
	credits := make([]ports.GoldCredit, 0, len(participants))
	var disbursed int64
	for _, p := range participants {
		share := pool * p.merit / totalMerit
		disbursed += share
		// Every participant gets an audit record even when the share
		// floors to zero; only positive shares produce wallet credits.
		recipients = append(recipients, entities.RecipientRecord{
			PlayerID:     p.subject.PlayerID,
			PlayerName:   p.subject.PlayerName,
			GoldReceived: share,
			MeritScore:   p.merit,
			Reputation:   p.subject.Reputation,
			SkillTotal:   p.subject.SkillTotal,
		})
		if share > 0 {
			credits = append(credits, ports.GoldCredit{
				PlayerID: p.subject.PlayerID,
				Amount:   share,
			})
		}
	}

	recordID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("distribution record id generation failed",
			"event", "treasury_distribute_id_generation_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"error", err.Error(),
		)
		return DistributionOutcome{}, err
	}
	record := entities.DistributionRecord{
		ID:           recordID,
		SettlementID: settlementID,
		TotalPool:    disbursed,
		Recipients:   recipients,
		OccurredAt:   now,
	}

	if err := uc.Repository.ApplyDistribution(ctx, ports.ApplyDistributionInput{
		SettlementID: settlementID,
		Record:       record,
		Credits:      credits,
		Now:          now,
	}); err != nil {
		logger.Error("distribution apply failed",
			"event", "treasury_distribute_apply_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"record_id", recordID,
			"error", err.Error(),
		)
		return DistributionOutcome{}, err
	}

	recipientIDs := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		recipientIDs = append(recipientIDs, recipient.PlayerID)
	}
	if err := uc.appendOutbox(ctx, "treasury.distribution.completed", settlementID, map[string]any{
		"settlement_id":   settlementID,
		"record_id":       recordID,
		"total_pool":      disbursed,
		"recipient_count": len(recipients),
		"recipients":      recipientIDs,
		"triggered_by":    strings.TrimSpace(cmd.TriggeredBy),
	}); err != nil {
		logger.Error("distribution outbox append failed",
			"event", "treasury_distribute_outbox_append_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"record_id", recordID,
			"error", err.Error(),
		)
		return DistributionOutcome{}, err
	}

	logger.Info("distribution completed",
		"event", "treasury_distribution_completed",
		"module", "realm-economy/treasury-service",
		"layer", "application",
		"settlement_id", settlementID,
		"record_id", recordID,
		"nominal_pool", pool,
		"disbursed", disbursed,
		"recipient_count", len(recipients),
	)
	return DistributionOutcome{
		Distributed:   true,
		Record:        &record,
		EligibleCount: len(participants),
		NextAttemptAt: now.Add(entities.CooldownPeriod),
	}, nil
}

func (uc UseCase) SetRewardRate(ctx context.Context, cmd SetRewardRateCommand) (entities.Settlement, error) {
	logger := application.ResolveLogger(uc.Logger)
	settlementID := strings.TrimSpace(cmd.SettlementID)
	actingPlayerID := strings.TrimSpace(cmd.ActingPlayerID)

	settlement, err := uc.Repository.GetSettlement(ctx, settlementID)
	if err != nil {
		logger.Warn("reward rate change settlement lookup failed",
			"event", "treasury_set_reward_rate_settlement_lookup_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"error", err.Error(),
		)
		return entities.Settlement{}, err
	}
	if settlement.RulerID != actingPlayerID {
		logger.Warn("reward rate change unauthorized",
			"event", "treasury_set_reward_rate_unauthorized",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"acting_player_id", actingPlayerID,
		)
		return entities.Settlement{}, domainerrors.ErrNotAuthorized
	}

	rate := entities.ClampRewardRate(cmd.Rate)
	now := uc.now()
	if err := uc.Repository.UpdateRewardRate(ctx, settlementID, rate, now); err != nil {
		logger.Error("reward rate change persistence failed",
			"event", "treasury_set_reward_rate_persistence_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"rate", rate,
			"error", err.Error(),
		)
		return entities.Settlement{}, err
	}

	if err := uc.appendOutbox(ctx, "treasury.reward_rate.changed", settlementID, map[string]any{
		"settlement_id":  settlementID,
		"rate":           rate,
		"requested_rate": cmd.Rate,
		"changed_by":     actingPlayerID,
	}); err != nil {
		logger.Error("reward rate change outbox append failed",
			"event", "treasury_set_reward_rate_outbox_append_failed",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"settlement_id", settlementID,
			"error", err.Error(),
		)
		return entities.Settlement{}, err
	}

	logger.Info("reward rate changed",
		"event", "treasury_reward_rate_changed",
		"module", "realm-economy/treasury-service",
		"layer", "application",
		"settlement_id", settlementID,
		"rate", rate,
		"changed_by", actingPlayerID,
	)
	settlement.SubjectRewardRate = rate
	settlement.UpdatedAt = now
	return settlement, nil
}

// ProcessDueSettlements runs a distribution attempt for every settlement
// whose gate is open and pool is non-empty. Expected steady states
// (cooldown raced shut, pool drained) are skipped, not errors.
func (uc UseCase) ProcessDueSettlements(ctx context.Context, limit int) error {
	logger := application.ResolveLogger(uc.Logger)
	due, err := uc.Repository.ListDueSettlements(ctx, uc.now(), limit)
	if err != nil {
		logger.Error("due settlement listing failed",
			"event", "treasury_scheduler_due_list_failed",
			"module", "realm-economy/treasury-service",
			"layer", "worker",
			"limit", limit,
			"error", err.Error(),
		)
		return err
	}
	var firstErr error
	for _, settlement := range due {
		_, err := uc.Distribute(ctx, DistributeCommand{
			SettlementID: settlement.ID,
			TriggeredBy:  "scheduler",
		})
		switch {
		case err == nil:
		case isExpectedSchedulerOutcome(err):
			logger.Debug("scheduled distribution skipped",
				"event", "treasury_scheduler_distribution_skipped",
				"module", "realm-economy/treasury-service",
				"layer", "worker",
				"settlement_id", settlement.ID,
				"reason", err.Error(),
			)
		default:
			if firstErr == nil {
				firstErr = err
			}
			logger.Error("scheduled distribution failed",
				"event", "treasury_scheduler_distribution_failed",
				"module", "realm-economy/treasury-service",
				"layer", "worker",
				"settlement_id", settlement.ID,
				"error", err.Error(),
			)
		}
	}
	if len(due) > 0 {
		logger.Info("distribution scheduler cycle completed",
			"event", "treasury_scheduler_cycle_completed",
			"module", "realm-economy/treasury-service",
			"layer", "worker",
			"due_count", len(due),
		)
	}
	return firstErr
}

type participant struct {
	subject entities.SubjectSnapshot
	merit   int64
}

// participants filters subjects to eligible, positive-merit entries in
// ascending player id order so rounding remainders land deterministically.
func (uc UseCase) participants(subjects []entities.SubjectSnapshot, settlement entities.Settlement) []participant {
	result := make([]participant, 0, len(subjects))
	for _, subject := range subjects {
		if !uc.Eligibility.IsEligible(subject, settlement) {
			continue
		}
		merit := uc.Merit.MeritScore(subject, settlement.ID)
		if merit <= 0 {
			continue
		}
		result = append(result, participant{subject: subject, merit: merit})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].subject.PlayerID < result[j].subject.PlayerID
	})
	return result
}

func isExpectedSchedulerOutcome(err error) bool {
	return errors.Is(err, domainerrors.ErrCooldownActive) ||
		errors.Is(err, domainerrors.ErrEmptyRewardPool) ||
		errors.Is(err, domainerrors.ErrDistributionBusy)
}

func (uc UseCase) appendOutbox(
	ctx context.Context,
	eventType string,
	partitionKey string,
	data map[string]any,
) error {
	logger := application.ResolveLogger(uc.Logger)
	if uc.Outbox == nil {
		logger.Debug("treasury outbox disabled for module",
			"event", "treasury_outbox_disabled",
			"module", "realm-economy/treasury-service",
			"layer", "application",
			"event_type", eventType,
			"partition_key", partitionKey,
		)
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       uc.now(),
		SourceService:    "treasury-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "settlement_id",
		PartitionKey:     partitionKey,
		Data:             payload,
	})
}

func (uc UseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
