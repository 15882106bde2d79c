package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"demesne/contexts/realm-economy/treasury-service/domain/entities"
	domainerrors "demesne/contexts/realm-economy/treasury-service/domain/errors"
	"demesne/contexts/realm-economy/treasury-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateSettlement(ctx context.Context, settlement entities.Settlement) error {
	if strings.TrimSpace(settlement.ID) == "" ||
		strings.TrimSpace(settlement.Name) == "" ||
		strings.TrimSpace(settlement.RulerID) == "" {
		r.logWarn("treasury_repo_create_settlement_invalid_input",
			"settlement_id", strings.TrimSpace(settlement.ID),
			"name", strings.TrimSpace(settlement.Name),
		)
		return domainerrors.ErrInvalidTreasuryInput
	}
	row := settlementModelFromEntity(settlement)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			r.logWarn("treasury_repo_create_settlement_unique_conflict",
				"settlement_id", row.ID,
				"name", row.Name,
			)
			return domainerrors.ErrSettlementExists
		}
		return r.logError("treasury_repo_create_settlement_failed", err,
			"settlement_id", row.ID,
		)
	}
	return nil
}

func (r *Repository) GetSettlement(ctx context.Context, settlementID string) (entities.Settlement, error) {
	var row settlementModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(settlementID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Settlement{}, domainerrors.ErrSettlementNotFound
		}
		return entities.Settlement{}, r.logError("treasury_repo_get_settlement_failed", err,
			"settlement_id", strings.TrimSpace(settlementID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListDueSettlements(ctx context.Context, now time.Time, limit int) ([]entities.Settlement, error) {
	if limit <= 0 {
		limit = 100
	}
	cutoff := now.UTC().Add(-entities.CooldownPeriod)
	var rows []settlementModel
	if err := r.db.WithContext(ctx).
		Where("pending_reward_pool > 0").
		Where("last_distribution_at IS NULL OR last_distribution_at <= ?", cutoff).
		Order("last_distribution_at ASC NULLS FIRST").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("treasury_repo_list_due_settlements_failed", err,
			"cutoff_utc", cutoff.Format(time.RFC3339),
			"limit", limit,
		)
	}
	settlements := make([]entities.Settlement, 0, len(rows))
	for _, row := range rows {
		settlements = append(settlements, row.toEntity())
	}
	return settlements, nil
}

// ApplyDistribution applies one payout round in a single transaction with a
// row lock on the settlement: treasury deduction, lifetime counter, pending
// pool reset, timestamp advance, record + recipients insert, history
// eviction beyond capacity, and recipient wallet credits.
func (r *Repository) ApplyDistribution(ctx context.Context, input ports.ApplyDistributionInput) error {
	settlementID := strings.TrimSpace(input.SettlementID)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row settlementModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", settlementID).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrSettlementNotFound
			}
			return err
		}
		if input.Record.TotalPool > row.TreasuryGold {
			return domainerrors.ErrInsufficientTreasury
		}

		occurredAt := input.Now.UTC()
		if err := tx.Model(&settlementModel{}).
			Where("id = ?", settlementID).
			Updates(map[string]any{
				"treasury_gold":             gorm.Expr("treasury_gold - ?", input.Record.TotalPool),
				"total_rewards_distributed": gorm.Expr("total_rewards_distributed + ?", input.Record.TotalPool),
				"pending_reward_pool":       0,
				"last_distribution_at":      occurredAt,
				"updated_at":                occurredAt,
			}).Error; err != nil {
			return err
		}

		recordRow := distributionRecordModel{
			ID:           strings.TrimSpace(input.Record.ID),
			SettlementID: settlementID,
			TotalPool:    input.Record.TotalPool,
			OccurredAt:   occurredAt,
		}
		if err := tx.Create(&recordRow).Error; err != nil {
			return err
		}
		recipients := make([]distributionRecipientModel, 0, len(input.Record.Recipients))
		for position, recipient := range input.Record.Recipients {
			recipients = append(recipients, distributionRecipientModel{
				RecordID:     recordRow.ID,
				Position:     position,
				PlayerID:     recipient.PlayerID,
				PlayerName:   recipient.PlayerName,
				GoldReceived: recipient.GoldReceived,
				MeritScore:   recipient.MeritScore,
				Reputation:   recipient.Reputation,
				SkillTotal:   recipient.SkillTotal,
			})
		}
		if len(recipients) > 0 {
			if err := tx.Create(&recipients).Error; err != nil {
				return err
			}
		}

		if err := evictHistory(tx, settlementID); err != nil {
			return err
		}

		// Wallet credits ride the payout transaction so treasury deduction
		// and recipient balances commit together.
		for _, credit := range input.Credits {
			result := tx.Table("subjects").
				Where("player_id = ?", credit.PlayerID).
				Update("gold_balance", gorm.Expr("gold_balance + ?", credit.Amount))
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrSettlementNotFound) ||
			errors.Is(err, domainerrors.ErrInsufficientTreasury) {
			return err
		}
		return r.logError("treasury_repo_apply_distribution_failed", err,
			"settlement_id", settlementID,
			"record_id", strings.TrimSpace(input.Record.ID),
		)
	}
	return nil
}

func (r *Repository) TouchLastDistribution(ctx context.Context, settlementID string, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&settlementModel{}).
		Where("id = ?", strings.TrimSpace(settlementID)).
		Updates(map[string]any{
			"last_distribution_at": now.UTC(),
			"updated_at":           now.UTC(),
		})
	if result.Error != nil {
		return r.logError("treasury_repo_touch_last_distribution_failed", result.Error,
			"settlement_id", strings.TrimSpace(settlementID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("treasury_repo_touch_last_distribution_not_found",
			"settlement_id", strings.TrimSpace(settlementID),
		)
		return domainerrors.ErrSettlementNotFound
	}
	return nil
}

func (r *Repository) UpdateRewardRate(ctx context.Context, settlementID string, rate int, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&settlementModel{}).
		Where("id = ?", strings.TrimSpace(settlementID)).
		Updates(map[string]any{
			"subject_reward_rate": rate,
			"updated_at":          now.UTC(),
		})
	if result.Error != nil {
		return r.logError("treasury_repo_update_reward_rate_failed", result.Error,
			"settlement_id", strings.TrimSpace(settlementID),
			"rate", rate,
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("treasury_repo_update_reward_rate_not_found",
			"settlement_id", strings.TrimSpace(settlementID),
		)
		return domainerrors.ErrSettlementNotFound
	}
	return nil
}

func (r *Repository) AccrueIncome(ctx context.Context, settlementID string, amount int64, poolDelta int64, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&settlementModel{}).
		Where("id = ?", strings.TrimSpace(settlementID)).
		Updates(map[string]any{
			"treasury_gold":       gorm.Expr("treasury_gold + ?", amount),
			"pending_reward_pool": gorm.Expr("pending_reward_pool + ?", poolDelta),
			"updated_at":          now.UTC(),
		})
	if result.Error != nil {
		return r.logError("treasury_repo_accrue_income_failed", result.Error,
			"settlement_id", strings.TrimSpace(settlementID),
			"amount", amount,
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("treasury_repo_accrue_income_not_found",
			"settlement_id", strings.TrimSpace(settlementID),
		)
		return domainerrors.ErrSettlementNotFound
	}
	return nil
}

func (r *Repository) ListHistory(ctx context.Context, settlementID string, limit int) ([]entities.DistributionRecord, error) {
	normalized := strings.TrimSpace(settlementID)
	if limit <= 0 || limit > entities.HistoryCapacity {
		limit = entities.HistoryCapacity
	}
	var exists int64
	if err := r.db.WithContext(ctx).
		Model(&settlementModel{}).
		Where("id = ?", normalized).
		Count(&exists).Error; err != nil {
		return nil, r.logError("treasury_repo_list_history_settlement_check_failed", err,
			"settlement_id", normalized,
		)
	}
	if exists == 0 {
		return nil, domainerrors.ErrSettlementNotFound
	}

	var recordRows []distributionRecordModel
	if err := r.db.WithContext(ctx).
		Where("settlement_id = ?", normalized).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&recordRows).Error; err != nil {
		return nil, r.logError("treasury_repo_list_history_failed", err,
			"settlement_id", normalized,
		)
	}
	records := make([]entities.DistributionRecord, 0, len(recordRows))
	for _, recordRow := range recordRows {
		var recipientRows []distributionRecipientModel
		if err := r.db.WithContext(ctx).
			Where("record_id = ?", recordRow.ID).
			Order("position ASC").
			Find(&recipientRows).Error; err != nil {
			return nil, r.logError("treasury_repo_list_history_recipients_failed", err,
				"settlement_id", normalized,
				"record_id", recordRow.ID,
			)
		}
		recipients := make([]entities.RecipientRecord, 0, len(recipientRows))
		for _, recipientRow := range recipientRows {
			recipients = append(recipients, entities.RecipientRecord{
				PlayerID:     recipientRow.PlayerID,
				PlayerName:   recipientRow.PlayerName,
				GoldReceived: recipientRow.GoldReceived,
				MeritScore:   recipientRow.MeritScore,
				Reputation:   recipientRow.Reputation,
				SkillTotal:   recipientRow.SkillTotal,
			})
		}
		records = append(records, entities.DistributionRecord{
			ID:           recordRow.ID,
			SettlementID: recordRow.SettlementID,
			TotalPool:    recordRow.TotalPool,
			Recipients:   recipients,
			OccurredAt:   recordRow.OccurredAt.UTC(),
		})
	}
	return records, nil
}

// ListSubjects reads roster tables as a read-only projection; treasury never
// mutates roster state outside ApplyDistribution wallet credits.
func (r *Repository) ListSubjects(ctx context.Context, settlementID string) ([]entities.SubjectSnapshot, error) {
	normalized := strings.TrimSpace(settlementID)
	var rows []subjectProjection
	if err := r.db.WithContext(ctx).
		Table("subjects").
		Select("subjects.player_id, subjects.player_name, "+
			"subjects.attack + subjects.defense + subjects.leadership + subjects.building AS skill_total, "+
			"settlement_standings.reputation, settlement_standings.last_check_in_at").
		Joins("JOIN settlement_standings ON settlement_standings.player_id = subjects.player_id").
		Where("settlement_standings.settlement_id = ?", normalized).
		Order("subjects.player_id ASC").
		Scan(&rows).Error; err != nil {
		return nil, r.logError("treasury_repo_list_subjects_failed", err,
			"settlement_id", normalized,
		)
	}
	snapshots := make([]entities.SubjectSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshot := entities.SubjectSnapshot{
			PlayerID:   row.PlayerID,
			PlayerName: row.PlayerName,
			Reputation: row.Reputation,
			SkillTotal: row.SkillTotal,
		}
		if row.LastCheckInAt != nil {
			snapshot.LastCheckInAt = row.LastCheckInAt.UTC()
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func (r *Repository) PendingPool(ctx context.Context, settlementID string) (int64, error) {
	settlement, err := r.GetSettlement(ctx, settlementID)
	if err != nil {
		return 0, err
	}
	return settlement.PendingRewardPool, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("treasury_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := treasuryOutboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return r.logError("treasury_repo_append_outbox_insert_failed", err,
			"outbox_id", row.OutboxID,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []treasuryOutboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("treasury_repo_list_pending_outbox_failed", err,
			"limit", limit,
		)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&treasuryOutboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("treasury_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("treasury_repo_mark_outbox_published_not_found",
			"outbox_id", strings.TrimSpace(outboxID),
		)
		return domainerrors.ErrInvalidTreasuryInput
	}
	return nil
}

// evictHistory deletes records beyond the history capacity, oldest first,
// together with their recipient rows.
func evictHistory(tx *gorm.DB, settlementID string) error {
	var staleIDs []string
	if err := tx.Model(&distributionRecordModel{}).
		Where("settlement_id = ?", settlementID).
		Order("occurred_at DESC").
		Offset(entities.HistoryCapacity).
		Limit(entities.HistoryCapacity).
		Pluck("id", &staleIDs).Error; err != nil {
		return err
	}
	if len(staleIDs) == 0 {
		return nil
	}
	if err := tx.Where("record_id IN ?", staleIDs).
		Delete(&distributionRecipientModel{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", staleIDs).
		Delete(&distributionRecordModel{}).Error
}

type settlementModel struct {
	ID                      string     `gorm:"column:id;primaryKey"`
	Name                    string     `gorm:"column:name"`
	RulerID                 string     `gorm:"column:ruler_id"`
	TreasuryGold            int64      `gorm:"column:treasury_gold"`
	TotalRewardsDistributed int64      `gorm:"column:total_rewards_distributed"`
	PendingRewardPool       int64      `gorm:"column:pending_reward_pool"`
	SubjectRewardRate       int        `gorm:"column:subject_reward_rate"`
	LastDistributionAt      *time.Time `gorm:"column:last_distribution_at"`
	CreatedAt               time.Time  `gorm:"column:created_at"`
	UpdatedAt               time.Time  `gorm:"column:updated_at"`
}

func (settlementModel) TableName() string {
	return "settlements"
}

func settlementModelFromEntity(settlement entities.Settlement) settlementModel {
	row := settlementModel{
		ID:                      strings.TrimSpace(settlement.ID),
		Name:                    strings.TrimSpace(settlement.Name),
		RulerID:                 strings.TrimSpace(settlement.RulerID),
		TreasuryGold:            settlement.TreasuryGold,
		TotalRewardsDistributed: settlement.TotalRewardsDistributed,
		PendingRewardPool:       settlement.PendingRewardPool,
		SubjectRewardRate:       settlement.SubjectRewardRate,
		CreatedAt:               settlement.CreatedAt.UTC(),
		UpdatedAt:               settlement.UpdatedAt.UTC(),
	}
	if !settlement.LastDistributionAt.IsZero() {
		lastAt := settlement.LastDistributionAt.UTC()
		row.LastDistributionAt = &lastAt
	}
	return row
}

func (m settlementModel) toEntity() entities.Settlement {
	settlement := entities.Settlement{
		ID:                      m.ID,
		Name:                    m.Name,
		RulerID:                 m.RulerID,
		TreasuryGold:            m.TreasuryGold,
		TotalRewardsDistributed: m.TotalRewardsDistributed,
		PendingRewardPool:       m.PendingRewardPool,
		SubjectRewardRate:       m.SubjectRewardRate,
		CreatedAt:               m.CreatedAt.UTC(),
		UpdatedAt:               m.UpdatedAt.UTC(),
	}
	if m.LastDistributionAt != nil {
		settlement.LastDistributionAt = m.LastDistributionAt.UTC()
	}
	return settlement
}

type distributionRecordModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	SettlementID string    `gorm:"column:settlement_id"`
	TotalPool    int64     `gorm:"column:total_pool"`
	OccurredAt   time.Time `gorm:"column:occurred_at"`
}

func (distributionRecordModel) TableName() string {
	return "distribution_records"
}

type distributionRecipientModel struct {
	RecordID     string `gorm:"column:record_id;primaryKey"`
	Position     int    `gorm:"column:position;primaryKey"`
	PlayerID     string `gorm:"column:player_id"`
	PlayerName   string `gorm:"column:player_name"`
	GoldReceived int64  `gorm:"column:gold_received"`
	MeritScore   int64  `gorm:"column:merit_score"`
	Reputation   int64  `gorm:"column:reputation"`
	SkillTotal   int64  `gorm:"column:skill_total"`
}

func (distributionRecipientModel) TableName() string {
	return "distribution_recipients"
}

type treasuryOutboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (treasuryOutboxModel) TableName() string {
	return "treasury_outbox"
}

type subjectProjection struct {
	PlayerID      string     `gorm:"column:player_id"`
	PlayerName    string     `gorm:"column:player_name"`
	SkillTotal    int64      `gorm:"column:skill_total"`
	Reputation    int64      `gorm:"column:reputation"`
	LastCheckInAt *time.Time `gorm:"column:last_check_in_at"`
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "realm-economy/treasury-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("treasury repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "realm-economy/treasury-service",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("treasury repository warning", fields...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.SubjectSource = (*Repository)(nil)
var _ ports.RewardPoolSource = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
