package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"demesne/contexts/realm-community/subject-roster/domain/entities"
	domainerrors "demesne/contexts/realm-community/subject-roster/domain/errors"
	"demesne/contexts/realm-community/subject-roster/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
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

func (r *Repository) CreateSubject(ctx context.Context, subject entities.Subject) error {
	row := subjectModelFromEntity(subject)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrSubjectExists
		}
		return r.logError("roster_repo_create_subject_failed", err,
			"player_id", row.PlayerID,
		)
	}
	return nil
}

func (r *Repository) GetSubject(ctx context.Context, playerID string) (entities.Subject, error) {
	var row subjectModel
	err := r.db.WithContext(ctx).
		Where("player_id = ?", strings.TrimSpace(playerID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Subject{}, domainerrors.ErrSubjectNotFound
		}
		return entities.Subject{}, r.logError("roster_repo_get_subject_failed", err,
			"player_id", strings.TrimSpace(playerID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) UpdateSkills(ctx context.Context, playerID string, attack, defense, leadership, building int64, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&subjectModel{}).
		Where("player_id = ?", strings.TrimSpace(playerID)).
		Updates(map[string]any{
			"attack":     attack,
			"defense":    defense,
			"leadership": leadership,
			"building":   building,
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		return r.logError("roster_repo_update_skills_failed", result.Error,
			"player_id", strings.TrimSpace(playerID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSubjectNotFound
	}
	return nil
}

func (r *Repository) CreditGold(ctx context.Context, playerID string, amount int64, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&subjectModel{}).
		Where("player_id = ?", strings.TrimSpace(playerID)).
		Updates(map[string]any{
			"gold_balance": gorm.Expr("gold_balance + ?", amount),
			"updated_at":   now.UTC(),
		})
	if result.Error != nil {
		return r.logError("roster_repo_credit_gold_failed", result.Error,
			"player_id", strings.TrimSpace(playerID),
			"amount", amount,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSubjectNotFound
	}
	return nil
}

func (r *Repository) CreateStanding(ctx context.Context, standing entities.Standing) error {
	row := standingModelFromEntity(standing)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyJoined
		}
		return r.logError("roster_repo_create_standing_failed", err,
			"settlement_id", row.SettlementID,
			"player_id", row.PlayerID,
		)
	}
	return nil
}

func (r *Repository) GetStanding(ctx context.Context, settlementID string, playerID string) (entities.Standing, error) {
	var row standingModel
	err := r.db.WithContext(ctx).
		Where("settlement_id = ?", strings.TrimSpace(settlementID)).
		Where("player_id = ?", strings.TrimSpace(playerID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Standing{}, domainerrors.ErrStandingNotFound
		}
		return entities.Standing{}, r.logError("roster_repo_get_standing_failed", err,
			"settlement_id", strings.TrimSpace(settlementID),
			"player_id", strings.TrimSpace(playerID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) TouchCheckIn(ctx context.Context, settlementID string, playerID string, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&standingModel{}).
		Where("settlement_id = ?", strings.TrimSpace(settlementID)).
		Where("player_id = ?", strings.TrimSpace(playerID)).
		Update("last_check_in_at", now.UTC())
	if result.Error != nil {
		return r.logError("roster_repo_touch_check_in_failed", result.Error,
			"settlement_id", strings.TrimSpace(settlementID),
			"player_id", strings.TrimSpace(playerID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrStandingNotFound
	}
	return nil
}

func (r *Repository) AdjustReputation(ctx context.Context, settlementID string, playerID string, delta int64) (entities.Standing, error) {
	result := r.db.WithContext(ctx).
		Model(&standingModel{}).
		Where("settlement_id = ?", strings.TrimSpace(settlementID)).
		Where("player_id = ?", strings.TrimSpace(playerID)).
		Update("reputation", gorm.Expr("reputation + ?", delta))
	if result.Error != nil {
		return entities.Standing{}, r.logError("roster_repo_adjust_reputation_failed", result.Error,
			"settlement_id", strings.TrimSpace(settlementID),
			"player_id", strings.TrimSpace(playerID),
			"delta", delta,
		)
	}
	if result.RowsAffected == 0 {
		return entities.Standing{}, domainerrors.ErrStandingNotFound
	}
	return r.GetStanding(ctx, settlementID, playerID)
}

func (r *Repository) ListBySettlement(ctx context.Context, settlementID string) ([]ports.RosterEntry, error) {
	normalized := strings.TrimSpace(settlementID)
	var standingRows []standingModel
	if err := r.db.WithContext(ctx).
		Where("settlement_id = ?", normalized).
		Order("player_id ASC").
		Find(&standingRows).Error; err != nil {
		return nil, r.logError("roster_repo_list_by_settlement_failed", err,
			"settlement_id", normalized,
		)
	}
	entries := make([]ports.RosterEntry, 0, len(standingRows))
	for _, standingRow := range standingRows {
		var subjectRow subjectModel
		err := r.db.WithContext(ctx).
			Where("player_id = ?", standingRow.PlayerID).
			First(&subjectRow).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, r.logError("roster_repo_list_by_settlement_subject_failed", err,
				"settlement_id", normalized,
				"player_id", standingRow.PlayerID,
			)
		}
		entries = append(entries, ports.RosterEntry{
			Subject:  subjectRow.toEntity(),
			Standing: standingRow.toEntity(),
		})
	}
	return entries, nil
}

type subjectModel struct {
	PlayerID    string    `gorm:"column:player_id;primaryKey"`
	PlayerName  string    `gorm:"column:player_name"`
	Attack      int64     `gorm:"column:attack"`
	Defense     int64     `gorm:"column:defense"`
	Leadership  int64     `gorm:"column:leadership"`
	Building    int64     `gorm:"column:building"`
	GoldBalance int64     `gorm:"column:gold_balance"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (subjectModel) TableName() string {
	return "subjects"
}

func subjectModelFromEntity(subject entities.Subject) subjectModel {
	return subjectModel{
		PlayerID:    strings.TrimSpace(subject.PlayerID),
		PlayerName:  strings.TrimSpace(subject.PlayerName),
		Attack:      subject.Attack,
		Defense:     subject.Defense,
		Leadership:  subject.Leadership,
		Building:    subject.Building,
		GoldBalance: subject.GoldBalance,
		CreatedAt:   subject.CreatedAt.UTC(),
		UpdatedAt:   subject.UpdatedAt.UTC(),
	}
}

func (m subjectModel) toEntity() entities.Subject {
	return entities.Subject{
		PlayerID:    m.PlayerID,
		PlayerName:  m.PlayerName,
		Attack:      m.Attack,
		Defense:     m.Defense,
		Leadership:  m.Leadership,
		Building:    m.Building,
		GoldBalance: m.GoldBalance,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type standingModel struct {
	SettlementID  string     `gorm:"column:settlement_id;primaryKey"`
	PlayerID      string     `gorm:"column:player_id;primaryKey"`
	Reputation    int64      `gorm:"column:reputation"`
	LastCheckInAt *time.Time `gorm:"column:last_check_in_at"`
	JoinedAt      time.Time  `gorm:"column:joined_at"`
}

func (standingModel) TableName() string {
	return "settlement_standings"
}

func standingModelFromEntity(standing entities.Standing) standingModel {
	row := standingModel{
		SettlementID: strings.TrimSpace(standing.SettlementID),
		PlayerID:     strings.TrimSpace(standing.PlayerID),
		Reputation:   standing.Reputation,
		JoinedAt:     standing.JoinedAt.UTC(),
	}
	if !standing.LastCheckInAt.IsZero() {
		checkIn := standing.LastCheckInAt.UTC()
		row.LastCheckInAt = &checkIn
	}
	return row
}

func (m standingModel) toEntity() entities.Standing {
	standing := entities.Standing{
		SettlementID: m.SettlementID,
		PlayerID:     m.PlayerID,
		Reputation:   m.Reputation,
		JoinedAt:     m.JoinedAt.UTC(),
	}
	if m.LastCheckInAt != nil {
		standing.LastCheckInAt = m.LastCheckInAt.UTC()
	}
	return standing
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "realm-community/subject-roster",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("roster repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
