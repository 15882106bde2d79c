package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"demesne/contexts/realm-community/subject-roster/domain/entities"
	domainerrors "demesne/contexts/realm-community/subject-roster/domain/errors"
	"demesne/contexts/realm-community/subject-roster/ports"
)

type Service struct {
	Repo   ports.Repository
	Clock  ports.Clock
	Logger *slog.Logger
}

type RegisterSubjectInput struct {
	PlayerID   string
	PlayerName string
	Attack     int64
	Defense    int64
	Leadership int64
	Building   int64
}

func (s Service) RegisterSubject(ctx context.Context, input RegisterSubjectInput) (entities.Subject, error) {
	playerID := strings.TrimSpace(input.PlayerID)
	playerName := strings.TrimSpace(input.PlayerName)
	if playerID == "" || playerName == "" ||
		input.Attack < 0 || input.Defense < 0 || input.Leadership < 0 || input.Building < 0 {
		return entities.Subject{}, domainerrors.ErrInvalidRosterInput
	}
	now := s.now()
	subject := entities.Subject{
		PlayerID:   playerID,
		PlayerName: playerName,
		Attack:     input.Attack,
		Defense:    input.Defense,
		Leadership: input.Leadership,
		Building:   input.Building,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.CreateSubject(ctx, subject); err != nil {
		return entities.Subject{}, err
	}
	resolveLogger(s.Logger).Info("subject registered",
		"event", "roster_subject_registered",
		"module", "realm-community/subject-roster",
		"layer", "application",
		"player_id", playerID,
		"skill_total", subject.SkillTotal(),
	)
	return subject, nil
}

func (s Service) GetSubject(ctx context.Context, playerID string) (entities.Subject, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return entities.Subject{}, domainerrors.ErrInvalidRosterInput
	}
	return s.Repo.GetSubject(ctx, playerID)
}

type TrainSkillsInput struct {
	PlayerID   string
	Attack     int64
	Defense    int64
	Leadership int64
	Building   int64
}

// TrainSkills replaces a subject's skill values. Skills only ever grow in
// the game, but the roster does not enforce monotonicity; upstream callers
// own that rule.
func (s Service) TrainSkills(ctx context.Context, input TrainSkillsInput) (entities.Subject, error) {
	playerID := strings.TrimSpace(input.PlayerID)
	if playerID == "" ||
		input.Attack < 0 || input.Defense < 0 || input.Leadership < 0 || input.Building < 0 {
		return entities.Subject{}, domainerrors.ErrInvalidRosterInput
	}
	if err := s.Repo.UpdateSkills(ctx, playerID,
		input.Attack, input.Defense, input.Leadership, input.Building, s.now()); err != nil {
		return entities.Subject{}, err
	}
	return s.Repo.GetSubject(ctx, playerID)
}

func (s Service) CreditGold(ctx context.Context, playerID string, amount int64) (entities.Subject, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" || amount <= 0 {
		return entities.Subject{}, domainerrors.ErrInvalidRosterInput
	}
	if err := s.Repo.CreditGold(ctx, playerID, amount, s.now()); err != nil {
		return entities.Subject{}, err
	}
	resolveLogger(s.Logger).Info("subject gold credited",
		"event", "roster_gold_credited",
		"module", "realm-community/subject-roster",
		"layer", "application",
		"player_id", playerID,
		"amount", amount,
	)
	return s.Repo.GetSubject(ctx, playerID)
}

func (s Service) JoinSettlement(ctx context.Context, settlementID string, playerID string) (entities.Standing, error) {
	settlementID = strings.TrimSpace(settlementID)
	playerID = strings.TrimSpace(playerID)
	if settlementID == "" || playerID == "" {
		return entities.Standing{}, domainerrors.ErrInvalidRosterInput
	}
	if _, err := s.Repo.GetSubject(ctx, playerID); err != nil {
		return entities.Standing{}, err
	}
	now := s.now()
	standing := entities.Standing{
		SettlementID:  settlementID,
		PlayerID:      playerID,
		Reputation:    0,
		LastCheckInAt: now,
		JoinedAt:      now,
	}
	if err := s.Repo.CreateStanding(ctx, standing); err != nil {
		return entities.Standing{}, err
	}
	resolveLogger(s.Logger).Info("subject joined settlement",
		"event", "roster_settlement_joined",
		"module", "realm-community/subject-roster",
		"layer", "application",
		"settlement_id", settlementID,
		"player_id", playerID,
	)
	return standing, nil
}

func (s Service) CheckIn(ctx context.Context, settlementID string, playerID string) (entities.Standing, error) {
	settlementID = strings.TrimSpace(settlementID)
	playerID = strings.TrimSpace(playerID)
	if settlementID == "" || playerID == "" {
		return entities.Standing{}, domainerrors.ErrInvalidRosterInput
	}
	now := s.now()
	if err := s.Repo.TouchCheckIn(ctx, settlementID, playerID, now); err != nil {
		return entities.Standing{}, err
	}
	return s.Repo.GetStanding(ctx, settlementID, playerID)
}

func (s Service) AdjustReputation(ctx context.Context, settlementID string, playerID string, delta int64) (entities.Standing, error) {
	settlementID = strings.TrimSpace(settlementID)
	playerID = strings.TrimSpace(playerID)
	if settlementID == "" || playerID == "" || delta == 0 {
		return entities.Standing{}, domainerrors.ErrInvalidRosterInput
	}
	standing, err := s.Repo.AdjustReputation(ctx, settlementID, playerID, delta)
	if err != nil {
		return entities.Standing{}, err
	}
	resolveLogger(s.Logger).Info("subject reputation adjusted",
		"event", "roster_reputation_adjusted",
		"module", "realm-community/subject-roster",
		"layer", "application",
		"settlement_id", settlementID,
		"player_id", playerID,
		"delta", delta,
		"reputation", standing.Reputation,
	)
	return standing, nil
}

func (s Service) ListBySettlement(ctx context.Context, settlementID string) ([]ports.RosterEntry, error) {
	settlementID = strings.TrimSpace(settlementID)
	if settlementID == "" {
		return nil, domainerrors.ErrInvalidRosterInput
	}
	return s.Repo.ListBySettlement(ctx, settlementID)
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
