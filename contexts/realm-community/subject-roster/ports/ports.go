package ports

import (
	"context"
	"time"

	"demesne/contexts/realm-community/subject-roster/domain/entities"
	"demesne/internal/shared/events"
)

// RosterEntry is a subject joined with their standing in one settlement.
type RosterEntry struct {
	Subject  entities.Subject
	Standing entities.Standing
}

type Repository interface {
	CreateSubject(ctx context.Context, subject entities.Subject) error
	GetSubject(ctx context.Context, playerID string) (entities.Subject, error)
	UpdateSkills(ctx context.Context, playerID string, attack, defense, leadership, building int64, now time.Time) error
	CreditGold(ctx context.Context, playerID string, amount int64, now time.Time) error
	CreateStanding(ctx context.Context, standing entities.Standing) error
	GetStanding(ctx context.Context, settlementID string, playerID string) (entities.Standing, error)
	TouchCheckIn(ctx context.Context, settlementID string, playerID string, now time.Time) error
	AdjustReputation(ctx context.Context, settlementID string, playerID string, delta int64) (entities.Standing, error)
	ListBySettlement(ctx context.Context, settlementID string) ([]RosterEntry, error)
}

type Clock interface {
	Now() time.Time
}

type EventEnvelope = events.Envelope

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}
