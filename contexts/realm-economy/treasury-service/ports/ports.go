package ports

import (
	"context"
	"time"

	"demesne/contexts/realm-economy/treasury-service/domain/entities"
	"demesne/internal/shared/events"
)

// GoldCredit is one recipient wallet mutation applied with a distribution.
type GoldCredit struct {
	PlayerID string
	Amount   int64
}

// ApplyDistributionInput is the single atomic unit of a successful payout:
// treasury deduction, lifetime counter, pending pool reset, history prepend
// with eviction beyond capacity, recipient credits, and the timestamp
// advance. A partial application is a correctness violation.
type ApplyDistributionInput struct {
	SettlementID string
	Record       entities.DistributionRecord
	Credits      []GoldCredit
	Now          time.Time
}

type Repository interface {
	CreateSettlement(ctx context.Context, settlement entities.Settlement) error
	GetSettlement(ctx context.Context, settlementID string) (entities.Settlement, error)
	// ListDueSettlements returns settlements whose cooldown gate is open at
	// now and whose pending pool is positive, oldest gate first.
	ListDueSettlements(ctx context.Context, now time.Time, limit int) ([]entities.Settlement, error)
	ApplyDistribution(ctx context.Context, input ApplyDistributionInput) error
	// TouchLastDistribution advances the cooldown timestamp without touching
	// the treasury; used when the gate opens onto an empty participant set.
	TouchLastDistribution(ctx context.Context, settlementID string, now time.Time) error
	UpdateRewardRate(ctx context.Context, settlementID string, rate int, now time.Time) error
	AccrueIncome(ctx context.Context, settlementID string, amount int64, poolDelta int64, now time.Time) error
	ListHistory(ctx context.Context, settlementID string, limit int) ([]entities.DistributionRecord, error)
}

// SubjectSource lists the subjects of a settlement as read snapshots.
// Lookups must complete before the exclusive section begins.
type SubjectSource interface {
	ListSubjects(ctx context.Context, settlementID string) ([]entities.SubjectSnapshot, error)
}

// EligibilityEvaluator decides whether a subject qualifies for a share.
// Must be deterministic for a given input pair within one distribution run.
type EligibilityEvaluator interface {
	IsEligible(subject entities.SubjectSnapshot, settlement entities.Settlement) bool
}

// MeritScorer computes the non-negative proportional weight of a subject.
// Subjects scoring zero are excluded from the participant set.
type MeritScorer interface {
	MeritScore(subject entities.SubjectSnapshot, settlementID string) int64
}

// RewardPoolSource supplies the externally computed pending reward pool.
// The engine only validates that it is positive and within the treasury.
type RewardPoolSource interface {
	PendingPool(ctx context.Context, settlementID string) (int64, error)
}

// SettlementLocker provides per-settlement mutual exclusion with a bounded
// acquire timeout. Distributions for different settlements are independent.
type SettlementLocker interface {
	Acquire(ctx context.Context, settlementID string) (release func(), err error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = events.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
