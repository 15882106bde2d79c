package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"demesne/contexts/realm-economy/treasury-service/domain/entities"
	domainerrors "demesne/contexts/realm-economy/treasury-service/domain/errors"
	"demesne/contexts/realm-economy/treasury-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

// Store is the in-memory adapter behind every treasury port. It backs tests
// and the in-memory module; per-settlement locks live here too.
type Store struct {
	mu sync.RWMutex

	settlements map[string]entities.Settlement
	history     map[string][]entities.DistributionRecord
	subjects    map[string][]entities.SubjectSnapshot
	wallets     map[string]int64
	outbox      map[string]outboxRecord

	locker *Locker
}

func NewStore(seed []entities.Settlement) *Store {
	settlements := make(map[string]entities.Settlement, len(seed))
	for _, settlement := range seed {
		settlements[settlement.ID] = settlement
	}
	return &Store{
		settlements: settlements,
		history:     make(map[string][]entities.DistributionRecord),
		subjects:    make(map[string][]entities.SubjectSnapshot),
		wallets:     make(map[string]int64),
		outbox:      make(map[string]outboxRecord),
		locker:      NewLocker(5 * time.Second),
	}
}

// SetLockTimeout bounds Acquire; useful for contention tests.
func (s *Store) SetLockTimeout(timeout time.Duration) {
	s.locker = NewLocker(timeout)
}

// SeedSubjects registers subject snapshots for a settlement.
func (s *Store) SeedSubjects(settlementID string, subjects []entities.SubjectSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[settlementID] = append([]entities.SubjectSnapshot(nil), subjects...)
}

// SubjectGold reports a subject's credited balance.
func (s *Store) SubjectGold(playerID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallets[playerID]
}

// PendingOutboxCount reports unpublished outbox rows.
func (s *Store) PendingOutboxCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, row := range s.outbox {
		if row.PublishedAt == nil {
			count++
		}
	}
	return count
}

func (s *Store) CreateSettlement(_ context.Context, settlement entities.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.settlements[settlement.ID]; exists {
		return domainerrors.ErrSettlementExists
	}
	for _, existing := range s.settlements {
		if existing.Name == settlement.Name {
			return domainerrors.ErrSettlementExists
		}
	}
	s.settlements[settlement.ID] = settlement
	return nil
}

func (s *Store) GetSettlement(_ context.Context, settlementID string) (entities.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settlement, exists := s.settlements[strings.TrimSpace(settlementID)]
	if !exists {
		return entities.Settlement{}, domainerrors.ErrSettlementNotFound
	}
	return settlement, nil
}

func (s *Store) ListDueSettlements(_ context.Context, now time.Time, limit int) ([]entities.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	due := make([]entities.Settlement, 0, limit)
	for _, settlement := range s.settlements {
		if !settlement.CanDistribute(now) || settlement.PendingRewardPool <= 0 {
			continue
		}
		due = append(due, settlement)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].LastDistributionAt.Before(due[j].LastDistributionAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *Store) ApplyDistribution(_ context.Context, input ports.ApplyDistributionInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settlement, exists := s.settlements[input.SettlementID]
	if !exists {
		return domainerrors.ErrSettlementNotFound
	}
	if input.Record.TotalPool > settlement.TreasuryGold {
		return domainerrors.ErrInsufficientTreasury
	}

	settlement.TreasuryGold -= input.Record.TotalPool
	settlement.TotalRewardsDistributed += input.Record.TotalPool
	settlement.PendingRewardPool = 0
	settlement.LastDistributionAt = input.Now
	settlement.UpdatedAt = input.Now
	s.settlements[input.SettlementID] = settlement

	log := append([]entities.DistributionRecord{input.Record}, s.history[input.SettlementID]...)
	if len(log) > entities.HistoryCapacity {
		log = log[:entities.HistoryCapacity]
	}
	s.history[input.SettlementID] = log

	for _, credit := range input.Credits {
		s.wallets[credit.PlayerID] += credit.Amount
	}
	return nil
}

func (s *Store) TouchLastDistribution(_ context.Context, settlementID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settlement, exists := s.settlements[settlementID]
	if !exists {
		return domainerrors.ErrSettlementNotFound
	}
	settlement.LastDistributionAt = now
	settlement.UpdatedAt = now
	s.settlements[settlementID] = settlement
	return nil
}

func (s *Store) UpdateRewardRate(_ context.Context, settlementID string, rate int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settlement, exists := s.settlements[settlementID]
	if !exists {
		return domainerrors.ErrSettlementNotFound
	}
	settlement.SubjectRewardRate = rate
	settlement.UpdatedAt = now
	s.settlements[settlementID] = settlement
	return nil
}

func (s *Store) AccrueIncome(_ context.Context, settlementID string, amount int64, poolDelta int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settlement, exists := s.settlements[settlementID]
	if !exists {
		return domainerrors.ErrSettlementNotFound
	}
	settlement.TreasuryGold += amount
	settlement.PendingRewardPool += poolDelta
	settlement.UpdatedAt = now
	s.settlements[settlementID] = settlement
	return nil
}

func (s *Store) ListHistory(_ context.Context, settlementID string, limit int) ([]entities.DistributionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.settlements[strings.TrimSpace(settlementID)]; !exists {
		return nil, domainerrors.ErrSettlementNotFound
	}
	log := s.history[strings.TrimSpace(settlementID)]
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}
	out := make([]entities.DistributionRecord, limit)
	copy(out, log[:limit])
	return out, nil
}

func (s *Store) ListSubjects(_ context.Context, settlementID string) ([]entities.SubjectSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.SubjectSnapshot(nil), s.subjects[strings.TrimSpace(settlementID)]...), nil
}

func (s *Store) PendingPool(_ context.Context, settlementID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settlement, exists := s.settlements[strings.TrimSpace(settlementID)]
	if !exists {
		return 0, domainerrors.ErrSettlementNotFound
	}
	return settlement.PendingRewardPool, nil
}

func (s *Store) Acquire(ctx context.Context, settlementID string) (func(), error) {
	return s.locker.Acquire(ctx, settlementID)
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, exists := s.outbox[outboxID]; exists {
		return nil
	}
	s.outbox[outboxID] = outboxRecord{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.PublishedAt == nil {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
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

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrInvalidTreasuryInput
	}
	timestamp := publishedAt.UTC()
	row.PublishedAt = &timestamp
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Repository = (*Store)(nil)
var _ ports.SubjectSource = (*Store)(nil)
var _ ports.RewardPoolSource = (*Store)(nil)
var _ ports.SettlementLocker = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
