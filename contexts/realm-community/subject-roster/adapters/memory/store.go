package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"demesne/contexts/realm-community/subject-roster/domain/entities"
	domainerrors "demesne/contexts/realm-community/subject-roster/domain/errors"
	"demesne/contexts/realm-community/subject-roster/ports"
)

type standingKey struct {
	settlementID string
	playerID     string
}

// Store is a mutex-guarded in-memory roster used by tests and the
// in-memory module wiring.
type Store struct {
	mu        sync.RWMutex
	subjects  map[string]entities.Subject
	standings map[standingKey]entities.Standing
}

func NewStore(seed []entities.Subject) *Store {
	store := &Store{
		subjects:  make(map[string]entities.Subject, len(seed)),
		standings: make(map[standingKey]entities.Standing),
	}
	for _, subject := range seed {
		store.subjects[subject.PlayerID] = subject
	}
	return store
}

func (s *Store) CreateSubject(_ context.Context, subject entities.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.subjects[subject.PlayerID]; exists {
		return domainerrors.ErrSubjectExists
	}
	s.subjects[subject.PlayerID] = subject
	return nil
}

func (s *Store) GetSubject(_ context.Context, playerID string) (entities.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subject, ok := s.subjects[playerID]
	if !ok {
		return entities.Subject{}, domainerrors.ErrSubjectNotFound
	}
	return subject, nil
}

func (s *Store) UpdateSkills(_ context.Context, playerID string, attack, defense, leadership, building int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.subjects[playerID]
	if !ok {
		return domainerrors.ErrSubjectNotFound
	}
	subject.Attack = attack
	subject.Defense = defense
	subject.Leadership = leadership
	subject.Building = building
	subject.UpdatedAt = now.UTC()
	s.subjects[playerID] = subject
	return nil
}

func (s *Store) CreditGold(_ context.Context, playerID string, amount int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.subjects[playerID]
	if !ok {
		return domainerrors.ErrSubjectNotFound
	}
	subject.GoldBalance += amount
	subject.UpdatedAt = now.UTC()
	s.subjects[playerID] = subject
	return nil
}

func (s *Store) CreateStanding(_ context.Context, standing entities.Standing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := standingKey{settlementID: standing.SettlementID, playerID: standing.PlayerID}
	if _, exists := s.standings[key]; exists {
		return domainerrors.ErrAlreadyJoined
	}
	s.standings[key] = standing
	return nil
}

func (s *Store) GetStanding(_ context.Context, settlementID string, playerID string) (entities.Standing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	standing, ok := s.standings[standingKey{settlementID: settlementID, playerID: playerID}]
	if !ok {
		return entities.Standing{}, domainerrors.ErrStandingNotFound
	}
	return standing, nil
}

func (s *Store) TouchCheckIn(_ context.Context, settlementID string, playerID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := standingKey{settlementID: settlementID, playerID: playerID}
	standing, ok := s.standings[key]
	if !ok {
		return domainerrors.ErrStandingNotFound
	}
	standing.LastCheckInAt = now.UTC()
	s.standings[key] = standing
	return nil
}

func (s *Store) AdjustReputation(_ context.Context, settlementID string, playerID string, delta int64) (entities.Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := standingKey{settlementID: settlementID, playerID: playerID}
	standing, ok := s.standings[key]
	if !ok {
		return entities.Standing{}, domainerrors.ErrStandingNotFound
	}
	standing.Reputation += delta
	s.standings[key] = standing
	return standing, nil
}

func (s *Store) ListBySettlement(_ context.Context, settlementID string) ([]ports.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]ports.RosterEntry, 0)
	for key, standing := range s.standings {
		if key.settlementID != settlementID {
			continue
		}
		subject, ok := s.subjects[key.playerID]
		if !ok {
			continue
		}
		entries = append(entries, ports.RosterEntry{Subject: subject, Standing: standing})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Subject.PlayerID < entries[j].Subject.PlayerID
	})
	return entries, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

var _ ports.Repository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
