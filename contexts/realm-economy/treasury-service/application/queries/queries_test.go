package queries

import (
	"context"
	"testing"
	"time"

	"demesne/contexts/realm-economy/treasury-service/adapters/memory"
	application "demesne/contexts/realm-economy/treasury-service/application"
	"demesne/contexts/realm-economy/treasury-service/domain/entities"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newTestUseCase(store *memory.Store, clock fixedClock) UseCase {
	return UseCase{
		Repository:  store,
		Subjects:    store,
		Eligibility: application.StandardEligibility{Now: clock.Now},
		Merit:       application.StandardMerit{},
		Pool:        store,
		Clock:       clock,
	}
}

func seedSettlement(store *memory.Store, treasury int64, pool int64, lastDistribution time.Time) {
	_ = store.CreateSettlement(context.Background(), entities.Settlement{
		ID:                 "settlement-1",
		Name:               "Ravenmoor",
		RulerID:            "ruler-1",
		TreasuryGold:       treasury,
		PendingRewardPool:  pool,
		SubjectRewardRate:  50,
		LastDistributionAt: lastDistribution,
	})
}

func TestEstimatedShareIsProportionalAndReadOnly(t *testing.T) {
	store := memory.NewStore(nil)
	clock := fixedClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
	seedSettlement(store, 1000, 300, time.Time{})
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-a", Reputation: 30, SkillTotal: 30},
		{PlayerID: "player-b", Reputation: 20, SkillTotal: 20},
	})
	uc := newTestUseCase(store, clock)

	share, err := uc.EstimatedShare(context.Background(), "player-a", "settlement-1")
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if share != 180 {
		t.Fatalf("expected estimate 180, got %d", share)
	}

	// Estimating again must return the same value: the preview never
	// mutates treasury, pool, or wallets.
	again, err := uc.EstimatedShare(context.Background(), "player-a", "settlement-1")
	if err != nil {
		t.Fatalf("second estimate failed: %v", err)
	}
	if again != share {
		t.Fatalf("estimate changed between calls: %d then %d", share, again)
	}
	settlement, _ := store.GetSettlement(context.Background(), "settlement-1")
	if settlement.TreasuryGold != 1000 || settlement.PendingRewardPool != 300 {
		t.Fatalf("estimate mutated state: treasury %d pool %d",
			settlement.TreasuryGold, settlement.PendingRewardPool)
	}
	if got := store.SubjectGold("player-a"); got != 0 {
		t.Fatalf("estimate credited gold: %d", got)
	}
}

func TestEstimatedShareLoneParticipantGetsWholePool(t *testing.T) {
	store := memory.NewStore(nil)
	clock := fixedClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
	seedSettlement(store, 1000, 300, time.Time{})
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-a", Reputation: 7, SkillTotal: 0},
	})
	uc := newTestUseCase(store, clock)

	share, err := uc.EstimatedShare(context.Background(), "player-a", "settlement-1")
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if share != 300 {
		t.Fatalf("lone participant should estimate the whole pool, got %d", share)
	}
}

func TestEstimatedShareZeroForIneligible(t *testing.T) {
	store := memory.NewStore(nil)
	clock := fixedClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
	seedSettlement(store, 1000, 300, time.Time{})
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "ruler-1", Reputation: 50, SkillTotal: 50},
		{PlayerID: "player-a", Reputation: 10, SkillTotal: 0},
	})
	uc := newTestUseCase(store, clock)

	share, err := uc.EstimatedShare(context.Background(), "ruler-1", "settlement-1")
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if share != 0 {
		t.Fatalf("the ruler never receives a share, got %d", share)
	}

	share, err = uc.EstimatedShare(context.Background(), "player-absent", "settlement-1")
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if share != 0 {
		t.Fatalf("unknown players estimate zero, got %d", share)
	}
}

func TestEstimatedShareClampsPoolToTreasury(t *testing.T) {
	store := memory.NewStore(nil)
	clock := fixedClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
	seedSettlement(store, 100, 300, time.Time{})
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-a", Reputation: 10, SkillTotal: 0},
	})
	uc := newTestUseCase(store, clock)

	share, err := uc.EstimatedShare(context.Background(), "player-a", "settlement-1")
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if share != 100 {
		t.Fatalf("estimate must clamp to the treasury balance, got %d", share)
	}
}

func TestCooldownStatus(t *testing.T) {
	store := memory.NewStore(nil)
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}
	seedSettlement(store, 1000, 0, now.Add(-time.Hour))
	uc := newTestUseCase(store, clock)

	status, err := uc.Cooldown(context.Background(), "settlement-1")
	if err != nil {
		t.Fatalf("cooldown query failed: %v", err)
	}
	if status.Open {
		t.Fatalf("gate must be shut one hour after a payout")
	}
	if status.Remaining != 22*time.Hour {
		t.Fatalf("expected 22h remaining, got %s", status.Remaining)
	}
	if !status.NextAttemptAt.Equal(now.Add(22 * time.Hour)) {
		t.Fatalf("unexpected next attempt time %s", status.NextAttemptAt)
	}
}
