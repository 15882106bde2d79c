package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"demesne/contexts/realm-economy/treasury-service/adapters/memory"
	application "demesne/contexts/realm-economy/treasury-service/application"
	"demesne/contexts/realm-economy/treasury-service/domain/entities"
	domainerrors "demesne/contexts/realm-economy/treasury-service/domain/errors"
)

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestClock() *steppingClock {
	return &steppingClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
}

func newTestUseCase(store *memory.Store, clock *steppingClock) UseCase {
	return UseCase{
		Repository:  store,
		Subjects:    store,
		Eligibility: application.StandardEligibility{Now: clock.Now},
		Merit:       application.StandardMerit{},
		Pool:        store,
		Locker:      store,
		Clock:       clock,
		IDGen:       store,
		Outbox:      store,
	}
}

func seedSettlement(store *memory.Store, treasury int64, pool int64) entities.Settlement {
	settlement := entities.Settlement{
		ID:                "settlement-1",
		Name:              "Ravenmoor",
		RulerID:           "ruler-1",
		TreasuryGold:      treasury,
		PendingRewardPool: pool,
		SubjectRewardRate: 50,
	}
	_ = store.CreateSettlement(context.Background(), settlement)
	return settlement
}

func TestDistributeSplitsPoolByMerit(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	seedSettlement(store, 1000, 300)
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-a", PlayerName: "Aldric", Reputation: 30, SkillTotal: 30},
		{PlayerID: "player-b", PlayerName: "Berta", Reputation: 20, SkillTotal: 20},
	})
	uc := newTestUseCase(store, clock)

	outcome, err := uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"})
	if err != nil {
		t.Fatalf("expected distribution to succeed, got %v", err)
	}
	if !outcome.Distributed || outcome.Record == nil {
		t.Fatalf("expected a payout record, got %+v", outcome)
	}
	if outcome.EligibleCount != 2 {
		t.Fatalf("expected 2 eligible subjects, got %d", outcome.EligibleCount)
	}
	if got := store.SubjectGold("player-a"); got != 180 {
		t.Fatalf("expected player-a to receive 180, got %d", got)
	}
	if got := store.SubjectGold("player-b"); got != 120 {
		t.Fatalf("expected player-b to receive 120, got %d", got)
	}

	settlement, err := store.GetSettlement(context.Background(), "settlement-1")
	if err != nil {
		t.Fatalf("settlement lookup failed: %v", err)
	}
	if settlement.TreasuryGold != 700 {
		t.Fatalf("expected treasury 700 after payout, got %d", settlement.TreasuryGold)
	}
	if settlement.PendingRewardPool != 0 {
		t.Fatalf("expected pending pool reset, got %d", settlement.PendingRewardPool)
	}
	if settlement.TotalRewardsDistributed != 300 {
		t.Fatalf("expected lifetime counter 300, got %d", settlement.TotalRewardsDistributed)
	}
	if store.PendingOutboxCount() != 1 {
		t.Fatalf("expected one pending outbox event, got %d", store.PendingOutboxCount())
	}
}

func TestDistributeDeductsOnlyFlooredShares(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	seedSettlement(store, 1000, 100)
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-a", Reputation: 1, SkillTotal: 0},
		{PlayerID: "player-b", Reputation: 1, SkillTotal: 0},
		{PlayerID: "player-c", Reputation: 1, SkillTotal: 0},
	})
	uc := newTestUseCase(store, clock)

	outcome, err := uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"})
	if err != nil {
		t.Fatalf("expected distribution to succeed, got %v", err)
	}
	if outcome.Record.TotalPool != 99 {
		t.Fatalf("expected 99 disbursed from a 100 pool over three equal merits, got %d", outcome.Record.TotalPool)
	}

	settlement, _ := store.GetSettlement(context.Background(), "settlement-1")
	if settlement.TreasuryGold != 901 {
		t.Fatalf("expected treasury 901 after floored payout, got %d", settlement.TreasuryGold)
	}
	var credited int64
	for _, playerID := range []string{"player-a", "player-b", "player-c"} {
		credited += store.SubjectGold(playerID)
	}
	if credited != outcome.Record.TotalPool {
		t.Fatalf("credited %d but record says %d", credited, outcome.Record.TotalPool)
	}
}

func TestDistributeRejectedDuringCooldown(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	seedSettlement(store, 1000, 300)
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-a", Reputation: 10, SkillTotal: 0},
	})
	uc := newTestUseCase(store, clock)

	if _, err := uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"}); err != nil {
		t.Fatalf("first distribution failed: %v", err)
	}

	_ = store.AccrueIncome(context.Background(), "settlement-1", 100, 50, clock.Now())
	clock.Advance(22 * time.Hour)
	_, err := uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"})
	if !errors.Is(err, domainerrors.ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive inside the window, got %v", err)
	}

	clock.Advance(time.Hour)
	if _, err := uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"}); err != nil {
		t.Fatalf("expected distribution after 23h, got %v", err)
	}
}

func TestDistributeEmptyPool(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	seedSettlement(store, 1000, 0)
	uc := newTestUseCase(store, clock)

	_, err := uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"})
	if !errors.Is(err, domainerrors.ErrEmptyRewardPool) {
		t.Fatalf("expected ErrEmptyRewardPool, got %v", err)
	}

	settlement, _ := store.GetSettlement(context.Background(), "settlement-1")
	if !settlement.LastDistributionAt.IsZero() {
		t.Fatalf("empty-pool attempt must not spend the cooldown window")
	}
}

func TestDistributePoolExceedingTreasury(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	seedSettlement(store, 100, 300)
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-a", Reputation: 10, SkillTotal: 0},
	})
	uc := newTestUseCase(store, clock)

	_, err := uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"})
	if !errors.Is(err, domainerrors.ErrInsufficientTreasury) {
		t.Fatalf("expected ErrInsufficientTreasury, got %v", err)
	}
	if got := store.SubjectGold("player-a"); got != 0 {
		t.Fatalf("no gold may move on a rejected distribution, got %d", got)
	}
}

func TestDistributeNoEligibleSubjectsSpendsWindow(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	seedSettlement(store, 1000, 300)
	// Only the ruler is present; rulers never receive shares.
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "ruler-1", Reputation: 100, SkillTotal: 100},
	})
	uc := newTestUseCase(store, clock)

	outcome, err := uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"})
	if err != nil {
		t.Fatalf("no-eligible attempt must not error, got %v", err)
	}
	if outcome.Distributed || outcome.Record != nil {
		t.Fatalf("expected no payout, got %+v", outcome)
	}

	settlement, _ := store.GetSettlement(context.Background(), "settlement-1")
	if settlement.TreasuryGold != 1000 || settlement.PendingRewardPool != 300 {
		t.Fatalf("treasury and pool must be untouched, got %d / %d",
			settlement.TreasuryGold, settlement.PendingRewardPool)
	}
	if !settlement.LastDistributionAt.Equal(clock.Now()) {
		t.Fatalf("no-eligible attempt must spend the cooldown window")
	}

	_, err = uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"})
	if !errors.Is(err, domainerrors.ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive right after a spent window, got %v", err)
	}
}

func TestDistributeExcludesZeroMeritSubjects(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	seedSettlement(store, 1000, 100)
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-a", Reputation: 10, SkillTotal: 0},
		{PlayerID: "player-b", Reputation: 0, SkillTotal: 0},
	})
	uc := newTestUseCase(store, clock)

	outcome, err := uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"})
	if err != nil {
		t.Fatalf("expected distribution to succeed, got %v", err)
	}
	if outcome.EligibleCount != 1 {
		t.Fatalf("expected only the positive-merit subject, got %d", outcome.EligibleCount)
	}
	if got := store.SubjectGold("player-a"); got != 100 {
		t.Fatalf("lone participant should receive the whole pool, got %d", got)
	}
	if got := store.SubjectGold("player-b"); got != 0 {
		t.Fatalf("zero-merit subject must receive nothing, got %d", got)
	}
}

func TestDistributeConcurrentAtMostOncePerWindow(t *testing.T) {
	store := memory.NewStore(nil)
	store.SetLockTimeout(10 * time.Millisecond)
	clock := newTestClock()
	seedSettlement(store, 1000, 300)
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-a", Reputation: 10, SkillTotal: 0},
	})
	uc := newTestUseCase(store, clock)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domainerrors.ErrCooldownActive),
			errors.Is(err, domainerrors.ErrDistributionBusy):
		default:
			t.Fatalf("unexpected concurrent outcome: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one payout per window, got %d", successes)
	}
	if got := store.SubjectGold("player-a"); got != 300 {
		t.Fatalf("expected the pool to be paid exactly once, got %d", got)
	}
}

func TestDistributionHistoryCapped(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	seedSettlement(store, 100000, 100)
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-a", Reputation: 10, SkillTotal: 0},
	})
	uc := newTestUseCase(store, clock)

	rounds := entities.HistoryCapacity + 5
	for i := 0; i < rounds; i++ {
		if _, err := uc.Distribute(context.Background(), DistributeCommand{SettlementID: "settlement-1"}); err != nil {
			t.Fatalf("round %d failed: %v", i, err)
		}
		clock.Advance(24 * time.Hour)
		if err := store.AccrueIncome(context.Background(), "settlement-1", 200, 100, clock.Now()); err != nil {
			t.Fatalf("accrual %d failed: %v", i, err)
		}
	}

	records, err := store.ListHistory(context.Background(), "settlement-1", 0)
	if err != nil {
		t.Fatalf("history listing failed: %v", err)
	}
	if len(records) != entities.HistoryCapacity {
		t.Fatalf("expected history capped at %d, got %d", entities.HistoryCapacity, len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].OccurredAt.After(records[i-1].OccurredAt) {
			t.Fatalf("history must be newest first")
		}
	}
}

func TestSetRewardRateClampsAndAuthorizes(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	seedSettlement(store, 1000, 0)
	uc := newTestUseCase(store, clock)

	settlement, err := uc.SetRewardRate(context.Background(), SetRewardRateCommand{
		SettlementID:   "settlement-1",
		Rate:           150,
		ActingPlayerID: "ruler-1",
	})
	if err != nil {
		t.Fatalf("rate change failed: %v", err)
	}
	if settlement.SubjectRewardRate != 100 {
		t.Fatalf("expected 150 clamped to 100, got %d", settlement.SubjectRewardRate)
	}

	settlement, err = uc.SetRewardRate(context.Background(), SetRewardRateCommand{
		SettlementID:   "settlement-1",
		Rate:           -5,
		ActingPlayerID: "ruler-1",
	})
	if err != nil {
		t.Fatalf("rate change failed: %v", err)
	}
	if settlement.SubjectRewardRate != 0 {
		t.Fatalf("expected -5 clamped to 0, got %d", settlement.SubjectRewardRate)
	}

	_, err = uc.SetRewardRate(context.Background(), SetRewardRateCommand{
		SettlementID:   "settlement-1",
		Rate:           30,
		ActingPlayerID: "player-a",
	})
	if !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-ruler, got %v", err)
	}
}

func TestAccrueIncomeFeedsPoolAtCurrentRate(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	seedSettlement(store, 1000, 0)
	uc := newTestUseCase(store, clock)

	settlement, err := uc.AccrueIncome(context.Background(), AccrueIncomeCommand{
		SettlementID: "settlement-1",
		Amount:       100,
	})
	if err != nil {
		t.Fatalf("accrual failed: %v", err)
	}
	if settlement.TreasuryGold != 1100 {
		t.Fatalf("expected treasury 1100, got %d", settlement.TreasuryGold)
	}
	if settlement.PendingRewardPool != 50 {
		t.Fatalf("expected pool 50 at a 50%% rate, got %d", settlement.PendingRewardPool)
	}
}

func TestFoundSettlementDefaults(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	uc := newTestUseCase(store, clock)

	settlement, err := uc.FoundSettlement(context.Background(), FoundSettlementCommand{
		Name:            "Ravenmoor",
		RulerID:         "ruler-1",
		InitialTreasury: 500,
	})
	if err != nil {
		t.Fatalf("founding failed: %v", err)
	}
	if settlement.SubjectRewardRate != 50 {
		t.Fatalf("expected default reward rate 50, got %d", settlement.SubjectRewardRate)
	}
	if !settlement.LastDistributionAt.IsZero() {
		t.Fatalf("a new settlement must have an open gate")
	}

	_, err = uc.FoundSettlement(context.Background(), FoundSettlementCommand{
		Name:            "Ravenmoor",
		RulerID:         "ruler-2",
		InitialTreasury: 0,
	})
	if !errors.Is(err, domainerrors.ErrSettlementExists) {
		t.Fatalf("expected ErrSettlementExists for duplicate name, got %v", err)
	}
}

func TestProcessDueSettlementsSkipsExpectedOutcomes(t *testing.T) {
	store := memory.NewStore(nil)
	clock := newTestClock()
	seedSettlement(store, 1000, 300)
	_ = store.CreateSettlement(context.Background(), entities.Settlement{
		ID:                 "settlement-2",
		Name:               "Duskwall",
		RulerID:            "ruler-2",
		TreasuryGold:       500,
		PendingRewardPool:  100,
		LastDistributionAt: clock.Now().Add(-time.Hour),
	})
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-a", Reputation: 10, SkillTotal: 0},
	})
	uc := newTestUseCase(store, clock)

	if err := uc.ProcessDueSettlements(context.Background(), 10); err != nil {
		t.Fatalf("scheduler cycle failed: %v", err)
	}
	if got := store.SubjectGold("player-a"); got != 300 {
		t.Fatalf("expected the due settlement to pay out, got %d", got)
	}

	cooled, _ := store.GetSettlement(context.Background(), "settlement-2")
	if cooled.PendingRewardPool != 100 {
		t.Fatalf("settlement inside its window must not pay out, pool now %d", cooled.PendingRewardPool)
	}
}
