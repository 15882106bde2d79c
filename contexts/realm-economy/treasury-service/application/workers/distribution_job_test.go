package workers

import (
	"context"
	"testing"
	"time"

	"demesne/contexts/realm-economy/treasury-service/adapters/memory"
	application "demesne/contexts/realm-economy/treasury-service/application"
	"demesne/contexts/realm-economy/treasury-service/application/commands"
	"demesne/contexts/realm-economy/treasury-service/domain/entities"
)

func TestDistributionJobPaysOutDueSettlements(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore([]entities.Settlement{{
		ID:                "settlement-1",
		Name:              "Rivermoot",
		RulerID:           "ruler-1",
		TreasuryGold:      1000,
		PendingRewardPool: 300,
		SubjectRewardRate: 50,
	}})
	store.SeedSubjects("settlement-1", []entities.SubjectSnapshot{
		{PlayerID: "player-1", PlayerName: "Aldric", Reputation: 60, LastCheckInAt: clock.now},
		{PlayerID: "player-2", PlayerName: "Mira", Reputation: 40, LastCheckInAt: clock.now},
	})

	job := DistributionJob{
		Commands: commands.UseCase{
			Repository:  store,
			Subjects:    store,
			Eligibility: application.StandardEligibility{Now: clock.Now},
			Merit:       application.StandardMerit{},
			Pool:        store,
			Locker:      store,
			Clock:       clock,
			IDGen:       store,
			Outbox:      store,
		},
	}
	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("job cycle failed: %v", err)
	}

	settlement, err := store.GetSettlement(context.Background(), "settlement-1")
	if err != nil {
		t.Fatalf("settlement lookup failed: %v", err)
	}
	if settlement.PendingRewardPool != 0 {
		t.Fatalf("expected drained pool, got %d", settlement.PendingRewardPool)
	}
	if settlement.TreasuryGold != 700 {
		t.Fatalf("expected treasury 700 after payout, got %d", settlement.TreasuryGold)
	}
	if got := store.SubjectGold("player-1"); got != 180 {
		t.Fatalf("expected 180 for player-1, got %d", got)
	}

	// A second cycle inside the window changes nothing.
	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("second job cycle failed: %v", err)
	}
	if got := store.SubjectGold("player-1"); got != 180 {
		t.Fatalf("cooldown must hold the balance at 180, got %d", got)
	}
}
