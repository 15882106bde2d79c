package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"demesne/contexts/realm-community/subject-roster/adapters/memory"
	"demesne/contexts/realm-community/subject-roster/domain/entities"
	domainerrors "demesne/contexts/realm-community/subject-roster/domain/errors"
	"demesne/contexts/realm-community/subject-roster/ports"
	"demesne/internal/platform/messaging"
)

func seedStanding(t *testing.T, store *memory.Store, settlementID, playerID string, checkedInAt time.Time) {
	t.Helper()
	if err := store.CreateSubject(context.Background(), entities.Subject{
		PlayerID:   playerID,
		PlayerName: "Subject " + playerID,
	}); err != nil {
		t.Fatalf("subject fixture failed: %v", err)
	}
	if err := store.CreateStanding(context.Background(), entities.Standing{
		SettlementID:  settlementID,
		PlayerID:      playerID,
		LastCheckInAt: checkedInAt,
		JoinedAt:      checkedInAt,
	}); err != nil {
		t.Fatalf("standing fixture failed: %v", err)
	}
}

func TestPayoutConsumerRefreshesRecipientStandings(t *testing.T) {
	joined := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	occurredAt := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	store := memory.NewStore(nil)
	seedStanding(t, store, "settlement-1", "player-1", joined)
	seedStanding(t, store, "settlement-1", "player-2", joined)

	bus, err := messaging.NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("bus setup failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := DistributionCompletedConsumer{
		Subscriber: bus,
		Repo:       store,
	}
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("consumer start failed: %v", err)
	}

	err = bus.Publish(ctx, "treasury.distribution.completed", ports.EventEnvelope{
		EventID:      "evt-1",
		EventType:    "treasury.distribution.completed",
		OccurredAt:   occurredAt,
		PartitionKey: "settlement-1",
		Data:         []byte(`{"settlement_id":"settlement-1","record_id":"record-1","recipients":["player-1","player-2"]}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	// Delivery is asynchronous; poll until both standings move.
	deadline := time.Now().Add(2 * time.Second)
	for {
		first, err := store.GetStanding(context.Background(), "settlement-1", "player-1")
		if err != nil {
			t.Fatalf("standing lookup failed: %v", err)
		}
		second, err := store.GetStanding(context.Background(), "settlement-1", "player-2")
		if err != nil {
			t.Fatalf("standing lookup failed: %v", err)
		}
		if first.LastCheckInAt.Equal(occurredAt) && second.LastCheckInAt.Equal(occurredAt) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("standings not refreshed: player-1=%v player-2=%v", first.LastCheckInAt, second.LastCheckInAt)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPayoutConsumerSkipsDepartedRecipients(t *testing.T) {
	joined := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	occurredAt := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	store := memory.NewStore(nil)
	seedStanding(t, store, "settlement-1", "player-1", joined)

	consumer := DistributionCompletedConsumer{Repo: store}
	err := consumer.handle(context.Background(), ports.EventEnvelope{
		EventID:    "evt-1",
		OccurredAt: occurredAt,
		Data:       []byte(`{"settlement_id":"settlement-1","record_id":"record-1","recipients":["departed","player-1"]}`),
	})
	if err != nil {
		t.Fatalf("departed recipient must not fail the event: %v", err)
	}

	standing, err := store.GetStanding(context.Background(), "settlement-1", "player-1")
	if err != nil {
		t.Fatalf("standing lookup failed: %v", err)
	}
	if !standing.LastCheckInAt.Equal(occurredAt) {
		t.Fatalf("remaining recipient must still refresh, got %v", standing.LastCheckInAt)
	}
}

func TestPayoutConsumerRejectsInvalidPayload(t *testing.T) {
	consumer := DistributionCompletedConsumer{Repo: memory.NewStore(nil)}

	err := consumer.handle(context.Background(), ports.EventEnvelope{
		EventID: "evt-1",
		Data:    []byte(`{"record_id":"record-1"}`),
	})
	if !errors.Is(err, domainerrors.ErrInvalidRosterInput) {
		t.Fatalf("expected ErrInvalidRosterInput, got %v", err)
	}

	err = consumer.handle(context.Background(), ports.EventEnvelope{
		EventID: "evt-2",
		Data:    []byte(`not-json`),
	})
	if err == nil {
		t.Fatalf("malformed payload must fail")
	}
}
