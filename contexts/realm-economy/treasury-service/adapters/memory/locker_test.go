package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	domainerrors "demesne/contexts/realm-economy/treasury-service/domain/errors"
)

func TestLockerSerializesPerSettlement(t *testing.T) {
	locker := NewLocker(50 * time.Millisecond)

	release, err := locker.Acquire(context.Background(), "settlement-1")
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	if _, err := locker.Acquire(context.Background(), "settlement-1"); !errors.Is(err, domainerrors.ErrDistributionBusy) {
		t.Fatalf("expected ErrDistributionBusy while held, got %v", err)
	}

	// Other settlements stay independent.
	otherRelease, err := locker.Acquire(context.Background(), "settlement-2")
	if err != nil {
		t.Fatalf("independent settlement should acquire: %v", err)
	}
	otherRelease()

	release()
	release2, err := locker.Acquire(context.Background(), "settlement-1")
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	release2()
}

func TestLockerHonorsContextCancellation(t *testing.T) {
	locker := NewLocker(time.Minute)

	release, err := locker.Acquire(context.Background(), "settlement-1")
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := locker.Acquire(ctx, "settlement-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
