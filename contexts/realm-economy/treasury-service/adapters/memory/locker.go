package memory

import (
	"context"
	"sync"
	"time"

	domainerrors "demesne/contexts/realm-economy/treasury-service/domain/errors"
	"demesne/contexts/realm-economy/treasury-service/ports"
)

// Locker is an in-process per-settlement mutual exclusion with a bounded
// acquire timeout. The monolith runs single-instance, so process-local locks
// satisfy the exclusion model; the postgres adapter additionally takes a row
// lock inside its transaction.
type Locker struct {
	mu      sync.Mutex
	locks   map[string]chan struct{}
	timeout time.Duration
}

func NewLocker(timeout time.Duration) *Locker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Locker{
		locks:   make(map[string]chan struct{}),
		timeout: timeout,
	}
}

func (l *Locker) Acquire(ctx context.Context, settlementID string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[settlementID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[settlementID] = ch
	}
	timeout := l.timeout
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, domainerrors.ErrDistributionBusy
	}
}

var _ ports.SettlementLocker = (*Locker)(nil)
