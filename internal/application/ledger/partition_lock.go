package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type partitionKey struct {
	ingredientID uuid.UUID
	outletID     uuid.UUID
}

type partition struct {
	sem  chan struct{}
	refs int
}

// partitionLocks serializes mutations of one (ingredient, outlet) pair
// inside this process. Entries are reference counted and dropped when idle.
type partitionLocks struct {
	mu    sync.Mutex
	parts map[partitionKey]*partition
}

func newPartitionLocks() *partitionLocks {
	return &partitionLocks{parts: make(map[partitionKey]*partition)}
}

// acquire blocks until the partition is free or ctx is done.
// The returned release func must be called exactly once.
func (l *partitionLocks) acquire(ctx context.Context, ingredientID, outletID uuid.UUID) (func(), error) {
	key := partitionKey{ingredientID, outletID}

	l.mu.Lock()
	p, ok := l.parts[key]
	if !ok {
		p = &partition{sem: make(chan struct{}, 1)}
		l.parts[key] = p
	}
	p.refs++
	l.mu.Unlock()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, p)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-p.sem
			l.unref(key, p)
		})
	}, nil
}

func (l *partitionLocks) unref(key partitionKey, p *partition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p.refs--
	if p.refs == 0 {
		delete(l.parts, key)
	}
}

func (l *partitionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.parts)
}
