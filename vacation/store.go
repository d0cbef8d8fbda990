/*
store.go - Persistence and locking interfaces consumed by the engine

KEY INTERFACES:

	Store:   Record persistence (find, insert, delete, list)
	TxStore: Store with transaction support
	Locker:  Per-key serialization point

REPLACEMENT CONTRACT:
  Records are never updated. Replacing a vacation is DeleteByEmployee (or
  DeleteByID) followed by Insert. Without TxStore and Locker that sequence
  is not atomic; Engine always takes the lock and uses WithTx when the store
  offers it.

IMPLEMENTATIONS:
  - store/sqlite: SQLite store (TxStore)
  - vacation/store: In-memory store (TxStore), for tests and dev
  - store/redislock: Redis Locker for multi-process deployments
*/
package vacation

import (
	"context"
	"sync"
)

// Store persists vacation records.
type Store interface {
	// FindByEmployee returns the oldest record of the employee, or nil.
	FindByEmployee(ctx context.Context, employeeID string) (*Record, error)

	// FindByEmployeeAndStart returns the record matching both keys, or nil.
	FindByEmployeeAndStart(ctx context.Context, employeeID, startDate string) (*Record, error)

	// Insert stores rec and returns it with ID and CreatedAt assigned.
	Insert(ctx context.Context, rec Record) (Record, error)

	// DeleteByEmployee removes every record of the employee and returns them.
	DeleteByEmployee(ctx context.Context, employeeID string) ([]Record, error)

	// DeleteByID removes one record. Returns ErrNotFound if it does not exist.
	DeleteByID(ctx context.Context, id string) error

	// List returns all records ordered by start date ascending.
	List(ctx context.Context) ([]Record, error)
}

// TxStore wraps Store with transaction support.
// If fn returns an error the transaction is rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Locker serializes work on one key.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func
	// releases the lock.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// =============================================================================
// KEYED MUTEX - In-process Locker
// =============================================================================

// KeyedMutex is a Locker for a single process.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an in-process Locker.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock implements Locker.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(key, l)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}
