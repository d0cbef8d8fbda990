// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/vacation-calendar/vacation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records []vacation.Record
	now     func() time.Time
}

// Compile-time check that Memory implements vacation.TxStore
var _ vacation.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) FindByEmployee(_ context.Context, employeeID string) (*vacation.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return findByEmployee(m.records, employeeID), nil
}

func (m *Memory) FindByEmployeeAndStart(_ context.Context, employeeID, startDate string) (*vacation.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return findByEmployeeAndStart(m.records, employeeID, startDate), nil
}

func (m *Memory) Insert(_ context.Context, rec vacation.Record) (vacation.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec = m.stamp(rec)
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *Memory) DeleteByEmployee(_ context.Context, employeeID string) ([]vacation.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []vacation.Record
	m.records, removed = deleteWhere(m.records, func(r vacation.Record) bool {
		return r.EmployeeID == employeeID
	})
	return removed, nil
}

func (m *Memory) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []vacation.Record
	m.records, removed = deleteWhere(m.records, func(r vacation.Record) bool { return r.ID == id })
	if len(removed) == 0 {
		return vacation.ErrNotFound
	}
	return nil
}

func (m *Memory) List(_ context.Context) ([]vacation.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sorted(m.records), nil
}

// WithTx runs fn against a copy of the records and keeps the copy only when
// fn succeeds.
func (m *Memory) WithTx(ctx context.Context, fn func(vacation.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{parent: m, records: append([]vacation.Record(nil), m.records...)}
	if err := fn(tx); err != nil {
		return err
	}
	m.records = tx.records
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) stamp(rec vacation.Record) vacation.Record {
	rec.ID = uuid.NewString()
	rec.CreatedAt = m.now().UTC()
	return rec
}

// memoryTx operates on a private copy; the parent lock is already held.
type memoryTx struct {
	parent  *Memory
	records []vacation.Record
}

func (t *memoryTx) FindByEmployee(_ context.Context, employeeID string) (*vacation.Record, error) {
	return findByEmployee(t.records, employeeID), nil
}

func (t *memoryTx) FindByEmployeeAndStart(_ context.Context, employeeID, startDate string) (*vacation.Record, error) {
	return findByEmployeeAndStart(t.records, employeeID, startDate), nil
}

func (t *memoryTx) Insert(_ context.Context, rec vacation.Record) (vacation.Record, error) {
	rec = t.parent.stamp(rec)
	t.records = append(t.records, rec)
	return rec, nil
}

func (t *memoryTx) DeleteByEmployee(_ context.Context, employeeID string) ([]vacation.Record, error) {
	var removed []vacation.Record
	t.records, removed = deleteWhere(t.records, func(r vacation.Record) bool {
		return r.EmployeeID == employeeID
	})
	return removed, nil
}

func (t *memoryTx) DeleteByID(_ context.Context, id string) error {
	var removed []vacation.Record
	t.records, removed = deleteWhere(t.records, func(r vacation.Record) bool { return r.ID == id })
	if len(removed) == 0 {
		return vacation.ErrNotFound
	}
	return nil
}

func (t *memoryTx) List(_ context.Context) ([]vacation.Record, error) {
	return sorted(t.records), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// records are kept in insertion order, so the first match is the oldest.
func findByEmployee(records []vacation.Record, employeeID string) *vacation.Record {
	for i := range records {
		if records[i].EmployeeID == employeeID {
			r := records[i]
			return &r
		}
	}
	return nil
}

func findByEmployeeAndStart(records []vacation.Record, employeeID, startDate string) *vacation.Record {
	for i := range records {
		if records[i].EmployeeID == employeeID && records[i].StartDate == startDate {
			r := records[i]
			return &r
		}
	}
	return nil
}

func deleteWhere(records []vacation.Record, match func(vacation.Record) bool) (kept, removed []vacation.Record) {
	kept = records[:0:0]
	for _, r := range records {
		if match(r) {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, removed
}

func sorted(records []vacation.Record) []vacation.Record {
	out := append([]vacation.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate < out[j].StartDate
	})
	return out
}
