/*
reconcile.go - Reconciliation engine

PURPOSE:
  Turns a validated Record plus the current store state for its employee
  into exactly one store mutation. All entry points share this function;
  they differ only in the Policy they pass.

STATE MACHINE (per employee_id):

	NoRecord  --submit-->  insert                      -> HasRecord
	HasRecord --submit-->  depends on Policy           -> HasRecord

	ReplaceUnconditional: delete all records of the employee, insert
	DedupOnStartDate:     same (employee_id, start_date) exists -> skip,
	                      otherwise insert (second record allowed)
	  + WithConfirm:      same key exists and confirmed -> delete it, insert
	AlwaysInsert:         insert

ATOMICITY:
  Lookup, delete and insert run while holding the employee's lock from the
  configured Locker, and inside WithTx when the store is a TxStore.

SEE ALSO:
  - store.go: Store, TxStore, Locker
  - ingest/pipeline.go: which entry point uses which policy
*/
package vacation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ConfirmFunc decides whether an existing record may be replaced.
type ConfirmFunc func(ctx context.Context, existing, incoming Record) (bool, error)

// Engine applies reconciliation policies against a Store.
type Engine struct {
	store  Store
	locker Locker
	logger *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLocker sets the per-employee Locker. Defaults to a KeyedMutex.
func WithLocker(l Locker) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine. A nil store makes every Submit fail with
// ErrStoreUnavailable.
func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  store,
		locker: NewKeyedMutex(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type submitConfig struct {
	confirm ConfirmFunc
}

// SubmitOption adjusts a single Submit call.
type SubmitOption func(*submitConfig)

// WithConfirm makes DedupOnStartDate ask before replacing a record with the
// same (employee_id, start_date). Ignored by the other policies.
// fn runs while the employee lock and the transaction are held; the Redis
// locker renews its TTL meanwhile, but other writers for that employee
// wait until fn returns.
func WithConfirm(fn ConfirmFunc) SubmitOption {
	return func(c *submitConfig) {
		c.confirm = fn
	}
}

// Submit reconciles rec with the store according to policy.
func (e *Engine) Submit(ctx context.Context, rec Record, policy Policy, opts ...SubmitOption) (Result, error) {
	if e.store == nil {
		return Result{}, fmt.Errorf("submit %s: %w", rec.EmployeeID, ErrStoreUnavailable)
	}
	switch policy {
	case PolicyReplaceUnconditional, PolicyDedupOnStartDate, PolicyAlwaysInsert:
	default:
		return Result{}, fmt.Errorf("unknown reconciliation policy %v", policy)
	}

	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	unlock, err := e.locker.Lock(ctx, rec.EmployeeID)
	if err != nil {
		return Result{}, fmt.Errorf("lock employee %s: %w", rec.EmployeeID, err)
	}
	defer unlock()

	var (
		res      Result
		applyErr error
	)
	run := func(s Store) error {
		res, applyErr = apply(ctx, s, rec, policy, cfg)
		return applyErr
	}

	if txs, ok := e.store.(TxStore); ok {
		err = txs.WithTx(ctx, run)
		if err != nil && applyErr == nil {
			// begin or commit failed
			err = storeErr("transaction", err)
		}
	} else {
		err = run(e.store)
	}

	log := e.logger.With(
		zap.String("employee_id", rec.EmployeeID),
		zap.String("start_date", rec.StartDate),
		zap.String("end_date", rec.EndDate),
		zap.Stringer("policy", policy),
	)
	if err != nil {
		log.Error("reconciliation failed", zap.Error(err), zap.String("error_kind", ErrorKind(err)))
		return Result{}, err
	}
	log.Info("reconciled",
		zap.String("outcome", string(res.Outcome)),
		zap.String("record_id", res.Record.ID),
		zap.Int("replaced", len(res.Replaced)),
	)
	return res, nil
}

func apply(ctx context.Context, s Store, rec Record, policy Policy, cfg submitConfig) (Result, error) {
	switch policy {
	case PolicyReplaceUnconditional:
		removed, err := s.DeleteByEmployee(ctx, rec.EmployeeID)
		if err != nil {
			return Result{}, storeErr("delete by employee", err)
		}
		inserted, err := s.Insert(ctx, rec)
		if err != nil {
			return Result{}, storeErr("insert", err)
		}
		if len(removed) > 0 {
			return Result{Outcome: OutcomeReplaced, Record: inserted, Replaced: removed}, nil
		}
		return Result{Outcome: OutcomeInserted, Record: inserted}, nil

	case PolicyDedupOnStartDate:
		existing, err := s.FindByEmployeeAndStart(ctx, rec.EmployeeID, rec.StartDate)
		if err != nil {
			return Result{}, storeErr("find by employee and start", err)
		}
		if existing != nil {
			if cfg.confirm == nil {
				return Result{Outcome: OutcomeDuplicateSkipped, Record: *existing}, nil
			}
			ok, err := cfg.confirm(ctx, *existing, rec)
			if err != nil {
				return Result{}, fmt.Errorf("confirm replacement: %w", err)
			}
			if !ok {
				return Result{Outcome: OutcomeDuplicateSkipped, Record: *existing}, nil
			}
			if err := s.DeleteByID(ctx, existing.ID); err != nil {
				return Result{}, storeErr("delete by id", err)
			}
			inserted, err := s.Insert(ctx, rec)
			if err != nil {
				return Result{}, storeErr("insert", err)
			}
			return Result{Outcome: OutcomeReplaced, Record: inserted, Replaced: []Record{*existing}}, nil
		}
		inserted, err := s.Insert(ctx, rec)
		if err != nil {
			return Result{}, storeErr("insert", err)
		}
		return Result{Outcome: OutcomeInserted, Record: inserted}, nil

	default:
		inserted, err := s.Insert(ctx, rec)
		if err != nil {
			return Result{}, storeErr("insert", err)
		}
		return Result{Outcome: OutcomeInserted, Record: inserted}, nil
	}
}
