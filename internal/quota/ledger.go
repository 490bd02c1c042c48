package quota

import (
	"context"
	"sync"
	"time"
)

type store interface {
	Ensure(ctx context.Context, subjectID string, tier Tier, today time.Time) (State, error)
	Apply(ctx context.Context, subjectID string, tier Tier, cost Cost, today time.Time) (State, error)
	Reset(ctx context.Context, subjectID string, tier Tier, today time.Time) (State, error)
}

// Ledger meters per-subject token and daily-call consumption.
//
// Reservations are two-phase: Reserve places an in-memory hold, Commit
// charges the store and drops the hold, Release drops the hold without
// charging. Only Commit mutates durable state, so a reservation abandoned
// by a crashed session costs the subject nothing.
type Ledger struct {
	mu    sync.Mutex
	store store
	holds map[string]Cost
	now   func() time.Time
}

// NewLedger constructs a Ledger over the in-memory store.
func NewLedger() *Ledger {
	return newLedger(newMemoryStore())
}

// NewPostgresLedger constructs a Ledger backed by Postgres.
func NewPostgresLedger(pgStore store) *Ledger {
	return newLedger(pgStore)
}

func newLedger(s store) *Ledger {
	return &Ledger{
		store: s,
		holds: make(map[string]Cost),
		now:   time.Now,
	}
}

// Reserve checks the subject's balance and daily gate against existing
// holds plus cost, and places a hold on success. Nothing durable changes.
// Staff tier is always allowed.
func (l *Ledger) Reserve(ctx context.Context, subjectID string, tier Tier, cost Cost) error {
	if tier.Unlimited() || cost.IsZero() {
		l.addHold(subjectID, cost)
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.store.Ensure(ctx, subjectID, tier, utcDay(l.now()))
	if err != nil {
		return err
	}
	held := l.holds[subjectID]

	if st.Consumed+held.Tokens+cost.Tokens > st.TotalAllowance {
		return ErrInsufficientTokens
	}
	if st.dailyGated() && cost.SpecialistCalls > 0 {
		if st.DailyConsumed+held.SpecialistCalls+cost.SpecialistCalls > st.DailyAllowance {
			return ErrDailyLimitReached
		}
	}

	l.holds[subjectID] = held.Add(cost)
	return nil
}

// Commit durably charges cost to the subject and drops the matching hold.
// Commit is the only durable mutator of quota state. The hold drop and the
// charge happen under one lock acquisition, so a concurrent Reserve always
// sees either the hold or the committed consumption, never neither.
func (l *Ledger) Commit(ctx context.Context, subjectID string, tier Tier, cost Cost) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropHoldLocked(subjectID, cost)
	if tier.Unlimited() || cost.IsZero() {
		return nil
	}
	_, err := l.store.Apply(ctx, subjectID, tier, cost, utcDay(l.now()))
	return err
}

// Release drops a hold without charging, used when an orchestration run
// fails wholesale or is cancelled.
func (l *Ledger) Release(subjectID string, cost Cost) {
	l.dropHold(subjectID, cost)
}

// Snapshot returns the subject's current quota state, applying the daily
// reset if a new UTC day has started.
func (l *Ledger) Snapshot(ctx context.Context, subjectID string, tier Tier) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Ensure(ctx, subjectID, tier, utcDay(l.now()))
}

// ResetIfNewDay forces the daily-boundary check. Multiple triggers within
// the same day are no-ops; Ensure is idempotent per day.
func (l *Ledger) ResetIfNewDay(ctx context.Context, subjectID string, tier Tier) (State, error) {
	return l.Snapshot(ctx, subjectID, tier)
}

// ResetAll zeroes a subject's consumption. Dev-only escape hatch.
func (l *Ledger) ResetAll(ctx context.Context, subjectID string, tier Tier) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.holds, subjectID)
	return l.store.Reset(ctx, subjectID, tier, utcDay(l.now()))
}

func (l *Ledger) addHold(subjectID string, cost Cost) {
	if cost.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holds[subjectID] = l.holds[subjectID].Add(cost)
}

func (l *Ledger) dropHold(subjectID string, cost Cost) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropHoldLocked(subjectID, cost)
}

func (l *Ledger) dropHoldLocked(subjectID string, cost Cost) {
	held, ok := l.holds[subjectID]
	if !ok {
		return
	}
	held.Tokens -= cost.Tokens
	held.SpecialistCalls -= cost.SpecialistCalls
	if held.Tokens < 0 {
		held.Tokens = 0
	}
	if held.SpecialistCalls < 0 {
		held.SpecialistCalls = 0
	}
	if held.IsZero() {
		delete(l.holds, subjectID)
		return
	}
	l.holds[subjectID] = held
}
