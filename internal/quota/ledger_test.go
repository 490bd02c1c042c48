package quota

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestReserveWithoutCommitDoesNotMutate(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	if err := l.Reserve(ctx, "s-1", TierVIP, Cost{Tokens: 5, SpecialistCalls: 2}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	st, err := l.Snapshot(ctx, "s-1", TierVIP)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if st.Consumed != 0 || st.DailyConsumed != 0 {
		t.Fatalf("reserve mutated durable state: %+v", st)
	}
}

func TestQuotaConservation(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	costs := []Cost{
		{Tokens: 2, SpecialistCalls: 2},
		{Tokens: 3, SpecialistCalls: 3},
		{Tokens: 1, SpecialistCalls: 1},
		{Tokens: 4, SpecialistCalls: 2},
	}
	committed := 0
	for i, cost := range costs {
		if err := l.Reserve(ctx, "s-1", TierVIP, cost); err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
		if i%2 == 0 {
			if err := l.Commit(ctx, "s-1", TierVIP, cost); err != nil {
				t.Fatalf("commit %d: %v", i, err)
			}
			committed += cost.Tokens
		} else {
			l.Release("s-1", cost)
		}
	}

	st, err := l.Snapshot(ctx, "s-1", TierVIP)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if st.Consumed != committed {
		t.Fatalf("expected consumed %d, got %d", committed, st.Consumed)
	}
}

func TestFreeTierDailyGate(t *testing.T) {
	l := NewLedger()
	l.now = fixedClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	cost := Cost{Tokens: 1, SpecialistCalls: 1}

	if err := l.Reserve(ctx, "s-free", TierFree, cost); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if err := l.Commit(ctx, "s-free", TierFree, cost); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Second specialist call the same day is denied even with tokens left.
	err := l.Reserve(ctx, "s-free", TierFree, cost)
	if !errors.Is(err, ErrDailyLimitReached) {
		t.Fatalf("expected daily_limit_reached, got %v", err)
	}
	st, _ := l.Snapshot(ctx, "s-free", TierFree)
	if st.Consumed >= st.TotalAllowance {
		t.Fatalf("test premise broken: token balance should not be exhausted, got %+v", st)
	}

	// Concierge-only work carries no specialist calls and passes.
	if err := l.Reserve(ctx, "s-free", TierFree, Cost{}); err != nil {
		t.Fatalf("concierge-only reserve: %v", err)
	}
}

func TestDailyResetIsIdempotentPerDay(t *testing.T) {
	l := NewLedger()
	day1 := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	l.now = fixedClock(day1)
	ctx := context.Background()
	cost := Cost{Tokens: 1, SpecialistCalls: 1}

	if err := l.Reserve(ctx, "s-free", TierFree, cost); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := l.Commit(ctx, "s-free", TierFree, cost); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Next UTC day: the gate opens again.
	l.now = fixedClock(day1.Add(2 * time.Hour))
	if err := l.Reserve(ctx, "s-free", TierFree, cost); err != nil {
		t.Fatalf("reserve after day boundary: %v", err)
	}
	if err := l.Commit(ctx, "s-free", TierFree, cost); err != nil {
		t.Fatalf("commit after day boundary: %v", err)
	}

	// Repeated reset triggers within the same day change nothing.
	first, err := l.ResetIfNewDay(ctx, "s-free", TierFree)
	if err != nil {
		t.Fatalf("reset trigger: %v", err)
	}
	second, err := l.ResetIfNewDay(ctx, "s-free", TierFree)
	if err != nil {
		t.Fatalf("reset trigger: %v", err)
	}
	if first != second {
		t.Fatalf("same-day reset was not a no-op: %+v vs %+v", first, second)
	}
	if second.DailyConsumed != 1 {
		t.Fatalf("expected daily consumption preserved within the day, got %d", second.DailyConsumed)
	}
}

func TestReserveDeniedOnTokens(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	err := l.Reserve(ctx, "s-1", TierVIP, Cost{Tokens: 10001})
	if !errors.Is(err, ErrInsufficientTokens) {
		t.Fatalf("expected insufficient_tokens, got %v", err)
	}
	if !Denied(err) {
		t.Fatalf("expected Denied to classify the error")
	}
}

func TestStaffTierAlwaysAllowed(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cost := Cost{Tokens: 100000, SpecialistCalls: 50}
		if err := l.Reserve(ctx, "s-staff", TierStaff, cost); err != nil {
			t.Fatalf("staff reserve %d: %v", i, err)
		}
		if err := l.Commit(ctx, "s-staff", TierStaff, cost); err != nil {
			t.Fatalf("staff commit %d: %v", i, err)
		}
	}
}

type slowApplyStore struct {
	store
	delay time.Duration
}

func (s *slowApplyStore) Apply(ctx context.Context, subjectID string, tier Tier, cost Cost, today time.Time) (State, error) {
	time.Sleep(s.delay)
	return s.store.Apply(ctx, subjectID, tier, cost, today)
}

func TestReserveDuringCommitSeesHoldOrCharge(t *testing.T) {
	l := newLedger(&slowApplyStore{store: newMemoryStore(), delay: 100 * time.Millisecond})
	l.now = fixedClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	cost := Cost{Tokens: 1, SpecialistCalls: 1}

	if err := l.Reserve(ctx, "s-free", TierFree, cost); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	commitDone := make(chan error, 1)
	go func() { commitDone <- l.Commit(ctx, "s-free", TierFree, cost) }()
	time.Sleep(20 * time.Millisecond)

	// Mid-commit there must be no window where neither the hold nor the
	// committed daily consumption gates a second reservation.
	if err := l.Reserve(ctx, "s-free", TierFree, cost); !errors.Is(err, ErrDailyLimitReached) {
		t.Fatalf("expected daily_limit_reached during commit, got %v", err)
	}

	if err := <-commitDone; err != nil {
		t.Fatalf("commit: %v", err)
	}
	st, err := l.Snapshot(ctx, "s-free", TierFree)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if st.DailyConsumed != 1 {
		t.Fatalf("expected exactly one committed call, got %d", st.DailyConsumed)
	}
}

func TestHoldsCountAgainstConcurrentReservations(t *testing.T) {
	l := NewLedger()
	l.now = fixedClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	cost := Cost{Tokens: 1, SpecialistCalls: 1}

	if err := l.Reserve(ctx, "s-free", TierFree, cost); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	// A second session cannot sneak past the gate while the first holds.
	if err := l.Reserve(ctx, "s-free", TierFree, cost); !errors.Is(err, ErrDailyLimitReached) {
		t.Fatalf("expected daily_limit_reached against hold, got %v", err)
	}

	l.Release("s-free", cost)
	if err := l.Reserve(ctx, "s-free", TierFree, cost); err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
}
