package quota

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]State
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]State)}
}

func (s *memoryStore) Ensure(ctx context.Context, subjectID string, tier Tier, today time.Time) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(subjectID, tier, today), nil
}

func (s *memoryStore) Apply(ctx context.Context, subjectID string, tier Tier, cost Cost, today time.Time) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensureLocked(subjectID, tier, today)
	st.Consumed += cost.Tokens
	if st.dailyGated() {
		st.DailyConsumed += cost.SpecialistCalls
	}
	s.data[subjectID] = st
	return st, nil
}

func (s *memoryStore) Reset(ctx context.Context, subjectID string, tier Tier, today time.Time) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := defaultState(subjectID, tier, today)
	s.data[subjectID] = st
	return st, nil
}

func (s *memoryStore) ensureLocked(subjectID string, tier Tier, today time.Time) State {
	st, ok := s.data[subjectID]
	if !ok {
		st = defaultState(subjectID, tier, today)
	}
	if st.Tier != tier {
		// Tier upgrade is an external event; rebase allowances, keep consumption.
		upgraded := defaultState(subjectID, tier, today)
		upgraded.Consumed = st.Consumed
		upgraded.DailyConsumed = st.DailyConsumed
		upgraded.LastReset = st.LastReset
		st = upgraded
	}
	if today.After(st.LastReset) {
		st.DailyConsumed = 0
		st.LastReset = today
	}
	s.data[subjectID] = st
	return st
}
