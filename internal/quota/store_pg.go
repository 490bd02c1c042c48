package quota

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed quota store.
func NewPGStore(db *sql.DB) *pgStore {
	return &pgStore{DB: db}
}

func (s *pgStore) Ensure(ctx context.Context, subjectID string, tier Tier, today time.Time) (State, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return State{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	st, err := s.lockAndEnsure(ctx, tx, subjectID, tier, today)
	if err != nil {
		return State{}, err
	}
	if err = tx.Commit(); err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *pgStore) Apply(ctx context.Context, subjectID string, tier Tier, cost Cost, today time.Time) (State, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return State{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	st, err := s.lockAndEnsure(ctx, tx, subjectID, tier, today)
	if err != nil {
		return State{}, err
	}

	st.Consumed += cost.Tokens
	if st.dailyGated() {
		st.DailyConsumed += cost.SpecialistCalls
	}
	if _, err = tx.ExecContext(ctx, `
UPDATE quota_states SET consumed = $1, daily_consumed = $2 WHERE subject_id = $3`,
		st.Consumed, st.DailyConsumed, subjectID); err != nil {
		return State{}, err
	}
	if err = tx.Commit(); err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *pgStore) Reset(ctx context.Context, subjectID string, tier Tier, today time.Time) (State, error) {
	st := defaultState(subjectID, tier, today)
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO quota_states (subject_id, tier, total_allowance, consumed, daily_allowance, daily_consumed, last_reset)
VALUES ($1, $2, $3, 0, $4, 0, $5)
ON CONFLICT (subject_id) DO UPDATE SET
	tier = EXCLUDED.tier,
	total_allowance = EXCLUDED.total_allowance,
	consumed = 0,
	daily_allowance = EXCLUDED.daily_allowance,
	daily_consumed = 0,
	last_reset = EXCLUDED.last_reset`,
		subjectID, st.Tier, st.TotalAllowance, st.DailyAllowance, st.LastReset)
	if err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *pgStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, subjectID string, tier Tier, today time.Time) (State, error) {
	var st State
	st.SubjectID = subjectID
	row := tx.QueryRowContext(ctx, `
SELECT tier, total_allowance, consumed, daily_allowance, daily_consumed, last_reset
FROM quota_states WHERE subject_id = $1 FOR UPDATE`, subjectID)
	err := row.Scan(&st.Tier, &st.TotalAllowance, &st.Consumed, &st.DailyAllowance, &st.DailyConsumed, &st.LastReset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			st = defaultState(subjectID, tier, today)
			if _, err = tx.ExecContext(ctx, `
INSERT INTO quota_states (subject_id, tier, total_allowance, consumed, daily_allowance, daily_consumed, last_reset)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				subjectID, st.Tier, st.TotalAllowance, st.Consumed, st.DailyAllowance, st.DailyConsumed, st.LastReset); err != nil {
				return State{}, err
			}
			return st, nil
		}
		return State{}, err
	}

	st.LastReset = st.LastReset.UTC()
	if st.Tier != tier {
		upgraded := defaultState(subjectID, tier, today)
		upgraded.Consumed = st.Consumed
		upgraded.DailyConsumed = st.DailyConsumed
		upgraded.LastReset = st.LastReset
		st = upgraded
		if _, err = tx.ExecContext(ctx, `
UPDATE quota_states SET tier = $1, total_allowance = $2, daily_allowance = $3 WHERE subject_id = $4`,
			st.Tier, st.TotalAllowance, st.DailyAllowance, subjectID); err != nil {
			return State{}, err
		}
	}
	if today.After(st.LastReset) {
		st.DailyConsumed = 0
		st.LastReset = today
		if _, err = tx.ExecContext(ctx, `
UPDATE quota_states SET daily_consumed = 0, last_reset = $1 WHERE subject_id = $2`,
			st.LastReset, subjectID); err != nil {
			return State{}, err
		}
	}
	return st, nil
}
