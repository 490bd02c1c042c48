package vault

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"pait-backend/internal/synthesis"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed sealed-record store.
func NewPGStore(db *sql.DB) *pgStore {
	return &pgStore{DB: db}
}

func (s *pgStore) Put(ctx context.Context, rec SealedRecord) (SealedRecord, bool, error) {
	composite, err := json.Marshal(rec.Composite)
	if err != nil {
		return SealedRecord{}, false, err
	}

	res, err := s.DB.ExecContext(ctx, `
INSERT INTO sealed_records (
	record_id, session_id, subject_id, subject_tier_at_seal, intent_id,
	composite, session_created_at, session_completed_at, sealed_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (session_id) DO NOTHING`,
		rec.RecordID, rec.SessionID, rec.SubjectID, rec.SubjectTierAtSeal, rec.IntentID,
		composite, rec.SessionCreatedAt, rec.SessionCompletedAt, rec.SealedAt)
	if err != nil {
		return SealedRecord{}, false, err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return SealedRecord{}, false, err
	}
	if inserted == 0 {
		existing, err := s.GetBySession(ctx, rec.SessionID)
		if err != nil {
			return SealedRecord{}, false, err
		}
		return existing, false, nil
	}
	return rec, true, nil
}

func (s *pgStore) Get(ctx context.Context, recordID string) (SealedRecord, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT record_id, session_id, subject_id, subject_tier_at_seal, intent_id,
	composite, session_created_at, session_completed_at, sealed_at
FROM sealed_records WHERE record_id = $1`, recordID)
	return scanRecord(row)
}

func (s *pgStore) GetBySession(ctx context.Context, sessionID string) (SealedRecord, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT record_id, session_id, subject_id, subject_tier_at_seal, intent_id,
	composite, session_created_at, session_completed_at, sealed_at
FROM sealed_records WHERE session_id = $1`, sessionID)
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (SealedRecord, error) {
	var rec SealedRecord
	var composite []byte
	err := row.Scan(
		&rec.RecordID, &rec.SessionID, &rec.SubjectID, &rec.SubjectTierAtSeal, &rec.IntentID,
		&composite, &rec.SessionCreatedAt, &rec.SessionCompletedAt, &rec.SealedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SealedRecord{}, ErrNotFound
		}
		return SealedRecord{}, err
	}
	if len(composite) > 0 {
		var c synthesis.Composite
		if err := json.Unmarshal(composite, &c); err != nil {
			return SealedRecord{}, err
		}
		rec.Composite = c
	}
	return rec, nil
}
