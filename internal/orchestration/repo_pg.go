package orchestration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pait-backend/internal/specialist"
	"pait-backend/internal/synthesis"
)

// PGRepo implements Repo using Postgres. Results and the composite are
// stored as JSONB so the schema does not chase the result shape.
type PGRepo struct {
	DB *sql.DB
}

const sessionColumns = `id, subject_id, subject_tier, intent_id, artifact_id, state, failure_reason, results, composite, seal_status, seal_record_id, created_at, completed_at`

func (r *PGRepo) Create(ctx context.Context, session Session) error {
	resultsJSON, compositeJSON, err := marshalSessionBlobs(session)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO sessions (` + sessionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = r.DB.ExecContext(ctx, query,
		session.ID,
		session.SubjectID,
		session.SubjectTier,
		session.IntentID,
		session.ArtifactID,
		string(session.State),
		nullableString(session.FailureReason),
		resultsJSON,
		compositeJSON,
		session.SealStatus,
		nullableString(session.SealRecordID),
		session.CreatedAt,
		session.CompletedAt,
	)
	return err
}

func (r *PGRepo) Update(ctx context.Context, session Session) error {
	resultsJSON, compositeJSON, err := marshalSessionBlobs(session)
	if err != nil {
		return err
	}
	const query = `
UPDATE sessions
SET state = $2,
    failure_reason = $3,
    results = $4,
    composite = $5,
    seal_status = $6,
    seal_record_id = $7,
    completed_at = $8
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		session.ID,
		string(session.State),
		nullableString(session.FailureReason),
		resultsJSON,
		compositeJSON,
		session.SealStatus,
		nullableString(session.SealRecordID),
		session.CompletedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, sessionID string) (Session, error) {
	const query = `
SELECT ` + sessionColumns + `
FROM sessions
WHERE id = $1
LIMIT 1`
	session, err := scanSession(r.DB.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return session, nil
}

func (r *PGRepo) ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + sessionColumns + `
FROM sessions
WHERE subject_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, subjectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (r *PGRepo) ListSealPending(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT ` + sessionColumns + `
FROM sessions
WHERE state = $1 AND seal_status <> $2
ORDER BY created_at ASC
LIMIT $3`
	rows, err := r.DB.QueryContext(ctx, query, string(StateSealed), SealStatusSealed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	var state string
	var failureReason sql.NullString
	var resultsJSON []byte
	var compositeJSON []byte
	var sealRecordID sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(
		&s.ID,
		&s.SubjectID,
		&s.SubjectTier,
		&s.IntentID,
		&s.ArtifactID,
		&state,
		&failureReason,
		&resultsJSON,
		&compositeJSON,
		&s.SealStatus,
		&sealRecordID,
		&s.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return Session{}, err
	}
	s.State = State(state)
	if failureReason.Valid {
		s.FailureReason = failureReason.String
	}
	if sealRecordID.Valid {
		s.SealRecordID = sealRecordID.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	if len(resultsJSON) > 0 {
		var results map[specialist.Role]specialist.Result
		if err := json.Unmarshal(resultsJSON, &results); err != nil {
			return Session{}, fmt.Errorf("decode session results: %w", err)
		}
		s.Results = results
	}
	if len(compositeJSON) > 0 {
		var composite synthesis.Composite
		if err := json.Unmarshal(compositeJSON, &composite); err != nil {
			return Session{}, fmt.Errorf("decode session composite: %w", err)
		}
		s.Composite = &composite
	}
	return s, nil
}

func collectSessions(rows *sql.Rows) ([]Session, error) {
	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func marshalSessionBlobs(session Session) ([]byte, []byte, error) {
	var resultsJSON []byte
	if len(session.Results) > 0 {
		raw, err := json.Marshal(session.Results)
		if err != nil {
			return nil, nil, fmt.Errorf("encode session results: %w", err)
		}
		resultsJSON = raw
	}
	var compositeJSON []byte
	if session.Composite != nil {
		raw, err := json.Marshal(session.Composite)
		if err != nil {
			return nil, nil, fmt.Errorf("encode session composite: %w", err)
		}
		compositeJSON = raw
	}
	return resultsJSON, compositeJSON, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
