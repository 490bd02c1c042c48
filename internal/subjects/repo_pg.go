package subjects

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pait-backend/internal/quota"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, subject Subject) error {
	tier := subject.Tier
	if tier == "" {
		tier = quota.TierFree
	}
	const query = `
INSERT INTO subjects (id, email, display_name, tier, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  display_name = EXCLUDED.display_name,
  updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query,
		subject.ID,
		nullableString(subject.Email),
		nullableString(subject.DisplayName),
		string(tier),
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, subjectID string) (Subject, error) {
	const query = `
SELECT id, email, display_name, tier, created_at, updated_at
FROM subjects
WHERE id = $1
LIMIT 1`
	var subject Subject
	var email sql.NullString
	var displayName sql.NullString
	var tier string
	var updatedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, subjectID).Scan(
		&subject.ID,
		&email,
		&displayName,
		&tier,
		&subject.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subject{}, ErrNotFound
		}
		return Subject{}, err
	}
	if email.Valid {
		subject.Email = email.String
	}
	if displayName.Valid {
		subject.DisplayName = displayName.String
	}
	subject.Tier = quota.Tier(tier)
	if updatedAt.Valid {
		subject.UpdatedAt = updatedAt.Time
	} else {
		subject.UpdatedAt = time.Now().UTC()
	}
	return subject, nil
}

func (r *PGRepo) SetTier(ctx context.Context, subjectID string, tier string) error {
	const query = `
UPDATE subjects SET tier = $2, updated_at = now() WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, subjectID, tier)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
