package artifacts

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, artifact Artifact) error {
	const query = `
INSERT INTO artifacts (id, subject_id, file_name, mime_type, size_bytes, storage_key, content_sha, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(
		ctx,
		query,
		artifact.ID,
		artifact.SubjectID,
		artifact.FileName,
		artifact.MimeType,
		artifact.SizeBytes,
		artifact.StorageKey,
		artifact.ContentSHA,
		artifact.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, subjectID, artifactID string) (Artifact, error) {
	const query = `
SELECT id, subject_id, file_name, mime_type, size_bytes, storage_key, content_sha, created_at
FROM artifacts
WHERE subject_id = $1 AND id = $2
LIMIT 1`
	var a Artifact
	err := r.DB.QueryRowContext(ctx, query, subjectID, artifactID).Scan(
		&a.ID,
		&a.SubjectID,
		&a.FileName,
		&a.MimeType,
		&a.SizeBytes,
		&a.StorageKey,
		&a.ContentSHA,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, err
	}
	return a, nil
}

func (r *PGRepo) ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]Artifact, error) {
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
SELECT id, subject_id, file_name, mime_type, size_bytes, storage_key, content_sha, created_at
FROM artifacts
WHERE subject_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, subjectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(
			&a.ID,
			&a.SubjectID,
			&a.FileName,
			&a.MimeType,
			&a.SizeBytes,
			&a.StorageKey,
			&a.ContentSHA,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
