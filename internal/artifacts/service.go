package artifacts

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"pait-backend/internal/shared/storage/object"
)

// Service contains business logic for artifacts.
type Service struct {
	Store object.Store
	Repo  Repo
}

// Upload saves the file to object storage and records the artifact.
// The content digest is computed while the bytes stream to storage, so
// the same upload always yields the same ContentSHA.
func (s *Service) Upload(ctx context.Context, subjectID, fileName string, r io.Reader) (Artifact, error) {
	if fileName == "" {
		return Artifact{}, ErrInvalidInput
	}

	saved, err := s.Store.Save(ctx, subjectID, fileName, r)
	if err != nil {
		return Artifact{}, err
	}

	artifact := Artifact{
		ID:         uuid.NewString(),
		SubjectID:  subjectID,
		FileName:   fileName,
		MimeType:   saved.MimeType,
		SizeBytes:  saved.SizeBytes,
		StorageKey: saved.StorageKey,
		ContentSHA: saved.ContentSHA,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, artifact); err != nil {
		return Artifact{}, err
	}
	return artifact, nil
}

// Get returns an artifact owned by the subject.
func (s *Service) Get(ctx context.Context, subjectID, artifactID string) (Artifact, error) {
	if subjectID == "" || artifactID == "" {
		return Artifact{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, subjectID, artifactID)
}

// List returns the subject's artifacts, newest first.
func (s *Service) List(ctx context.Context, subjectID string, limit, offset int) ([]Artifact, error) {
	if subjectID == "" {
		return nil, errors.New("subject id required")
	}
	return s.Repo.ListBySubject(ctx, subjectID, limit, offset)
}
