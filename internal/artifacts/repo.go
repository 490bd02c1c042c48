package artifacts

import "context"

// Repo defines persistence operations for artifact metadata.
type Repo interface {
	Create(ctx context.Context, artifact Artifact) error
	GetByID(ctx context.Context, subjectID, artifactID string) (Artifact, error)
	ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]Artifact, error)
}
