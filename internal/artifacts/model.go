package artifacts

import (
	"time"

	"pait-backend/internal/specialist"
)

// Artifact is an uploaded piece of evidence submitted for scoring.
type Artifact struct {
	ID         string
	SubjectID  string
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	ContentSHA string
	CreatedAt  time.Time
}

// Ref returns the handle specialists receive. Workers never see the raw
// bytes, only the identity and content digest.
func (a Artifact) Ref() specialist.ArtifactRef {
	return specialist.ArtifactRef{ID: a.ID, ContentSHA: a.ContentSHA}
}
