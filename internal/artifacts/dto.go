package artifacts

import "time"

// Response is the outward-facing representation of an artifact.
type Response struct {
	ArtifactID string    `json:"artifactId"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	ContentSHA string    `json:"contentSha"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func toResponse(a Artifact) Response {
	return Response{
		ArtifactID: a.ID,
		FileName:   a.FileName,
		MimeType:   a.MimeType,
		SizeBytes:  a.SizeBytes,
		ContentSHA: a.ContentSHA,
		UploadedAt: a.CreatedAt,
	}
}
