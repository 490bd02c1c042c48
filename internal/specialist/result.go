package specialist

// ArtifactRef is an opaque handle to uploaded content. Workers receive the
// reference only; the bytes stay with the artifact store.
type ArtifactRef struct {
	ID         string `json:"id"`
	ContentSHA string `json:"contentSha"`
}

// Result is a single specialist's verdict on an artifact.
// Immutable once returned.
type Result struct {
	Role       Role    `json:"role"`
	Score      float64 `json:"score"`      // 0..1 normalized
	Confidence float64 `json:"confidence"` // 0..1
	Summary    string  `json:"summary"`
}
