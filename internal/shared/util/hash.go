package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSubjectKey returns a filesystem-safe identifier for a subject ID.
func HashSubjectKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
