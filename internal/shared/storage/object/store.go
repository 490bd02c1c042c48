package object

import (
	"context"
	"io"
)

// SavedObject describes a stored binary object.
type SavedObject struct {
	StorageKey string
	SizeBytes  int64
	MimeType   string
	ContentSHA string // hex sha256 of the stored bytes
}

// Store defines the contract for saving and retrieving binary objects.
// Save hashes the content while writing so callers get a stable digest
// without a second pass over the bytes.
type Store interface {
	Save(ctx context.Context, subjectID string, fileName string, r io.Reader) (SavedObject, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
