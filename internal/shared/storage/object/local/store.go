package local

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pait-backend/internal/shared/storage/object"
	"pait-backend/internal/shared/util"
)

// Store implements object.Store using the local filesystem.
type Store struct {
	baseDir string
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string) object.Store {
	return &Store{baseDir: baseDir}
}

// Save writes the reader to disk under the subject's namespace with a
// random prefix, hashing the content as it streams.
func (s *Store) Save(ctx context.Context, subjectID string, fileName string, r io.Reader) (object.SavedObject, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return object.SavedObject{}, fmt.Errorf("sanitize file name: %w", err)
	}

	subjectKey := util.HashSubjectKey(subjectID)

	if err := ctx.Err(); err != nil {
		return object.SavedObject{}, err
	}

	prefix := randomID()
	finalName := fmt.Sprintf("%s_%s", prefix, sanitizedName)

	dirPath := filepath.Join(s.baseDir, subjectKey)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return object.SavedObject{}, fmt.Errorf("mkdir: %w", err)
	}

	fullPath := filepath.Join(dirPath, finalName)
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return object.SavedObject{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var sniff [512]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return object.SavedObject{}, fmt.Errorf("read sniff: %w", readErr)
	}

	mimeType := http.DetectContentType(sniff[:n])
	hasher := sha256.New()

	size := int64(0)
	if n > 0 {
		if _, err := f.Write(sniff[:n]); err != nil {
			return object.SavedObject{}, fmt.Errorf("write sniff: %w", err)
		}
		hasher.Write(sniff[:n])
		size += int64(n)
	}

	written, err := io.Copy(io.MultiWriter(f, hasher), r)
	if err != nil {
		return object.SavedObject{}, fmt.Errorf("write body: %w", err)
	}
	size += written

	return object.SavedObject{
		StorageKey: filepath.Join(subjectKey, finalName),
		SizeBytes:  size,
		MimeType:   mimeType,
		ContentSHA: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := filepath.Clean(storageKey)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid storage key")
	}

	fullPath := filepath.Join(s.baseDir, clean)
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
