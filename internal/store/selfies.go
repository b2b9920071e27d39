package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrInvalidImage is returned for uploads that are not a supported image.
var ErrInvalidImage = errors.New("unsupported image")

const maxSelfieBytes = 10 << 20

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// SelfieStore writes completion selfies to a directory.
type SelfieStore struct {
	dir string
	now func() time.Time
}

func NewSelfieStore(dir string) *SelfieStore {
	return &SelfieStore{dir: dir, now: time.Now}
}

// Save stores image for the session and returns the written path.
func (s *SelfieStore) Save(ctx context.Context, sessionID string, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}
	if len(image) > maxSelfieBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, maxSelfieBytes)
	}
	ext, ok := imageExt[http.DetectContentType(image)]
	if !ok {
		return "", ErrInvalidImage
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating selfie dir: %w", err)
	}
	name := fmt.Sprintf("selfie_%s_%d%s", sessionID, s.now().Unix(), ext)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("writing selfie: %w", err)
	}
	return path, nil
}

// Remove deletes a saved selfie. A missing file is not an error.
func (s *SelfieStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing selfie: %w", err)
	}
	return nil
}
