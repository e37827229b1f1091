package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// StageFile writes an incoming upload to the staging directory under a
// collision-free name and returns the local path. The caller (or the upload
// worker) removes the file once the upload settles.
func StageFile(dir, originalName string, r io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media: create staging dir: %w", err)
	}
	name := uuid.NewString() + "-" + filepath.Base(originalName)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("media: stage file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("media: stage file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("media: stage file: %w", err)
	}
	return path, nil
}
