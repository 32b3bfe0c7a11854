package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSBlobStorage stores blobs on the local filesystem rooted at baseDir.
// It is the synchronous sink binary uploads land on.
type FSBlobStorage struct {
	baseDir string
}

// NewFSBlobStorage returns a filesystem-backed blob store rooted at baseDir.
func NewFSBlobStorage(baseDir string) *FSBlobStorage {
	return &FSBlobStorage{baseDir: baseDir}
}

// Save streams r to baseDir/key, creating parent directories as needed. The
// write goes to a temp file first so a partially consumed stream never leaves
// a readable blob behind; an existing blob under the same key is overwritten.
func (s *FSBlobStorage) Save(_ context.Context, key string, r io.Reader) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("fs storage: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("fs storage: create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fs storage: write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fs storage: close blob %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fs storage: finalize blob %s: %w", key, err)
	}

	return path, nil
}

// Open returns a reader over the blob stored under key along with its size.
func (s *FSBlobStorage) Open(_ context.Context, key string) (io.ReadCloser, int64, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, ErrBlobNotFound
		}
		return nil, 0, fmt.Errorf("fs storage: open blob %s: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("fs storage: stat blob %s: %w", key, err)
	}

	return f, info.Size(), nil
}

func (s *FSBlobStorage) resolve(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", errors.New("fs storage: empty key")
	}

	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(path, filepath.Clean(s.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("fs storage: key %q escapes base directory", key)
	}
	return path, nil
}

var _ BlobStorage = (*FSBlobStorage)(nil)
var _ BlobOpener = (*FSBlobStorage)(nil)
