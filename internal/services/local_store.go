package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// LocalStore is a filesystem-backed BlobStore rooted at a base directory.
type LocalStore struct {
	fs      afero.Fs
	baseDir string
}

// NewLocalStore creates a local store rooted at baseDir, creating the
// directory if needed.
func NewLocalStore(fs afero.Fs, baseDir string) (*LocalStore, error) {
	if err := fs.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalStore{fs: fs, baseDir: baseDir}, nil
}

// resolve maps a store key to an on-disk path, rejecting anything that would
// escape the base directory.
func (s *LocalStore) resolve(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	if cleaned == "/" {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(cleaned)), nil
}

// Save writes the reader's bytes under key, creating parent directories on
// demand.
func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	w, err := s.Writer(ctx, key)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		s.fs.Remove(p)
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to flush object %s: %w", key, err)
	}
	return nil
}

// Open returns a reader for the blob and its size.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, 0, err
	}
	info, err := s.fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	return f, info.Size(), nil
}

// Writer returns a write handle for key. The blob is usable only after Close
// returns nil.
func (s *LocalStore) Writer(ctx context.Context, key string) (io.WriteCloser, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	f, err := s.fs.Create(p)
	if err != nil {
		return nil, fmt.Errorf("failed to create object %s: %w", key, err)
	}
	return f, nil
}

// Remove deletes the blob under key. Missing keys return ErrNotFound.
func (s *LocalStore) Remove(ctx context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

// List returns the keys of all blobs under prefix, in walk order.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	root, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}
	var keys []string
	err = afero.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
	}
	return keys, nil
}

// RemoveOlderThan deletes blobs under prefix whose modification time is
// before cutoff.
func (s *LocalStore) RemoveOlderThan(ctx context.Context, prefix string, cutoff time.Time) (int, error) {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		p, err := s.resolve(key)
		if err != nil {
			continue
		}
		info, err := s.fs.Stat(p)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := s.fs.Remove(p); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
