package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/feichai0017/document-analyzer/pkg/logger"
)

// LocalStorage keeps objects as files below a root directory.
type LocalStorage struct {
	root   string
	logger logger.Logger
}

func NewLocalStorage(root string, log logger.Logger) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("local storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStorage{root: root, logger: log}, nil
}

// path resolves key below root, rejecting keys that would escape it.
func (l *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(l.root, clean), nil
}

func (l *LocalStorage) Store(_ context.Context, reader io.Reader, key string) (string, error) {
	abs, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		l.logger.Error("Failed to write file", logger.String("key", key), logger.Error(err))
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return key, nil
}

func (l *LocalStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	abs, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// Delete removes the file and its directory once empty.
func (l *LocalStorage) Delete(_ context.Context, key string) error {
	abs, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	l.pruneEmptyDirs(filepath.Dir(abs))
	return nil
}

func (l *LocalStorage) pruneEmptyDirs(dir string) {
	root := filepath.Clean(l.root)
	for dir != root && strings.HasPrefix(dir, root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (l *LocalStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	return filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(threshold) {
			if err := os.Remove(path); err != nil {
				l.logger.Error("Failed to delete expired object", logger.String("path", path), logger.Error(err))
				return nil
			}
			l.pruneEmptyDirs(filepath.Dir(path))
			l.logger.Info("Deleted expired object",
				logger.String("path", path),
				logger.Time("lastModified", info.ModTime()),
			)
		}
		return nil
	})
}
