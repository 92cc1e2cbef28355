package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/brainwash-news/newsdesk/internal/utils"
)

// LocalStore keeps images in a directory on disk
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the directory if needed
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	slog.Info("Initialized local media store", "dir", dir)
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Save writes the upload below the store directory
func (s *LocalStore) Save(ctx context.Context, up Upload) (string, error) {
	key, _, body, err := prepare(up)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(body, MaxImageBytes+1))
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write image: %w", err)
	}
	if n > MaxImageBytes {
		os.Remove(dst)
		return "", fmt.Errorf("image exceeds %s", utils.FormatBytes(MaxImageBytes))
	}

	return key, nil
}

// URL joins the base URL and the key
func (s *LocalStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.baseURL + "/" + path.Clean(key)
}

// Delete removes the file for key
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(path.Clean(key))))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
