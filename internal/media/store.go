// Package media stores article images on the local filesystem or in S3.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/brainwash-news/newsdesk/internal/config"
	"github.com/brainwash-news/newsdesk/internal/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageBytes bounds uploaded and downloaded images
const MaxImageBytes = 10 << 20

// ErrNotImage is returned when an upload is not an image
var ErrNotImage = errors.New("file is not an image")

// Upload is an image on its way into the store
// Filename and ContentType are what the client claims; stores go by the bytes.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Store persists images and resolves them to public URLs
type Store interface {
	// Save stores the upload and returns its key
	Save(ctx context.Context, up Upload) (string, error)

	// URL returns the public URL of a stored key
	URL(key string) string

	// Delete removes a stored key; missing keys are not an error
	Delete(ctx context.Context, key string) error
}

// New creates the store selected by configuration
func New(ctx context.Context, cfg config.MediaConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.Dir, cfg.BaseURL)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported media driver: %s", cfg.Driver)
	}
}

// sniffLen covers the signatures mimetype inspects
const sniffLen = 3072

// prepare detects the image type from the content itself, ignoring the
// client's filename and content type. The key's extension follows the
// detected type. SVG is refused since browsers run scripts embedded in it.
func prepare(up Upload) (key, contentType string, body io.Reader, err error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", nil, fmt.Errorf("read image: %w", err)
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !strings.HasPrefix(mt.String(), "image/") || mt.Is("image/svg+xml") {
		return "", "", nil, ErrNotImage
	}

	key = fmt.Sprintf("images/%s%s", uuid.New().String(), mt.Extension())
	return key, mt.String(), io.MultiReader(bytes.NewReader(head), up.Body), nil
}

// Fetch downloads an image so it can be saved into a store
func Fetch(ctx context.Context, client *http.Client, url string) (*Upload, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %s", utils.FormatBytes(MaxImageBytes))
	}

	return &Upload{
		Filename:    filepath.Base(req.URL.Path),
		ContentType: mimetype.Detect(data).String(),
		Body:        bytes.NewReader(data),
	}, nil
}
