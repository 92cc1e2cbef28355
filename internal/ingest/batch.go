// Package ingest turns batch files of generated articles into ingest jobs.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Batch is one file dropped by the article generator
type Batch struct {
	Items []Item `yaml:"items" toml:"items"`
}

// Item is a single generated article
type Item struct {
	Title       string     `yaml:"title" toml:"title"`
	Description string     `yaml:"description" toml:"description"`
	Body        string     `yaml:"body" toml:"body"`
	Source      ItemSource `yaml:"source" toml:"source"`
	Category    string     `yaml:"category" toml:"category"`
	ImageURL    string     `yaml:"image_url" toml:"image_url"`
}

// ItemSource names the outlet an item is attributed to
type ItemSource struct {
	Name string `yaml:"name" toml:"name"`
	URL  string `yaml:"url" toml:"url"`
}

// Generated converts the item for the article service
func (it Item) Generated() service.GeneratedArticle {
	return service.GeneratedArticle{
		Title:       it.Title,
		Description: it.Description,
		Body:        it.Body,
		SourceName:  it.Source.Name,
		SourceURL:   it.Source.URL,
		Category:    it.Category,
		ImageURL:    it.ImageURL,
	}
}

// ErrEmptyBatch is returned for a batch without items
var ErrEmptyBatch = errors.New("batch has no items")

// Format is the encoding of a batch file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the format from a file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported batch file extension: %s", filepath.Ext(path))
	}
}

// Parse decodes a batch. Unknown keys are rejected so typos surface early.
func Parse(r io.Reader, format Format) (*Batch, error) {
	var b Batch
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&b); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrEmptyBatch
			}
			return nil, fmt.Errorf("parse yaml batch: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			return nil, fmt.Errorf("parse toml batch: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported batch format: %s", format)
	}

	if len(b.Items) == 0 {
		return nil, ErrEmptyBatch
	}
	for i, it := range b.Items {
		if strings.TrimSpace(it.Title) == "" || strings.TrimSpace(it.Body) == "" {
			return nil, fmt.Errorf("item %d: title and body are required", i)
		}
	}
	return &b, nil
}

// LoadFile reads and parses a batch file
func LoadFile(path string) (*Batch, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return b, nil
}
