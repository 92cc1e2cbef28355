package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brainwash-news/newsdesk/internal/media"
	"github.com/brainwash-news/newsdesk/internal/models"
	"gorm.io/gorm"
)

// GeneratedArticle is an article produced outside the app and handed over for publishing.
type GeneratedArticle struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Body        string `json:"body" yaml:"body"`
	SourceName  string `json:"source_name" yaml:"source_name"`
	SourceURL   string `json:"source_url" yaml:"source_url"`
	Category    string `json:"category" yaml:"category"`
	ImageURL    string `json:"image_url" yaml:"image_url"`
}

var imageClient = &http.Client{Timeout: 30 * time.Second}

// Ingest publishes a generated article. The source is looked up by name and
// created when missing. A failed image download does not block publishing.
func (s *ArticleService) Ingest(ctx context.Context, g GeneratedArticle) (*models.Article, error) {
	g.Title = strings.TrimSpace(g.Title)
	g.Body = strings.TrimSpace(g.Body)
	if g.Title == "" || g.Body == "" {
		return nil, &ValidationError{Message: "generated article needs a title and a body"}
	}

	category := models.Category(strings.ToLower(strings.TrimSpace(g.Category)))
	if !category.Valid() {
		category = models.CategoryGeneral
	}

	article := models.Article{
		Title:       truncate(g.Title, 100),
		Description: truncate(g.Description, 250),
		Body:        truncate(g.Body, 5000),
		Source:      truncate(g.SourceName, 100),
		Category:    category,
	}

	if g.ImageURL != "" && s.store != nil {
		up, err := media.Fetch(ctx, imageClient, g.ImageURL)
		if err == nil {
			article.Image, err = s.store.Save(ctx, *up)
		}
		if err != nil {
			slog.Warn("Skipping image for generated article", "url", g.ImageURL, "error", err)
			article.Image = ""
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if name := strings.TrimSpace(g.SourceName); name != "" {
			site, err := findOrCreateSource(tx, truncate(name, 100), truncate(g.SourceURL, 500))
			if err != nil {
				return err
			}
			article.SiteID = &site.ID
		}
		return tx.Create(&article).Error
	})
	if err != nil {
		s.discardImage(ctx, article.Image)
		return nil, fmt.Errorf("ingest article: %w", err)
	}

	return s.Get(ctx, article.ID)
}

func findOrCreateSource(tx *gorm.DB, name, url string) (*models.Source, error) {
	var site models.Source
	err := tx.Where("name = ?", name).First(&site).Error
	if err == nil {
		return &site, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	site = models.Source{Name: name, URL: url}
	if err := tx.Create(&site).Error; err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	return &site, nil
}
