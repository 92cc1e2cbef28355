package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brainwash-news/newsdesk/internal/media"
	"github.com/brainwash-news/newsdesk/internal/models"
	"gorm.io/gorm"
)

// SourceInput holds the editable fields of a news source.
type SourceInput struct {
	Name string `json:"name" form:"name" validate:"required,max=100"`
	URL  string `json:"url" form:"url" validate:"omitempty,url,max=500"`
}

// SourceService manages news sources.
type SourceService struct {
	db    *gorm.DB
	store media.Store
}

// NewSourceService creates a new SourceService. The store may be nil when
// image uploads are disabled.
func NewSourceService(db *gorm.DB, store media.Store) *SourceService {
	return &SourceService{db: db, store: store}
}

// List returns all sources ordered by name.
func (s *SourceService) List(ctx context.Context) ([]models.Source, error) {
	var sources []models.Source
	if err := s.db.WithContext(ctx).Order("name, id").Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// Get returns a source by ID.
func (s *SourceService) Get(ctx context.Context, id uint) (*models.Source, error) {
	var src models.Source
	if err := s.db.WithContext(ctx).First(&src, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &src, nil
}

// Create adds a source.
func (s *SourceService) Create(ctx context.Context, in SourceInput) (*models.Source, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}

	src := models.Source{Name: in.Name, URL: in.URL}
	if err := s.db.WithContext(ctx).Create(&src).Error; err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	return &src, nil
}

// Update replaces the fields of a source.
func (s *SourceService) Update(ctx context.Context, id uint, in SourceInput) (*models.Source, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}

	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	src.Name = in.Name
	src.URL = in.URL
	if err := s.db.WithContext(ctx).Save(src).Error; err != nil {
		return nil, fmt.Errorf("update source: %w", err)
	}
	return src, nil
}

// Delete removes a source. Articles attributed to it are removed with it,
// along with their images.
func (s *SourceService) Delete(ctx context.Context, id uint) error {
	var images []string
	if err := s.db.WithContext(ctx).Model(&models.Article{}).
		Where("site_id = ? AND image <> ''", id).
		Pluck("image", &images).Error; err != nil {
		return fmt.Errorf("list source images: %w", err)
	}

	result := s.db.WithContext(ctx).Delete(&models.Source{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	if s.store != nil {
		for _, key := range images {
			if err := s.store.Delete(ctx, key); err != nil {
				slog.Warn("Failed to delete article image", "key", key, "source_id", id, "error", err)
			}
		}
	}
	return nil
}
