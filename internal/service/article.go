package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/brainwash-news/newsdesk/internal/media"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MembershipChecker answers whether a user belongs to a named group.
type MembershipChecker interface {
	InGroup(ctx context.Context, userID uuid.UUID, groupName string) (bool, error)
}

// ArticleInput holds the fields of a new article.
type ArticleInput struct {
	Title       string          `json:"title" form:"title" validate:"required,max=100"`
	Description string          `json:"description" form:"description" validate:"max=250"`
	Body        string          `json:"body" form:"body" validate:"required,max=5000"`
	Source      string          `json:"source" form:"source" validate:"max=100"`
	Writer      string          `json:"writer" form:"writer" validate:"max=100"`
	Category    models.Category `json:"category" form:"category" validate:"required,category"`
	SiteID      *uint           `json:"site_id" form:"site_id"`
}

// ArticlePatch carries the fields submitted through the edit form.
// A nil field was not submitted.
type ArticlePatch struct {
	Title    *string          `json:"title" form:"title"`
	Body     *string          `json:"body" form:"body"`
	Writer   *string          `json:"writer" form:"writer"`
	Category *models.Category `json:"category" form:"category"`
	Image    *media.Upload    `json:"-" form:"-"`
}

// Submitted lists the fields present in the patch.
func (p ArticlePatch) Submitted() []Field {
	var fields []Field
	if p.Title != nil {
		fields = append(fields, FieldTitle)
	}
	if p.Body != nil {
		fields = append(fields, FieldBody)
	}
	if p.Image != nil {
		fields = append(fields, FieldImage)
	}
	if p.Writer != nil {
		fields = append(fields, FieldWriter)
	}
	if p.Category != nil {
		fields = append(fields, FieldCategory)
	}
	return fields
}

// ArticleService contains the business logic for articles.
type ArticleService struct {
	db      *gorm.DB
	members MembershipChecker
	store   media.Store
}

// NewArticleService creates a new ArticleService.
func NewArticleService(db *gorm.DB, members MembershipChecker, store media.Store) *ArticleService {
	return &ArticleService{db: db, members: members, store: store}
}

// ImageURL resolves an article image key to a public URL.
func (s *ArticleService) ImageURL(key string) string {
	if s.store == nil {
		return ""
	}
	return s.store.URL(key)
}

// Latest returns the most recently published articles.
func (s *ArticleService) Latest(ctx context.Context, limit int) ([]models.Article, error) {
	var articles []models.Article
	if err := s.recent(ctx, limit).Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// ListByCategory returns the most recent articles of one category.
func (s *ArticleService) ListByCategory(ctx context.Context, category models.Category, limit int) ([]models.Article, error) {
	if !category.Valid() {
		return nil, ErrNotFound
	}

	var articles []models.Article
	if err := s.recent(ctx, limit).Where("category = ?", category).Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

func (s *ArticleService) recent(ctx context.Context, limit int) *gorm.DB {
	query := s.db.WithContext(ctx).Preload("Site").Order("time_published DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return query
}

// Get returns a single article by ID.
func (s *ArticleService) Get(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	if err := s.db.WithContext(ctx).Preload("Site").First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

// Create validates and stores a new article, with an optional image.
func (s *ArticleService) Create(ctx context.Context, in ArticleInput, image *media.Upload) (*models.Article, error) {
	if in.Category == "" {
		in.Category = models.CategoryGeneral
	}
	if err := validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}
	if err := s.checkSite(ctx, in.SiteID); err != nil {
		return nil, err
	}

	article := models.Article{
		Title:       in.Title,
		Description: in.Description,
		Body:        in.Body,
		Source:      in.Source,
		Writer:      in.Writer,
		Category:    in.Category,
		SiteID:      in.SiteID,
	}

	if image != nil {
		key, err := s.saveImage(ctx, *image)
		if err != nil {
			return nil, err
		}
		article.Image = key
	}

	if err := s.db.WithContext(ctx).Create(&article).Error; err != nil {
		s.discardImage(ctx, article.Image)
		return nil, fmt.Errorf("create article: %w", err)
	}

	return s.Get(ctx, article.ID)
}

// EditableFieldsFor decides which fields the user may submit when editing.
// It is evaluated per request since group membership can change at any time.
func (s *ArticleService) EditableFieldsFor(ctx context.Context, userID uuid.UUID) (FieldSet, error) {
	senior, err := s.members.InGroup(ctx, userID, models.GroupSeniorEditors)
	if err != nil {
		return nil, err
	}
	return SelectEditableFields(senior), nil
}

// Update applies an edit made by userID. Submitting a field outside the
// user's editable set is rejected before anything is written.
func (s *ArticleService) Update(ctx context.Context, id uint, userID uuid.UUID, patch ArticlePatch) (*models.Article, error) {
	fields, err := s.EditableFieldsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, f := range patch.Submitted() {
		if !fields.Contains(f) {
			return nil, &ValidationError{Field: string(f), Message: "You are not allowed to edit this field."}
		}
	}

	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		if err := validate.Var(*patch.Title, "required,max=100"); err != nil {
			return nil, fieldError(FieldTitle, err)
		}
		updates["title"] = *patch.Title
	}
	if patch.Body != nil {
		if err := validate.Var(*patch.Body, "required,max=5000"); err != nil {
			return nil, fieldError(FieldBody, err)
		}
		updates["body"] = *patch.Body
	}
	if patch.Writer != nil {
		if err := validate.Var(*patch.Writer, "max=100"); err != nil {
			return nil, fieldError(FieldWriter, err)
		}
		updates["writer"] = *patch.Writer
	}
	if patch.Category != nil {
		if !patch.Category.Valid() {
			return nil, &ValidationError{
				Field:   string(FieldCategory),
				Message: fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", *patch.Category),
			}
		}
		updates["category"] = *patch.Category
	}

	oldImage := article.Image
	if patch.Image != nil {
		key, err := s.saveImage(ctx, *patch.Image)
		if err != nil {
			return nil, err
		}
		updates["image"] = key
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(article).Updates(updates).Error; err != nil {
			if key, ok := updates["image"].(string); ok {
				s.discardImage(ctx, key)
			}
			return nil, fmt.Errorf("update article: %w", err)
		}
		if _, ok := updates["image"]; ok {
			s.discardImage(ctx, oldImage)
		}
	}

	return s.Get(ctx, id)
}

// Delete removes an article and its image, returning what was deleted.
func (s *ArticleService) Delete(ctx context.Context, id uint) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Article{}, id).Error; err != nil {
		return nil, fmt.Errorf("delete article: %w", err)
	}
	s.discardImage(ctx, article.Image)
	return article, nil
}

func (s *ArticleService) checkSite(ctx context.Context, siteID *uint) error {
	if siteID == nil {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Source{}).Where("id = ?", *siteID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &ValidationError{Field: "site_id", Message: "Select a valid source."}
	}
	return nil
}

func (s *ArticleService) saveImage(ctx context.Context, up media.Upload) (string, error) {
	if s.store == nil {
		return "", &ValidationError{Field: string(FieldImage), Message: "Image uploads are not configured."}
	}
	key, err := s.store.Save(ctx, up)
	if err != nil {
		if errors.Is(err, media.ErrNotImage) {
			return "", &ValidationError{Field: string(FieldImage), Message: "Upload a valid image."}
		}
		return "", fmt.Errorf("save image: %w", err)
	}
	return key, nil
}

func (s *ArticleService) discardImage(ctx context.Context, key string) {
	if key == "" || s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		slog.Warn("Failed to delete article image", "key", key, "error", err)
	}
}

func fieldError(f Field, err error) error {
	var ve *ValidationError
	if errors.As(fromValidator(err), &ve) {
		ve.Field = string(f)
		return ve
	}
	return err
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
