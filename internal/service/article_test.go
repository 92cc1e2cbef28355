package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brainwash-news/newsdesk/internal/media"
	"github.com/brainwash-news/newsdesk/internal/models"
	"gorm.io/gorm"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func articleSetup(t *testing.T) (*ArticleService, *GroupService, *gorm.DB, string) {
	t.Helper()
	database := testDB(t)
	dir := t.TempDir()
	store, err := media.NewLocalStore(dir, "/media")
	if err != nil {
		t.Fatalf("media store: %v", err)
	}
	groups := NewGroupService(database)
	return NewArticleService(database, groups, store), groups, database, dir
}

func createTestArticle(t *testing.T, svc *ArticleService, title string, category models.Category) *models.Article {
	t.Helper()
	a, err := svc.Create(context.Background(), ArticleInput{
		Title:    title,
		Body:     "body of " + title,
		Category: category,
	}, nil)
	if err != nil {
		t.Fatalf("create article: %v", err)
	}
	return a
}

func strPtr(s string) *string { return &s }

func TestArticleCreate_Validation(t *testing.T) {
	svc, _, _, _ := articleSetup(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    ArticleInput
		field string
	}{
		{"missing title", ArticleInput{Body: "b"}, "title"},
		{"missing body", ArticleInput{Title: "t"}, "body"},
		{"long title", ArticleInput{Title: strings.Repeat("x", 101), Body: "b"}, "title"},
		{"bad category", ArticleInput{Title: "t", Body: "b", Category: "gossip"}, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in, nil)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ve.Field)
			}
		})
	}
}

func TestArticleCreate_DefaultsAndImage(t *testing.T) {
	svc, _, _, dir := articleSetup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, ArticleInput{Title: "Rates rise", Body: "Markets react."}, &media.Upload{
		Filename:    "chart.png",
		ContentType: "image/png",
		Body:        bytes.NewReader(pngHeader),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Category != models.CategoryGeneral {
		t.Errorf("expected default category general, got %s", a.Category)
	}
	if a.TimePublished.IsZero() {
		t.Error("expected publication time to be stamped")
	}
	if a.Image == "" {
		t.Fatal("expected image key")
	}
	if _, err := os.Stat(filepath.Join(dir, a.Image)); err != nil {
		t.Errorf("image not stored: %v", err)
	}
	if url := svc.ImageURL(a.Image); url != "/media/"+a.Image {
		t.Errorf("unexpected image url %s", url)
	}

	_, err = svc.Create(ctx, ArticleInput{Title: "t", Body: "b"}, &media.Upload{
		Filename: "notes.txt", ContentType: "text/plain", Body: strings.NewReader("hi"),
	})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "image" {
		t.Errorf("expected image ValidationError, got %v", err)
	}

	// A declared image type and extension do not make markup an image
	_, err = svc.Create(ctx, ArticleInput{Title: "t", Body: "b"}, &media.Upload{
		Filename: "evil.html", ContentType: "image/png", Body: strings.NewReader("<html><script>alert(1)</script></html>"),
	})
	ve = nil
	if !errors.As(err, &ve) || ve.Field != "image" {
		t.Errorf("expected image ValidationError for disguised markup, got %v", err)
	}
	var count int64
	svc.db.Model(&models.Article{}).Count(&count)
	if count != 1 {
		t.Errorf("expected only the first article to be stored, got %d", count)
	}
}

func TestArticleLists(t *testing.T) {
	svc, _, _, _ := articleSetup(t)
	ctx := context.Background()

	createTestArticle(t, svc, "one", models.CategorySports)
	createTestArticle(t, svc, "two", models.CategoryHealth)
	createTestArticle(t, svc, "three", models.CategorySports)

	latest, err := svc.Latest(ctx, 2)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(latest) != 2 || latest[0].Title != "three" {
		t.Errorf("expected newest first, got %v", titles(latest))
	}

	sports, err := svc.ListByCategory(ctx, models.CategorySports, 0)
	if err != nil {
		t.Fatalf("ListByCategory: %v", err)
	}
	if len(sports) != 2 {
		t.Errorf("expected 2 sports articles, got %v", titles(sports))
	}

	if _, err := svc.ListByCategory(ctx, "gossip", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown category: expected ErrNotFound, got %v", err)
	}
}

func TestArticleUpdate_TitleRequiresSeniorEditor(t *testing.T) {
	svc, groups, database, _ := articleSetup(t)
	ctx := context.Background()
	perms := NewPermissionService(database)

	editor := createTestUser(t, database, "editor")
	senior := createTestUser(t, database, "senior")
	joinSeniorEditors(t, groups, senior)

	a := createTestArticle(t, svc, "Original", models.CategoryWorld)

	_, err := svc.Update(ctx, a.ID, editor, ArticlePatch{Title: strPtr("Hijacked")})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Fatalf("expected title ValidationError, got %v", err)
	}

	// edit_title alone does not unlock the field
	if _, err := perms.RequestPermissions(ctx, editor, []string{"edit_title", "change_article"}); err != nil {
		t.Fatalf("RequestPermissions: %v", err)
	}
	fields, err := svc.EditableFieldsFor(ctx, editor)
	if err != nil {
		t.Fatalf("EditableFieldsFor: %v", err)
	}
	if fields.Contains(FieldTitle) {
		t.Error("edit_title capability must not expose the title field")
	}

	got, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Original" {
		t.Errorf("title changed by rejected update: %s", got.Title)
	}

	updated, err := svc.Update(ctx, a.ID, senior, ArticlePatch{Title: strPtr("Corrected"), Writer: strPtr("R. Reporter")})
	if err != nil {
		t.Fatalf("senior Update: %v", err)
	}
	if updated.Title != "Corrected" || updated.Writer != "R. Reporter" {
		t.Errorf("unexpected article after update: %+v", updated)
	}
	if !updated.TimePublished.Equal(a.TimePublished) {
		t.Error("publication time must not change on update")
	}
}

func TestArticleUpdate_RegularFields(t *testing.T) {
	svc, _, database, _ := articleSetup(t)
	ctx := context.Background()
	editor := createTestUser(t, database, "editor")
	a := createTestArticle(t, svc, "Story", models.CategoryWorld)

	cat := models.CategoryScience
	updated, err := svc.Update(ctx, a.ID, editor, ArticlePatch{Body: strPtr("new body"), Category: &cat})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Body != "new body" || updated.Category != models.CategoryScience {
		t.Errorf("unexpected article after update: %+v", updated)
	}

	bad := models.Category("gossip")
	_, err = svc.Update(ctx, a.ID, editor, ArticlePatch{Category: &bad})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "category" {
		t.Errorf("expected category ValidationError, got %v", err)
	}

	if _, err := svc.Update(ctx, 9999, editor, ArticlePatch{Body: strPtr("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing article: expected ErrNotFound, got %v", err)
	}
}

func TestArticleDelete(t *testing.T) {
	svc, _, _, _ := articleSetup(t)
	ctx := context.Background()
	a := createTestArticle(t, svc, "Gone soon", models.CategoryNation)

	deleted, err := svc.Delete(ctx, a.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.Title != "Gone soon" {
		t.Errorf("expected deleted article returned, got %s", deleted.Title)
	}
	if _, err := svc.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := svc.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestArticleIngest(t *testing.T) {
	svc, _, database, _ := articleSetup(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngHeader)
	}))
	defer srv.Close()

	a, err := svc.Ingest(ctx, GeneratedArticle{
		Title:      strings.Repeat("T", 150),
		Body:       "Generated body",
		SourceName: "Wire",
		SourceURL:  "https://wire.example",
		Category:   "Technology",
		ImageURL:   srv.URL + "/cover.png",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(a.Title) != 100 {
		t.Errorf("expected title truncated to 100, got %d", len(a.Title))
	}
	if a.Category != models.CategoryTechnology {
		t.Errorf("expected technology, got %s", a.Category)
	}
	if a.Image == "" {
		t.Error("expected downloaded image")
	}
	if a.Site == nil || a.Site.Name != "Wire" {
		t.Fatalf("expected site Wire, got %+v", a.Site)
	}

	// same source name reuses the row; a broken image is skipped
	b, err := svc.Ingest(ctx, GeneratedArticle{
		Title: "Second", Body: "b", SourceName: "Wire", Category: "unknown", ImageURL: srv.URL + "/missing.png",
	})
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if b.Image != "" {
		t.Errorf("expected no image, got %s", b.Image)
	}
	if b.Category != models.CategoryGeneral {
		t.Errorf("unknown category should fall back to general, got %s", b.Category)
	}
	if b.SiteID == nil || *b.SiteID != *a.SiteID {
		t.Error("expected source to be reused")
	}

	var sources int64
	database.Model(&models.Source{}).Count(&sources)
	if sources != 1 {
		t.Errorf("expected 1 source, got %d", sources)
	}

	var ve *ValidationError
	if _, err := svc.Ingest(ctx, GeneratedArticle{Title: "no body"}); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func titles(articles []models.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.Title
	}
	return out
}
