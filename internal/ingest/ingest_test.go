package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brainwash-news/newsdesk/internal/config"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/queue"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const yamlBatch = `items:
  - title: Storm hits coast
    description: Heavy rain expected
    body: The storm made landfall overnight.
    source:
      name: Coastal Times
      url: https://coastal.example
    category: nation
    image_url: https://img.example/storm.png
  - title: Chess final
    body: A draw after six hours.
    category: sports
`

const tomlBatch = `[[items]]
title = "Vaccine trial"
body = "Phase three results are in."
category = "health"

[items.source]
name = "Lab Weekly"
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse(t *testing.T) {
	b, err := Parse(strings.NewReader(yamlBatch), FormatYAML)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(b.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(b.Items))
	}
	g := b.Items[0].Generated()
	if g.SourceName != "Coastal Times" || g.SourceURL != "https://coastal.example" || g.ImageURL == "" {
		t.Errorf("unexpected item: %+v", g)
	}

	b, err = Parse(strings.NewReader(tomlBatch), FormatTOML)
	if err != nil {
		t.Fatalf("toml: %v", err)
	}
	if len(b.Items) != 1 || b.Items[0].Source.Name != "Lab Weekly" {
		t.Errorf("unexpected toml batch: %+v", b)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"empty yaml", "", FormatYAML},
		{"no items", "items: []\n", FormatYAML},
		{"unknown key", "items:\n  - title: a\n    body: b\n    author: x\n", FormatYAML},
		{"missing body", "items:\n  - title: a\n", FormatYAML},
		{"empty toml", "", FormatTOML},
		{"unknown toml key", "[[items]]\ntitle = \"a\"\nbody = \"b\"\nmood = \"grim\"\n", FormatTOML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.input), tt.format); err == nil {
				t.Error("expected parse error")
			}
		})
	}

	if _, err := Parse(strings.NewReader(""), FormatYAML); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
	if _, err := FormatOf("batch.json"); err == nil {
		t.Error("expected error for json extension")
	}
}

func TestJobRoundTrip(t *testing.T) {
	in := service.GeneratedArticle{Title: "t", Body: "b", SourceName: "s", Category: "world"}
	job, err := NewJob(in, "batch.yaml")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.Type != models.JobTypeIngestArticle || job.Status != models.JobStatusPending {
		t.Errorf("unexpected job %+v", job)
	}
	if job.Metadata["batch_file"] != "batch.yaml" {
		t.Errorf("expected batch file in metadata, got %v", job.Metadata)
	}

	out, err := DecodeJob(job)
	if err != nil {
		t.Fatalf("DecodeJob: %v", err)
	}
	if out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}

	if _, err := DecodeJob(&models.Job{Type: "other"}); err == nil {
		t.Error("expected error for non-ingest job")
	}
}

func TestScanOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ingest.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Job{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	inbox := t.TempDir()
	writeFile(t, filepath.Join(inbox, "a.yaml"), yamlBatch)
	writeFile(t, filepath.Join(inbox, "b.toml"), tomlBatch)
	writeFile(t, filepath.Join(inbox, "broken.yml"), "items: [")
	writeFile(t, filepath.Join(inbox, "notes.txt"), "ignored")

	q := queue.NewMemoryQueue(10)
	defer q.Close()
	s := NewScanner(db, q, config.IngestConfig{InboxDir: inbox}, testLogger())

	n, err := s.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}
	if n != 3 || q.Len() != 3 {
		t.Errorf("expected 3 jobs enqueued, got %d (queue %d)", n, q.Len())
	}

	var jobs int64
	db.Model(&models.Job{}).Count(&jobs)
	if jobs != 3 {
		t.Errorf("expected 3 job rows, got %d", jobs)
	}

	assertFiles(t, inbox, "notes.txt")
	assertCount(t, filepath.Join(inbox, processedDir), 2)
	assertCount(t, filepath.Join(inbox, failedDir), 1)

	// a second scan finds nothing new
	n, err = s.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("second ScanOnce: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no jobs on rescan, got %d", n)
	}
}

func TestEnqueueFailureMarksJob(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ingest.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Job{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	q := queue.NewMemoryQueue(1)
	q.Close()
	s := NewScanner(db, q, config.IngestConfig{InboxDir: t.TempDir()}, testLogger())
	g := service.GeneratedArticle{Title: "Late edition", Body: "b"}

	err = s.enqueue(context.Background(), g, "a.yaml")
	if !errors.Is(err, queue.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	var job models.Job
	if err := db.First(&job).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != models.JobStatusFailed || job.Error == "" || job.CompletedAt == nil {
		t.Errorf("expected job marked failed, got status=%s error=%q completed=%v", job.Status, job.Error, job.CompletedAt)
	}

	// When the failed status cannot be written either, both errors are reported
	markErr := errors.New("status write refused")
	if err := db.Callback().Update().Before("gorm:update").Register("refuse_job_update", func(tx *gorm.DB) {
		tx.AddError(markErr)
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}

	err = s.enqueue(context.Background(), g, "b.yaml")
	if !errors.Is(err, queue.ErrClosed) || !errors.Is(err, markErr) {
		t.Errorf("expected enqueue and status errors, got %v", err)
	}
}

type fakeSink struct {
	fail string
	seen []string
}

func (f *fakeSink) Ingest(ctx context.Context, g service.GeneratedArticle) (*models.Article, error) {
	if g.Title == f.fail {
		return nil, errors.New("rejected")
	}
	f.seen = append(f.seen, g.Title)
	return &models.Article{ID: uint(len(f.seen)), Title: g.Title}, nil
}

func TestPublish(t *testing.T) {
	b, err := Parse(strings.NewReader(yamlBatch), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sink := &fakeSink{fail: "Storm hits coast"}
	published, err := Publish(context.Background(), sink, b)
	if err == nil || !strings.Contains(err.Error(), "Storm hits coast") {
		t.Errorf("expected failure for first item, got %v", err)
	}
	if len(published) != 1 || published[0].Title != "Chess final" {
		t.Errorf("expected remaining item published, got %+v", published)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func assertFiles(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Errorf("expected files %v in %s, got %v", want, dir, files)
	}
}

func assertCount(t *testing.T, dir string, want int) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	if len(entries) != want {
		t.Errorf("expected %d files in %s, got %d", want, dir, len(entries))
	}
}
