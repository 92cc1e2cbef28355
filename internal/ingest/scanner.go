package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/brainwash-news/newsdesk/internal/config"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/queue"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	batchPattern = "*.{yaml,yml,toml}"
	processedDir = "processed"
	failedDir    = "failed"
)

// Sink publishes generated articles
type Sink interface {
	Ingest(ctx context.Context, g service.GeneratedArticle) (*models.Article, error)
}

// Scanner watches the inbox directory and enqueues one job per batch item
type Scanner struct {
	db       *gorm.DB
	queue    queue.Queue
	inbox    string
	schedule string
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewScanner creates a scanner for the configured inbox
func NewScanner(db *gorm.DB, q queue.Queue, cfg config.IngestConfig, logger *slog.Logger) *Scanner {
	return &Scanner{
		db:       db,
		queue:    q,
		inbox:    cfg.InboxDir,
		schedule: cfg.Schedule,
		logger:   logger,
	}
}

// Start runs ScanOnce on the cron schedule until ctx is done.
// An empty schedule disables scanning.
func (s *Scanner) Start(ctx context.Context) error {
	if s.schedule == "" {
		s.logger.Info("Inbox scanning disabled")
		<-ctx.Done()
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(s.schedule, func() {
		if _, err := s.ScanOnce(ctx); err != nil {
			s.logger.Error("Inbox scan failed", "inbox", s.inbox, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid ingest schedule %q: %w", s.schedule, err)
	}

	c.Start()
	s.logger.Info("Inbox scanner started", "inbox", s.inbox, "schedule", s.schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("Inbox scanner stopped")
	return nil
}

// ScanOnce enqueues the items of every batch file in the inbox and moves
// each file out of the way. It returns the number of jobs enqueued.
func (s *Scanner) ScanOnce(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.inbox, 0755); err != nil {
		return 0, fmt.Errorf("create inbox: %w", err)
	}

	names, err := doublestar.Glob(os.DirFS(s.inbox), batchPattern)
	if err != nil {
		return 0, fmt.Errorf("list inbox: %w", err)
	}
	sort.Strings(names)

	enqueued := 0
	for _, name := range names {
		if ctx.Err() != nil {
			return enqueued, ctx.Err()
		}

		path := filepath.Join(s.inbox, name)
		batch, err := LoadFile(path)
		if err != nil {
			s.logger.Error("Rejected batch file", "file", name, "error", err)
			if err := s.move(path, failedDir); err != nil {
				return enqueued, err
			}
			continue
		}

		for _, item := range batch.Items {
			if err := s.enqueue(ctx, item.Generated(), name); err != nil {
				s.logger.Error("Failed to enqueue item", "file", name, "title", item.Title, "error", err)
				continue
			}
			enqueued++
		}

		if err := s.move(path, processedDir); err != nil {
			return enqueued, err
		}
		s.logger.Info("Processed batch file", "file", name, "items", len(batch.Items))
	}

	return enqueued, nil
}

func (s *Scanner) enqueue(ctx context.Context, g service.GeneratedArticle, batchFile string) error {
	job, err := NewJob(g, batchFile)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		now := time.Now()
		markErr := s.db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
			"status":       models.JobStatusFailed,
			"error":        err.Error(),
			"completed_at": now,
		}).Error
		if markErr != nil {
			return errors.Join(fmt.Errorf("enqueue job %s: %w", job.ID, err), fmt.Errorf("mark job failed: %w", markErr))
		}
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// move puts a handled file under sub/, prefixed with the time it was handled
func (s *Scanner) move(path, sub string) error {
	dir := filepath.Join(s.inbox, sub)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s dir: %w", sub, err)
	}
	target := filepath.Join(dir, time.Now().UTC().Format("20060102T150405.000")+"-"+filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("move %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Publish hands every item of a batch straight to the sink, without the queue.
// Items that fail are reported together; the rest are still published.
func Publish(ctx context.Context, sink Sink, b *Batch) ([]*models.Article, error) {
	var (
		published []*models.Article
		errs      []error
	)
	for i, item := range b.Items {
		article, err := sink.Ingest(ctx, item.Generated())
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d (%s): %w", i, item.Title, err))
			continue
		}
		published = append(published, article)
	}
	return published, errors.Join(errs...)
}
