package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/brainwash-news/newsdesk/internal/ingest"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/queue"
	"github.com/brainwash-news/newsdesk/internal/service"
	"gorm.io/gorm"
)

// ArticleSink publishes generated articles
type ArticleSink interface {
	Ingest(ctx context.Context, g service.GeneratedArticle) (*models.Article, error)
}

// Worker processes jobs from the queue
type Worker struct {
	db         *gorm.DB
	queue      queue.Queue
	sink       ArticleSink
	logger     *slog.Logger
	maxWorkers int
	semaphore  chan struct{}
	wg         sync.WaitGroup
}

// New creates a new worker instance
func New(db *gorm.DB, q queue.Queue, sink ArticleSink, logger *slog.Logger) *Worker {
	maxWorkers := 4
	return &Worker{
		db:         db,
		queue:      q,
		sink:       sink,
		logger:     logger,
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Start begins processing jobs from the queue and returns when ctx is done
// or the queue is closed. In-flight jobs are waited for.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Worker started", "max_concurrent_jobs", w.maxWorkers)
	defer func() {
		w.wg.Wait()
		w.logger.Info("Worker stopped")
	}()

	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// DeadlineExceeded means no jobs available (normal timeout)
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, queue.ErrClosed) {
				return nil
			}
			w.logger.Error("Failed to dequeue job", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		select {
		case w.semaphore <- struct{}{}:
			w.wg.Add(1)
			go func(j *models.Job) {
				defer w.wg.Done()
				defer func() { <-w.semaphore }()
				w.processJob(ctx, j)
			}(job)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job *models.Job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Panic recovered in processJob", "job_id", job.ID, "panic", r)
			w.finish(job, "", fmt.Errorf("job panicked: %v", r))
		}
	}()

	w.logger.Info("Processing job", "job_id", job.ID, "type", job.Type)

	job.Status = models.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	if err := w.db.Save(job).Error; err != nil {
		w.logger.Error("Failed to mark job running", "job_id", job.ID, "error", err)
	}

	var logBuf bytes.Buffer
	err := w.executeJob(ctx, job, &logBuf)
	w.finish(job, logBuf.String(), err)
}

func (w *Worker) finish(job *models.Job, logs string, err error) {
	completedAt := time.Now()
	job.CompletedAt = &completedAt
	if logs != "" {
		job.Logs = logs
	}

	if err != nil {
		w.logger.Error("Job failed", "job_id", job.ID, "error", err)
		job.Status = models.JobStatusFailed
		job.Error = err.Error()
	} else {
		w.logger.Info("Job completed", "job_id", job.ID)
		job.Status = models.JobStatusCompleted
	}

	if err := w.db.Save(job).Error; err != nil {
		w.logger.Error("Failed to save job", "job_id", job.ID, "error", err)
	}
}

func (w *Worker) executeJob(ctx context.Context, job *models.Job, logWriter io.Writer) error {
	switch job.Type {
	case models.JobTypeIngestArticle:
		g, err := ingest.DecodeJob(job)
		if err != nil {
			return err
		}
		fmt.Fprintf(logWriter, "Publishing %q from %s\n", g.Title, g.SourceName)

		article, err := w.sink.Ingest(ctx, g)
		if err != nil {
			return fmt.Errorf("ingest article: %w", err)
		}
		job.ArticleID = &article.ID
		fmt.Fprintf(logWriter, "Published article %d\n", article.ID)
		if article.Image != "" {
			fmt.Fprintf(logWriter, "Stored image %s\n", article.Image)
		}
		return nil
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}
