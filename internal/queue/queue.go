package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/brainwash-news/newsdesk/internal/config"
	"github.com/brainwash-news/newsdesk/internal/models"
	"gorm.io/gorm"
)

// ErrClosed is returned once the queue has been closed
var ErrClosed = errors.New("queue closed")

// Queue transports background jobs from producers to the worker.
// The jobs table is the source of truth for job state; the queue only moves jobs.
type Queue interface {
	// Enqueue adds a job to the queue
	Enqueue(ctx context.Context, job *models.Job) error

	// Dequeue retrieves the next job from the queue.
	// It returns context.DeadlineExceeded when no job arrived within its poll window.
	Dequeue(ctx context.Context) (*models.Job, error)

	// Close closes the queue and releases resources
	Close() error
}

// New creates the queue selected by configuration
func New(cfg config.QueueConfig, db *gorm.DB) (Queue, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryQueue(100), nil
	case "valkey":
		return NewValkeyQueue(cfg.ValkeyAddr, cfg.Key, db)
	default:
		return nil, fmt.Errorf("unsupported queue type: %s", cfg.Type)
	}
}
