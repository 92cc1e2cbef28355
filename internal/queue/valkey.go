package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
	"gorm.io/gorm"
)

// DefaultValkeyKey is the list that carries job IDs
const DefaultValkeyKey = "newsdesk:jobs"

// ValkeyQueue implements a distributed job queue using Valkey.
// Valkey carries job IDs only; the database holds the jobs.
type ValkeyQueue struct {
	client valkey.Client
	db     *gorm.DB
	key    string
}

type envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// NewValkeyQueue creates a new Valkey-backed queue
func NewValkeyQueue(addr, key string, db *gorm.DB) (*ValkeyQueue, error) {
	if db == nil {
		return nil, fmt.Errorf("database instance is required for Valkey queue")
	}
	if addr == "" {
		return nil, fmt.Errorf("valkey address is required")
	}
	if key == "" {
		key = DefaultValkeyKey
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	slog.Info("Initialized Valkey job queue", "address", addr, "queue_key", key)
	return &ValkeyQueue{client: client, db: db, key: key}, nil
}

// Enqueue saves the job to the database, then pushes its ID to the Valkey list
func (q *ValkeyQueue) Enqueue(ctx context.Context, job *models.Job) error {
	if job.ID == uuid.Nil {
		return fmt.Errorf("job must have an ID")
	}

	if err := q.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("failed to save job to database: %w", err)
	}

	data, err := json.Marshal(envelope{ID: job.ID.String(), Type: string(job.Type)})
	if err != nil {
		return fmt.Errorf("failed to marshal job data: %w", err)
	}

	// RPUSH + BLPOP gives FIFO order
	cmd := q.client.B().Rpush().Key(q.key).Element(string(data)).Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to push job to Valkey: %w", err)
	}

	slog.Debug("Job enqueued", "job_id", job.ID, "type", job.Type, "queue_key", q.key)
	return nil
}

// Dequeue blocks up to five seconds for the next job ID and loads the job from the database
func (q *ValkeyQueue) Dequeue(ctx context.Context) (*models.Job, error) {
	cmd := q.client.B().Blpop().Key(q.key).Timeout(5).Build()
	values, err := q.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, context.DeadlineExceeded
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to pop job from Valkey: %w", err)
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("invalid BLPOP result: expected 2 values, got %d", len(values))
	}

	job, err := q.load(ctx, values[1])
	if err != nil {
		return nil, err
	}

	slog.Debug("Job dequeued", "job_id", job.ID, "type", job.Type)
	return job, nil
}

func (q *ValkeyQueue) load(ctx context.Context, raw string) (*models.Job, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	jobID, err := uuid.Parse(env.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse job ID: %w", err)
	}

	var job models.Job
	if err := q.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job %s not found in database", jobID)
		}
		return nil, fmt.Errorf("failed to fetch job from database: %w", err)
	}
	return &job, nil
}

// Close closes the Valkey connection
func (q *ValkeyQueue) Close() error {
	q.client.Close()
	slog.Info("Valkey queue closed")
	return nil
}
