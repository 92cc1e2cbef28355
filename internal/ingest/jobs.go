package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/google/uuid"
)

// NewJob wraps a generated article in a pending ingest job
func NewJob(g service.GeneratedArticle, batchFile string) (*models.Job, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode job metadata: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("encode job metadata: %w", err)
	}
	if batchFile != "" {
		meta["batch_file"] = batchFile
	}

	return &models.Job{
		ID:       uuid.New(),
		Type:     models.JobTypeIngestArticle,
		Status:   models.JobStatusPending,
		Metadata: meta,
	}, nil
}

// DecodeJob reads the generated article back out of an ingest job
func DecodeJob(job *models.Job) (service.GeneratedArticle, error) {
	var g service.GeneratedArticle
	if job.Type != models.JobTypeIngestArticle {
		return g, fmt.Errorf("job %s is not an ingest job", job.ID)
	}

	data, err := json.Marshal(job.Metadata)
	if err != nil {
		return g, fmt.Errorf("decode job metadata: %w", err)
	}
	if err := json.Unmarshal(data, &g); err != nil {
		return g, fmt.Errorf("decode job metadata: %w", err)
	}
	return g, nil
}
