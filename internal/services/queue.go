package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"playmind-backend/internal/models"
)

const (
	QueueReportGeneration = "queue:report-generation"
	QueueReportEmail      = "queue:report-email"

	JobTypeReportGeneration = "report-generation"
	JobTypeReportEmail      = "report-email"
)

type JobStore interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// JobQueue records a job row and hands it to the worker over a Redis list.
// Fire and forget: callers never wait on the job's outcome.
type JobQueue struct {
	jobs  JobStore
	redis *redis.Client
}

func NewJobQueue(jobs JobStore, redisClient *redis.Client) *JobQueue {
	return &JobQueue{jobs: jobs, redis: redisClient}
}

func (q *JobQueue) EnqueueReportGeneration(ctx context.Context, userID, reportID uuid.UUID) (*models.Job, error) {
	job := &models.Job{
		UserID:      userID,
		Type:        JobTypeReportGeneration,
		ReferenceID: reportID,
	}
	return q.enqueue(ctx, job, QueueReportGeneration)
}

func (q *JobQueue) EnqueueReportEmail(ctx context.Context, userID, reportID uuid.UUID) (*models.Job, error) {
	job := &models.Job{
		UserID:      userID,
		Type:        JobTypeReportEmail,
		ReferenceID: reportID,
	}
	return q.enqueue(ctx, job, QueueReportEmail)
}

func (q *JobQueue) enqueue(ctx context.Context, job *models.Job, queue string) (*models.Job, error) {
	if err := q.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create %s job: %w", job.Type, err)
	}

	jobBytes, _ := json.Marshal(job)
	if err := q.redis.LPush(ctx, queue, string(jobBytes)).Err(); err != nil {
		_ = q.jobs.UpdateStatus(ctx, job.ID, "failed")
		return nil, fmt.Errorf("failed to enqueue %s job: %w", job.Type, err)
	}

	return job, nil
}
