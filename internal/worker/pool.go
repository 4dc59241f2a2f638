package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"playmind-backend/internal/models"
	"playmind-backend/internal/repository"
	"playmind-backend/internal/services"
)

type Pool struct {
	redis       *redis.Client
	pipeline    *services.Pipeline
	email       *services.EmailService
	userRepo    *repository.UserRepo
	childRepo   *repository.ChildRepo
	jobRepo     *repository.JobRepo
	reportRepo  *repository.ReportRepo
	grRepo      *repository.GameReportRepo
	adviceRepo  *repository.AdviceRepo
	gameRepo    *repository.GameRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	pipeline *services.Pipeline,
	email *services.EmailService,
	userRepo *repository.UserRepo,
	childRepo *repository.ChildRepo,
	jobRepo *repository.JobRepo,
	reportRepo *repository.ReportRepo,
	grRepo *repository.GameReportRepo,
	adviceRepo *repository.AdviceRepo,
	gameRepo *repository.GameRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		pipeline:    pipeline,
		email:       email,
		userRepo:    userRepo,
		childRepo:   childRepo,
		jobRepo:     jobRepo,
		reportRepo:  reportRepo,
		grRepo:      grRepo,
		adviceRepo:  adviceRepo,
		gameRepo:    gameRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		services.QueueReportGeneration,
		services.QueueReportEmail,
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		var processErr error
		switch job.Type {
		case services.JobTypeReportGeneration:
			processErr = p.pipeline.Run(ctx, job.ReferenceID)
		case services.JobTypeReportEmail:
			processErr = p.processReportEmail(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

// processReportEmail renders the report summary (score plus per-game advice)
// into an HTML mail for the guardian.
func (p *Pool) processReportEmail(ctx context.Context, job *models.Job) error {
	report, err := p.reportRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}

	user, err := p.userRepo.GetByID(ctx, report.UserID)
	if err != nil {
		return fmt.Errorf("failed to load guardian: %w", err)
	}

	child, err := p.childRepo.GetByID(ctx, report.ChildID)
	if err != nil {
		return fmt.Errorf("failed to load child: %w", err)
	}

	gameReports, err := p.grRepo.ListByReport(ctx, report.ID)
	if err != nil {
		return fmt.Errorf("failed to load game reports: %w", err)
	}

	var sections []models.GameReportDetail
	for _, gr := range gameReports {
		game, err := p.gameRepo.GetByID(ctx, gr.GameID)
		if err != nil {
			return fmt.Errorf("failed to load game: %w", err)
		}
		advices, err := p.adviceRepo.ListByGameReport(ctx, gr.ID)
		if err != nil {
			return fmt.Errorf("failed to load advice: %w", err)
		}
		sections = append(sections, models.GameReportDetail{
			Game:       game,
			GameReport: gr,
			Advices:    advices,
		})
	}

	return p.email.SendReportSummaryEmail(user.Email, child.Name, report.ConcentrationScore, sections)
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	p.pipeline.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultID:   job.ReferenceID,
			ResultType: getResultType(job.Type),
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < 3 {
		// Re-queue with backoff
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), jobQueueName(job.Type), string(jobBytes))
		})
	} else {
		// Max retries reached
		log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		if job.Type == services.JobTypeReportGeneration {
			// Surface the failure on the report so the next status poll can
			// re-trigger generation.
			if serr := p.reportRepo.SetStatus(ctx, job.ReferenceID, models.ReportStatusError); serr != nil {
				log.Printf("Failed to mark report %s as errored: %v", job.ReferenceID, serr)
			}
		}

		p.pipeline.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "error",
			Payload: models.ErrorEvent{
				JobID:        job.ID,
				ErrorCode:    "JOB_FAILED",
				ErrorMessage: errMsg,
			},
		})
	}
}

func jobQueueName(jobType string) string {
	switch jobType {
	case services.JobTypeReportGeneration:
		return services.QueueReportGeneration
	case services.JobTypeReportEmail:
		return services.QueueReportEmail
	default:
		return "queue:" + jobType
	}
}

func getResultType(jobType string) string {
	switch jobType {
	case services.JobTypeReportGeneration:
		return "report"
	case services.JobTypeReportEmail:
		return "report-email"
	default:
		return "job"
	}
}
