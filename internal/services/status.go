package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"playmind-backend/internal/models"
	"playmind-backend/internal/repository"
)

type GameStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Game, error)
	GetByCode(ctx context.Context, code models.GameCode) (*models.Game, error)
	ListActive(ctx context.Context) ([]*models.Game, error)
}

type ReportStore interface {
	GetOrCreate(ctx context.Context, userID, childID uuid.UUID) (*models.Report, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) error
	WithStatusLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, locked repository.LockedReport) error) error
}

// Enqueuer hands the generation pipeline to the background worker.
type Enqueuer interface {
	EnqueueReportGeneration(ctx context.Context, userID, reportID uuid.UUID) (*models.Job, error)
}

// StatusService decides, under the report's row lock, whether a report needs
// (re)generation, and triggers it at most once per need. Safe to call on
// every status poll, concurrently.
type StatusService struct {
	reports     ReportStore
	games       GameStore
	gameReports GameReportStore
	results     ResultStore
	aggregator  *Aggregator
	queue       Enqueuer
}

func NewStatusService(reports ReportStore, games GameStore, gameReports GameReportStore, results ResultStore, aggregator *Aggregator, queue Enqueuer) *StatusService {
	return &StatusService{
		reports:     reports,
		games:       games,
		gameReports: gameReports,
		results:     results,
		aggregator:  aggregator,
		queue:       queue,
	}
}

// CheckAndMaybeGenerate runs the transition algorithm and returns the status
// the report ends up in. Concurrent callers for the same report serialize on
// the row lock; whichever enters second observes GENERATING and does nothing.
func (s *StatusService) CheckAndMaybeGenerate(ctx context.Context, reportID uuid.UUID) (models.ReportStatus, error) {
	var final models.ReportStatus

	err := s.reports.WithStatusLock(ctx, reportID, func(ctx context.Context, locked repository.LockedReport) error {
		rep := locked.Report()

		// A generation already owns this report.
		if rep.Status == models.ReportStatusGenerating {
			final = rep.Status
			return nil
		}

		games, err := s.games.ListActive(ctx)
		if err != nil {
			return fmt.Errorf("failed to list active games: %w", err)
		}

		played, err := s.results.PlayedGameIDs(ctx, rep.ChildID)
		if err != nil {
			return err
		}
		for _, game := range games {
			if !played[game.ID] {
				final = models.ReportStatusNoGamesPlayed
				return locked.SetStatus(ctx, final)
			}
		}

		upToDate, err := s.allUpToDate(ctx, rep, games)
		if err != nil {
			return err
		}
		if upToDate {
			final = models.ReportStatusCompleted
			return locked.SetStatus(ctx, final)
		}

		if err := locked.SetStatus(ctx, models.ReportStatusGenerating); err != nil {
			return err
		}
		if _, err := s.queue.EnqueueReportGeneration(ctx, rep.UserID, rep.ID); err != nil {
			log.Printf("Failed to enqueue report generation for %s: %v", rep.ID, err)
			final = models.ReportStatusError
			return locked.SetStatus(ctx, final)
		}
		final = models.ReportStatusGenerating
		return nil
	})
	if err != nil {
		return "", err
	}

	return final, nil
}

// allUpToDate reports whether a game report exists for every active game and
// each one already reflects its latest result.
func (s *StatusService) allUpToDate(ctx context.Context, rep *models.Report, games []*models.Game) (bool, error) {
	gameReports, err := s.gameReports.ListByReport(ctx, rep.ID)
	if err != nil {
		return false, err
	}

	byGame := make(map[uuid.UUID]*models.GameReport, len(gameReports))
	for _, gr := range gameReports {
		byGame[gr.GameID] = gr
	}

	for _, game := range games {
		gr, ok := byGame[game.ID]
		if !ok {
			return false, nil
		}
		upToDate, err := s.aggregator.IsUpToDate(ctx, gr, rep.ChildID, game.ID)
		if err != nil {
			return false, err
		}
		if !upToDate {
			return false, nil
		}
	}

	return true, nil
}
