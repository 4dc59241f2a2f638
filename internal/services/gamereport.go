package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"playmind-backend/internal/models"
)

// adviceErrorTitle is the fixed title of the single advice row written when a
// generator fails terminally.
const adviceErrorTitle = "Advice generation failed"

const adviceErrorDescription = "An error occurred while generating advice."

type AdviceStore interface {
	Create(ctx context.Context, advice *models.Advice) error
	DeleteByGameReport(ctx context.Context, gameReportID uuid.UUID) error
	ListByGameReport(ctx context.Context, gameReportID uuid.UUID) ([]*models.Advice, error)
}

// Updater brings one game report to a consistent, advice-annotated state for
// one generation pass.
type Updater struct {
	results     ResultStore
	gameReports GameReportStore
	advices     AdviceStore
	aggregator  *Aggregator
	advisors    *AdvisorRegistry
}

func NewUpdater(results ResultStore, gameReports GameReportStore, advices AdviceStore, aggregator *Aggregator, advisors *AdvisorRegistry) *Updater {
	return &Updater{
		results:     results,
		gameReports: gameReports,
		advices:     advices,
		aggregator:  aggregator,
		advisors:    advisors,
	}
}

// UpdateGameReport refolds statistics and regenerates advice for one game.
// Returns without touching anything when the report is already up to date and
// was not just created. Advice failure never propagates: a single error-marked
// row is written instead. The last reflected session always advances on a
// refold, whether or not advice succeeded; staleness tracks statistics
// freshness, not advice.
func (u *Updater) UpdateGameReport(ctx context.Context, report *models.Report, game *models.Game) error {
	gr, created, err := u.gameReports.GetOrCreate(ctx, report.ID, game.ID)
	if err != nil {
		return fmt.Errorf("failed to get or create game report: %w", err)
	}

	if !created {
		upToDate, err := u.aggregator.IsUpToDate(ctx, gr, report.ChildID, game.ID)
		if err != nil {
			return err
		}
		if upToDate {
			return nil
		}
	}

	hasData, err := u.aggregator.Refresh(ctx, gr, report.ChildID, game)
	if err != nil {
		return err
	}

	if hasData {
		if err := u.refreshAdvice(ctx, gr, report.ChildID, game); err != nil {
			return err
		}
	}

	latest, err := u.results.LatestSessionID(ctx, report.ChildID, game.ID)
	if err != nil {
		return err
	}
	if err := u.gameReports.SetLastReflectedSession(ctx, gr.ID, latest); err != nil {
		return fmt.Errorf("failed to advance last reflected session: %w", err)
	}

	return nil
}

// refreshAdvice replaces the advice set: delete all, then insert the new set.
// Not atomic across the boundary; a crash in between self-heals on the next
// generation pass. Only store errors return non-nil.
func (u *Updater) refreshAdvice(ctx context.Context, gr *models.GameReport, childID uuid.UUID, game *models.Game) error {
	if err := u.advices.DeleteByGameReport(ctx, gr.ID); err != nil {
		return fmt.Errorf("failed to clear advice set: %w", err)
	}

	recent, err := u.results.Recent(ctx, childID, game.ID, recentTrendLimit)
	if err != nil {
		return err
	}

	stats := StatsForGame(game, gr, recent)

	if metaBytes, merr := json.Marshal(stats); merr == nil {
		if err := u.gameReports.UpdateMeta(ctx, gr.ID, string(metaBytes)); err != nil {
			return fmt.Errorf("failed to persist statistics meta: %w", err)
		}
	}

	var items []models.AdviceItem
	gen, err := u.advisors.For(game.Code)
	if err == nil {
		items, err = gen.GenerateAdvice(ctx, stats)
	}

	if err != nil {
		log.Printf("Advice generation failed for game %s (game report %s): %v", game.Code, gr.ID, err)
		msg := err.Error()
		return u.advices.Create(ctx, &models.Advice{
			GameReportID: gr.ID,
			Title:        adviceErrorTitle,
			Description:  adviceErrorDescription,
			ErrorMessage: &msg,
		})
	}

	for _, item := range items {
		advice := &models.Advice{
			GameReportID: gr.ID,
			Title:        item.Title,
			Description:  item.Description,
		}
		if err := u.advices.Create(ctx, advice); err != nil {
			return fmt.Errorf("failed to persist advice: %w", err)
		}
	}

	return nil
}
