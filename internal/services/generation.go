package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"playmind-backend/internal/models"
)

// Pipeline is the generation composition root, run by the background worker.
// It never re-acquires the report's status lock: the GENERATING claim taken by
// the state machine is what keeps re-entrant triggers out while it runs.
type Pipeline struct {
	reports ReportStore
	games   GameStore
	updater *Updater
	scorer  *ScoreCalculator
	redis   *redis.Client
}

func NewPipeline(reports ReportStore, games GameStore, updater *Updater, scorer *ScoreCalculator, redisClient *redis.Client) *Pipeline {
	return &Pipeline{
		reports: reports,
		games:   games,
		updater: updater,
		scorer:  scorer,
		redis:   redisClient,
	}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub.
func (p *Pipeline) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	p.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// Run updates every active game's report, recomputes the concentration score,
// and marks the report completed. Per-game updates are independent: one game
// failing is logged and skipped, and a later pass retries whichever games are
// still stale. Idempotent if re-run.
func (p *Pipeline) Run(ctx context.Context, reportID uuid.UUID) error {
	rep, err := p.reports.GetByID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("failed to load report %s: %w", reportID, err)
	}

	games, err := p.games.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active games: %w", err)
	}

	for _, game := range games {
		if err := p.updater.UpdateGameReport(ctx, rep, game); err != nil {
			log.Printf("Game report update failed for report %s game %s: %v", rep.ID, game.Code, err)
		}
	}

	score, err := p.scorer.UpdateConcentrationScore(ctx, rep)
	if err != nil {
		return err
	}

	if err := p.reports.SetStatus(ctx, rep.ID, models.ReportStatusCompleted); err != nil {
		return fmt.Errorf("failed to mark report completed: %w", err)
	}

	log.Printf("Report %s generated: concentration score %d", rep.ID, score)

	p.PublishUpdate(ctx, rep.UserID, models.WSMessage{
		Type: "report_status",
		Payload: models.ReportStatusEvent{
			ReportID: rep.ID,
			ChildID:  rep.ChildID,
			Status:   models.ReportStatusCompleted,
		},
	})

	return nil
}
