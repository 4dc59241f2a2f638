package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"playmind-backend/internal/models"
)

// ResultStore is the read-only view of the append-only game result history.
type ResultStore interface {
	Counters(ctx context.Context, childID, gameID uuid.UUID, maxRound int) (*models.ResultCounters, error)
	LatestSessionID(ctx context.Context, childID, gameID uuid.UUID) (*uuid.UUID, error)
	Recent(ctx context.Context, childID, gameID uuid.UUID, limit int) ([]*models.GameResult, error)
	List(ctx context.Context, childID, gameID uuid.UUID) ([]*models.GameResult, error)
	PlayedGameIDs(ctx context.Context, childID uuid.UUID) (map[uuid.UUID]bool, error)
}

type GameReportStore interface {
	GetOrCreate(ctx context.Context, reportID, gameID uuid.UUID) (*models.GameReport, bool, error)
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]*models.GameReport, error)
	UpdateCounters(ctx context.Context, id uuid.UUID, c models.ResultCounters, actionsCount int) error
	SetLastReflectedSession(ctx context.Context, id uuid.UUID, sessionID *uuid.UUID) error
	UpdateMeta(ctx context.Context, id uuid.UUID, metaJSON string) error
}

// Aggregator recomputes a game report's cumulative counters from the child's
// full result history. Counters are always a full refold, never an increment,
// so a crashed or partial earlier pass cannot leave drift behind.
type Aggregator struct {
	results     ResultStore
	gameReports GameReportStore
}

func NewAggregator(results ResultStore, gameReports GameReportStore) *Aggregator {
	return &Aggregator{results: results, gameReports: gameReports}
}

// Refresh refolds the counters for one game report and persists them, mutating
// gr in place to match. Returns false when the child has no results for the
// game, so callers can skip advice generation.
func (a *Aggregator) Refresh(ctx context.Context, gr *models.GameReport, childID uuid.UUID, game *models.Game) (bool, error) {
	c, err := a.results.Counters(ctx, childID, game.ID, game.MaxRound)
	if err != nil {
		return false, fmt.Errorf("failed to aggregate results for game %s: %w", game.Code, err)
	}

	actions := c.SuccessSum + c.WrongSum
	if err := a.gameReports.UpdateCounters(ctx, gr.ID, *c, actions); err != nil {
		return false, fmt.Errorf("failed to persist counters for game report %s: %w", gr.ID, err)
	}

	gr.TotalPlaysCount = c.PlaysCount
	gr.TotalPlayRoundsCount = c.RoundsSum
	gr.MaxRoundsCount = c.MaxRoundPlays
	gr.TotalReactionMsSum = c.ReactionMsSum
	gr.TotalPlayActionsCount = actions
	gr.TotalSuccessCount = c.SuccessSum
	gr.TotalWrongCount = c.WrongSum

	return c.PlaysCount > 0, nil
}

// IsUpToDate reports whether the game report already reflects the child's most
// recent result. With no results at all it is vacuously up to date. One indexed
// lookup, cheap enough to run on every status poll.
func (a *Aggregator) IsUpToDate(ctx context.Context, gr *models.GameReport, childID, gameID uuid.UUID) (bool, error) {
	latest, err := a.results.LatestSessionID(ctx, childID, gameID)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return true, nil
	}
	return gr.LastReflectedSessionID != nil && *gr.LastReflectedSessionID == *latest, nil
}
