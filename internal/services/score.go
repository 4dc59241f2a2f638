package services

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"playmind-backend/internal/models"
)

// Score weights sum to 1.10: the improvement component is a bonus, so a
// per-game score can reach 110 before the final clamp to 100.
const (
	weightSuccessRate = 0.40
	weightMaxRound    = 0.30
	weightConsistency = 0.30
	weightImprovement = 0.10

	// recentResultsSplit is the "most recent N vs all older" boundary for the
	// improvement component.
	recentResultsSplit = 2
)

type ScoreStore interface {
	UpdateConcentrationScore(ctx context.Context, id uuid.UUID, score int) error
}

// ScoreCalculator folds every played game's report into one 0-100
// concentration score and persists it on the report.
type ScoreCalculator struct {
	results     ResultStore
	gameReports GameReportStore
	games       GameStore
	reports     ScoreStore
}

func NewScoreCalculator(results ResultStore, gameReports GameReportStore, games GameStore, reports ScoreStore) *ScoreCalculator {
	return &ScoreCalculator{
		results:     results,
		gameReports: gameReports,
		games:       games,
		reports:     reports,
	}
}

// UpdateConcentrationScore computes the rounded mean of the per-game scores
// over games with at least one play, clamps to [0, 100], and persists it.
// A report with no played games scores 0.
func (c *ScoreCalculator) UpdateConcentrationScore(ctx context.Context, report *models.Report) (int, error) {
	gameReports, err := c.gameReports.ListByReport(ctx, report.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list game reports: %w", err)
	}

	var total float64
	var played int
	for _, gr := range gameReports {
		if gr.TotalPlaysCount == 0 {
			continue
		}
		game, err := c.games.GetByID(ctx, gr.GameID)
		if err != nil {
			return 0, fmt.Errorf("failed to load game %s: %w", gr.GameID, err)
		}
		results, err := c.results.List(ctx, report.ChildID, gr.GameID)
		if err != nil {
			return 0, err
		}
		total += GameScore(gr, game, results)
		played++
	}

	score := 0
	if played > 0 {
		score = int(clamp(math.Round(total/float64(played)), 0, 100))
	}

	if err := c.reports.UpdateConcentrationScore(ctx, report.ID, score); err != nil {
		return 0, fmt.Errorf("failed to persist concentration score: %w", err)
	}
	report.ConcentrationScore = score

	return score, nil
}

// GameScore is the weighted per-game score, 0-110. results must be ordered
// most recent first.
func GameScore(gr *models.GameReport, game *models.Game, results []*models.GameResult) float64 {
	return successRateScore(gr)*weightSuccessRate +
		maxRoundScore(gr, game.MaxRound)*weightMaxRound +
		consistencyScore(gr)*weightConsistency +
		improvementScore(results)*weightImprovement
}

func successRateScore(gr *models.GameReport) float64 {
	if gr.TotalPlayActionsCount == 0 {
		return 0
	}
	rate := float64(gr.TotalSuccessCount) / float64(gr.TotalPlayActionsCount) * 100
	return math.Min(100, rate)
}

// maxRoundScore blends how often the child reached the game's final round
// (60%) with how far the average play got (40%).
func maxRoundScore(gr *models.GameReport, maxRound int) float64 {
	if gr.TotalPlaysCount == 0 {
		return 0
	}
	achievementRate := float64(gr.MaxRoundsCount) / float64(gr.TotalPlaysCount) * 100

	var avgRoundRate float64
	if avg := gr.AvgRoundsCount(); avg != nil {
		avgRoundRate = *avg / float64(maxRound) * 100
	}

	return math.Min(100, achievementRate*0.6+avgRoundRate*0.4)
}

func consistencyScore(gr *models.GameReport) float64 {
	wrongRate := gr.WrongRate()
	if wrongRate == nil {
		return 0
	}
	return math.Max(0, 100-*wrongRate)
}

// improvementScore compares the average per-session success rate of the most
// recent results against all older ones. Neutral 50 when there is not enough
// history to compare: fewer than two results, or fewer than two with any
// scored actions. Exactly two scored results also yield 50, since the older
// slice is empty and the comparison degenerates.
func improvementScore(results []*models.GameResult) float64 {
	if len(results) < recentResultsSplit {
		return 50
	}

	var scored []*models.GameResult
	for _, res := range results {
		if res.SuccessCount+res.WrongCount > 0 {
			scored = append(scored, res)
		}
	}
	if len(scored) < recentResultsSplit {
		return 50
	}

	recentAvg := avgSuccessRate(scored[:recentResultsSplit])
	olderAvg := recentAvg
	if len(scored) > recentResultsSplit {
		olderAvg = avgSuccessRate(scored[recentResultsSplit:])
	}

	improvement := recentAvg - olderAvg
	return clamp(50+improvement*2.5, 0, 100)
}

func avgSuccessRate(results []*models.GameResult) float64 {
	var sum float64
	for _, res := range results {
		sum += res.SuccessRate()
	}
	return sum / float64(len(results))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
