package services

import (
	"context"
	"fmt"
	"math"

	"playmind-backend/internal/models"
)

// recentTrendLimit caps how many most-recent results are handed to the
// advisors as a trend signal.
const recentTrendLimit = 3

// AdviceGenerator produces a fixed-size set of title/description pairs from a
// per-game statistics snapshot. Implementations retry internally; an error
// returned here is terminal for the generation attempt.
type AdviceGenerator interface {
	GenerateAdvice(ctx context.Context, stats map[string]any) ([]models.AdviceItem, error)
}

// AdvisorRegistry dispatches generators by game code. Each game family has its
// own statistic vocabulary and prompt shape.
type AdvisorRegistry struct {
	generators map[models.GameCode]AdviceGenerator
}

func NewAdvisorRegistry() *AdvisorRegistry {
	return &AdvisorRegistry{generators: make(map[models.GameCode]AdviceGenerator)}
}

func (r *AdvisorRegistry) Register(code models.GameCode, gen AdviceGenerator) {
	r.generators[code] = gen
}

func (r *AdvisorRegistry) For(code models.GameCode) (AdviceGenerator, error) {
	gen, ok := r.generators[code]
	if !ok {
		return nil, fmt.Errorf("no advice generator registered for game code %s", code)
	}
	return gen, nil
}

// StatsForGame builds the statistics snapshot an advisor receives. The shape
// is game-specific: KIDS_TRAFFIC carries reaction time, BB_STAR does not.
func StatsForGame(game *models.Game, gr *models.GameReport, recent []*models.GameResult) map[string]any {
	stats := map[string]any{
		"total_plays_count":        gr.TotalPlaysCount,
		"total_play_rounds_count":  gr.TotalPlayRoundsCount,
		"max_rounds_count":         gr.MaxRoundsCount,
		"total_play_actions_count": gr.TotalPlayActionsCount,
		"total_success_count":      gr.TotalSuccessCount,
		"total_wrong_count":        gr.TotalWrongCount,
		"wrong_rate":               roundedRate(gr.WrongRate()),
		"recent_trends":            recentTrends(recent),
	}

	if game.Code == models.GameCodeKidsTraffic {
		stats["total_reaction_ms_avg"] = roundedRate(gr.AvgReactionMs())
	}

	return stats
}

func roundedRate(v *float64) float64 {
	if v == nil {
		return 0
	}
	return math.Round(*v*10) / 10
}

// recentTrends renders up to the last few results, most recent first, as raw
// per-session counters.
func recentTrends(recent []*models.GameResult) []map[string]any {
	trends := make([]map[string]any, 0, len(recent))
	for i, res := range recent {
		trends = append(trends, map[string]any{
			"order":         i + 1,
			"round_count":   res.RoundCount,
			"success_count": res.SuccessCount,
			"wrong_count":   res.WrongCount,
			"success_rate":  math.Round(res.SuccessRate()*10) / 10,
		})
	}
	return trends
}
