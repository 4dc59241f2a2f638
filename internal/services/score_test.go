package services

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"

	"playmind-backend/internal/models"
)

func result(round, success, wrong int) *models.GameResult {
	return &models.GameResult{
		ID:           uuid.New(),
		SessionID:    uuid.New(),
		RoundCount:   round,
		SuccessCount: success,
		WrongCount:   wrong,
	}
}

func TestImprovementScore(t *testing.T) {
	tests := []struct {
		name    string
		results []*models.GameResult // most recent first
		want    float64
	}{
		{
			name:    "no history",
			results: nil,
			want:    50,
		},
		{
			name:    "single result",
			results: []*models.GameResult{result(5, 4, 1)},
			want:    50,
		},
		{
			name: "exactly two scored results degenerate to neutral",
			results: []*models.GameResult{
				result(5, 5, 0),
				result(5, 1, 4),
			},
			want: 50,
		},
		{
			name: "unscored sessions are ignored",
			results: []*models.GameResult{
				result(1, 0, 0),
				result(5, 4, 1),
			},
			want: 50,
		},
		{
			name: "strong recent improvement clamps at 100",
			results: []*models.GameResult{
				result(10, 5, 0), // 100%
				result(10, 5, 0), // 100%
				result(5, 2, 2),  // 50%
				result(5, 1, 1),  // 50%
			},
			want: 100, // 50 + (100-50)*2.5 = 175, clamped
		},
		{
			name: "recent decline clamps at 0",
			results: []*models.GameResult{
				result(2, 0, 5), // 0%
				result(2, 0, 5), // 0%
				result(10, 5, 0),
				result(10, 5, 0),
			},
			want: 0, // 50 + (0-100)*2.5 = -200, clamped
		},
		{
			name: "moderate improvement",
			results: []*models.GameResult{
				result(8, 4, 1), // 80%
				result(8, 4, 1), // 80%
				result(5, 3, 2), // 60%
			},
			want: 100, // 50 + (80-60)*2.5
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := improvementScore(tt.results)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("improvementScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGameScorePerfectPlayExceedsHundred(t *testing.T) {
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeBBStar, MaxRound: 10}
	gr := &models.GameReport{
		TotalPlaysCount:       1,
		TotalPlayRoundsCount:  10,
		MaxRoundsCount:        1,
		TotalPlayActionsCount: 10,
		TotalSuccessCount:     10,
	}

	// 100*0.4 + 100*0.3 + 100*0.3 + 50*0.1 = 105 before the final clamp.
	got := GameScore(gr, game, []*models.GameResult{result(10, 10, 0)})
	if math.Abs(got-105) > 1e-9 {
		t.Fatalf("GameScore = %v, want 105", got)
	}
}

func TestGameScoreNoActions(t *testing.T) {
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeBBStar, MaxRound: 10}
	gr := &models.GameReport{TotalPlaysCount: 1, TotalPlayRoundsCount: 2}

	// Success and consistency are both 0 without actions; only the partial
	// round progress and the neutral improvement bonus remain.
	got := GameScore(gr, game, []*models.GameResult{result(2, 0, 0)})
	want := (2.0/10.0*100)*0.4*0.3 + 50*0.1
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("GameScore = %v, want %v", got, want)
	}
}

func TestGameScoreDegradedPlayStaysLow(t *testing.T) {
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeBBStar, MaxRound: 10}
	// Two plays stuck at round 2 with a 75% wrong rate.
	gr := &models.GameReport{
		TotalPlaysCount:       2,
		TotalPlayRoundsCount:  4,
		TotalPlayActionsCount: 20,
		TotalSuccessCount:     5,
		TotalWrongCount:       15,
	}
	results := []*models.GameResult{
		result(2, 2, 8),
		result(2, 3, 7),
	}

	got := GameScore(gr, game, results)
	if got >= 50 {
		t.Fatalf("GameScore = %v, want well under 50 for a degraded history", got)
	}
}

func TestMaxRoundScoreBlendsAchievementAndProgress(t *testing.T) {
	gr := &models.GameReport{
		TotalPlaysCount:      4,
		TotalPlayRoundsCount: 24, // avg 6 of 10
		MaxRoundsCount:       1,  // 25% reached the end
	}

	got := maxRoundScore(gr, 10)
	want := 25*0.6 + 60*0.4
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("maxRoundScore = %v, want %v", got, want)
	}
}

func TestConsistencyScore(t *testing.T) {
	if got := consistencyScore(&models.GameReport{}); got != 0 {
		t.Fatalf("expected 0 consistency without actions, got %v", got)
	}

	gr := &models.GameReport{TotalPlayActionsCount: 10, TotalWrongCount: 3}
	if got := consistencyScore(gr); math.Abs(got-70) > 1e-9 {
		t.Fatalf("consistencyScore = %v, want 70", got)
	}
}

func TestUpdateConcentrationScoreClampsAndPersists(t *testing.T) {
	ctx := context.Background()
	childID := uuid.New()
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeKidsTraffic, MaxRound: 10, IsActive: true}

	results := newFakeResultStore()
	results.add(childID, game.ID, result(10, 50, 0))

	reports := newFakeReportStore()
	report := &models.Report{UserID: uuid.New(), ChildID: childID, Status: models.ReportStatusGenerating}
	reports.add(report)

	gameReports := newFakeGameReportStore()
	gr, _, _ := gameReports.GetOrCreate(ctx, report.ID, game.ID)
	gr.TotalPlaysCount = 1
	gr.TotalPlayRoundsCount = 10
	gr.MaxRoundsCount = 1
	gr.TotalPlayActionsCount = 50
	gr.TotalSuccessCount = 50

	games := &fakeGameStore{games: []*models.Game{game}}
	calc := NewScoreCalculator(results, gameReports, games, reports)

	score, err := calc.UpdateConcentrationScore(ctx, report)
	if err != nil {
		t.Fatalf("UpdateConcentrationScore: %v", err)
	}
	// Perfect play scores 105 per game and must clamp to 100.
	if score != 100 {
		t.Fatalf("score = %d, want 100", score)
	}
	if reports.reports[report.ID].ConcentrationScore != 100 {
		t.Fatalf("expected persisted score 100, got %d", reports.reports[report.ID].ConcentrationScore)
	}
}

func TestUpdateConcentrationScoreSkipsUnplayedGames(t *testing.T) {
	ctx := context.Background()
	childID := uuid.New()
	played := &models.Game{ID: uuid.New(), Code: models.GameCodeKidsTraffic, MaxRound: 10, IsActive: true}
	unplayed := &models.Game{ID: uuid.New(), Code: models.GameCodeBBStar, MaxRound: 10, IsActive: true}

	results := newFakeResultStore()
	results.add(childID, played.ID, result(5, 8, 2))

	reports := newFakeReportStore()
	report := &models.Report{UserID: uuid.New(), ChildID: childID}
	reports.add(report)

	gameReports := newFakeGameReportStore()
	gr, _, _ := gameReports.GetOrCreate(ctx, report.ID, played.ID)
	gr.TotalPlaysCount = 1
	gr.TotalPlayRoundsCount = 5
	gr.TotalPlayActionsCount = 10
	gr.TotalSuccessCount = 8
	gr.TotalWrongCount = 2
	gameReports.GetOrCreate(ctx, report.ID, unplayed.ID) // zero counters, must not dilute

	games := &fakeGameStore{games: []*models.Game{played, unplayed}}
	calc := NewScoreCalculator(results, gameReports, games, reports)

	score, err := calc.UpdateConcentrationScore(ctx, report)
	if err != nil {
		t.Fatalf("UpdateConcentrationScore: %v", err)
	}

	want := int(math.Round(GameScore(gr, played, results.results[childID][played.ID])))
	if score != want {
		t.Fatalf("score = %d, want %d (unplayed game must not average in)", score, want)
	}
}

func TestUpdateConcentrationScoreNothingPlayed(t *testing.T) {
	ctx := context.Background()
	reports := newFakeReportStore()
	report := &models.Report{UserID: uuid.New(), ChildID: uuid.New()}
	reports.add(report)

	calc := NewScoreCalculator(newFakeResultStore(), newFakeGameReportStore(), &fakeGameStore{}, reports)

	score, err := calc.UpdateConcentrationScore(ctx, report)
	if err != nil {
		t.Fatalf("UpdateConcentrationScore: %v", err)
	}
	if score != 0 {
		t.Fatalf("score = %d, want 0 for a report with no played games", score)
	}
}
