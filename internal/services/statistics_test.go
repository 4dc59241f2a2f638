package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"playmind-backend/internal/models"
)

func TestRefreshFoldsFullHistory(t *testing.T) {
	ctx := context.Background()
	childID := uuid.New()
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeKidsTraffic, MaxRound: 10}

	results := newFakeResultStore()
	results.add(childID, game.ID, &models.GameResult{RoundCount: 10, SuccessCount: 40, WrongCount: 2, ReactionMsSum: 12000})
	results.add(childID, game.ID, &models.GameResult{RoundCount: 4, SuccessCount: 15, WrongCount: 5, ReactionMsSum: 9000})

	gameReports := newFakeGameReportStore()
	gr, _, _ := gameReports.GetOrCreate(ctx, uuid.New(), game.ID)

	// Stale junk the refold must fully overwrite.
	gr.TotalPlaysCount = 99
	gr.TotalWrongCount = 99

	agg := NewAggregator(results, gameReports)
	hasData, err := agg.Refresh(ctx, gr, childID, game)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !hasData {
		t.Fatalf("expected hasData with two results")
	}

	if gr.TotalPlaysCount != 2 {
		t.Fatalf("TotalPlaysCount = %d, want 2", gr.TotalPlaysCount)
	}
	if gr.TotalPlayRoundsCount != 14 {
		t.Fatalf("TotalPlayRoundsCount = %d, want 14", gr.TotalPlayRoundsCount)
	}
	if gr.MaxRoundsCount != 1 {
		t.Fatalf("MaxRoundsCount = %d, want 1", gr.MaxRoundsCount)
	}
	if gr.TotalReactionMsSum != 21000 {
		t.Fatalf("TotalReactionMsSum = %d, want 21000", gr.TotalReactionMsSum)
	}
	if gr.TotalSuccessCount != 55 || gr.TotalWrongCount != 7 {
		t.Fatalf("success/wrong = %d/%d, want 55/7", gr.TotalSuccessCount, gr.TotalWrongCount)
	}
	if gr.TotalPlayActionsCount != 62 {
		t.Fatalf("TotalPlayActionsCount = %d, want 62", gr.TotalPlayActionsCount)
	}

	// The persisted copy must match the in-memory one.
	stored := gameReports.byID(gr.ID)
	if stored.TotalPlaysCount != 2 || stored.TotalPlayActionsCount != 62 {
		t.Fatalf("persisted counters diverge from refolded ones")
	}
}

func TestRefreshWithoutResults(t *testing.T) {
	ctx := context.Background()
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeBBStar, MaxRound: 10}

	gameReports := newFakeGameReportStore()
	gr, _, _ := gameReports.GetOrCreate(ctx, uuid.New(), game.ID)

	agg := NewAggregator(newFakeResultStore(), gameReports)
	hasData, err := agg.Refresh(ctx, gr, uuid.New(), game)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if hasData {
		t.Fatalf("expected hasData=false without results")
	}
	if gr.TotalPlaysCount != 0 || gr.TotalPlayActionsCount != 0 {
		t.Fatalf("expected zeroed counters, got plays=%d actions=%d", gr.TotalPlaysCount, gr.TotalPlayActionsCount)
	}
}

func TestIsUpToDate(t *testing.T) {
	ctx := context.Background()
	childID := uuid.New()
	gameID := uuid.New()

	results := newFakeResultStore()
	gameReports := newFakeGameReportStore()
	agg := NewAggregator(results, gameReports)

	gr := &models.GameReport{ID: uuid.New()}

	// No results at all: vacuously fresh.
	upToDate, err := agg.IsUpToDate(ctx, gr, childID, gameID)
	if err != nil {
		t.Fatalf("IsUpToDate: %v", err)
	}
	if !upToDate {
		t.Fatalf("expected up to date with no results")
	}

	results.add(childID, gameID, &models.GameResult{RoundCount: 3, SuccessCount: 1})

	upToDate, _ = agg.IsUpToDate(ctx, gr, childID, gameID)
	if upToDate {
		t.Fatalf("expected stale when the latest session was never reflected")
	}

	latest := results.results[childID][gameID][0].SessionID
	gr.LastReflectedSessionID = &latest

	upToDate, _ = agg.IsUpToDate(ctx, gr, childID, gameID)
	if !upToDate {
		t.Fatalf("expected up to date once the latest session is reflected")
	}

	// A newer play makes it stale again.
	results.add(childID, gameID, &models.GameResult{RoundCount: 5, SuccessCount: 2})

	upToDate, _ = agg.IsUpToDate(ctx, gr, childID, gameID)
	if upToDate {
		t.Fatalf("expected stale after a newer result")
	}
}
