package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"playmind-backend/internal/models"
)

func TestPipelineIsolatesPerGameFailures(t *testing.T) {
	ctx := context.Background()
	gameA := &models.Game{ID: uuid.New(), Code: models.GameCodeKidsTraffic, MaxRound: 10, IsActive: true}
	gameB := &models.Game{ID: uuid.New(), Code: models.GameCodeBBStar, MaxRound: 10, IsActive: true}

	results := newFakeResultStore()
	gameReports := newFakeGameReportStore()
	advices := &fakeAdviceStore{}
	reports := newFakeReportStore()

	report := &models.Report{UserID: uuid.New(), ChildID: uuid.New(), Status: models.ReportStatusGenerating}
	reports.add(report)

	results.add(report.ChildID, gameA.ID, &models.GameResult{RoundCount: 6, SuccessCount: 20, WrongCount: 4})
	results.add(report.ChildID, gameB.ID, &models.GameResult{RoundCount: 8, SuccessCount: 15, WrongCount: 3})

	failing := &fakeGenerator{err: context.DeadlineExceeded}
	working := &fakeGenerator{items: []models.AdviceItem{
		{Title: "Memory games", Description: "Repeat short sequences together."},
		{Title: "Take turns", Description: "Let the child lead one round."},
	}}

	registry := NewAdvisorRegistry()
	registry.Register(gameA.Code, failing)
	registry.Register(gameB.Code, working)

	games := &fakeGameStore{games: []*models.Game{gameA, gameB}}
	aggregator := NewAggregator(results, gameReports)
	updater := NewUpdater(results, gameReports, advices, aggregator, registry)
	scorer := NewScoreCalculator(results, gameReports, games, reports)

	// Publishing goes to a client nothing listens on; the pipeline ignores
	// publish outcomes.
	pipeline := NewPipeline(reports, games, updater, scorer, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))

	if err := pipeline.Run(ctx, report.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if reports.reports[report.ID].Status != models.ReportStatusCompleted {
		t.Fatalf("status = %s, want completed despite one game's advice failing", reports.reports[report.ID].Status)
	}

	grA := gameReports.find(report.ID, gameA.ID)
	rowsA, _ := advices.ListByGameReport(ctx, grA.ID)
	if len(rowsA) != 1 || rowsA[0].ErrorMessage == nil {
		t.Fatalf("game A must carry exactly one error-marked advice row, got %d", len(rowsA))
	}

	grB := gameReports.find(report.ID, gameB.ID)
	rowsB, _ := advices.ListByGameReport(ctx, grB.ID)
	if len(rowsB) != 2 {
		t.Fatalf("game B advice rows = %d, want 2", len(rowsB))
	}
	for _, row := range rowsB {
		if row.ErrorMessage != nil {
			t.Fatalf("game B advice must not be error-marked")
		}
	}

	if report.ConcentrationScore <= 0 || report.ConcentrationScore > 100 {
		t.Fatalf("concentration score = %d, want within (0, 100]", report.ConcentrationScore)
	}
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeBBStar, MaxRound: 10, IsActive: true}

	results := newFakeResultStore()
	gameReports := newFakeGameReportStore()
	advices := &fakeAdviceStore{}
	reports := newFakeReportStore()

	report := &models.Report{UserID: uuid.New(), ChildID: uuid.New(), Status: models.ReportStatusGenerating}
	reports.add(report)
	results.add(report.ChildID, game.ID, &models.GameResult{RoundCount: 7, SuccessCount: 12, WrongCount: 2})

	gen := &fakeGenerator{items: []models.AdviceItem{
		{Title: "A", Description: "B"},
		{Title: "C", Description: "D"},
	}}
	registry := NewAdvisorRegistry()
	registry.Register(game.Code, gen)

	games := &fakeGameStore{games: []*models.Game{game}}
	aggregator := NewAggregator(results, gameReports)
	updater := NewUpdater(results, gameReports, advices, aggregator, registry)
	scorer := NewScoreCalculator(results, gameReports, games, reports)
	pipeline := NewPipeline(reports, games, updater, scorer, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))

	if err := pipeline.Run(ctx, report.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstScore := report.ConcentrationScore

	// Nothing new played: the second run must not regenerate advice or change
	// anything.
	if err := pipeline.Run(ctx, report.ID); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1 across both runs", gen.calls)
	}
	if report.ConcentrationScore != firstScore {
		t.Fatalf("score changed on an idempotent rerun: %d -> %d", firstScore, report.ConcentrationScore)
	}
	if len(advices.advices) != 2 {
		t.Fatalf("advice rows = %d, want 2 after rerun", len(advices.advices))
	}
}
