package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"playmind-backend/internal/models"
)

type statusFixture struct {
	svc      *StatusService
	reports  *fakeReportStore
	results  *fakeResultStore
	grStore  *fakeGameReportStore
	enqueuer *fakeEnqueuer
	report   *models.Report
	games    []*models.Game
}

func newStatusFixture(t *testing.T, games ...*models.Game) *statusFixture {
	t.Helper()

	results := newFakeResultStore()
	grStore := newFakeGameReportStore()
	reports := newFakeReportStore()
	enqueuer := &fakeEnqueuer{}

	report := &models.Report{UserID: uuid.New(), ChildID: uuid.New(), Status: models.ReportStatusNoGamesPlayed}
	reports.add(report)

	svc := NewStatusService(reports, &fakeGameStore{games: games}, grStore, results, NewAggregator(results, grStore), enqueuer)
	return &statusFixture{svc: svc, reports: reports, results: results, grStore: grStore, enqueuer: enqueuer, report: report, games: games}
}

// markReflected makes every game report current with the child's latest
// session.
func (f *statusFixture) markReflected(ctx context.Context) {
	for _, game := range f.games {
		gr, _, _ := f.grStore.GetOrCreate(ctx, f.report.ID, game.ID)
		latest, _ := f.results.LatestSessionID(ctx, f.report.ChildID, game.ID)
		gr.LastReflectedSessionID = latest
	}
}

func TestStatusGeneratingShortCircuits(t *testing.T) {
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeKidsTraffic, MaxRound: 10, IsActive: true}
	f := newStatusFixture(t, game)
	f.report.Status = models.ReportStatusGenerating

	status, err := f.svc.CheckAndMaybeGenerate(context.Background(), f.report.ID)
	if err != nil {
		t.Fatalf("CheckAndMaybeGenerate: %v", err)
	}
	if status != models.ReportStatusGenerating {
		t.Fatalf("status = %s, want generating", status)
	}
	if f.enqueuer.calls != 0 {
		t.Fatalf("a generating report must not enqueue again")
	}
}

func TestStatusNoGamesPlayed(t *testing.T) {
	played := &models.Game{ID: uuid.New(), Code: models.GameCodeKidsTraffic, MaxRound: 10, IsActive: true}
	unplayed := &models.Game{ID: uuid.New(), Code: models.GameCodeBBStar, MaxRound: 10, IsActive: true}
	f := newStatusFixture(t, played, unplayed)

	// One game played is not enough; every active game must have results.
	f.results.add(f.report.ChildID, played.ID, &models.GameResult{RoundCount: 3, SuccessCount: 2})

	status, err := f.svc.CheckAndMaybeGenerate(context.Background(), f.report.ID)
	if err != nil {
		t.Fatalf("CheckAndMaybeGenerate: %v", err)
	}
	if status != models.ReportStatusNoGamesPlayed {
		t.Fatalf("status = %s, want no_games_played", status)
	}
	if f.enqueuer.calls != 0 {
		t.Fatalf("nothing to generate before all games are played")
	}
}

func TestStatusCompletedWhenUpToDate(t *testing.T) {
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeKidsTraffic, MaxRound: 10, IsActive: true}
	f := newStatusFixture(t, game)
	ctx := context.Background()

	f.results.add(f.report.ChildID, game.ID, &models.GameResult{RoundCount: 5, SuccessCount: 4})
	f.markReflected(ctx)

	status, err := f.svc.CheckAndMaybeGenerate(ctx, f.report.ID)
	if err != nil {
		t.Fatalf("CheckAndMaybeGenerate: %v", err)
	}
	if status != models.ReportStatusCompleted {
		t.Fatalf("status = %s, want completed", status)
	}
	if f.reports.reports[f.report.ID].Status != models.ReportStatusCompleted {
		t.Fatalf("completed status must be persisted")
	}
	if f.enqueuer.calls != 0 {
		t.Fatalf("an up-to-date report must not enqueue")
	}
}

func TestStatusEnqueuesWhenStale(t *testing.T) {
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeKidsTraffic, MaxRound: 10, IsActive: true}
	f := newStatusFixture(t, game)
	ctx := context.Background()

	f.results.add(f.report.ChildID, game.ID, &models.GameResult{RoundCount: 5, SuccessCount: 4})

	status, err := f.svc.CheckAndMaybeGenerate(ctx, f.report.ID)
	if err != nil {
		t.Fatalf("CheckAndMaybeGenerate: %v", err)
	}
	if status != models.ReportStatusGenerating {
		t.Fatalf("status = %s, want generating", status)
	}
	if f.enqueuer.calls != 1 {
		t.Fatalf("enqueue calls = %d, want 1", f.enqueuer.calls)
	}
}

func TestStatusEnqueueFailureEndsInError(t *testing.T) {
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeKidsTraffic, MaxRound: 10, IsActive: true}
	f := newStatusFixture(t, game)
	f.enqueuer.err = errors.New("queue down")
	ctx := context.Background()

	f.results.add(f.report.ChildID, game.ID, &models.GameResult{RoundCount: 5, SuccessCount: 4})

	status, err := f.svc.CheckAndMaybeGenerate(ctx, f.report.ID)
	if err != nil {
		t.Fatalf("enqueue failure must not surface as an error: %v", err)
	}
	if status != models.ReportStatusError {
		t.Fatalf("status = %s, want error", status)
	}
	if f.reports.reports[f.report.ID].Status != models.ReportStatusError {
		t.Fatalf("error status must be persisted, not left at generating")
	}
}

func TestStatusConcurrentTriggersEnqueueOnce(t *testing.T) {
	game := &models.Game{ID: uuid.New(), Code: models.GameCodeKidsTraffic, MaxRound: 10, IsActive: true}
	f := newStatusFixture(t, game)
	ctx := context.Background()

	f.results.add(f.report.ChildID, game.ID, &models.GameResult{RoundCount: 5, SuccessCount: 4})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.CheckAndMaybeGenerate(ctx, f.report.ID); err != nil {
				t.Errorf("CheckAndMaybeGenerate: %v", err)
			}
		}()
	}
	wg.Wait()

	// Whoever wins the lock flips the report to generating; everyone after
	// that short-circuits.
	if f.enqueuer.calls != 1 {
		t.Fatalf("enqueue calls = %d, want exactly 1", f.enqueuer.calls)
	}
}
