package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"playmind-backend/internal/models"
	"playmind-backend/internal/repository"
)

// In-memory fakes backing the service tests. Counters are folded from the
// seeded results the same way the SQL pass does.

type fakeResultStore struct {
	results map[uuid.UUID]map[uuid.UUID][]*models.GameResult // child -> game, most recent first
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{results: make(map[uuid.UUID]map[uuid.UUID][]*models.GameResult)}
}

// add prepends so the slice stays most-recent-first, matching the repository
// ordering.
func (f *fakeResultStore) add(childID, gameID uuid.UUID, res *models.GameResult) {
	if f.results[childID] == nil {
		f.results[childID] = make(map[uuid.UUID][]*models.GameResult)
	}
	res.ChildID = childID
	res.GameID = gameID
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.SessionID == uuid.Nil {
		res.SessionID = uuid.New()
	}
	f.results[childID][gameID] = append([]*models.GameResult{res}, f.results[childID][gameID]...)
}

func (f *fakeResultStore) Counters(_ context.Context, childID, gameID uuid.UUID, maxRound int) (*models.ResultCounters, error) {
	c := &models.ResultCounters{}
	for _, res := range f.results[childID][gameID] {
		c.PlaysCount++
		c.RoundsSum += res.RoundCount
		if res.RoundCount == maxRound {
			c.MaxRoundPlays++
		}
		c.ReactionMsSum += res.ReactionMsSum
		c.SuccessSum += res.SuccessCount
		c.WrongSum += res.WrongCount
	}
	return c, nil
}

func (f *fakeResultStore) LatestSessionID(_ context.Context, childID, gameID uuid.UUID) (*uuid.UUID, error) {
	list := f.results[childID][gameID]
	if len(list) == 0 {
		return nil, nil
	}
	id := list[0].SessionID
	return &id, nil
}

func (f *fakeResultStore) Recent(_ context.Context, childID, gameID uuid.UUID, limit int) ([]*models.GameResult, error) {
	list := f.results[childID][gameID]
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (f *fakeResultStore) List(_ context.Context, childID, gameID uuid.UUID) ([]*models.GameResult, error) {
	return f.results[childID][gameID], nil
}

func (f *fakeResultStore) PlayedGameIDs(_ context.Context, childID uuid.UUID) (map[uuid.UUID]bool, error) {
	played := make(map[uuid.UUID]bool)
	for gameID, list := range f.results[childID] {
		if len(list) > 0 {
			played[gameID] = true
		}
	}
	return played, nil
}

type fakeGameReportStore struct {
	order []*models.GameReport
}

func newFakeGameReportStore() *fakeGameReportStore {
	return &fakeGameReportStore{}
}

func (f *fakeGameReportStore) find(reportID, gameID uuid.UUID) *models.GameReport {
	for _, gr := range f.order {
		if gr.ReportID == reportID && gr.GameID == gameID {
			return gr
		}
	}
	return nil
}

func (f *fakeGameReportStore) byID(id uuid.UUID) *models.GameReport {
	for _, gr := range f.order {
		if gr.ID == id {
			return gr
		}
	}
	return nil
}

func (f *fakeGameReportStore) GetOrCreate(_ context.Context, reportID, gameID uuid.UUID) (*models.GameReport, bool, error) {
	if gr := f.find(reportID, gameID); gr != nil {
		return gr, false, nil
	}
	gr := &models.GameReport{
		ID:       uuid.New(),
		ReportID: reportID,
		GameID:   gameID,
		MetaJSON: []byte("{}"),
	}
	f.order = append(f.order, gr)
	return gr, true, nil
}

func (f *fakeGameReportStore) ListByReport(_ context.Context, reportID uuid.UUID) ([]*models.GameReport, error) {
	var out []*models.GameReport
	for _, gr := range f.order {
		if gr.ReportID == reportID {
			out = append(out, gr)
		}
	}
	return out, nil
}

func (f *fakeGameReportStore) UpdateCounters(_ context.Context, id uuid.UUID, c models.ResultCounters, actionsCount int) error {
	gr := f.byID(id)
	gr.TotalPlaysCount = c.PlaysCount
	gr.TotalPlayRoundsCount = c.RoundsSum
	gr.MaxRoundsCount = c.MaxRoundPlays
	gr.TotalReactionMsSum = c.ReactionMsSum
	gr.TotalPlayActionsCount = actionsCount
	gr.TotalSuccessCount = c.SuccessSum
	gr.TotalWrongCount = c.WrongSum
	return nil
}

func (f *fakeGameReportStore) SetLastReflectedSession(_ context.Context, id uuid.UUID, sessionID *uuid.UUID) error {
	f.byID(id).LastReflectedSessionID = sessionID
	return nil
}

func (f *fakeGameReportStore) UpdateMeta(_ context.Context, id uuid.UUID, metaJSON string) error {
	f.byID(id).MetaJSON = []byte(metaJSON)
	return nil
}

type fakeAdviceStore struct {
	advices []*models.Advice
}

func (f *fakeAdviceStore) Create(_ context.Context, advice *models.Advice) error {
	if advice.ID == uuid.Nil {
		advice.ID = uuid.New()
	}
	f.advices = append(f.advices, advice)
	return nil
}

func (f *fakeAdviceStore) DeleteByGameReport(_ context.Context, gameReportID uuid.UUID) error {
	kept := f.advices[:0]
	for _, a := range f.advices {
		if a.GameReportID != gameReportID {
			kept = append(kept, a)
		}
	}
	f.advices = kept
	return nil
}

func (f *fakeAdviceStore) ListByGameReport(_ context.Context, gameReportID uuid.UUID) ([]*models.Advice, error) {
	var out []*models.Advice
	for _, a := range f.advices {
		if a.GameReportID == gameReportID {
			out = append(out, a)
		}
	}
	return out, nil
}

var errFakeNotFound = errors.New("not found")

type fakeGameStore struct {
	games []*models.Game
}

func (f *fakeGameStore) GetByID(_ context.Context, id uuid.UUID) (*models.Game, error) {
	for _, g := range f.games {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, errFakeNotFound
}

func (f *fakeGameStore) GetByCode(_ context.Context, code models.GameCode) (*models.Game, error) {
	for _, g := range f.games {
		if g.Code == code {
			return g, nil
		}
	}
	return nil, errFakeNotFound
}

func (f *fakeGameStore) ListActive(_ context.Context) ([]*models.Game, error) {
	var out []*models.Game
	for _, g := range f.games {
		if g.IsActive {
			out = append(out, g)
		}
	}
	return out, nil
}

// fakeReportStore serializes WithStatusLock on a mutex the way the row lock
// does, so concurrent trigger tests observe real mutual exclusion.
type fakeReportStore struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*models.Report
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{reports: make(map[uuid.UUID]*models.Report)}
}

func (f *fakeReportStore) add(report *models.Report) {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	f.reports[report.ID] = report
}

func (f *fakeReportStore) GetOrCreate(_ context.Context, userID, childID uuid.UUID) (*models.Report, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rep := range f.reports {
		if rep.UserID == userID && rep.ChildID == childID {
			return rep, false, nil
		}
	}
	rep := &models.Report{ID: uuid.New(), UserID: userID, ChildID: childID, Status: models.ReportStatusNoGamesPlayed}
	f.reports[rep.ID] = rep
	return rep, true, nil
}

func (f *fakeReportStore) GetByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports[id], nil
}

func (f *fakeReportStore) SetStatus(_ context.Context, id uuid.UUID, status models.ReportStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[id].Status = status
	return nil
}

func (f *fakeReportStore) UpdateConcentrationScore(_ context.Context, id uuid.UUID, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[id].ConcentrationScore = score
	return nil
}

func (f *fakeReportStore) WithStatusLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, locked repository.LockedReport) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx, &fakeLockedReport{report: f.reports[id]})
}

type fakeLockedReport struct {
	report *models.Report
}

func (lr *fakeLockedReport) Report() *models.Report { return lr.report }

func (lr *fakeLockedReport) SetStatus(_ context.Context, status models.ReportStatus) error {
	lr.report.Status = status
	return nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEnqueuer) EnqueueReportGeneration(_ context.Context, userID, reportID uuid.UUID) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	return &models.Job{ID: uuid.New(), UserID: userID, ReferenceID: reportID}, nil
}

type fakeGenerator struct {
	items []models.AdviceItem
	err   error
	calls int
}

func (f *fakeGenerator) GenerateAdvice(_ context.Context, _ map[string]any) ([]models.AdviceItem, error) {
	f.calls++
	return f.items, f.err
}
