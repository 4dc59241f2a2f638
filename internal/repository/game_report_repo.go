package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"playmind-backend/internal/models"
)

type GameReportRepo struct {
	pool *pgxpool.Pool
}

func NewGameReportRepo(pool *pgxpool.Pool) *GameReportRepo {
	return &GameReportRepo{pool: pool}
}

const gameReportColumns = `id, report_id, game_id, total_plays_count, total_play_rounds_count,
	max_rounds_count, total_reaction_ms_sum, total_play_actions_count, total_success_count,
	total_wrong_count, last_reflected_session_id, meta, created_at, updated_at`

func scanGameReport(row interface{ Scan(...any) error }) (*models.GameReport, error) {
	gr := &models.GameReport{}
	err := row.Scan(&gr.ID, &gr.ReportID, &gr.GameID, &gr.TotalPlaysCount, &gr.TotalPlayRoundsCount,
		&gr.MaxRoundsCount, &gr.TotalReactionMsSum, &gr.TotalPlayActionsCount, &gr.TotalSuccessCount,
		&gr.TotalWrongCount, &gr.LastReflectedSessionID, &gr.MetaJSON, &gr.CreatedAt, &gr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return gr, nil
}

// GetOrCreate returns the (report, game) row and whether it was just created.
// The created flag feeds the updater's idempotency guard.
func (r *GameReportRepo) GetOrCreate(ctx context.Context, reportID, gameID uuid.UUID) (*models.GameReport, bool, error) {
	gr, err := scanGameReport(r.pool.QueryRow(ctx,
		"SELECT "+gameReportColumns+" FROM game_reports WHERE report_id = $1 AND game_id = $2", reportID, gameID))
	if err == nil {
		return gr, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	query := `INSERT INTO game_reports (id, report_id, game_id, meta)
		VALUES ($1, $2, $3, '{}')
		ON CONFLICT (report_id, game_id) DO UPDATE SET updated_at = game_reports.updated_at
		RETURNING ` + gameReportColumns

	gr, err = scanGameReport(r.pool.QueryRow(ctx, query, uuid.New(), reportID, gameID))
	if err != nil {
		return nil, false, err
	}
	return gr, true, nil
}

func (r *GameReportRepo) GetByReportAndGame(ctx context.Context, reportID, gameID uuid.UUID) (*models.GameReport, error) {
	return scanGameReport(r.pool.QueryRow(ctx,
		"SELECT "+gameReportColumns+" FROM game_reports WHERE report_id = $1 AND game_id = $2", reportID, gameID))
}

func (r *GameReportRepo) ListByReport(ctx context.Context, reportID uuid.UUID) ([]*models.GameReport, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+gameReportColumns+" FROM game_reports WHERE report_id = $1 ORDER BY created_at", reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.GameReport
	for rows.Next() {
		gr, err := scanGameReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, gr)
	}
	return reports, rows.Err()
}

// UpdateCounters overwrites the accumulated counters with a fresh fold over
// the child's full result history for the game.
func (r *GameReportRepo) UpdateCounters(ctx context.Context, id uuid.UUID, c models.ResultCounters, actionsCount int) error {
	query := `UPDATE game_reports SET
		total_plays_count = $1,
		total_play_rounds_count = $2,
		max_rounds_count = $3,
		total_reaction_ms_sum = $4,
		total_play_actions_count = $5,
		total_success_count = $6,
		total_wrong_count = $7,
		updated_at = NOW()
		WHERE id = $8`

	_, err := r.pool.Exec(ctx, query, c.PlaysCount, c.RoundsSum, c.MaxRoundPlays,
		c.ReactionMsSum, actionsCount, c.SuccessSum, c.WrongSum, id)
	return err
}

func (r *GameReportRepo) SetLastReflectedSession(ctx context.Context, id uuid.UUID, sessionID *uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE game_reports SET last_reflected_session_id = $1, updated_at = NOW() WHERE id = $2", sessionID, id)
	return err
}

func (r *GameReportRepo) UpdateMeta(ctx context.Context, id uuid.UUID, metaJSON string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE game_reports SET meta = $1, updated_at = NOW() WHERE id = $2", metaJSON, id)
	return err
}
