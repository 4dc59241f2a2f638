package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"playmind-backend/internal/models"
)

// ResultRepo reads and appends to the game_results store. Results are written
// once at session end; everything else here is read-side aggregation for the
// report pipeline.
type ResultRepo struct {
	pool *pgxpool.Pool
}

func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

const resultColumns = "id, session_id, child_id, game_id, round_count, success_count, wrong_count, reaction_ms_sum, meta_json, created_at"

func scanResult(row interface{ Scan(...any) error }) (*models.GameResult, error) {
	res := &models.GameResult{}
	err := row.Scan(
		&res.ID, &res.SessionID, &res.ChildID, &res.GameID,
		&res.RoundCount, &res.SuccessCount, &res.WrongCount, &res.ReactionMsSum,
		&res.MetaJSON, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *ResultRepo) Create(ctx context.Context, res *models.GameResult) error {
	res.ID = uuid.New()
	if len(res.MetaJSON) == 0 {
		res.MetaJSON = json.RawMessage("{}")
	}

	query := `INSERT INTO game_results (id, session_id, child_id, game_id, round_count, success_count, wrong_count, reaction_ms_sum, meta_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		res.ID, res.SessionID, res.ChildID, res.GameID,
		res.RoundCount, res.SuccessCount, res.WrongCount, res.ReactionMsSum, res.MetaJSON,
	).Scan(&res.CreatedAt)
}

// Counters folds every result for the (child, game) pair in one SQL pass.
// maxRound is the game's configured maximum round; plays that reached it are
// counted separately.
func (r *ResultRepo) Counters(ctx context.Context, childID, gameID uuid.UUID, maxRound int) (*models.ResultCounters, error) {
	c := &models.ResultCounters{}
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(round_count), 0),
			COUNT(*) FILTER (WHERE round_count = $3),
			COALESCE(SUM(reaction_ms_sum), 0),
			COALESCE(SUM(success_count), 0),
			COALESCE(SUM(wrong_count), 0)
		FROM game_results
		WHERE child_id = $1 AND game_id = $2
	`

	err := r.pool.QueryRow(ctx, query, childID, gameID, maxRound).Scan(
		&c.PlaysCount, &c.RoundsSum, &c.MaxRoundPlays, &c.ReactionMsSum, &c.SuccessSum, &c.WrongSum,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// LatestSessionID returns the session id of the most recently created result,
// or nil when the child has no results for the game. This runs on every
// status poll, so it stays a single indexed lookup.
func (r *ResultRepo) LatestSessionID(ctx context.Context, childID, gameID uuid.UUID) (*uuid.UUID, error) {
	var sessionID uuid.UUID
	query := `SELECT session_id FROM game_results
		WHERE child_id = $1 AND game_id = $2
		ORDER BY created_at DESC LIMIT 1`

	err := r.pool.QueryRow(ctx, query, childID, gameID).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sessionID, nil
}

// Recent returns up to limit results, most recent first.
func (r *ResultRepo) Recent(ctx context.Context, childID, gameID uuid.UUID, limit int) ([]*models.GameResult, error) {
	query := `SELECT ` + resultColumns + ` FROM game_results
		WHERE child_id = $1 AND game_id = $2
		ORDER BY created_at DESC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, childID, gameID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.GameResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// List returns all results for the pair, most recent first.
func (r *ResultRepo) List(ctx context.Context, childID, gameID uuid.UUID) ([]*models.GameResult, error) {
	query := `SELECT ` + resultColumns + ` FROM game_results
		WHERE child_id = $1 AND game_id = $2
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, childID, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.GameResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// PlayedGameIDs returns the distinct games the child has at least one result
// for.
func (r *ResultRepo) PlayedGameIDs(ctx context.Context, childID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT DISTINCT game_id FROM game_results WHERE child_id = $1", childID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	played := make(map[uuid.UUID]bool)
	for rows.Next() {
		var gameID uuid.UUID
		if err := rows.Scan(&gameID); err != nil {
			return nil, err
		}
		played[gameID] = true
	}
	return played, rows.Err()
}
