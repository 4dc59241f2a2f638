package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"playmind-backend/internal/models"
)

type GameRepo struct {
	pool *pgxpool.Pool
}

func NewGameRepo(pool *pgxpool.Pool) *GameRepo {
	return &GameRepo{pool: pool}
}

const gameColumns = "id, code, name, max_round, actions_per_round, is_active, created_at"

func scanGame(row interface{ Scan(...any) error }) (*models.Game, error) {
	g := &models.Game{}
	err := row.Scan(&g.ID, &g.Code, &g.Name, &g.MaxRound, &g.ActionsPerRound, &g.IsActive, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GameRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	return scanGame(r.pool.QueryRow(ctx, "SELECT "+gameColumns+" FROM games WHERE id = $1", id))
}

func (r *GameRepo) GetByCode(ctx context.Context, code models.GameCode) (*models.Game, error) {
	return scanGame(r.pool.QueryRow(ctx, "SELECT "+gameColumns+" FROM games WHERE code = $1", code))
}

func (r *GameRepo) ListActive(ctx context.Context) ([]*models.Game, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+gameColumns+" FROM games WHERE is_active = TRUE ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}
