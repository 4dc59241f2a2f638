package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"playmind-backend/internal/models"
)

type AdviceRepo struct {
	pool *pgxpool.Pool
}

func NewAdviceRepo(pool *pgxpool.Pool) *AdviceRepo {
	return &AdviceRepo{pool: pool}
}

func (r *AdviceRepo) Create(ctx context.Context, advice *models.Advice) error {
	advice.ID = uuid.New()

	query := `INSERT INTO game_report_advices (id, game_report_id, title, description, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query, advice.ID, advice.GameReportID, advice.Title,
		advice.Description, advice.ErrorMessage).Scan(&advice.CreatedAt)
}

// DeleteByGameReport clears the current advice set before a rewrite.
func (r *AdviceRepo) DeleteByGameReport(ctx context.Context, gameReportID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM game_report_advices WHERE game_report_id = $1", gameReportID)
	return err
}

func (r *AdviceRepo) ListByGameReport(ctx context.Context, gameReportID uuid.UUID) ([]*models.Advice, error) {
	query := `SELECT id, game_report_id, title, description, error_message, created_at
		FROM game_report_advices WHERE game_report_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, gameReportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var advices []*models.Advice
	for rows.Next() {
		a := &models.Advice{}
		if err := rows.Scan(&a.ID, &a.GameReportID, &a.Title, &a.Description, &a.ErrorMessage, &a.CreatedAt); err != nil {
			return nil, err
		}
		advices = append(advices, a)
	}
	return advices, rows.Err()
}
