package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"playmind-backend/internal/models"
)

type PinRepo struct {
	pool *pgxpool.Pool
}

func NewPinRepo(pool *pgxpool.Pool) *PinRepo {
	return &PinRepo{pool: pool}
}

// Upsert sets or replaces the guardian's report PIN.
func (r *PinRepo) Upsert(ctx context.Context, userID uuid.UUID, pinHash string) error {
	query := `INSERT INTO report_pins (id, user_id, pin_hash, enabled_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET pin_hash = $3, enabled_at = NOW()`

	_, err := r.pool.Exec(ctx, query, uuid.New(), userID, pinHash)
	return err
}

func (r *PinRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*models.ReportPin, error) {
	p := &models.ReportPin{}
	query := `SELECT id, user_id, pin_hash, enabled_at, created_at
		FROM report_pins WHERE user_id = $1`

	err := r.pool.QueryRow(ctx, query, userID).Scan(&p.ID, &p.UserID, &p.PinHash, &p.EnabledAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
