package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"playmind-backend/internal/models"
)

type ChildRepo struct {
	pool *pgxpool.Pool
}

func NewChildRepo(pool *pgxpool.Pool) *ChildRepo {
	return &ChildRepo{pool: pool}
}

func (r *ChildRepo) Create(ctx context.Context, c *models.Child) error {
	c.ID = uuid.New()

	query := `INSERT INTO children (id, user_id, name, birth_date, gender)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.Name, c.BirthDate, c.Gender,
	).Scan(&c.CreatedAt)
}

func (r *ChildRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Child, error) {
	c := &models.Child{}
	query := `SELECT id, user_id, name, birth_date, gender, created_at
		FROM children WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.Name, &c.BirthDate, &c.Gender, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ChildRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Child, error) {
	query := `SELECT id, user_id, name, birth_date, gender, created_at
		FROM children WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []*models.Child
	for rows.Next() {
		c := &models.Child{}
		err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.BirthDate, &c.Gender, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, rows.Err()
}
