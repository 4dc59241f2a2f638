package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"playmind-backend/internal/models"
)

// LockedReport is a report row held under an exclusive row lock for the
// duration of a status transition.
type LockedReport interface {
	Report() *models.Report
	SetStatus(ctx context.Context, status models.ReportStatus) error
}

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

const reportColumns = "id, user_id, child_id, concentration_score, status, created_at, updated_at"

func scanReport(row interface{ Scan(...any) error }) (*models.Report, error) {
	rep := &models.Report{}
	err := row.Scan(&rep.ID, &rep.UserID, &rep.ChildID, &rep.ConcentrationScore, &rep.Status, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// GetOrCreate returns the single report for the (guardian, child) pair,
// creating it lazily on first touch. The unique constraint on
// (user_id, child_id) makes concurrent first touches converge on one row.
func (r *ReportRepo) GetOrCreate(ctx context.Context, userID, childID uuid.UUID) (*models.Report, bool, error) {
	rep, err := scanReport(r.pool.QueryRow(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE user_id = $1 AND child_id = $2", userID, childID))
	if err == nil {
		return rep, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	query := `INSERT INTO reports (id, user_id, child_id, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, child_id) DO UPDATE SET updated_at = reports.updated_at
		RETURNING ` + reportColumns

	rep, err = scanReport(r.pool.QueryRow(ctx, query, uuid.New(), userID, childID, models.ReportStatusNoGamesPlayed))
	if err != nil {
		return nil, false, err
	}
	return rep, true, nil
}

func (r *ReportRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	return scanReport(r.pool.QueryRow(ctx, "SELECT "+reportColumns+" FROM reports WHERE id = $1", id))
}

func (r *ReportRepo) GetByUserAndChild(ctx context.Context, userID, childID uuid.UUID) (*models.Report, error) {
	return scanReport(r.pool.QueryRow(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE user_id = $1 AND child_id = $2", userID, childID))
}

// SetStatus writes the status outside of any lock. Used by the generation
// pipeline, which already owns the report through the GENERATING claim.
func (r *ReportRepo) SetStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE reports SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	return err
}

func (r *ReportRepo) UpdateConcentrationScore(ctx context.Context, id uuid.UUID, score int) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE reports SET concentration_score = $1, updated_at = NOW() WHERE id = $2", score, id)
	return err
}

type lockedReport struct {
	tx     pgx.Tx
	report *models.Report
}

func (lr *lockedReport) Report() *models.Report { return lr.report }

func (lr *lockedReport) SetStatus(ctx context.Context, status models.ReportStatus) error {
	_, err := lr.tx.Exec(ctx,
		"UPDATE reports SET status = $1, updated_at = NOW() WHERE id = $2", status, lr.report.ID)
	if err != nil {
		return err
	}
	lr.report.Status = status
	return nil
}

// WithStatusLock runs fn while holding an exclusive row lock on the report.
// Concurrent callers for the same report serialize here; callers for
// different reports do not contend.
func (r *ReportRepo) WithStatusLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, locked LockedReport) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin status transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rep, err := scanReport(tx.QueryRow(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		return fmt.Errorf("failed to lock report %s: %w", id, err)
	}

	if err := fn(ctx, &lockedReport{tx: tx, report: rep}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
