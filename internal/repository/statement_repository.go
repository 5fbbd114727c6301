package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/credicuenta/debt-ledger/internal/domain"
)

type periodRepository struct {
	db sqlx.ExtContext
}

func NewPeriodRepository(db sqlx.ExtContext) PeriodRepository {
	return &periodRepository{db: db}
}

func (r *periodRepository) Create(ctx context.Context, period *domain.Period) error {
	query := `
		INSERT INTO periods (id, code, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		period.ID,
		period.Code,
		period.StartDate,
		period.EndDate,
		period.Status,
		period.CreatedAt,
		period.UpdatedAt,
	)

	return err
}

func (r *periodRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Period, error) {
	query := `
		SELECT id, code, start_date, end_date, status, created_at, updated_at
		FROM periods
		WHERE id = $1
	`

	var period domain.Period
	if err := sqlx.GetContext(ctx, r.db, &period, query, id); err != nil {
		return nil, notFound(err)
	}

	return &period, nil
}

func (r *periodRepository) GetCurrent(ctx context.Context) (*domain.Period, error) {
	query := `
		SELECT id, code, start_date, end_date, status, created_at, updated_at
		FROM periods
		WHERE status = 'COLLECTING'
		ORDER BY start_date DESC
		LIMIT 1
	`

	var period domain.Period
	if err := sqlx.GetContext(ctx, r.db, &period, query); err != nil {
		return nil, notFound(err)
	}

	return &period, nil
}

func (r *periodRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PeriodStatus) error {
	query := `
		UPDATE periods
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	return execOne(ctx, r.db, query, id, status, time.Now())
}

type statementRepository struct {
	db sqlx.ExtContext
}

func NewStatementRepository(db sqlx.ExtContext) StatementRepository {
	return &statementRepository{db: db}
}

func (r *statementRepository) Create(ctx context.Context, statement *domain.Statement) error {
	query := `
		INSERT INTO statements (id, associate_id, period_id, total_due, paid_amount, carryover_item_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		statement.ID,
		statement.AssociateID,
		statement.PeriodID,
		statement.TotalDue,
		statement.PaidAmount,
		statement.CarryoverItemID,
		statement.CreatedAt,
		statement.UpdatedAt,
	)

	return err
}

func (r *statementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Statement, error) {
	query := `
		SELECT id, associate_id, period_id, total_due, paid_amount, carryover_item_id, created_at, updated_at
		FROM statements
		WHERE id = $1
	`

	var statement domain.Statement
	if err := sqlx.GetContext(ctx, r.db, &statement, query, id); err != nil {
		return nil, notFound(err)
	}

	return &statement, nil
}

func (r *statementRepository) ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Statement, error) {
	query := `
		SELECT id, associate_id, period_id, total_due, paid_amount, carryover_item_id, created_at, updated_at
		FROM statements
		WHERE period_id = $1
		ORDER BY associate_id, created_at
	`

	var statements []*domain.Statement
	if err := sqlx.SelectContext(ctx, r.db, &statements, query, periodID); err != nil {
		return nil, err
	}

	return statements, nil
}

func (r *statementRepository) Update(ctx context.Context, statement *domain.Statement) error {
	query := `
		UPDATE statements
		SET paid_amount = $2, carryover_item_id = $3, updated_at = $4
		WHERE id = $1
	`

	return execOne(ctx, r.db, query,
		statement.ID,
		statement.PaidAmount,
		statement.CarryoverItemID,
		statement.UpdatedAt,
	)
}
