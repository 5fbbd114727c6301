package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/credicuenta/debt-ledger/internal/domain"
)

const debtItemColumns = `id, associate_id, concept, description, original_amount, paid_amount,
		statement_id, loan_id, origin_agreement_id, owner_agreement_id, created_at, updated_at`

type debtItemRepository struct {
	db sqlx.ExtContext
}

func NewDebtItemRepository(db sqlx.ExtContext) DebtItemRepository {
	return &debtItemRepository{db: db}
}

func (r *debtItemRepository) Create(ctx context.Context, item *domain.DebtItem) error {
	query := `
		INSERT INTO debt_items (` + debtItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.AssociateID,
		item.Concept,
		item.Description,
		item.OriginalAmount,
		item.PaidAmount,
		item.StatementID,
		item.LoanID,
		item.OriginAgreementID,
		item.OwnerAgreementID,
		item.CreatedAt,
		item.UpdatedAt,
	)

	return err
}

func (r *debtItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebtItem, error) {
	query := `
		SELECT ` + debtItemColumns + `
		FROM debt_items
		WHERE id = $1
	`

	var item domain.DebtItem
	if err := sqlx.GetContext(ctx, r.db, &item, query, id); err != nil {
		return nil, notFound(err)
	}

	return &item, nil
}

func (r *debtItemRepository) ListByAssociate(ctx context.Context, associateID uuid.UUID) ([]*domain.DebtItem, error) {
	query := `
		SELECT ` + debtItemColumns + `
		FROM debt_items
		WHERE associate_id = $1
		ORDER BY created_at, id
	`

	return r.selectItems(ctx, query, associateID)
}

func (r *debtItemRepository) ListOpenPool(ctx context.Context, associateID uuid.UUID) ([]*domain.DebtItem, error) {
	query := `
		SELECT ` + debtItemColumns + `
		FROM debt_items
		WHERE associate_id = $1 AND owner_agreement_id IS NULL AND paid_amount < original_amount
		ORDER BY created_at, id
	`

	return r.selectItems(ctx, query, associateID)
}

func (r *debtItemRepository) ListByOwnerAgreement(ctx context.Context, agreementID uuid.UUID) ([]*domain.DebtItem, error) {
	query := `
		SELECT ` + debtItemColumns + `
		FROM debt_items
		WHERE owner_agreement_id = $1
		ORDER BY created_at, id
	`

	return r.selectItems(ctx, query, agreementID)
}

func (r *debtItemRepository) UpdatePaidAmount(ctx context.Context, item *domain.DebtItem) error {
	query := `
		UPDATE debt_items
		SET paid_amount = $2, updated_at = $3
		WHERE id = $1
	`

	return execOne(ctx, r.db, query, item.ID, item.PaidAmount, item.UpdatedAt)
}

func (r *debtItemRepository) UpdateOwner(ctx context.Context, id uuid.UUID, agreementID *uuid.UUID) error {
	query := `
		UPDATE debt_items
		SET owner_agreement_id = $2, updated_at = $3
		WHERE id = $1
	`

	return execOne(ctx, r.db, query, id, agreementID, time.Now())
}

func (r *debtItemRepository) selectItems(ctx context.Context, query string, args ...interface{}) ([]*domain.DebtItem, error) {
	var items []*domain.DebtItem
	if err := sqlx.SelectContext(ctx, r.db, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}
