package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/credicuenta/debt-ledger/internal/domain"
)

const agreementColumns = `id, associate_id, agreement_number, status, start_date, payment_plan_periods,
		period_payment_amount, total_debt_amount, total_paid, notes, cancellation_reason, created_at, updated_at`

type agreementRepository struct {
	db sqlx.ExtContext
}

func NewAgreementRepository(db sqlx.ExtContext) AgreementRepository {
	return &agreementRepository{db: db}
}

type agreementItemRow struct {
	AgreementID uuid.UUID `db:"agreement_id"`
	DebtItemID  uuid.UUID `db:"debt_item_id"`
}

func (r *agreementRepository) Create(ctx context.Context, agreement *domain.Agreement) error {
	query := `
		INSERT INTO agreements (` + agreementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		agreement.ID,
		agreement.AssociateID,
		agreement.AgreementNumber,
		agreement.Status,
		agreement.StartDate,
		agreement.PaymentPlanPeriods,
		agreement.PeriodPaymentAmount,
		agreement.TotalDebtAmount,
		agreement.TotalPaid,
		agreement.Notes,
		agreement.CancellationReason,
		agreement.CreatedAt,
		agreement.UpdatedAt,
	)
	if err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO agreement_items (agreement_id, debt_item_id)
		VALUES ($1, $2)
	`

	for _, itemID := range agreement.ItemIDs {
		if _, err = r.db.ExecContext(ctx, itemQuery, agreement.ID, itemID); err != nil {
			return err
		}
	}

	return nil
}

func (r *agreementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agreement, error) {
	query := `
		SELECT ` + agreementColumns + `
		FROM agreements
		WHERE id = $1
	`

	var agreement domain.Agreement
	if err := sqlx.GetContext(ctx, r.db, &agreement, query, id); err != nil {
		return nil, notFound(err)
	}

	if err := r.loadItems(ctx, []*domain.Agreement{&agreement}); err != nil {
		return nil, err
	}

	return &agreement, nil
}

func (r *agreementRepository) Update(ctx context.Context, agreement *domain.Agreement) error {
	query := `
		UPDATE agreements
		SET status = $2, total_paid = $3, cancellation_reason = $4, updated_at = $5
		WHERE id = $1
	`

	updatedAt := agreement.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	return execOne(ctx, r.db, query,
		agreement.ID,
		agreement.Status,
		agreement.TotalPaid,
		agreement.CancellationReason,
		updatedAt,
	)
}

func (r *agreementRepository) ListByAssociate(ctx context.Context, associateID uuid.UUID) ([]*domain.Agreement, error) {
	query := `
		SELECT ` + agreementColumns + `
		FROM agreements
		WHERE associate_id = $1
		ORDER BY created_at DESC, id DESC
	`

	return r.selectAgreements(ctx, query, associateID)
}

func (r *agreementRepository) ListByStatus(ctx context.Context, status domain.AgreementStatus) ([]*domain.Agreement, error) {
	query := `
		SELECT ` + agreementColumns + `
		FROM agreements
		WHERE status = $1
		ORDER BY created_at, id
	`

	return r.selectAgreements(ctx, query, status)
}

func (r *agreementRepository) selectAgreements(ctx context.Context, query string, args ...interface{}) ([]*domain.Agreement, error) {
	var agreements []*domain.Agreement
	if err := sqlx.SelectContext(ctx, r.db, &agreements, query, args...); err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, agreements); err != nil {
		return nil, err
	}

	return agreements, nil
}

func (r *agreementRepository) loadItems(ctx context.Context, agreements []*domain.Agreement) error {
	if len(agreements) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(agreements))
	byID := make(map[uuid.UUID]*domain.Agreement, len(agreements))
	for i, a := range agreements {
		ids[i] = a.ID
		byID[a.ID] = a
		a.ItemIDs = []uuid.UUID{}
	}

	query := `
		SELECT agreement_id, debt_item_id
		FROM agreement_items
		WHERE agreement_id = ANY($1::uuid[])
		ORDER BY agreement_id, debt_item_id
	`

	var rows []agreementItemRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, uuidStrings(ids)); err != nil {
		return err
	}

	for _, row := range rows {
		if a, ok := byID[row.AgreementID]; ok {
			a.ItemIDs = append(a.ItemIDs, row.DebtItemID)
		}
	}

	return nil
}
