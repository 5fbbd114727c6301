package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/credicuenta/debt-ledger/internal/domain"
)

const paymentColumns = `id, associate_id, payment_type, payment_amount, payment_date, payment_method,
		payment_reference, notes, period_id, statement_id, agreement_id, payment_number, created_at`

type paymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) PaymentRepository {
	return &paymentRepository{db: db}
}

type appliedRow struct {
	PaymentID uuid.UUID `db:"payment_id"`
	domain.AppliedItem
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.AssociateID,
		payment.PaymentType,
		payment.PaymentAmount,
		payment.PaymentDate,
		payment.PaymentMethod,
		payment.PaymentReference,
		payment.Notes,
		payment.PeriodID,
		payment.StatementID,
		payment.AgreementID,
		payment.PaymentNumber,
		payment.CreatedAt,
	)
	if err != nil {
		return err
	}

	breakdownQuery := `
		INSERT INTO payment_applications (payment_id, seq, debt_item_id, amount_applied, liquidated, remaining_debt)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i, applied := range payment.AppliedBreakdown {
		_, err = r.db.ExecContext(ctx, breakdownQuery,
			payment.ID,
			i+1,
			applied.DebtItemID,
			applied.AmountApplied,
			applied.Liquidated,
			applied.RemainingDebt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = $1
	`

	var payment domain.Payment
	if err := sqlx.GetContext(ctx, r.db, &payment, query, id); err != nil {
		return nil, notFound(err)
	}

	payments := []*domain.Payment{&payment}
	if err := r.loadBreakdowns(ctx, payments); err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) ListByAssociate(ctx context.Context, associateID uuid.UUID, paymentType *domain.PaymentType) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE associate_id = $1 AND ($2::text IS NULL OR payment_type = $2)
		ORDER BY payment_date DESC, created_at DESC, id DESC
	`

	var filter *string
	if paymentType != nil {
		s := string(*paymentType)
		filter = &s
	}

	return r.selectPayments(ctx, query, associateID, filter)
}

func (r *paymentRepository) ListByStatement(ctx context.Context, statementID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE statement_id = $1
		ORDER BY payment_date DESC, created_at DESC, id DESC
	`

	return r.selectPayments(ctx, query, statementID)
}

func (r *paymentRepository) ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE agreement_id = $1
		ORDER BY payment_number
	`

	return r.selectPayments(ctx, query, agreementID)
}

func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payment_applications WHERE payment_id = $1`, id); err != nil {
		return err
	}
	return execOne(ctx, r.db, `DELETE FROM payments WHERE id = $1`, id)
}

func (r *paymentRepository) selectPayments(ctx context.Context, query string, args ...interface{}) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	if err := sqlx.SelectContext(ctx, r.db, &payments, query, args...); err != nil {
		return nil, err
	}

	if err := r.loadBreakdowns(ctx, payments); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) loadBreakdowns(ctx context.Context, payments []*domain.Payment) error {
	if len(payments) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(payments))
	byID := make(map[uuid.UUID]*domain.Payment, len(payments))
	for i, p := range payments {
		ids[i] = p.ID
		byID[p.ID] = p
		p.AppliedBreakdown = []domain.AppliedItem{}
	}

	query := `
		SELECT payment_id, debt_item_id, amount_applied, liquidated, remaining_debt
		FROM payment_applications
		WHERE payment_id = ANY($1::uuid[])
		ORDER BY payment_id, seq
	`

	var rows []appliedRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, uuidStrings(ids)); err != nil {
		return err
	}

	for _, row := range rows {
		if p, ok := byID[row.PaymentID]; ok {
			p.AppliedBreakdown = append(p.AppliedBreakdown, row.AppliedItem)
		}
	}

	return nil
}
