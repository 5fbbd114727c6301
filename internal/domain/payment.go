package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType identifies what a ledger payment was applied against
type PaymentType string

const (
	PaymentTypeCurrentBalance  PaymentType = "SALDO_ACTUAL"
	PaymentTypeAccumulatedDebt PaymentType = "DEUDA_ACUMULADA"
	PaymentTypeAgreement       PaymentType = "PAGO_CONVENIO"
)

// IsValid checks if the payment type is known
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeCurrentBalance, PaymentTypeAccumulatedDebt, PaymentTypeAgreement:
		return true
	}
	return false
}

// AppliedItem is one line of a payment's breakdown
type AppliedItem struct {
	DebtItemID    uuid.UUID       `json:"debt_item_id" db:"debt_item_id"`
	AmountApplied decimal.Decimal `json:"amount_applied" db:"amount_applied"`
	Liquidated    bool            `json:"fully_liquidated" db:"liquidated"`
	RemainingDebt decimal.Decimal `json:"remaining_debt" db:"remaining_debt"`
}

// Payment is an immutable ledger entry
type Payment struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	AssociateID      uuid.UUID       `json:"associate_id" db:"associate_id"`
	PaymentType      PaymentType     `json:"payment_type" db:"payment_type"`
	PaymentAmount    decimal.Decimal `json:"payment_amount" db:"payment_amount"`
	PaymentDate      time.Time       `json:"payment_date" db:"payment_date"`
	PaymentMethod    string          `json:"payment_method" db:"payment_method"`
	PaymentReference *string         `json:"payment_reference,omitempty" db:"payment_reference"`
	Notes            *string         `json:"notes,omitempty" db:"notes"`
	PeriodID         *uuid.UUID      `json:"period_id,omitempty" db:"period_id"`
	StatementID      *uuid.UUID      `json:"statement_id,omitempty" db:"statement_id"`
	AgreementID      *uuid.UUID      `json:"agreement_id,omitempty" db:"agreement_id"`
	PaymentNumber    *int            `json:"payment_number,omitempty" db:"payment_number"`
	AppliedBreakdown []AppliedItem   `json:"applied_breakdown" db:"-"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// AppliedTotal sums the breakdown
func (p *Payment) AppliedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.AppliedBreakdown {
		total = total.Add(a.AmountApplied)
	}
	return total
}

// DTOs for requests and responses

type PaymentData struct {
	PaymentMethod    string          `json:"payment_method_id" validate:"required,max=50"`
	PaymentReference *string         `json:"payment_reference" validate:"omitempty,max=100"`
	Notes            *string         `json:"notes" validate:"omitempty,max=500"`
	PaymentDate      *time.Time      `json:"payment_date"`
	Amount           decimal.Decimal `json:"payment_amount" validate:"decimal_gte=0"`
}

type RegisterDebtPaymentRequest struct {
	PaymentAmount    decimal.Decimal `json:"payment_amount" validate:"decimal_gt=0"`
	PaymentMethod    string          `json:"payment_method_id" validate:"required,max=50"`
	PaymentReference *string         `json:"payment_reference" validate:"omitempty,max=100"`
	Notes            *string         `json:"notes" validate:"omitempty,max=500"`
}

// AllocationResult is what the FIFO allocator produced for one payment
type AllocationResult struct {
	Breakdown            []AppliedItem   `json:"applied_items"`
	AmountApplied        decimal.Decimal `json:"amount_applied"`
	RemainingUnallocated decimal.Decimal `json:"remaining_unallocated"`
}

type DebtPaymentResponse struct {
	Payment              *Payment        `json:"payment,omitempty"`
	AmountApplied        decimal.Decimal `json:"amount_applied"`
	RemainingDebt        decimal.Decimal `json:"remaining_debt"`
	CreditReleased       decimal.Decimal `json:"credit_released"`
	RemainingUnallocated decimal.Decimal `json:"remaining_unallocated"`
	AppliedItems         []AppliedItem   `json:"applied_items"`
}
