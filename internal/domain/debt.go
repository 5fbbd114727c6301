package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtConcept identifies where a debt item came from
type DebtConcept string

const (
	ConceptDefaultedClient    DebtConcept = "DEFAULTED_CLIENT"
	ConceptUnreportedPayment  DebtConcept = "UNREPORTED_PAYMENT"
	ConceptLateFee            DebtConcept = "LATE_FEE"
	ConceptStatementCarryover DebtConcept = "STATEMENT_CARRYOVER"
	ConceptOther              DebtConcept = "OTHER"
)

// IsValid checks if the concept is one of the known origins
func (c DebtConcept) IsValid() bool {
	switch c {
	case ConceptDefaultedClient, ConceptUnreportedPayment, ConceptLateFee,
		ConceptStatementCarryover, ConceptOther:
		return true
	}
	return false
}

// OwnerType tells whether an item sits in the general FIFO pool or was
// absorbed into an agreement
type OwnerType string

const (
	OwnerPool      OwnerType = "POOL"
	OwnerAgreement OwnerType = "AGREEMENT"
)

// DebtItem is a single amount an associate owes
type DebtItem struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	AssociateID    uuid.UUID       `json:"associate_id" db:"associate_id"`
	Concept        DebtConcept     `json:"concept" db:"concept"`
	Description    string          `json:"description,omitempty" db:"description"`
	OriginalAmount decimal.Decimal `json:"original_amount" db:"original_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	StatementID    *uuid.UUID      `json:"statement_id,omitempty" db:"statement_id"`
	LoanID         *uuid.UUID      `json:"loan_id,omitempty" db:"loan_id"`
	// OriginAgreementID is set for late fees raised by an agreement.
	OriginAgreementID *uuid.UUID `json:"origin_agreement_id,omitempty" db:"origin_agreement_id"`
	// OwnerAgreementID is set while the item is absorbed into an agreement.
	OwnerAgreementID *uuid.UUID `json:"owner_agreement_id,omitempty" db:"owner_agreement_id"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// RemainingAmount is what is still owed on the item
func (d *DebtItem) RemainingAmount() decimal.Decimal {
	return d.OriginalAmount.Sub(d.PaidAmount)
}

// IsLiquidated is derived, never stored
func (d *DebtItem) IsLiquidated() bool {
	return d.PaidAmount.Equal(d.OriginalAmount)
}

// Owner returns where the item currently lives
func (d *DebtItem) Owner() OwnerType {
	if d.OwnerAgreementID != nil {
		return OwnerAgreement
	}
	return OwnerPool
}

// FIFOLess orders items oldest first, ties broken by ascending id
func FIFOLess(a, b *DebtItem) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// DebtItemView is the API representation carrying derived fields
type DebtItemView struct {
	*DebtItem
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	IsLiquidated    bool            `json:"is_liquidated"`
	Owner           OwnerType       `json:"owner"`
}

// NewDebtItemView wraps an item with its derived fields
func NewDebtItemView(item *DebtItem) DebtItemView {
	return DebtItemView{
		DebtItem:        item,
		RemainingAmount: item.RemainingAmount(),
		IsLiquidated:    item.IsLiquidated(),
		Owner:           item.Owner(),
	}
}

// DTOs for requests and responses

type AddDebtItemRequest struct {
	Concept           DebtConcept     `json:"concept" validate:"required"`
	Amount            decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	Description       string          `json:"description" validate:"max=500"`
	StatementID       *uuid.UUID      `json:"statement_id"`
	LoanID            *uuid.UUID      `json:"loan_id"`
	OriginAgreementID *uuid.UUID      `json:"agreement_id"`
}

// DebtSummary is the header of the consolidated debt view
type DebtSummary struct {
	AssociateID      uuid.UUID       `json:"associate_id"`
	TotalDebt        decimal.Decimal `json:"total_debt"`
	InAgreementDebt  decimal.Decimal `json:"in_agreement_debt"`
	PendingItems     int             `json:"pending_items"`
	LiquidatedItems  int             `json:"liquidated_items"`
	TotalPaidDebt    decimal.Decimal `json:"total_paid_debt"`
	ActiveAgreements int             `json:"active_agreements"`
}

type DebtBreakdownResponse struct {
	Summary      DebtSummary    `json:"summary"`
	DebtItems    []DebtItemView `json:"debt_items"`
	DebtPayments []*Payment     `json:"debt_payments"`
}

type ConsolidatedDebtResponse struct {
	AssociateID uuid.UUID       `json:"associate_id"`
	TotalDebt   decimal.Decimal `json:"total_debt"`
}
