package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgreementStatus is the lifecycle state of a convenio
type AgreementStatus string

const (
	AgreementStatusDraft     AgreementStatus = "DRAFT"
	AgreementStatusActive    AgreementStatus = "ACTIVE"
	AgreementStatusCompleted AgreementStatus = "COMPLETED"
	AgreementStatusDefaulted AgreementStatus = "DEFAULTED"
	AgreementStatusCancelled AgreementStatus = "CANCELLED"
)

// Agreement plan limits
const (
	MinAgreementPeriods = 1
	MaxAgreementPeriods = 36
)

// IsTerminal reports whether no further transition is possible
func (s AgreementStatus) IsTerminal() bool {
	return s == AgreementStatusCompleted || s == AgreementStatusDefaulted || s == AgreementStatusCancelled
}

// CanTransitionTo enforces DRAFT -> ACTIVE -> {COMPLETED|DEFAULTED|CANCELLED}
func (s AgreementStatus) CanTransitionTo(next AgreementStatus) bool {
	switch s {
	case AgreementStatusDraft:
		return next == AgreementStatusActive
	case AgreementStatusActive:
		return next.IsTerminal()
	}
	return false
}

// Agreement converts a set of debt items into a fixed installment plan
type Agreement struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	AssociateID         uuid.UUID       `json:"associate_id" db:"associate_id"`
	AgreementNumber     string          `json:"agreement_number" db:"agreement_number"`
	Status              AgreementStatus `json:"status" db:"status"`
	StartDate           time.Time       `json:"start_date" db:"start_date"`
	PaymentPlanPeriods  int             `json:"payment_plan_periods" db:"payment_plan_periods"`
	PeriodPaymentAmount decimal.Decimal `json:"period_payment_amount" db:"period_payment_amount"`
	TotalDebtAmount     decimal.Decimal `json:"total_debt_amount" db:"total_debt_amount"`
	TotalPaid           decimal.Decimal `json:"total_paid" db:"total_paid"`
	Notes               *string         `json:"notes,omitempty" db:"notes"`
	CancellationReason  *string         `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	ItemIDs             []uuid.UUID     `json:"debt_item_ids" db:"-"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// RemainingAmount is what is still owed under the plan
func (a *Agreement) RemainingAmount() decimal.Decimal {
	return a.TotalDebtAmount.Sub(a.TotalPaid)
}

// InstallmentStatus describes one scheduled installment
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
	InstallmentStatusOverdue InstallmentStatus = "OVERDUE"
)

// AgreementInstallment is a derived row of the plan schedule
type AgreementInstallment struct {
	PaymentNumber int               `json:"payment_number"`
	DueDate       time.Time         `json:"due_date"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        InstallmentStatus `json:"status"`
	PaymentID     *uuid.UUID        `json:"payment_id,omitempty"`
}

// DTOs for requests and responses

type CreateAgreementRequest struct {
	AssociateID        uuid.UUID   `json:"associate_profile_id" validate:"required"`
	DebtItemIDs        []uuid.UUID `json:"debt_breakdown_ids" validate:"required,min=1"`
	PaymentPlanPeriods int         `json:"payment_plan_months" validate:"required"`
	StartDate          time.Time   `json:"start_date" validate:"required"`
	Notes              *string     `json:"notes" validate:"omitempty,max=500"`
}

type CancelAgreementRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type AgreementResponse struct {
	Agreement *Agreement              `json:"agreement"`
	Schedule  []*AgreementInstallment `json:"schedule"`
	Payments  []*Payment              `json:"payments"`
}

type InstallmentPaymentResponse struct {
	Payment   *Payment   `json:"payment"`
	Agreement *Agreement `json:"agreement"`
}
