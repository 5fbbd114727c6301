package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/credicuenta/debt-ledger/internal/domain"
)

// Ledger is the set of operations exposed to transports
type Ledger interface {
	AddDebtItem(ctx context.Context, associateID uuid.UUID, request *domain.AddDebtItemRequest) (*domain.DebtItem, error)
	ListDebtItems(ctx context.Context, associateID uuid.UUID) ([]domain.DebtItemView, error)
	ListOpenItems(ctx context.Context, associateID uuid.UUID) ([]domain.DebtItemView, error)

	RegisterDebtPayment(ctx context.Context, associateID uuid.UUID, request *domain.RegisterDebtPaymentRequest) (*domain.DebtPaymentResponse, error)
	ListPayments(ctx context.Context, associateID uuid.UUID, paymentType *domain.PaymentType) ([]*domain.Payment, error)
	DeletePayment(ctx context.Context, paymentID uuid.UUID) error

	GetConsolidatedDebt(ctx context.Context, associateID uuid.UUID) (*domain.ConsolidatedDebtResponse, error)
	GetDebtBreakdown(ctx context.Context, associateID uuid.UUID) (*domain.DebtBreakdownResponse, error)

	CreateAgreement(ctx context.Context, request *domain.CreateAgreementRequest) (*domain.AgreementResponse, error)
	GetAgreement(ctx context.Context, agreementID uuid.UUID) (*domain.AgreementResponse, error)
	ListAgreements(ctx context.Context, associateID uuid.UUID) ([]*domain.Agreement, error)
	RegisterInstallment(ctx context.Context, agreementID uuid.UUID, paymentNumber int, data *domain.PaymentData) (*domain.InstallmentPaymentResponse, error)
	CancelAgreement(ctx context.Context, agreementID uuid.UUID, reason string) (*domain.Agreement, error)
	DefaultOverdueAgreements(ctx context.Context, now time.Time) (int, error)

	CreatePeriod(ctx context.Context, request *domain.CreatePeriodRequest) (*domain.Period, error)
	AdvancePeriod(ctx context.Context, periodID uuid.UUID, status domain.PeriodStatus) (*domain.AdvancePeriodResponse, error)
	CreateStatement(ctx context.Context, request *domain.CreateStatementRequest) (*domain.Statement, error)
	GetStatement(ctx context.Context, statementID uuid.UUID) (*domain.StatementResponse, error)
	RegisterStatementPayment(ctx context.Context, statementID uuid.UUID, data *domain.PaymentData) (*domain.Payment, error)
	DeleteStatementPayment(ctx context.Context, statementID, paymentID uuid.UUID) error
}

var _ Ledger = (*LedgerService)(nil)
