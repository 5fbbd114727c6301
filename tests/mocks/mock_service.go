package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/credicuenta/debt-ledger/internal/domain"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) AddDebtItem(ctx context.Context, associateID uuid.UUID, request *domain.AddDebtItemRequest) (*domain.DebtItem, error) {
	args := m.Called(ctx, associateID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DebtItem), args.Error(1)
}

func (m *MockLedgerService) ListDebtItems(ctx context.Context, associateID uuid.UUID) ([]domain.DebtItemView, error) {
	args := m.Called(ctx, associateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DebtItemView), args.Error(1)
}

func (m *MockLedgerService) ListOpenItems(ctx context.Context, associateID uuid.UUID) ([]domain.DebtItemView, error) {
	args := m.Called(ctx, associateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DebtItemView), args.Error(1)
}

func (m *MockLedgerService) RegisterDebtPayment(ctx context.Context, associateID uuid.UUID, request *domain.RegisterDebtPaymentRequest) (*domain.DebtPaymentResponse, error) {
	args := m.Called(ctx, associateID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DebtPaymentResponse), args.Error(1)
}

func (m *MockLedgerService) ListPayments(ctx context.Context, associateID uuid.UUID, paymentType *domain.PaymentType) ([]*domain.Payment, error) {
	args := m.Called(ctx, associateID, paymentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockLedgerService) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

func (m *MockLedgerService) GetConsolidatedDebt(ctx context.Context, associateID uuid.UUID) (*domain.ConsolidatedDebtResponse, error) {
	args := m.Called(ctx, associateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConsolidatedDebtResponse), args.Error(1)
}

func (m *MockLedgerService) GetDebtBreakdown(ctx context.Context, associateID uuid.UUID) (*domain.DebtBreakdownResponse, error) {
	args := m.Called(ctx, associateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DebtBreakdownResponse), args.Error(1)
}

func (m *MockLedgerService) CreateAgreement(ctx context.Context, request *domain.CreateAgreementRequest) (*domain.AgreementResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgreementResponse), args.Error(1)
}

func (m *MockLedgerService) GetAgreement(ctx context.Context, agreementID uuid.UUID) (*domain.AgreementResponse, error) {
	args := m.Called(ctx, agreementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgreementResponse), args.Error(1)
}

func (m *MockLedgerService) ListAgreements(ctx context.Context, associateID uuid.UUID) ([]*domain.Agreement, error) {
	args := m.Called(ctx, associateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Agreement), args.Error(1)
}

func (m *MockLedgerService) RegisterInstallment(ctx context.Context, agreementID uuid.UUID, paymentNumber int, data *domain.PaymentData) (*domain.InstallmentPaymentResponse, error) {
	args := m.Called(ctx, agreementID, paymentNumber, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentPaymentResponse), args.Error(1)
}

func (m *MockLedgerService) CancelAgreement(ctx context.Context, agreementID uuid.UUID, reason string) (*domain.Agreement, error) {
	args := m.Called(ctx, agreementID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agreement), args.Error(1)
}

func (m *MockLedgerService) DefaultOverdueAgreements(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerService) CreatePeriod(ctx context.Context, request *domain.CreatePeriodRequest) (*domain.Period, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Period), args.Error(1)
}

func (m *MockLedgerService) AdvancePeriod(ctx context.Context, periodID uuid.UUID, status domain.PeriodStatus) (*domain.AdvancePeriodResponse, error) {
	args := m.Called(ctx, periodID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdvancePeriodResponse), args.Error(1)
}

func (m *MockLedgerService) CreateStatement(ctx context.Context, request *domain.CreateStatementRequest) (*domain.Statement, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Statement), args.Error(1)
}

func (m *MockLedgerService) GetStatement(ctx context.Context, statementID uuid.UUID) (*domain.StatementResponse, error) {
	args := m.Called(ctx, statementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatementResponse), args.Error(1)
}

func (m *MockLedgerService) RegisterStatementPayment(ctx context.Context, statementID uuid.UUID, data *domain.PaymentData) (*domain.Payment, error) {
	args := m.Called(ctx, statementID, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockLedgerService) DeleteStatementPayment(ctx context.Context, statementID, paymentID uuid.UUID) error {
	args := m.Called(ctx, statementID, paymentID)
	return args.Error(0)
}

// NewMockLedgerService creates a new mock ledger service instance
func NewMockLedgerService() *MockLedgerService {
	return &MockLedgerService{}
}
