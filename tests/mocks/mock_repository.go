package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/credicuenta/debt-ledger/internal/domain"
	"github.com/credicuenta/debt-ledger/internal/repository"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) WithinAssociateTx(ctx context.Context, associateID uuid.UUID, fn func(repository.Repositories) error) error {
	args := m.Called(ctx, associateID, fn)
	return args.Error(0)
}

func (m *MockStore) WithinSnapshot(ctx context.Context, fn func(repository.Repositories) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func (m *MockStore) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockDebtCache struct {
	mock.Mock
}

func (m *MockDebtCache) Generation(ctx context.Context, associateID uuid.UUID) (int64, error) {
	args := m.Called(ctx, associateID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDebtCache) GetSummary(ctx context.Context, associateID uuid.UUID, generation int64) (*domain.DebtSummary, error) {
	args := m.Called(ctx, associateID, generation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DebtSummary), args.Error(1)
}

func (m *MockDebtCache) SetSummary(ctx context.Context, summary *domain.DebtSummary, generation int64) error {
	args := m.Called(ctx, summary, generation)
	return args.Error(0)
}

func (m *MockDebtCache) Invalidate(ctx context.Context, associateID uuid.UUID) error {
	args := m.Called(ctx, associateID)
	return args.Error(0)
}

// NewMockStore creates a new mock store instance
func NewMockStore() *MockStore {
	return &MockStore{}
}
