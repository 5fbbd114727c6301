package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/credicuenta/debt-ledger/internal/domain"
	"github.com/credicuenta/debt-ledger/internal/repository"
	customError "github.com/credicuenta/debt-ledger/pkg/errors"
	"github.com/credicuenta/debt-ledger/tests/mocks"
)

var jan1 = time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testClock ticks one second on every reading so creation order is stable
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func testSettings(policy OverpaymentPolicy) Settings {
	settings := DefaultSettings()
	settings.OverpaymentPolicy = policy
	settings.RetryBackoff = time.Millisecond
	return settings
}

func newTestLedger(t *testing.T, policy OverpaymentPolicy, opts ...Option) (*LedgerService, *testClock) {
	t.Helper()
	clock := newTestClock(jan1)
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewLedgerService(repository.NewMemoryStore(), testSettings(policy), opts...), clock
}

func addItem(t *testing.T, svc *LedgerService, associateID uuid.UUID, amount string) *domain.DebtItem {
	t.Helper()
	item, err := svc.AddDebtItem(context.Background(), associateID, &domain.AddDebtItemRequest{
		Concept: domain.ConceptDefaultedClient,
		Amount:  dec(amount),
	})
	require.NoError(t, err)
	return item
}

func payDebt(t *testing.T, svc *LedgerService, associateID uuid.UUID, amount string) *domain.DebtPaymentResponse {
	t.Helper()
	resp, err := svc.RegisterDebtPayment(context.Background(), associateID, &domain.RegisterDebtPaymentRequest{
		PaymentAmount: dec(amount),
		PaymentMethod: "CASH",
	})
	require.NoError(t, err)
	return resp
}

func itemView(t *testing.T, svc *LedgerService, associateID, itemID uuid.UUID) domain.DebtItemView {
	t.Helper()
	items, err := svc.ListDebtItems(context.Background(), associateID)
	require.NoError(t, err)
	for _, item := range items {
		if item.ID == itemID {
			return item
		}
	}
	t.Fatalf("debt item %s not found", itemID)
	return domain.DebtItemView{}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	be, ok := customError.As(err)
	require.True(t, ok, "expected a business error, got %v", err)
	assert.Equal(t, code, be.Code)
}

// flakyStore fails the first n associate transactions with a serialization conflict
type flakyStore struct {
	repository.Store
	failures int32
	calls    int32
}

func (s *flakyStore) WithinAssociateTx(ctx context.Context, associateID uuid.UUID, fn func(repository.Repositories) error) error {
	atomic.AddInt32(&s.calls, 1)
	if atomic.AddInt32(&s.failures, -1) >= 0 {
		return customError.WrapConcurrencyConflict(errors.New("could not serialize access"))
	}
	return s.Store.WithinAssociateTx(ctx, associateID, fn)
}

func TestMutate_RetriesConcurrencyConflict(t *testing.T) {
	// Arrange
	store := &flakyStore{Store: repository.NewMemoryStore(), failures: 2}
	svc := NewLedgerService(store, testSettings(OverpaymentReject))
	associateID := uuid.New()

	// Act
	item, err := svc.AddDebtItem(context.Background(), associateID, &domain.AddDebtItemRequest{
		Concept: domain.ConceptLateFee,
		Amount:  dec("10.00"),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&store.calls))

	items, err := svc.ListDebtItems(context.Background(), associateID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
}

func TestMutate_RetriesExhausted(t *testing.T) {
	store := mocks.NewMockStore()
	conflict := customError.WrapConcurrencyConflict(errors.New("deadlock detected"))
	store.On("WithinAssociateTx", mock.Anything, mock.Anything, mock.Anything).Return(conflict)

	settings := testSettings(OverpaymentReject)
	settings.MaxRetries = 2
	svc := NewLedgerService(store, settings)

	_, err := svc.AddDebtItem(context.Background(), uuid.New(), &domain.AddDebtItemRequest{
		Concept: domain.ConceptOther,
		Amount:  dec("1.00"),
	})

	assert.True(t, errors.Is(err, customError.ErrConcurrencyConflict))
	assertCode(t, err, customError.ErrCodeConcurrencyConflict)
	store.AssertNumberOfCalls(t, "WithinAssociateTx", 3)
}

func TestMutate_DatabaseErrorIsWrapped(t *testing.T) {
	store := mocks.NewMockStore()
	store.On("WithinAssociateTx", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection reset by peer"))

	svc := NewLedgerService(store, testSettings(OverpaymentReject))

	_, err := svc.AddDebtItem(context.Background(), uuid.New(), &domain.AddDebtItemRequest{
		Concept: domain.ConceptOther,
		Amount:  dec("1.00"),
	})

	assert.True(t, errors.Is(err, customError.ErrDatabase))
	assertCode(t, err, customError.ErrCodeDatabaseError)
	store.AssertNumberOfCalls(t, "WithinAssociateTx", 1)
}

func TestMutate_CancelledContext(t *testing.T) {
	svc, _ := newTestLedger(t, OverpaymentReject)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AddDebtItem(ctx, uuid.New(), &domain.AddDebtItemRequest{
		Concept: domain.ConceptOther,
		Amount:  dec("1.00"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMutate_InvalidatesSummaryCache(t *testing.T) {
	debtCache := &mocks.MockDebtCache{}
	associateID := uuid.New()
	debtCache.On("Invalidate", mock.Anything, associateID).Return(nil).Once()

	svc, _ := newTestLedger(t, OverpaymentReject, WithCache(debtCache))
	addItem(t, svc, associateID, "25.00")

	debtCache.AssertExpectations(t)
}

func TestMutate_CacheFailureDoesNotFailMutation(t *testing.T) {
	debtCache := &mocks.MockDebtCache{}
	debtCache.On("Invalidate", mock.Anything, mock.Anything).Return(errors.New("redis: connection refused"))

	svc, _ := newTestLedger(t, OverpaymentReject, WithCache(debtCache))
	item := addItem(t, svc, uuid.New(), "25.00")

	assert.NotNil(t, item)
	debtCache.AssertExpectations(t)
}

func TestOverpaymentPolicy_IsValid(t *testing.T) {
	assert.True(t, OverpaymentReject.IsValid())
	assert.True(t, OverpaymentReport.IsValid())
	assert.False(t, OverpaymentPolicy("credit").IsValid())
}
