package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/credicuenta/debt-ledger/internal/cache"
	"github.com/credicuenta/debt-ledger/internal/domain"
	"github.com/credicuenta/debt-ledger/internal/repository"
	customError "github.com/credicuenta/debt-ledger/pkg/errors"
	"github.com/credicuenta/debt-ledger/tests/mocks"
)

func TestGetDebtBreakdown_Reconciles(t *testing.T) {
	// Arrange
	svc, clock := newTestLedger(t, OverpaymentReject)
	ctx := context.Background()
	associateID := uuid.New()

	addItem(t, svc, associateID, "100.00")
	clock.Set(jan1.Add(time.Hour))
	addItem(t, svc, associateID, "50.00")
	clock.Set(jan1.Add(2 * time.Hour))
	absorbed := addItem(t, svc, associateID, "200.00")

	payDebt(t, svc, associateID, "120.00")
	clock.Set(jan1.Add(3 * time.Hour))
	payDebt(t, svc, associateID, "10.00")
	agreement := createAgreement(t, svc, associateID, 4, absorbed)
	payInstallment(t, svc, agreement.ID, 1)

	// Act
	resp, err := svc.GetDebtBreakdown(ctx, associateID)

	// Assert
	require.NoError(t, err)
	summary := resp.Summary
	assert.Equal(t, associateID, summary.AssociateID)
	assert.True(t, dec("170").Equal(summary.TotalDebt), "total debt %s", summary.TotalDebt)
	assert.True(t, dec("150").Equal(summary.InAgreementDebt))
	assert.True(t, dec("180").Equal(summary.TotalPaidDebt))
	assert.Equal(t, 2, summary.PendingItems)
	assert.Equal(t, 1, summary.LiquidatedItems)
	assert.Equal(t, 1, summary.ActiveAgreements)
	assert.True(t, summary.TotalDebt.Add(summary.TotalPaidDebt).Equal(dec("350")))

	require.Len(t, resp.DebtItems, 3)
	assert.True(t, resp.DebtItems[0].IsLiquidated)
	assert.Equal(t, domain.OwnerAgreement, resp.DebtItems[2].Owner)

	// only accumulated debt payments, newest first
	require.Len(t, resp.DebtPayments, 2)
	assert.True(t, dec("10").Equal(resp.DebtPayments[0].PaymentAmount))
	assert.True(t, dec("120").Equal(resp.DebtPayments[1].PaymentAmount))

	consolidated, err := svc.GetConsolidatedDebt(ctx, associateID)
	require.NoError(t, err)
	assert.True(t, summary.TotalDebt.Equal(consolidated.TotalDebt))
}

func TestGetConsolidatedDebt_Idempotent(t *testing.T) {
	svc, _ := newTestLedger(t, OverpaymentReject)
	ctx := context.Background()
	associateID := uuid.New()

	addItem(t, svc, associateID, "42.50")
	payDebt(t, svc, associateID, "2.50")

	first, err := svc.GetConsolidatedDebt(ctx, associateID)
	require.NoError(t, err)
	second, err := svc.GetConsolidatedDebt(ctx, associateID)
	require.NoError(t, err)

	assert.True(t, dec("40").Equal(first.TotalDebt))
	assert.True(t, first.TotalDebt.Equal(second.TotalDebt))

	empty, err := svc.GetConsolidatedDebt(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, empty.TotalDebt.IsZero())
}

func TestGetConsolidatedDebt_ServedFromCache(t *testing.T) {
	debtCache := &mocks.MockDebtCache{}
	associateID := uuid.New()
	cached := &domain.DebtSummary{AssociateID: associateID, TotalDebt: dec("999.99")}
	debtCache.On("Generation", mock.Anything, associateID).Return(int64(4), nil).Once()
	debtCache.On("GetSummary", mock.Anything, associateID, int64(4)).Return(cached, nil).Once()

	svc, _ := newTestLedger(t, OverpaymentReject, WithCache(debtCache))

	resp, err := svc.GetConsolidatedDebt(context.Background(), associateID)

	require.NoError(t, err)
	assert.True(t, dec("999.99").Equal(resp.TotalDebt))
	debtCache.AssertNotCalled(t, "SetSummary", mock.Anything, mock.Anything, mock.Anything)
	debtCache.AssertExpectations(t)
}

func TestGetConsolidatedDebt_CacheMissStoresSummary(t *testing.T) {
	debtCache := &mocks.MockDebtCache{}
	associateID := uuid.New()
	debtCache.On("Invalidate", mock.Anything, associateID).Return(nil)
	debtCache.On("Generation", mock.Anything, associateID).Return(int64(1), nil).Once()
	debtCache.On("GetSummary", mock.Anything, associateID, int64(1)).Return(nil, nil).Once()
	debtCache.On("SetSummary", mock.Anything, mock.MatchedBy(func(s *domain.DebtSummary) bool {
		return s.AssociateID == associateID && s.TotalDebt.Equal(dec("15"))
	}), int64(1)).Return(nil).Once()

	svc, _ := newTestLedger(t, OverpaymentReject, WithCache(debtCache))
	addItem(t, svc, associateID, "15.00")

	resp, err := svc.GetConsolidatedDebt(context.Background(), associateID)

	require.NoError(t, err)
	assert.True(t, dec("15").Equal(resp.TotalDebt))
	debtCache.AssertExpectations(t)
}

func TestGetConsolidatedDebt_CacheErrorRecomputes(t *testing.T) {
	debtCache := &mocks.MockDebtCache{}
	associateID := uuid.New()
	debtCache.On("Invalidate", mock.Anything, associateID).Return(nil)
	debtCache.On("Generation", mock.Anything, associateID).Return(int64(0), nil)
	debtCache.On("GetSummary", mock.Anything, associateID, int64(0)).Return(nil, errors.New("redis: i/o timeout"))
	debtCache.On("SetSummary", mock.Anything, mock.Anything, int64(0)).Return(errors.New("redis: i/o timeout"))

	svc, _ := newTestLedger(t, OverpaymentReject, WithCache(debtCache))
	addItem(t, svc, associateID, "15.00")

	resp, err := svc.GetConsolidatedDebt(context.Background(), associateID)

	require.NoError(t, err)
	assert.True(t, dec("15").Equal(resp.TotalDebt))
}

func TestGetConsolidatedDebt_GenerationUnavailableSkipsCache(t *testing.T) {
	debtCache := &mocks.MockDebtCache{}
	associateID := uuid.New()
	debtCache.On("Invalidate", mock.Anything, associateID).Return(nil)
	debtCache.On("Generation", mock.Anything, associateID).Return(int64(0), errors.New("redis: i/o timeout"))

	svc, _ := newTestLedger(t, OverpaymentReject, WithCache(debtCache))
	addItem(t, svc, associateID, "15.00")

	resp, err := svc.GetConsolidatedDebt(context.Background(), associateID)

	require.NoError(t, err)
	assert.True(t, dec("15").Equal(resp.TotalDebt))
	debtCache.AssertNotCalled(t, "GetSummary", mock.Anything, mock.Anything, mock.Anything)
	debtCache.AssertNotCalled(t, "SetSummary", mock.Anything, mock.Anything, mock.Anything)
}

// writeAfterSnapshot runs write once, right after the first snapshot
// completes and before the reader gets to fill the cache
type writeAfterSnapshot struct {
	repository.Store
	write func()
}

func (s *writeAfterSnapshot) WithinSnapshot(ctx context.Context, fn func(repository.Repositories) error) error {
	err := s.Store.WithinSnapshot(ctx, fn)
	if s.write != nil {
		write := s.write
		s.write = nil
		write()
	}
	return err
}

func TestGetConsolidatedDebt_WriteFromAnotherProcessDuringFill(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	redisMock.MatchExpectationsInOrder(true)
	associateID := uuid.New()
	store := repository.NewMemoryStore()

	// each process has its own service and therefore its own keyed locks
	writer := NewLedgerService(store, testSettings(OverpaymentReject),
		WithCache(cache.NewRedisDebtCache(client, time.Minute)))
	racing := &writeAfterSnapshot{Store: store}
	reader := NewLedgerService(racing, testSettings(OverpaymentReject),
		WithCache(cache.NewRedisDebtCache(client, time.Minute)))

	redisMock.ExpectIncr(cache.GenerationKey(associateID)).SetVal(3)
	addItem(t, writer, associateID, "15.00")

	redisMock.ExpectGet(cache.GenerationKey(associateID)).SetVal("3")
	redisMock.ExpectGet(cache.SummaryKey(associateID, 3)).RedisNil()
	redisMock.ExpectIncr(cache.GenerationKey(associateID)).SetVal(4)
	redisMock.Regexp().ExpectSet(cache.SummaryKey(associateID, 3), `.*`, time.Minute).SetVal("OK")
	racing.write = func() { addItem(t, writer, associateID, "5.00") }

	first, err := reader.GetConsolidatedDebt(context.Background(), associateID)
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(first.TotalDebt))

	// the summary stored under generation 3 is never looked up again
	redisMock.ExpectGet(cache.GenerationKey(associateID)).SetVal("4")
	redisMock.ExpectGet(cache.SummaryKey(associateID, 4)).RedisNil()
	redisMock.Regexp().ExpectSet(cache.SummaryKey(associateID, 4), `.*`, time.Minute).SetVal("OK")

	second, err := reader.GetConsolidatedDebt(context.Background(), associateID)
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(second.TotalDebt))
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestGetDebtBreakdown_RequiresAssociate(t *testing.T) {
	svc, _ := newTestLedger(t, OverpaymentReject)

	_, err := svc.GetDebtBreakdown(context.Background(), uuid.Nil)

	assert.True(t, errors.Is(err, customError.ErrValidation))
}
