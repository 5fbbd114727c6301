package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credicuenta/debt-ledger/internal/domain"
)

func TestMemoryStore_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	item := sampleItem(uuid.New())

	err := store.WithinAssociateTx(ctx, item.AssociateID, func(repos Repositories) error {
		return repos.DebtItems().Create(ctx, item)
	})
	require.NoError(t, err)

	err = store.WithinSnapshot(ctx, func(repos Repositories) error {
		got, err := repos.DebtItems().GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, got.OriginalAmount.Equal(decimal.NewFromInt(100)))
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_DiscardsOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	item := sampleItem(uuid.New())
	boom := errors.New("boom")

	err := store.WithinAssociateTx(ctx, item.AssociateID, func(repos Repositories) error {
		require.NoError(t, repos.DebtItems().Create(ctx, item))

		// visible inside the unit of work
		_, err := repos.DebtItems().GetByID(ctx, item.ID)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = store.WithinSnapshot(ctx, func(repos Repositories) error {
		_, err := repos.DebtItems().GetByID(ctx, item.ID)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SnapshotIsReadOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.WithinSnapshot(ctx, func(repos Repositories) error {
		return repos.DebtItems().Create(ctx, sampleItem(uuid.New()))
	})

	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore()

	called := false
	err := store.WithinTx(ctx, func(repos Repositories) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)
}

func TestMemoryDebtItems_OpenPoolInFIFOOrder(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewMemoryStore()
	associateID := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	newer := sampleItem(associateID)
	newer.CreatedAt = base.Add(2 * time.Hour)
	older := sampleItem(associateID)
	older.CreatedAt = base
	paid := sampleItem(associateID)
	paid.CreatedAt = base.Add(time.Hour)
	paid.PaidAmount = paid.OriginalAmount
	absorbed := sampleItem(associateID)
	absorbed.CreatedAt = base.Add(-time.Hour)
	agreementID := uuid.New()
	absorbed.OwnerAgreementID = &agreementID
	foreign := sampleItem(uuid.New())

	require.NoError(t, store.WithinAssociateTx(ctx, associateID, func(repos Repositories) error {
		for _, item := range []*domain.DebtItem{newer, older, paid, absorbed, foreign} {
			if err := repos.DebtItems().Create(ctx, item); err != nil {
				return err
			}
		}
		return nil
	}))

	// Act
	var open, owned, all []*domain.DebtItem
	err := store.WithinSnapshot(ctx, func(repos Repositories) error {
		var err error
		if open, err = repos.DebtItems().ListOpenPool(ctx, associateID); err != nil {
			return err
		}
		if owned, err = repos.DebtItems().ListByOwnerAgreement(ctx, agreementID); err != nil {
			return err
		}
		all, err = repos.DebtItems().ListByAssociate(ctx, associateID)
		return err
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, older.ID, open[0].ID)
	assert.Equal(t, newer.ID, open[1].ID)
	require.Len(t, owned, 1)
	assert.Equal(t, absorbed.ID, owned[0].ID)
	require.Len(t, all, 4)
	assert.Equal(t, absorbed.ID, all[0].ID)
}

func TestMemoryDebtItems_UpdateOwnerCopiesID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	item := sampleItem(uuid.New())
	agreementID := uuid.New()

	require.NoError(t, store.WithinAssociateTx(ctx, item.AssociateID, func(repos Repositories) error {
		if err := repos.DebtItems().Create(ctx, item); err != nil {
			return err
		}
		return repos.DebtItems().UpdateOwner(ctx, item.ID, &agreementID)
	}))
	agreementID = uuid.New()

	var got *domain.DebtItem
	require.NoError(t, store.WithinSnapshot(ctx, func(repos Repositories) error {
		var err error
		got, err = repos.DebtItems().GetByID(ctx, item.ID)
		return err
	}))

	require.NotNil(t, got.OwnerAgreementID)
	assert.NotEqual(t, agreementID, *got.OwnerAgreementID)

	err := store.WithinAssociateTx(ctx, item.AssociateID, func(repos Repositories) error {
		return repos.DebtItems().UpdateOwner(ctx, uuid.New(), nil)
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPeriods_UniqueCodeAndCurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	jan := &domain.Period{ID: uuid.New(), Code: "2026-01", StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Status: domain.PeriodStatusCollecting}
	feb := &domain.Period{ID: uuid.New(), Code: "2026-02", StartDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Status: domain.PeriodStatusCollecting}

	require.NoError(t, store.WithinTx(ctx, func(repos Repositories) error {
		if err := repos.Periods().Create(ctx, jan); err != nil {
			return err
		}
		return repos.Periods().Create(ctx, feb)
	}))

	err := store.WithinTx(ctx, func(repos Repositories) error {
		return repos.Periods().Create(ctx, &domain.Period{ID: uuid.New(), Code: "2026-01"})
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, store.WithinSnapshot(ctx, func(repos Repositories) error {
		current, err := repos.Periods().GetCurrent(ctx)
		require.NoError(t, err)
		assert.Equal(t, feb.ID, current.ID)
		return nil
	}))
}
