package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credicuenta/debt-ledger/internal/domain"
	customError "github.com/credicuenta/debt-ledger/pkg/errors"
)

var debtItemFields = []string{
	"id", "associate_id", "concept", "description", "original_amount", "paid_amount",
	"statement_id", "loan_id", "origin_agreement_id", "owner_agreement_id", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func sampleItem(associateID uuid.UUID) *domain.DebtItem {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.DebtItem{
		ID:             uuid.New(),
		AssociateID:    associateID,
		Concept:        domain.ConceptDefaultedClient,
		OriginalAmount: decimal.NewFromInt(100),
		PaidAmount:     decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestPostgresStore_WithinAssociateTx_TakesAdvisoryLock(t *testing.T) {
	// Arrange
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)
	associateID := uuid.New()
	item := sampleItem(associateID)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(associateID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO debt_items").
		WithArgs(item.ID, associateID, item.Concept, item.Description, item.OriginalAmount, item.PaidAmount,
			nil, nil, nil, nil, item.CreatedAt, item.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Act
	err := store.WithinAssociateTx(context.Background(), associateID, func(repos Repositories) error {
		return repos.DebtItems().Create(context.Background(), item)
	})

	// Assert
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithinAssociateTx(context.Background(), uuid.New(), func(repos Repositories) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TranslatesDriverErrors(t *testing.T) {
	tests := []struct {
		name  string
		code  pq.ErrorCode
		check func(t *testing.T, err error)
	}{
		{"serialization failure", "40001", func(t *testing.T, err error) {
			assert.True(t, customError.Is(err, customError.ErrConcurrencyConflict))
		}},
		{"deadlock", "40P01", func(t *testing.T, err error) {
			assert.True(t, customError.Is(err, customError.ErrConcurrencyConflict))
		}},
		{"unique violation", "23505", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrDuplicate)
		}},
		{"other", "23514", func(t *testing.T, err error) {
			var pqErr *pq.Error
			assert.ErrorAs(t, err, &pqErr)
			assert.False(t, errors.Is(err, ErrDuplicate))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			store := NewPostgresStore(db)

			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO periods").WillReturnError(&pq.Error{Code: tt.code, Constraint: "periods_code_key"})
			mock.ExpectRollback()

			err := store.WithinTx(context.Background(), func(repos Repositories) error {
				return repos.Periods().Create(context.Background(), &domain.Period{
					ID:     uuid.New(),
					Code:   "2026-01",
					Status: domain.PeriodStatusCollecting,
				})
			})

			require.Error(t, err)
			tt.check(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_CommitConflict(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})

	err := store.WithinTx(context.Background(), func(repos Repositories) error { return nil })

	assert.True(t, customError.Is(err, customError.ErrConcurrencyConflict))
}

func TestPostgresStore_Snapshot(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM debt_items").WithArgs(id).WillReturnRows(sqlmock.NewRows(debtItemFields))
	mock.ExpectRollback()

	err := store.WithinSnapshot(context.Background(), func(repos Repositories) error {
		_, err := repos.DebtItems().GetByID(context.Background(), id)
		return err
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebtItemRepository_ListOpenPool(t *testing.T) {
	// Arrange
	db, mock := newMockDB(t)
	repo := NewDebtItemRepository(db)
	associateID := uuid.New()
	agreementID := uuid.New()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(debtItemFields).
		AddRow(uuid.New().String(), associateID.String(), "DEFAULTED_CLIENT", "", "100.00", "40.00",
			nil, nil, nil, nil, first, first).
		AddRow(uuid.New().String(), associateID.String(), "LATE_FEE", "late", "25.50", "0",
			nil, nil, agreementID.String(), nil, first.Add(time.Hour), first.Add(time.Hour))

	mock.ExpectQuery("owner_agreement_id IS NULL AND paid_amount < original_amount").
		WithArgs(associateID).
		WillReturnRows(rows)

	// Act
	items, err := repo.ListOpenPool(context.Background(), associateID)

	// Assert
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].RemainingAmount().Equal(decimal.NewFromInt(60)))
	assert.Nil(t, items[0].OwnerAgreementID)
	assert.Equal(t, domain.ConceptLateFee, items[1].Concept)
	require.NotNil(t, items[1].OriginAgreementID)
	assert.Equal(t, agreementID, *items[1].OriginAgreementID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebtItemRepository_UpdatePaidAmountMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDebtItemRepository(db)
	item := sampleItem(uuid.New())

	mock.ExpectExec("UPDATE debt_items").
		WithArgs(item.ID, item.PaidAmount, item.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePaidAmount(context.Background(), item)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_CreateWritesBreakdown(t *testing.T) {
	// Arrange
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	itemA, itemB := uuid.New(), uuid.New()
	payment := &domain.Payment{
		ID:            uuid.New(),
		AssociateID:   uuid.New(),
		PaymentType:   domain.PaymentTypeAccumulatedDebt,
		PaymentAmount: decimal.NewFromInt(150),
		PaymentDate:   now,
		PaymentMethod: "CASH",
		AppliedBreakdown: []domain.AppliedItem{
			{DebtItemID: itemA, AmountApplied: decimal.NewFromInt(100), Liquidated: true, RemainingDebt: decimal.Zero},
			{DebtItemID: itemB, AmountApplied: decimal.NewFromInt(50), Liquidated: false, RemainingDebt: decimal.NewFromInt(150)},
		},
		CreatedAt: now,
	}

	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payment_applications").
		WithArgs(payment.ID, 1, itemA, decimal.NewFromInt(100), true, decimal.Zero).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payment_applications").
		WithArgs(payment.ID, 2, itemB, decimal.NewFromInt(50), false, decimal.NewFromInt(150)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Act
	err := repo.Create(context.Background(), payment)

	// Assert
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_DeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM payment_applications").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM payments").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), id)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
