package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credicuenta/debt-ledger/internal/domain"
	customError "github.com/credicuenta/debt-ledger/pkg/errors"
)

func collectingPeriod(t *testing.T, svc *LedgerService, code string) *domain.Period {
	t.Helper()
	ctx := context.Background()
	period, err := svc.CreatePeriod(ctx, &domain.CreatePeriodRequest{
		Code:      code,
		StartDate: jan1,
		EndDate:   jan1.AddDate(0, 0, 14),
	})
	require.NoError(t, err)

	resp, err := svc.AdvancePeriod(ctx, period.ID, domain.PeriodStatusCollecting)
	require.NoError(t, err)
	return resp.Period
}

func createStatement(t *testing.T, svc *LedgerService, associateID, periodID uuid.UUID, total string) *domain.Statement {
	t.Helper()
	statement, err := svc.CreateStatement(context.Background(), &domain.CreateStatementRequest{
		AssociateID: associateID,
		PeriodID:    periodID,
		TotalDue:    dec(total),
	})
	require.NoError(t, err)
	return statement
}

func TestCreatePeriod(t *testing.T) {
	svc, _ := newTestLedger(t, OverpaymentReject)
	ctx := context.Background()

	period, err := svc.CreatePeriod(ctx, &domain.CreatePeriodRequest{
		Code:      "2025-Q05",
		StartDate: jan1,
		EndDate:   jan1.AddDate(0, 0, 14),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodStatusPending, period.Status)

	_, err = svc.CreatePeriod(ctx, &domain.CreatePeriodRequest{
		Code:      "2025-Q05",
		StartDate: jan1,
		EndDate:   jan1.AddDate(0, 0, 14),
	})
	assert.True(t, errors.Is(err, customError.ErrValidation))

	_, err = svc.CreatePeriod(ctx, &domain.CreatePeriodRequest{
		Code:      "2025-Q06",
		StartDate: jan1,
		EndDate:   jan1,
	})
	assert.True(t, errors.Is(err, customError.ErrValidation))
}

func TestAdvancePeriod_OneStepForwardOnly(t *testing.T) {
	svc, _ := newTestLedger(t, OverpaymentReject)
	ctx := context.Background()

	period, err := svc.CreatePeriod(ctx, &domain.CreatePeriodRequest{
		Code:      "2025-Q07",
		StartDate: jan1,
		EndDate:   jan1.AddDate(0, 0, 14),
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		status  domain.PeriodStatus
		wantErr error
	}{
		{"skip a step", domain.PeriodStatusSettling, customError.ErrInvalidState},
		{"unknown status", domain.PeriodStatus("OPEN"), customError.ErrValidation},
		{"forward", domain.PeriodStatusCollecting, nil},
		{"backwards", domain.PeriodStatusPending, customError.ErrInvalidState},
		{"same status", domain.PeriodStatusCollecting, customError.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.AdvancePeriod(ctx, period.ID, tt.status)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.Period.Status)
		})
	}

	_, err = svc.AdvancePeriod(ctx, uuid.New(), domain.PeriodStatusCollecting)
	assert.True(t, errors.Is(err, customError.ErrNotFound))
}

func TestRegisterStatementPayment(t *testing.T) {
	svc, _ := newTestLedger(t, OverpaymentReject)
	ctx := context.Background()
	associateID := uuid.New()

	period, err := svc.CreatePeriod(ctx, &domain.CreatePeriodRequest{
		Code:      "2025-Q08",
		StartDate: jan1,
		EndDate:   jan1.AddDate(0, 0, 14),
	})
	require.NoError(t, err)
	statement := createStatement(t, svc, associateID, period.ID, "500.00")

	data := &domain.PaymentData{PaymentMethod: "CASH", Amount: dec("200.00")}

	// period still PENDING
	_, err = svc.RegisterStatementPayment(ctx, statement.ID, data)
	assert.True(t, errors.Is(err, customError.ErrInvalidState))

	_, err = svc.AdvancePeriod(ctx, period.ID, domain.PeriodStatusCollecting)
	require.NoError(t, err)

	payment, err := svc.RegisterStatementPayment(ctx, statement.ID, data)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentTypeCurrentBalance, payment.PaymentType)
	assert.Equal(t, statement.ID, *payment.StatementID)
	assert.Equal(t, period.ID, *payment.PeriodID)

	_, err = svc.RegisterStatementPayment(ctx, statement.ID, &domain.PaymentData{PaymentMethod: "CASH", Amount: dec("300.01")})
	assert.True(t, errors.Is(err, customError.ErrInsufficientCredit))

	_, err = svc.RegisterStatementPayment(ctx, statement.ID, &domain.PaymentData{PaymentMethod: "CASH", Amount: dec("0")})
	assert.True(t, errors.Is(err, customError.ErrValidation))

	resp, err := svc.GetStatement(ctx, statement.ID)
	require.NoError(t, err)
	assert.True(t, dec("300").Equal(resp.RemainingBalance))
	assert.True(t, dec("200").Equal(resp.Statement.PaidAmount))
	require.Len(t, resp.Payments, 1)
	assert.Equal(t, payment.ID, resp.Payments[0].ID)
	assert.Equal(t, domain.PeriodStatusCollecting, resp.Period.Status)
}

func TestDeleteStatementPayment(t *testing.T) {
	svc, _ := newTestLedger(t, OverpaymentReject)
	ctx := context.Background()
	associateID := uuid.New()

	period := collectingPeriod(t, svc, "2025-Q09")
	statement := createStatement(t, svc, associateID, period.ID, "500.00")
	other := createStatement(t, svc, uuid.New(), period.ID, "100.00")

	payment, err := svc.RegisterStatementPayment(ctx, statement.ID, &domain.PaymentData{PaymentMethod: "CASH", Amount: dec("150.00")})
	require.NoError(t, err)

	err = svc.DeleteStatementPayment(ctx, other.ID, payment.ID)
	assert.True(t, errors.Is(err, customError.ErrNotFound))

	require.NoError(t, svc.DeleteStatementPayment(ctx, statement.ID, payment.ID))

	resp, err := svc.GetStatement(ctx, statement.ID)
	require.NoError(t, err)
	assert.True(t, resp.Statement.PaidAmount.IsZero())
	assert.Empty(t, resp.Payments)
}

func TestCreateStatement_Rules(t *testing.T) {
	svc, _ := newTestLedger(t, OverpaymentReject)
	ctx := context.Background()
	associateID := uuid.New()

	period := collectingPeriod(t, svc, "2025-Q10")
	createStatement(t, svc, associateID, period.ID, "10.00")

	_, err := svc.CreateStatement(ctx, &domain.CreateStatementRequest{AssociateID: associateID, PeriodID: period.ID, TotalDue: dec("5")})
	assert.True(t, errors.Is(err, customError.ErrValidation))

	_, err = svc.CreateStatement(ctx, &domain.CreateStatementRequest{AssociateID: uuid.New(), PeriodID: uuid.New(), TotalDue: dec("5")})
	assert.True(t, errors.Is(err, customError.ErrNotFound))

	_, err = svc.CreateStatement(ctx, &domain.CreateStatementRequest{AssociateID: uuid.New(), PeriodID: period.ID, TotalDue: dec("-1")})
	assert.True(t, errors.Is(err, customError.ErrValidation))

	_, err = svc.AdvancePeriod(ctx, period.ID, domain.PeriodStatusSettling)
	require.NoError(t, err)
	_, err = svc.AdvancePeriod(ctx, period.ID, domain.PeriodStatusClosed)
	require.NoError(t, err)

	_, err = svc.CreateStatement(ctx, &domain.CreateStatementRequest{AssociateID: uuid.New(), PeriodID: period.ID, TotalDue: dec("5")})
	assert.True(t, errors.Is(err, customError.ErrInvalidState))
}

func TestAdvancePeriod_ClosingCarriesOverUnpaidBalances(t *testing.T) {
	// Arrange
	svc, _ := newTestLedger(t, OverpaymentReject)
	ctx := context.Background()
	debtor := uuid.New()
	settled := uuid.New()

	period := collectingPeriod(t, svc, "2025-Q11")
	partial := createStatement(t, svc, debtor, period.ID, "500.00")
	full := createStatement(t, svc, settled, period.ID, "80.00")

	_, err := svc.RegisterStatementPayment(ctx, partial.ID, &domain.PaymentData{PaymentMethod: "CASH", Amount: dec("200.00")})
	require.NoError(t, err)
	_, err = svc.RegisterStatementPayment(ctx, full.ID, &domain.PaymentData{PaymentMethod: "CASH", Amount: dec("80.00")})
	require.NoError(t, err)

	_, err = svc.AdvancePeriod(ctx, period.ID, domain.PeriodStatusSettling)
	require.NoError(t, err)

	// Act
	resp, err := svc.AdvancePeriod(ctx, period.ID, domain.PeriodStatusClosed)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodStatusClosed, resp.Period.Status)
	require.Len(t, resp.CarriedOver, 1)
	item := resp.CarriedOver[0]
	assert.Equal(t, debtor, item.AssociateID)
	assert.Equal(t, domain.ConceptStatementCarryover, item.Concept)
	assert.True(t, dec("300").Equal(item.OriginalAmount))
	assert.Equal(t, partial.ID, *item.StatementID)
	assert.True(t, dec("300").Equal(resp.CarryoverTotal))

	statement, err := svc.GetStatement(ctx, partial.ID)
	require.NoError(t, err)
	require.NotNil(t, statement.Statement.CarryoverItemID)
	assert.Equal(t, item.ID, *statement.Statement.CarryoverItemID)

	consolidated, err := svc.GetConsolidatedDebt(ctx, debtor)
	require.NoError(t, err)
	assert.True(t, dec("300").Equal(consolidated.TotalDebt))

	// re-running the carryover creates nothing new
	again, err := svc.CarryOverPeriod(ctx, period.ID)
	require.NoError(t, err)
	assert.Empty(t, again)

	items, err := svc.ListDebtItems(ctx, debtor)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// closed period payments are frozen
	_, err = svc.RegisterStatementPayment(ctx, partial.ID, &domain.PaymentData{PaymentMethod: "CASH", Amount: dec("1.00")})
	assert.True(t, errors.Is(err, customError.ErrInvalidState))
}

func TestCarryOverPeriod_RequiresClosedPeriod(t *testing.T) {
	svc, _ := newTestLedger(t, OverpaymentReject)

	period := collectingPeriod(t, svc, "2025-Q12")

	_, err := svc.CarryOverPeriod(context.Background(), period.ID)
	assert.True(t, errors.Is(err, customError.ErrInvalidState))
}
