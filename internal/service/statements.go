package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/credicuenta/debt-ledger/internal/domain"
	"github.com/credicuenta/debt-ledger/internal/repository"
	customError "github.com/credicuenta/debt-ledger/pkg/errors"
	"github.com/credicuenta/debt-ledger/pkg/utils"
)

// CreatePeriod opens a new billing cut in PENDING status
func (s *LedgerService) CreatePeriod(ctx context.Context, request *domain.CreatePeriodRequest) (*domain.Period, error) {
	if strings.TrimSpace(request.Code) == "" {
		return nil, customError.WrapValidation("code", "is required")
	}
	if request.StartDate.IsZero() || request.EndDate.IsZero() {
		return nil, customError.WrapValidation("start_date", "start and end dates are required")
	}
	if !request.EndDate.After(request.StartDate) {
		return nil, customError.WrapValidation("end_date", "must be after start_date")
	}

	now := s.now()
	period := &domain.Period{
		ID:        uuid.New(),
		Code:      request.Code,
		StartDate: utils.TruncateToDay(request.StartDate),
		EndDate:   utils.TruncateToDay(request.EndDate),
		Status:    domain.PeriodStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		return repos.Periods().Create(ctx, period)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, customError.WrapValidation("code", "period code already exists").
			WithDetail("value", request.Code)
	}
	if err != nil {
		return nil, storeError(err)
	}

	log.Info().Str("period_id", period.ID.String()).Str("code", period.Code).Msg("period created")
	return period, nil
}

// AdvancePeriod moves a period exactly one status forward. Entering CLOSED
// carries every unpaid statement balance into the associate's debt.
func (s *LedgerService) AdvancePeriod(ctx context.Context, periodID uuid.UUID, status domain.PeriodStatus) (*domain.AdvancePeriodResponse, error) {
	if !status.IsValid() {
		return nil, customError.WrapValidation("status", "unknown period status").
			WithDetail("value", string(status))
	}

	var period *domain.Period
	err := s.retry(ctx, "advance_period", func() error {
		return s.store.WithinTx(ctx, func(repos repository.Repositories) error {
			var err error
			period, err = repos.Periods().GetByID(ctx, periodID)
			if err != nil {
				return notFound(err, "period", periodID)
			}
			if !period.Status.CanAdvanceTo(status) {
				return customError.WrapInvalidState("period "+period.Code, string(period.Status), "the status right before "+string(status))
			}
			period.Status = status
			period.UpdatedAt = s.now()
			return repos.Periods().UpdateStatus(ctx, periodID, status)
		})
	})
	if err != nil {
		return nil, storeError(err)
	}

	log.Info().Str("period_id", periodID.String()).Str("status", string(status)).Msg("period advanced")

	resp := &domain.AdvancePeriodResponse{
		Period:         period,
		CarriedOver:    []*domain.DebtItem{},
		CarryoverTotal: decimal.Zero,
	}
	if status != domain.PeriodStatusClosed {
		return resp, nil
	}

	items, err := s.CarryOverPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	resp.CarriedOver = items
	for _, item := range items {
		resp.CarryoverTotal = resp.CarryoverTotal.Add(item.OriginalAmount)
	}
	return resp, nil
}

// CarryOverPeriod turns each unpaid statement balance of a CLOSED period
// into a STATEMENT_CARRYOVER debt item. Statements already carried over are
// skipped, so it can be re-run after a partial failure.
func (s *LedgerService) CarryOverPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.DebtItem, error) {
	var statements []*domain.Statement
	err := s.snapshot(ctx, func(repos repository.Repositories) error {
		period, err := repos.Periods().GetByID(ctx, periodID)
		if err != nil {
			return notFound(err, "period", periodID)
		}
		if period.Status != domain.PeriodStatusClosed {
			return customError.WrapInvalidState("period "+period.Code, string(period.Status), string(domain.PeriodStatusClosed))
		}
		statements, err = repos.Statements().ListByPeriod(ctx, periodID)
		return err
	})
	if err != nil {
		return nil, err
	}

	carried := make([]*domain.DebtItem, 0)
	for _, st := range statements {
		if st.CarryoverItemID != nil || !st.RemainingBalance().IsPositive() {
			continue
		}

		statementID := st.ID
		var item *domain.DebtItem
		err := s.mutate(ctx, "carry_over_statement", st.AssociateID, func(repos repository.Repositories) error {
			item = nil
			statement, err := repos.Statements().GetByID(ctx, statementID)
			if err != nil {
				return notFound(err, "statement", statementID)
			}
			balance := statement.RemainingBalance()
			if statement.CarryoverItemID != nil || !balance.IsPositive() {
				return nil
			}

			now := s.now()
			item = &domain.DebtItem{
				ID:             uuid.New(),
				AssociateID:    statement.AssociateID,
				Concept:        domain.ConceptStatementCarryover,
				Description:    "unpaid statement balance",
				OriginalAmount: balance,
				PaidAmount:     decimal.Zero,
				StatementID:    &statement.ID,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := repos.DebtItems().Create(ctx, item); err != nil {
				return err
			}

			statement.CarryoverItemID = &item.ID
			statement.UpdatedAt = now
			return repos.Statements().Update(ctx, statement)
		})
		if err != nil {
			return carried, err
		}
		if item == nil {
			continue
		}

		carried = append(carried, item)
		log.Info().
			Str("associate_id", item.AssociateID.String()).
			Str("statement_id", statementID.String()).
			Str("debt_item_id", item.ID.String()).
			Str("amount", item.OriginalAmount.String()).
			Msg("statement balance carried over")
	}
	return carried, nil
}

// CreateStatement records what an associate owes for a period
func (s *LedgerService) CreateStatement(ctx context.Context, request *domain.CreateStatementRequest) (*domain.Statement, error) {
	if err := validateRequiredID("associate_id", request.AssociateID); err != nil {
		return nil, err
	}
	if err := validateRequiredID("period_id", request.PeriodID); err != nil {
		return nil, err
	}
	if request.TotalDue.IsNegative() {
		return nil, customError.WrapValidation("total_due", "must not be negative")
	}
	if err := validatePrecision("total_due", request.TotalDue); err != nil {
		return nil, err
	}

	var statement *domain.Statement
	err := s.mutate(ctx, "create_statement", request.AssociateID, func(repos repository.Repositories) error {
		period, err := repos.Periods().GetByID(ctx, request.PeriodID)
		if err != nil {
			return notFound(err, "period", request.PeriodID)
		}
		if period.Status == domain.PeriodStatusClosed || period.Status == domain.PeriodStatusArchived {
			return customError.WrapInvalidState("period "+period.Code, string(period.Status), "PENDING, COLLECTING or SETTLING")
		}

		existing, err := repos.Statements().ListByPeriod(ctx, request.PeriodID)
		if err != nil {
			return err
		}
		for _, st := range existing {
			if st.AssociateID == request.AssociateID {
				return customError.WrapValidation("period_id", "associate already has a statement for this period").
					WithDetail("statement_id", st.ID.String())
			}
		}

		now := s.now()
		statement = &domain.Statement{
			ID:          uuid.New(),
			AssociateID: request.AssociateID,
			PeriodID:    request.PeriodID,
			TotalDue:    request.TotalDue,
			PaidAmount:  decimal.Zero,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return repos.Statements().Create(ctx, statement)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("associate_id", statement.AssociateID.String()).
		Str("statement_id", statement.ID.String()).
		Str("total_due", statement.TotalDue.String()).
		Msg("statement created")
	return statement, nil
}

// GetStatement returns a statement with its period and payments
func (s *LedgerService) GetStatement(ctx context.Context, statementID uuid.UUID) (*domain.StatementResponse, error) {
	var resp *domain.StatementResponse
	err := s.snapshot(ctx, func(repos repository.Repositories) error {
		statement, err := repos.Statements().GetByID(ctx, statementID)
		if err != nil {
			return notFound(err, "statement", statementID)
		}
		period, err := repos.Periods().GetByID(ctx, statement.PeriodID)
		if err != nil {
			return notFound(err, "period", statement.PeriodID)
		}
		payments, err := repos.Payments().ListByStatement(ctx, statementID)
		if err != nil {
			return err
		}
		resp = &domain.StatementResponse{
			Statement:        statement,
			Period:           period,
			RemainingBalance: statement.RemainingBalance(),
			Payments:         payments,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// RegisterStatementPayment records a SALDO_ACTUAL payment against the
// statement's remaining balance
func (s *LedgerService) RegisterStatementPayment(ctx context.Context, statementID uuid.UUID, data *domain.PaymentData) (*domain.Payment, error) {
	if err := validatePositiveAmount("payment_amount", data.Amount); err != nil {
		return nil, err
	}
	if err := validatePaymentMethod(data.PaymentMethod); err != nil {
		return nil, err
	}

	var associateID uuid.UUID
	err := s.snapshot(ctx, func(repos repository.Repositories) error {
		statement, err := repos.Statements().GetByID(ctx, statementID)
		if err != nil {
			return notFound(err, "statement", statementID)
		}
		associateID = statement.AssociateID
		return nil
	})
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err = s.mutate(ctx, "register_statement_payment", associateID, func(repos repository.Repositories) error {
		statement, err := repos.Statements().GetByID(ctx, statementID)
		if err != nil {
			return notFound(err, "statement", statementID)
		}
		period, err := repos.Periods().GetByID(ctx, statement.PeriodID)
		if err != nil {
			return notFound(err, "period", statement.PeriodID)
		}
		if !period.Status.IsMutable() {
			return customError.WrapInvalidState("period "+period.Code, string(period.Status), "COLLECTING or SETTLING")
		}
		if data.Amount.GreaterThan(statement.RemainingBalance()) {
			return customError.WrapInsufficientCredit(data.Amount.String(), statement.RemainingBalance().String())
		}

		now := s.now()
		payment = &domain.Payment{
			ID:               uuid.New(),
			AssociateID:      statement.AssociateID,
			PaymentType:      domain.PaymentTypeCurrentBalance,
			PaymentAmount:    data.Amount,
			PaymentDate:      paymentDate(data, now),
			PaymentMethod:    data.PaymentMethod,
			PaymentReference: data.PaymentReference,
			Notes:            data.Notes,
			PeriodID:         &period.ID,
			StatementID:      &statement.ID,
			AppliedBreakdown: []domain.AppliedItem{},
			CreatedAt:        now,
		}
		if err := repos.Payments().Create(ctx, payment); err != nil {
			return err
		}

		statement.PaidAmount = statement.PaidAmount.Add(data.Amount)
		statement.UpdatedAt = now
		return repos.Statements().Update(ctx, statement)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentRecorded(string(domain.PaymentTypeCurrentBalance), payment.PaymentAmount, 0)
	log.Info().
		Str("associate_id", associateID.String()).
		Str("statement_id", statementID.String()).
		Str("payment_id", payment.ID.String()).
		Str("amount", payment.PaymentAmount.String()).
		Msg("statement payment registered")
	return payment, nil
}
