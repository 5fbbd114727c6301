package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/credicuenta/debt-ledger/internal/domain"
	"github.com/credicuenta/debt-ledger/internal/repository"
	customError "github.com/credicuenta/debt-ledger/pkg/errors"
)

// ListPayments returns the associate's unified payment history, newest
// first, optionally restricted to one payment type
func (s *LedgerService) ListPayments(ctx context.Context, associateID uuid.UUID, paymentType *domain.PaymentType) ([]*domain.Payment, error) {
	if err := validateRequiredID("associate_id", associateID); err != nil {
		return nil, err
	}
	if paymentType != nil && !paymentType.IsValid() {
		return nil, customError.WrapValidation("type", "unknown payment type").
			WithDetail("value", string(*paymentType))
	}

	var payments []*domain.Payment
	err := s.read(ctx, associateID, func(repos repository.Repositories) error {
		var err error
		payments, err = repos.Payments().ListByAssociate(ctx, associateID, paymentType)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// DeletePayment reverses a payment and removes it from the ledger
func (s *LedgerService) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	return s.deletePayment(ctx, paymentID, nil)
}

// DeleteStatementPayment is DeletePayment restricted to one statement's payments
func (s *LedgerService) DeleteStatementPayment(ctx context.Context, statementID, paymentID uuid.UUID) error {
	return s.deletePayment(ctx, paymentID, &statementID)
}

func (s *LedgerService) deletePayment(ctx context.Context, paymentID uuid.UUID, statementID *uuid.UUID) error {
	associateID, err := s.paymentOwner(ctx, paymentID)
	if err != nil {
		return err
	}

	var deleted *domain.Payment
	err = s.mutate(ctx, "delete_payment", associateID, func(repos repository.Repositories) error {
		payment, err := repos.Payments().GetByID(ctx, paymentID)
		if err != nil {
			return notFound(err, "payment", paymentID)
		}
		if statementID != nil && (payment.StatementID == nil || *payment.StatementID != *statementID) {
			return customError.WrapNotFound("payment", paymentID.String()).
				WithDetail("statement_id", statementID.String())
		}

		if err := s.reverse(ctx, repos, payment); err != nil {
			return err
		}
		if err := repos.Payments().Delete(ctx, payment.ID); err != nil {
			return err
		}
		deleted = payment
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.PaymentReversed(string(deleted.PaymentType))
	log.Info().
		Str("associate_id", associateID.String()).
		Str("payment_id", paymentID.String()).
		Str("payment_type", string(deleted.PaymentType)).
		Str("amount", deleted.PaymentAmount.String()).
		Msg("payment reversed")
	return nil
}

func (s *LedgerService) paymentOwner(ctx context.Context, paymentID uuid.UUID) (uuid.UUID, error) {
	var associateID uuid.UUID
	err := s.snapshot(ctx, func(repos repository.Repositories) error {
		payment, err := repos.Payments().GetByID(ctx, paymentID)
		if err != nil {
			return notFound(err, "payment", paymentID)
		}
		associateID = payment.AssociateID
		return nil
	})
	return associateID, err
}

// reverse checks that the payment's owning context still accepts changes,
// then undoes its effect on items, statement and agreement
func (s *LedgerService) reverse(ctx context.Context, repos repository.Repositories, payment *domain.Payment) error {
	now := s.now()

	if payment.PeriodID == nil && payment.PaymentType == domain.PaymentTypeAccumulatedDebt {
		if age := now.Sub(payment.CreatedAt); age > s.settings.ReversalWindow {
			return customError.WrapInvalidState("payment "+payment.ID.String(), "REVERSAL_WINDOW_EXPIRED", "recorded within "+s.settings.ReversalWindow.String()).
				WithDetail("created_at", payment.CreatedAt)
		}
	}

	if payment.PeriodID != nil {
		period, err := repos.Periods().GetByID(ctx, *payment.PeriodID)
		if err != nil {
			return notFound(err, "period", *payment.PeriodID)
		}
		if !period.Status.IsMutable() {
			return customError.WrapInvalidState("period "+period.Code, string(period.Status), "COLLECTING or SETTLING")
		}
	}

	var agreement *domain.Agreement
	if payment.AgreementID != nil {
		var err error
		agreement, err = repos.Agreements().GetByID(ctx, *payment.AgreementID)
		if err != nil {
			return notFound(err, "agreement", *payment.AgreementID)
		}
		if agreement.Status != domain.AgreementStatusActive {
			return customError.WrapInvalidState("agreement "+agreement.AgreementNumber, string(agreement.Status), string(domain.AgreementStatusActive))
		}
	}

	if err := reverseBreakdown(ctx, repos, payment, payment.AgreementID, now); err != nil {
		return err
	}

	if payment.StatementID != nil {
		statement, err := repos.Statements().GetByID(ctx, *payment.StatementID)
		if err != nil {
			return notFound(err, "statement", *payment.StatementID)
		}
		statement.PaidAmount = floorZero(statement.PaidAmount.Sub(payment.PaymentAmount))
		statement.UpdatedAt = now
		if err := repos.Statements().Update(ctx, statement); err != nil {
			return err
		}
	}

	if agreement != nil {
		agreement.TotalPaid = floorZero(agreement.TotalPaid.Sub(payment.PaymentAmount))
		agreement.UpdatedAt = now
		if err := repos.Agreements().Update(ctx, agreement); err != nil {
			return err
		}
	}
	return nil
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
