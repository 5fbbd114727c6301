package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/credicuenta/debt-ledger/internal/domain"
	"github.com/credicuenta/debt-ledger/internal/repository"
	customError "github.com/credicuenta/debt-ledger/pkg/errors"
)

// RegisterDebtPayment applies an abono to the associate's accumulated debt,
// oldest item first, and records it in the ledger.
func (s *LedgerService) RegisterDebtPayment(ctx context.Context, associateID uuid.UUID, request *domain.RegisterDebtPaymentRequest) (*domain.DebtPaymentResponse, error) {
	if err := validateRequiredID("associate_id", associateID); err != nil {
		return nil, err
	}
	if err := validatePositiveAmount("payment_amount", request.PaymentAmount); err != nil {
		return nil, err
	}
	if err := validatePaymentMethod(request.PaymentMethod); err != nil {
		return nil, err
	}

	var resp *domain.DebtPaymentResponse
	err := s.mutate(ctx, "register_debt_payment", associateID, func(repos repository.Repositories) error {
		resp = nil

		open, err := repos.DebtItems().ListOpenPool(ctx, associateID)
		if err != nil {
			return err
		}

		result := AllocateFIFO(open, request.PaymentAmount)
		if result.RemainingUnallocated.IsPositive() && s.settings.OverpaymentPolicy != OverpaymentReport {
			return customError.WrapInsufficientCredit(request.PaymentAmount.String(), openBalance(open).String()).
				WithDetail("current_debt", openBalance(open).String())
		}

		resp = &domain.DebtPaymentResponse{
			AmountApplied:        result.AmountApplied,
			CreditReleased:       result.AmountApplied,
			RemainingUnallocated: result.RemainingUnallocated,
			AppliedItems:         result.Breakdown,
		}

		if result.AmountApplied.IsPositive() {
			now := s.now()
			for _, item := range applyAllocation(open, result, now) {
				if err := repos.DebtItems().UpdatePaidAmount(ctx, item); err != nil {
					return err
				}
			}

			payment := &domain.Payment{
				ID:               uuid.New(),
				AssociateID:      associateID,
				PaymentType:      domain.PaymentTypeAccumulatedDebt,
				PaymentAmount:    result.AmountApplied,
				PaymentDate:      now,
				PaymentMethod:    request.PaymentMethod,
				PaymentReference: request.PaymentReference,
				Notes:            request.Notes,
				AppliedBreakdown: result.Breakdown,
				CreatedAt:        now,
			}

			current, err := repos.Periods().GetCurrent(ctx)
			switch {
			case err == nil:
				payment.PeriodID = &current.ID
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}

			if err := repos.Payments().Create(ctx, payment); err != nil {
				return err
			}
			resp.Payment = payment
		}

		summary, _, err := summarize(ctx, repos, associateID)
		if err != nil {
			return err
		}
		resp.RemainingDebt = summary.TotalDebt
		return nil
	})
	if err != nil {
		if errors.Is(err, customError.ErrInsufficientCredit) {
			s.metrics.Unallocated(string(OverpaymentReject), request.PaymentAmount)
		}
		return nil, err
	}

	s.metrics.PaymentRecorded(string(domain.PaymentTypeAccumulatedDebt), resp.AmountApplied, liquidatedCount(resp.AppliedItems))
	if resp.RemainingUnallocated.IsPositive() {
		s.metrics.Unallocated(string(OverpaymentReport), resp.RemainingUnallocated)
	}

	event := log.Info().
		Str("associate_id", associateID.String()).
		Str("amount_applied", resp.AmountApplied.String()).
		Str("remaining_unallocated", resp.RemainingUnallocated.String()).
		Int("items", len(resp.AppliedItems))
	if resp.Payment != nil {
		event = event.Str("payment_id", resp.Payment.ID.String())
	}
	event.Msg("debt payment registered")

	return resp, nil
}

// reverseBreakdown undoes what a payment applied, flooring at zero
func reverseBreakdown(ctx context.Context, repos repository.Repositories, payment *domain.Payment, requireOwner *uuid.UUID, at time.Time) error {
	for _, line := range payment.AppliedBreakdown {
		item, err := repos.DebtItems().GetByID(ctx, line.DebtItemID)
		if err != nil {
			return err
		}

		if !sameOwner(item.OwnerAgreementID, requireOwner) {
			return customError.WrapInvalidState("debt item "+item.ID.String(), string(item.Owner()), ownerName(requireOwner)).
				WithDetail("debt_item_id", item.ID.String())
		}

		paid := item.PaidAmount.Sub(line.AmountApplied)
		if paid.IsNegative() {
			paid = decimal.Zero
		}
		item.PaidAmount = paid
		item.UpdatedAt = at
		if err := repos.DebtItems().UpdatePaidAmount(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func sameOwner(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func ownerName(owner *uuid.UUID) string {
	if owner == nil {
		return string(domain.OwnerPool)
	}
	return string(domain.OwnerAgreement)
}
