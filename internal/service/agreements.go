package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/credicuenta/debt-ledger/internal/domain"
	"github.com/credicuenta/debt-ledger/internal/repository"
	customError "github.com/credicuenta/debt-ledger/pkg/errors"
	"github.com/credicuenta/debt-ledger/pkg/utils"
)

// CreateAgreement absorbs open pool items into a fixed installment plan
func (s *LedgerService) CreateAgreement(ctx context.Context, request *domain.CreateAgreementRequest) (*domain.AgreementResponse, error) {
	if err := s.validateCreateAgreement(request); err != nil {
		return nil, err
	}

	var agreement *domain.Agreement
	err := s.mutate(ctx, "create_agreement", request.AssociateID, func(repos repository.Repositories) error {
		total := decimal.Zero
		for _, id := range request.DebtItemIDs {
			item, err := repos.DebtItems().GetByID(ctx, id)
			if err != nil {
				return notFound(err, "debt item", id)
			}
			if item.AssociateID != request.AssociateID {
				return customError.WrapValidation("debt_breakdown_ids", "debt item belongs to another associate").
					WithDetail("debt_item_id", id.String())
			}
			if item.IsLiquidated() {
				return customError.WrapValidation("debt_breakdown_ids", "debt item is already liquidated").
					WithDetail("debt_item_id", id.String())
			}
			if item.OwnerAgreementID != nil {
				return customError.WrapValidation("debt_breakdown_ids", "debt item is already in an agreement").
					WithDetail("debt_item_id", id.String()).
					WithDetail("agreement_id", item.OwnerAgreementID.String())
			}
			total = total.Add(item.RemainingAmount())
		}
		if !utils.IsPayablePlan(total, request.PaymentPlanPeriods) {
			return customError.WrapValidation("payment_plan_months", "too many periods for the agreement total").
				WithDetail("value", request.PaymentPlanPeriods).
				WithDetail("total", total.String()).
				WithDetail("max", maxPayablePeriods(total, request.PaymentPlanPeriods))
		}

		now := s.now()
		id := uuid.New()
		agreement = &domain.Agreement{
			ID:                  id,
			AssociateID:         request.AssociateID,
			AgreementNumber:     agreementNumber(now, id),
			Status:              domain.AgreementStatusActive,
			StartDate:           utils.TruncateToDay(request.StartDate),
			PaymentPlanPeriods:  request.PaymentPlanPeriods,
			PeriodPaymentAmount: utils.CalculatePeriodPayment(total, request.PaymentPlanPeriods),
			TotalDebtAmount:     total,
			TotalPaid:           decimal.Zero,
			Notes:               request.Notes,
			ItemIDs:             request.DebtItemIDs,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := repos.Agreements().Create(ctx, agreement); err != nil {
			return err
		}

		for _, itemID := range request.DebtItemIDs {
			if err := repos.DebtItems().UpdateOwner(ctx, itemID, &agreement.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AgreementTransition(string(agreement.Status))
	log.Info().
		Str("associate_id", agreement.AssociateID.String()).
		Str("agreement_id", agreement.ID.String()).
		Str("agreement_number", agreement.AgreementNumber).
		Str("total", agreement.TotalDebtAmount.String()).
		Int("periods", agreement.PaymentPlanPeriods).
		Msg("agreement created")

	return &domain.AgreementResponse{
		Agreement: agreement,
		Schedule:  buildSchedule(agreement, nil, s.now()),
		Payments:  []*domain.Payment{},
	}, nil
}

func (s *LedgerService) validateCreateAgreement(request *domain.CreateAgreementRequest) error {
	if err := validateRequiredID("associate_profile_id", request.AssociateID); err != nil {
		return err
	}
	if len(request.DebtItemIDs) == 0 {
		return customError.WrapValidation("debt_breakdown_ids", "at least one debt item is required")
	}

	seen := make(map[uuid.UUID]bool, len(request.DebtItemIDs))
	for _, id := range request.DebtItemIDs {
		if seen[id] {
			return customError.WrapValidation("debt_breakdown_ids", "duplicated debt item").
				WithDetail("debt_item_id", id.String())
		}
		seen[id] = true
	}

	maxPeriods := s.settings.MaxAgreementPeriods
	if maxPeriods <= 0 || maxPeriods > domain.MaxAgreementPeriods {
		maxPeriods = domain.MaxAgreementPeriods
	}
	if request.PaymentPlanPeriods < domain.MinAgreementPeriods || request.PaymentPlanPeriods > maxPeriods {
		return customError.WrapOutOfRange("payment_plan_months", request.PaymentPlanPeriods, domain.MinAgreementPeriods, maxPeriods)
	}
	if request.StartDate.IsZero() {
		return customError.WrapValidation("start_date", "is required")
	}
	return nil
}

// maxPayablePeriods is the largest plan length below periods whose
// installments are all positive
func maxPayablePeriods(total decimal.Decimal, periods int) int {
	for n := periods - 1; n > 1; n-- {
		if utils.IsPayablePlan(total, n) {
			return n
		}
	}
	return 1
}

// agreementNumber renders CONV-YYYYMMDD-XXXXXX
func agreementNumber(at time.Time, id uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:6])
	return fmt.Sprintf("CONV-%s-%s", at.Format("20060102"), suffix)
}

// RegisterInstallment pays installment paymentNumber of an ACTIVE agreement.
// The installment is applied oldest first across the agreement's own items.
func (s *LedgerService) RegisterInstallment(ctx context.Context, agreementID uuid.UUID, paymentNumber int, data *domain.PaymentData) (*domain.InstallmentPaymentResponse, error) {
	if err := validatePaymentMethod(data.PaymentMethod); err != nil {
		return nil, err
	}
	if err := validatePrecision("payment_amount", data.Amount); err != nil {
		return nil, err
	}
	if data.Amount.IsNegative() {
		return nil, customError.WrapValidation("payment_amount", "must not be negative")
	}

	associateID, err := s.agreementOwner(ctx, agreementID)
	if err != nil {
		return nil, err
	}

	var resp *domain.InstallmentPaymentResponse
	err = s.mutate(ctx, "register_installment", associateID, func(repos repository.Repositories) error {
		agreement, err := repos.Agreements().GetByID(ctx, agreementID)
		if err != nil {
			return notFound(err, "agreement", agreementID)
		}
		if agreement.Status != domain.AgreementStatusActive {
			return customError.WrapInvalidState("agreement "+agreement.AgreementNumber, string(agreement.Status), string(domain.AgreementStatusActive))
		}
		if paymentNumber < 1 || paymentNumber > agreement.PaymentPlanPeriods {
			return customError.WrapOutOfRange("payment_number", paymentNumber, 1, agreement.PaymentPlanPeriods)
		}

		paid, err := repos.Payments().ListByAgreement(ctx, agreementID)
		if err != nil {
			return err
		}
		for _, p := range paid {
			if p.PaymentNumber != nil && *p.PaymentNumber == paymentNumber {
				return customError.WrapInvalidState(fmt.Sprintf("installment %d", paymentNumber), string(domain.InstallmentStatusPaid), string(domain.InstallmentStatusPending)).
					WithDetail("payment_id", p.ID.String())
			}
		}

		amount := utils.InstallmentAmount(agreement.TotalDebtAmount, agreement.PaymentPlanPeriods, paymentNumber)
		if !data.Amount.IsZero() && !data.Amount.Equal(amount) {
			return customError.WrapValidation("payment_amount", "must match the scheduled installment").
				WithDetail("value", data.Amount.String()).
				WithDetail("expected", amount.String())
		}

		items, err := repos.DebtItems().ListByOwnerAgreement(ctx, agreementID)
		if err != nil {
			return err
		}
		result := AllocateFIFO(items, amount)
		if result.RemainingUnallocated.IsPositive() {
			return customError.WrapInsufficientCredit(amount.String(), openBalance(items).String())
		}

		now := s.now()
		for _, item := range applyAllocation(items, result, now) {
			if err := repos.DebtItems().UpdatePaidAmount(ctx, item); err != nil {
				return err
			}
		}

		number := paymentNumber
		payment := &domain.Payment{
			ID:               uuid.New(),
			AssociateID:      agreement.AssociateID,
			PaymentType:      domain.PaymentTypeAgreement,
			PaymentAmount:    amount,
			PaymentDate:      paymentDate(data, now),
			PaymentMethod:    data.PaymentMethod,
			PaymentReference: data.PaymentReference,
			Notes:            data.Notes,
			AgreementID:      &agreement.ID,
			PaymentNumber:    &number,
			AppliedBreakdown: result.Breakdown,
			CreatedAt:        now,
		}
		if err := repos.Payments().Create(ctx, payment); err != nil {
			return err
		}

		agreement.TotalPaid = agreement.TotalPaid.Add(amount)
		if agreement.TotalPaid.GreaterThanOrEqual(agreement.TotalDebtAmount) {
			agreement.Status = domain.AgreementStatusCompleted
		}
		agreement.UpdatedAt = now
		if err := repos.Agreements().Update(ctx, agreement); err != nil {
			return err
		}

		resp = &domain.InstallmentPaymentResponse{Payment: payment, Agreement: agreement}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentRecorded(string(domain.PaymentTypeAgreement), resp.Payment.PaymentAmount, liquidatedCount(resp.Payment.AppliedBreakdown))
	if resp.Agreement.Status == domain.AgreementStatusCompleted {
		s.metrics.AgreementTransition(string(domain.AgreementStatusCompleted))
	}
	log.Info().
		Str("associate_id", associateID.String()).
		Str("agreement_id", agreementID.String()).
		Str("payment_id", resp.Payment.ID.String()).
		Int("payment_number", paymentNumber).
		Str("status", string(resp.Agreement.Status)).
		Msg("agreement installment registered")
	return resp, nil
}

// CancelAgreement ends an ACTIVE agreement and returns its open items to the pool
func (s *LedgerService) CancelAgreement(ctx context.Context, agreementID uuid.UUID, reason string) (*domain.Agreement, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, customError.WrapValidation("reason", "is required")
	}

	associateID, err := s.agreementOwner(ctx, agreementID)
	if err != nil {
		return nil, err
	}

	var agreement *domain.Agreement
	err = s.mutate(ctx, "cancel_agreement", associateID, func(repos repository.Repositories) error {
		var err error
		agreement, err = repos.Agreements().GetByID(ctx, agreementID)
		if err != nil {
			return notFound(err, "agreement", agreementID)
		}
		return s.closeAgreement(ctx, repos, agreement, domain.AgreementStatusCancelled, &reason)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AgreementTransition(string(domain.AgreementStatusCancelled))
	log.Info().
		Str("associate_id", associateID.String()).
		Str("agreement_id", agreementID.String()).
		Msg("agreement cancelled")
	return agreement, nil
}

// closeAgreement moves an ACTIVE agreement to a terminal status and
// releases every item that still has a balance
func (s *LedgerService) closeAgreement(ctx context.Context, repos repository.Repositories, agreement *domain.Agreement, status domain.AgreementStatus, reason *string) error {
	if !agreement.Status.CanTransitionTo(status) || agreement.Status != domain.AgreementStatusActive {
		return customError.WrapInvalidState("agreement "+agreement.AgreementNumber, string(agreement.Status), string(domain.AgreementStatusActive))
	}

	items, err := repos.DebtItems().ListByOwnerAgreement(ctx, agreement.ID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.IsLiquidated() {
			continue
		}
		if err := repos.DebtItems().UpdateOwner(ctx, item.ID, nil); err != nil {
			return err
		}
	}

	agreement.Status = status
	agreement.CancellationReason = reason
	agreement.UpdatedAt = s.now()
	return repos.Agreements().Update(ctx, agreement)
}

func (s *LedgerService) agreementOwner(ctx context.Context, agreementID uuid.UUID) (uuid.UUID, error) {
	var associateID uuid.UUID
	err := s.snapshot(ctx, func(repos repository.Repositories) error {
		agreement, err := repos.Agreements().GetByID(ctx, agreementID)
		if err != nil {
			return notFound(err, "agreement", agreementID)
		}
		associateID = agreement.AssociateID
		return nil
	})
	return associateID, err
}

// GetAgreement returns the agreement with its schedule and installment payments
func (s *LedgerService) GetAgreement(ctx context.Context, agreementID uuid.UUID) (*domain.AgreementResponse, error) {
	var resp *domain.AgreementResponse
	err := s.snapshot(ctx, func(repos repository.Repositories) error {
		agreement, err := repos.Agreements().GetByID(ctx, agreementID)
		if err != nil {
			return notFound(err, "agreement", agreementID)
		}
		payments, err := repos.Payments().ListByAgreement(ctx, agreementID)
		if err != nil {
			return err
		}
		resp = &domain.AgreementResponse{
			Agreement: agreement,
			Schedule:  buildSchedule(agreement, payments, s.now()),
			Payments:  payments,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListAgreements returns the associate's agreements, newest first
func (s *LedgerService) ListAgreements(ctx context.Context, associateID uuid.UUID) ([]*domain.Agreement, error) {
	if err := validateRequiredID("associate_id", associateID); err != nil {
		return nil, err
	}

	var agreements []*domain.Agreement
	err := s.read(ctx, associateID, func(repos repository.Repositories) error {
		var err error
		agreements, err = repos.Agreements().ListByAssociate(ctx, associateID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return agreements, nil
}

// buildSchedule derives the installment rows; due dates are monthly from
// the start date
func buildSchedule(agreement *domain.Agreement, payments []*domain.Payment, now time.Time) []*domain.AgreementInstallment {
	paidBy := make(map[int]uuid.UUID, len(payments))
	for _, p := range payments {
		if p.PaymentNumber != nil {
			paidBy[*p.PaymentNumber] = p.ID
		}
	}

	schedule := make([]*domain.AgreementInstallment, 0, agreement.PaymentPlanPeriods)
	for n := 1; n <= agreement.PaymentPlanPeriods; n++ {
		row := &domain.AgreementInstallment{
			PaymentNumber: n,
			DueDate:       utils.CalculateDueDate(agreement.StartDate, n),
			Amount:        utils.InstallmentAmount(agreement.TotalDebtAmount, agreement.PaymentPlanPeriods, n),
			Status:        domain.InstallmentStatusPending,
		}
		if id, ok := paidBy[n]; ok {
			paymentID := id
			row.Status = domain.InstallmentStatusPaid
			row.PaymentID = &paymentID
		} else if utils.IsDateOverdue(row.DueDate, now) {
			row.Status = domain.InstallmentStatusOverdue
		}
		schedule = append(schedule, row)
	}
	return schedule
}

func paymentDate(data *domain.PaymentData, now time.Time) time.Time {
	if data.PaymentDate != nil && !data.PaymentDate.IsZero() {
		return *data.PaymentDate
	}
	return now
}
