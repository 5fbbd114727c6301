package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/credicuenta/debt-ledger/internal/domain"
	"github.com/credicuenta/debt-ledger/internal/repository"
	customError "github.com/credicuenta/debt-ledger/pkg/errors"
)

// DefaultOverdueAgreements marks as DEFAULTED every ACTIVE agreement with at
// least DefaultThreshold consecutive overdue installments and returns their
// open items to the pool. It returns how many agreements were defaulted.
func (s *LedgerService) DefaultOverdueAgreements(ctx context.Context, now time.Time) (int, error) {
	var candidates []*domain.Agreement
	err := s.snapshot(ctx, func(repos repository.Repositories) error {
		active, err := repos.Agreements().ListByStatus(ctx, domain.AgreementStatusActive)
		if err != nil {
			return err
		}
		for _, agreement := range active {
			payments, err := repos.Payments().ListByAgreement(ctx, agreement.ID)
			if err != nil {
				return err
			}
			if s.isDelinquent(agreement, payments, now) {
				candidates = append(candidates, agreement)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	defaulted := 0
	var errs []error
	for _, candidate := range candidates {
		agreementID := candidate.ID
		changed := false

		err := s.mutate(ctx, "default_agreement", candidate.AssociateID, func(repos repository.Repositories) error {
			changed = false
			agreement, err := repos.Agreements().GetByID(ctx, agreementID)
			if err != nil {
				return notFound(err, "agreement", agreementID)
			}
			if agreement.Status != domain.AgreementStatusActive {
				return nil
			}
			payments, err := repos.Payments().ListByAgreement(ctx, agreementID)
			if err != nil {
				return err
			}
			if !s.isDelinquent(agreement, payments, now) {
				return nil
			}
			changed = true
			return s.closeAgreement(ctx, repos, agreement, domain.AgreementStatusDefaulted, nil)
		})
		if err != nil {
			log.Error().Err(err).
				Str("agreement_id", agreementID.String()).
				Msg("failed to default agreement")
			errs = append(errs, err)
			continue
		}
		if !changed {
			continue
		}

		defaulted++
		s.metrics.AgreementTransition(string(domain.AgreementStatusDefaulted))
		log.Warn().
			Str("associate_id", candidate.AssociateID.String()).
			Str("agreement_id", agreementID.String()).
			Str("agreement_number", candidate.AgreementNumber).
			Msg("agreement defaulted")
	}

	if err := errors.Join(errs...); err != nil {
		return defaulted, customError.WrapDatabaseError(err)
	}
	return defaulted, nil
}

// isDelinquent reports whether the schedule has a run of consecutive
// overdue installments reaching the configured threshold
func (s *LedgerService) isDelinquent(agreement *domain.Agreement, payments []*domain.Payment, now time.Time) bool {
	threshold := s.settings.DefaultThreshold
	if threshold <= 0 {
		return false
	}

	run := 0
	for _, row := range buildSchedule(agreement, payments, now) {
		if row.Status != domain.InstallmentStatusOverdue {
			run = 0
			continue
		}
		run++
		if run >= threshold {
			return true
		}
	}
	return false
}
