package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/credicuenta/debt-ledger/internal/domain"
	"github.com/credicuenta/debt-ledger/internal/repository"
	customError "github.com/credicuenta/debt-ledger/pkg/errors"
)

// summarize computes the debt summary from the associate's items. Debt
// counts items still in the pool plus items held by an ACTIVE agreement.
func summarize(ctx context.Context, repos repository.Repositories, associateID uuid.UUID) (*domain.DebtSummary, []*domain.DebtItem, error) {
	items, err := repos.DebtItems().ListByAssociate(ctx, associateID)
	if err != nil {
		return nil, nil, err
	}
	agreements, err := repos.Agreements().ListByAssociate(ctx, associateID)
	if err != nil {
		return nil, nil, err
	}

	active := make(map[uuid.UUID]bool)
	for _, a := range agreements {
		if a.Status == domain.AgreementStatusActive {
			active[a.ID] = true
		}
	}

	summary := &domain.DebtSummary{
		AssociateID:      associateID,
		TotalDebt:        decimal.Zero,
		InAgreementDebt:  decimal.Zero,
		TotalPaidDebt:    decimal.Zero,
		ActiveAgreements: len(active),
	}

	for _, item := range items {
		summary.TotalPaidDebt = summary.TotalPaidDebt.Add(item.PaidAmount)
		if item.IsLiquidated() {
			summary.LiquidatedItems++
			continue
		}

		balance := item.RemainingAmount()
		switch {
		case item.OwnerAgreementID == nil:
			summary.TotalDebt = summary.TotalDebt.Add(balance)
			summary.PendingItems++
		case active[*item.OwnerAgreementID]:
			summary.TotalDebt = summary.TotalDebt.Add(balance)
			summary.InAgreementDebt = summary.InAgreementDebt.Add(balance)
			summary.PendingItems++
		}
	}
	return summary, items, nil
}

// GetDebtSummary returns the summary, served from cache when possible
func (s *LedgerService) GetDebtSummary(ctx context.Context, associateID uuid.UUID) (*domain.DebtSummary, error) {
	if err := validateRequiredID("associate_id", associateID); err != nil {
		return nil, err
	}

	unlock := s.locks.RLock(associateID.String())
	defer unlock()

	generation, cacheable := s.summaryGeneration(ctx, associateID)
	if cacheable {
		cached, err := s.cache.GetSummary(ctx, associateID, generation)
		if err != nil {
			log.Warn().Err(customError.WrapCacheError(err)).
				Str("associate_id", associateID.String()).
				Msg("debt summary cache unavailable, recomputing")
		}
		if cached != nil {
			s.metrics.SummaryCache(true)
			return cached, nil
		}
	}
	s.metrics.SummaryCache(false)

	var summary *domain.DebtSummary
	err := storeError(s.store.WithinSnapshot(ctx, func(repos repository.Repositories) error {
		var err error
		summary, _, err = summarize(ctx, repos, associateID)
		return err
	}))
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.storeSummary(ctx, summary, generation)
	}
	return summary, nil
}

// GetConsolidatedDebt returns what the associate owes across the pool and
// active agreements
func (s *LedgerService) GetConsolidatedDebt(ctx context.Context, associateID uuid.UUID) (*domain.ConsolidatedDebtResponse, error) {
	summary, err := s.GetDebtSummary(ctx, associateID)
	if err != nil {
		return nil, err
	}
	return &domain.ConsolidatedDebtResponse{
		AssociateID: associateID,
		TotalDebt:   summary.TotalDebt,
	}, nil
}

// GetDebtBreakdown returns the summary with every item and the accumulated
// debt payments, newest first
func (s *LedgerService) GetDebtBreakdown(ctx context.Context, associateID uuid.UUID) (*domain.DebtBreakdownResponse, error) {
	defer s.metrics.ObserveOperation("get_debt_breakdown", time.Now())

	if err := validateRequiredID("associate_id", associateID); err != nil {
		return nil, err
	}

	unlock := s.locks.RLock(associateID.String())
	defer unlock()

	generation, cacheable := s.summaryGeneration(ctx, associateID)

	var resp *domain.DebtBreakdownResponse
	err := storeError(s.store.WithinSnapshot(ctx, func(repos repository.Repositories) error {
		summary, items, err := summarize(ctx, repos, associateID)
		if err != nil {
			return err
		}

		debtType := domain.PaymentTypeAccumulatedDebt
		payments, err := repos.Payments().ListByAssociate(ctx, associateID, &debtType)
		if err != nil {
			return err
		}

		resp = &domain.DebtBreakdownResponse{
			Summary:      *summary,
			DebtItems:    toViews(items),
			DebtPayments: payments,
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	if cacheable {
		summary := resp.Summary
		s.storeSummary(ctx, &summary, generation)
	}
	return resp, nil
}

// summaryGeneration reads the cache generation before a summary is computed.
// Writers in other processes bump it after committing, so a summary stored
// under the generation read here is never served once it is stale.
func (s *LedgerService) summaryGeneration(ctx context.Context, associateID uuid.UUID) (int64, bool) {
	generation, err := s.cache.Generation(ctx, associateID)
	if err != nil {
		log.Warn().Err(customError.WrapCacheError(err)).
			Str("associate_id", associateID.String()).
			Msg("debt summary cache unavailable, recomputing")
		return 0, false
	}
	return generation, true
}

func (s *LedgerService) storeSummary(ctx context.Context, summary *domain.DebtSummary, generation int64) {
	if err := s.cache.SetSummary(ctx, summary, generation); err != nil {
		log.Warn().Err(customError.WrapCacheError(err)).
			Str("associate_id", summary.AssociateID.String()).
			Msg("failed to cache debt summary")
	}
}
