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

// AddDebtItem records a new amount owed by the associate in the general pool
func (s *LedgerService) AddDebtItem(ctx context.Context, associateID uuid.UUID, request *domain.AddDebtItemRequest) (*domain.DebtItem, error) {
	if err := validateRequiredID("associate_id", associateID); err != nil {
		return nil, err
	}
	if !request.Concept.IsValid() {
		return nil, customError.WrapValidation("concept", "unknown debt concept").
			WithDetail("value", string(request.Concept))
	}
	if err := validatePositiveAmount("amount", request.Amount); err != nil {
		return nil, err
	}

	var item *domain.DebtItem
	err := s.mutate(ctx, "add_debt_item", associateID, func(repos repository.Repositories) error {
		now := s.now()
		item = &domain.DebtItem{
			ID:                uuid.New(),
			AssociateID:       associateID,
			Concept:           request.Concept,
			Description:       request.Description,
			OriginalAmount:    request.Amount,
			PaidAmount:        decimal.Zero,
			StatementID:       request.StatementID,
			LoanID:            request.LoanID,
			OriginAgreementID: request.OriginAgreementID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return repos.DebtItems().Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("associate_id", associateID.String()).
		Str("debt_item_id", item.ID.String()).
		Str("concept", string(item.Concept)).
		Str("amount", item.OriginalAmount.String()).
		Msg("debt item added")
	return item, nil
}

// ListDebtItems returns every item of the associate, oldest first
func (s *LedgerService) ListDebtItems(ctx context.Context, associateID uuid.UUID) ([]domain.DebtItemView, error) {
	var items []*domain.DebtItem
	err := s.read(ctx, associateID, func(repos repository.Repositories) error {
		var err error
		items, err = repos.DebtItems().ListByAssociate(ctx, associateID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toViews(items), nil
}

// ListOpenItems returns the pool items with a balance, in allocation order
func (s *LedgerService) ListOpenItems(ctx context.Context, associateID uuid.UUID) ([]domain.DebtItemView, error) {
	var items []*domain.DebtItem
	err := s.read(ctx, associateID, func(repos repository.Repositories) error {
		var err error
		items, err = repos.DebtItems().ListOpenPool(ctx, associateID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toViews(items), nil
}

func toViews(items []*domain.DebtItem) []domain.DebtItemView {
	views := make([]domain.DebtItemView, 0, len(items))
	for _, item := range items {
		views = append(views, domain.NewDebtItemView(item))
	}
	return views
}
