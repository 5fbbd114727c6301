package service

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/credicuenta/debt-ledger/internal/domain"
)

// AllocateFIFO spreads amount over items oldest first. Each item takes
// min(remaining amount, item balance); allocation stops when the amount is
// exhausted. Items with nothing left to pay are skipped. The input slice
// and its items are left untouched.
func AllocateFIFO(items []*domain.DebtItem, amount decimal.Decimal) domain.AllocationResult {
	sorted := make([]*domain.DebtItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return domain.FIFOLess(sorted[i], sorted[j])
	})

	remaining := amount
	breakdown := make([]domain.AppliedItem, 0)
	applied := decimal.Zero

	for _, item := range sorted {
		if !remaining.IsPositive() {
			break
		}

		balance := item.RemainingAmount()
		if !balance.IsPositive() {
			continue
		}

		portion := decimal.Min(remaining, balance)
		balanceAfter := balance.Sub(portion)

		breakdown = append(breakdown, domain.AppliedItem{
			DebtItemID:    item.ID,
			AmountApplied: portion,
			Liquidated:    balanceAfter.IsZero(),
			RemainingDebt: balanceAfter,
		})

		remaining = remaining.Sub(portion)
		applied = applied.Add(portion)
	}

	return domain.AllocationResult{
		Breakdown:            breakdown,
		AmountApplied:        applied,
		RemainingUnallocated: remaining,
	}
}

// applyAllocation raises paid_amount on the allocated items and returns
// the ones that changed
func applyAllocation(items []*domain.DebtItem, result domain.AllocationResult, at time.Time) []*domain.DebtItem {
	byID := make(map[uuid.UUID]*domain.DebtItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	changed := make([]*domain.DebtItem, 0, len(result.Breakdown))
	for _, line := range result.Breakdown {
		item := byID[line.DebtItemID]
		item.PaidAmount = item.PaidAmount.Add(line.AmountApplied)
		item.UpdatedAt = at
		changed = append(changed, item)
	}
	return changed
}

func liquidatedCount(breakdown []domain.AppliedItem) int {
	n := 0
	for _, line := range breakdown {
		if line.Liquidated {
			n++
		}
	}
	return n
}

func openBalance(items []*domain.DebtItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if balance := item.RemainingAmount(); balance.IsPositive() {
			total = total.Add(balance)
		}
	}
	return total
}
