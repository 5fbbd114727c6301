package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodStatus is the lifecycle of a biweekly cut period
type PeriodStatus string

const (
	PeriodStatusPending    PeriodStatus = "PENDING"
	PeriodStatusCollecting PeriodStatus = "COLLECTING"
	PeriodStatusSettling   PeriodStatus = "SETTLING"
	PeriodStatusClosed     PeriodStatus = "CLOSED"
	PeriodStatusArchived   PeriodStatus = "ARCHIVED"
)

var periodOrder = map[PeriodStatus]int{
	PeriodStatusPending:    0,
	PeriodStatusCollecting: 1,
	PeriodStatusSettling:   2,
	PeriodStatusClosed:     3,
	PeriodStatusArchived:   4,
}

// IsValid checks if the status is known
func (s PeriodStatus) IsValid() bool {
	_, ok := periodOrder[s]
	return ok
}

// IsMutable reports whether payments owned by the period may still change
func (s PeriodStatus) IsMutable() bool {
	return s == PeriodStatusCollecting || s == PeriodStatusSettling
}

// CanAdvanceTo allows exactly one step forward
func (s PeriodStatus) CanAdvanceTo(next PeriodStatus) bool {
	cur, ok := periodOrder[s]
	if !ok {
		return false
	}
	nxt, ok := periodOrder[next]
	if !ok {
		return false
	}
	return nxt == cur+1
}

// Period is a billing cut
type Period struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	Code      string       `json:"code" db:"code"`
	StartDate time.Time    `json:"start_date" db:"start_date"`
	EndDate   time.Time    `json:"end_date" db:"end_date"`
	Status    PeriodStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// Statement is what an associate must remit for a period
type Statement struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	AssociateID     uuid.UUID       `json:"associate_id" db:"associate_id"`
	PeriodID        uuid.UUID       `json:"period_id" db:"period_id"`
	TotalDue        decimal.Decimal `json:"total_due" db:"total_due"`
	PaidAmount      decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	CarryoverItemID *uuid.UUID      `json:"carryover_item_id,omitempty" db:"carryover_item_id"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// RemainingBalance is the unpaid part of the statement
func (s *Statement) RemainingBalance() decimal.Decimal {
	return s.TotalDue.Sub(s.PaidAmount)
}

// DTOs for requests and responses

type CreatePeriodRequest struct {
	Code      string    `json:"code" validate:"required,max=30"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

type AdvancePeriodRequest struct {
	Status PeriodStatus `json:"status" validate:"required"`
}

type AdvancePeriodResponse struct {
	Period         *Period         `json:"period"`
	CarriedOver    []*DebtItem     `json:"carried_over"`
	CarryoverTotal decimal.Decimal `json:"carryover_total"`
}

type CreateStatementRequest struct {
	AssociateID uuid.UUID       `json:"associate_id" validate:"required"`
	PeriodID    uuid.UUID       `json:"period_id" validate:"required"`
	TotalDue    decimal.Decimal `json:"total_due" validate:"decimal_gte=0"`
}

type StatementResponse struct {
	Statement        *Statement      `json:"statement"`
	Period           *Period         `json:"period"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Payments         []*Payment      `json:"payments"`
}
