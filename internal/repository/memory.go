package repository

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/credicuenta/debt-ledger/internal/domain"
	"github.com/credicuenta/debt-ledger/internal/lock"
)

// globalLockKey serializes WithinTx units (period rows)
const globalLockKey = "global"

type memoryStore struct {
	mu    sync.RWMutex
	locks *lock.KeyedRWMutex

	debtItems  map[uuid.UUID]domain.DebtItem
	payments   map[uuid.UUID]domain.Payment
	agreements map[uuid.UUID]domain.Agreement
	periods    map[uuid.UUID]domain.Period
	statements map[uuid.UUID]domain.Statement
}

// NewMemoryStore creates an in-process Store with the same transactional
// behaviour as the Postgres one: writes are buffered and become visible
// only when the unit of work succeeds.
func NewMemoryStore() Store {
	return &memoryStore{
		locks:      lock.NewKeyedRWMutex(),
		debtItems:  make(map[uuid.UUID]domain.DebtItem),
		payments:   make(map[uuid.UUID]domain.Payment),
		agreements: make(map[uuid.UUID]domain.Agreement),
		periods:    make(map[uuid.UUID]domain.Period),
		statements: make(map[uuid.UUID]domain.Statement),
	}
}

func (s *memoryStore) WithinAssociateTx(ctx context.Context, associateID uuid.UUID, fn func(Repositories) error) error {
	unlock := s.locks.Lock(associateID.String())
	defer unlock()
	return s.run(ctx, fn)
}

func (s *memoryStore) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	unlock := s.locks.Lock(globalLockKey)
	defer unlock()
	return s.run(ctx, fn)
}

func (s *memoryStore) WithinSnapshot(ctx context.Context, fn func(Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	noop := func() func() { return func() {} }
	return fn(s.newTx(noop, true))
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *memoryStore) Close() error {
	return nil
}

func (s *memoryStore) run(ctx context.Context, fn func(Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rlock := func() func() {
		s.mu.RLock()
		return s.mu.RUnlock
	}
	tx := s.newTx(rlock, false)

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	tx.debtItems.commit()
	tx.payments.commit()
	tx.agreements.commit()
	tx.periods.commit()
	tx.statements.commit()
	s.mu.Unlock()
	return nil
}

type memoryTx struct {
	debtItems  *overlay[domain.DebtItem]
	payments   *overlay[domain.Payment]
	agreements *overlay[domain.Agreement]
	periods    *overlay[domain.Period]
	statements *overlay[domain.Statement]
}

func (s *memoryStore) newTx(rlock func() func(), readOnly bool) *memoryTx {
	return &memoryTx{
		debtItems:  newOverlay(s.debtItems, rlock, readOnly),
		payments:   newOverlay(s.payments, rlock, readOnly),
		agreements: newOverlay(s.agreements, rlock, readOnly),
		periods:    newOverlay(s.periods, rlock, readOnly),
		statements: newOverlay(s.statements, rlock, readOnly),
	}
}

func (tx *memoryTx) DebtItems() DebtItemRepository   { return &memoryDebtItems{t: tx.debtItems} }
func (tx *memoryTx) Payments() PaymentRepository     { return &memoryPayments{t: tx.payments} }
func (tx *memoryTx) Agreements() AgreementRepository { return &memoryAgreements{t: tx.agreements} }
func (tx *memoryTx) Periods() PeriodRepository       { return &memoryPeriods{t: tx.periods} }
func (tx *memoryTx) Statements() StatementRepository { return &memoryStatements{t: tx.statements} }

func uuidLess(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

type memoryDebtItems struct {
	t *overlay[domain.DebtItem]
}

func (r *memoryDebtItems) Create(ctx context.Context, item *domain.DebtItem) error {
	if _, exists := r.t.get(item.ID); exists {
		return ErrDuplicate
	}
	return r.t.put(item.ID, *item)
}

func (r *memoryDebtItems) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebtItem, error) {
	item, ok := r.t.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (r *memoryDebtItems) ListByAssociate(ctx context.Context, associateID uuid.UUID) ([]*domain.DebtItem, error) {
	return r.list(func(d domain.DebtItem) bool {
		return d.AssociateID == associateID
	}), nil
}

func (r *memoryDebtItems) ListOpenPool(ctx context.Context, associateID uuid.UUID) ([]*domain.DebtItem, error) {
	return r.list(func(d domain.DebtItem) bool {
		return d.AssociateID == associateID && d.OwnerAgreementID == nil && d.PaidAmount.LessThan(d.OriginalAmount)
	}), nil
}

func (r *memoryDebtItems) ListByOwnerAgreement(ctx context.Context, agreementID uuid.UUID) ([]*domain.DebtItem, error) {
	return r.list(func(d domain.DebtItem) bool {
		return d.OwnerAgreementID != nil && *d.OwnerAgreementID == agreementID
	}), nil
}

func (r *memoryDebtItems) UpdatePaidAmount(ctx context.Context, item *domain.DebtItem) error {
	current, ok := r.t.get(item.ID)
	if !ok {
		return ErrNotFound
	}
	current.PaidAmount = item.PaidAmount
	current.UpdatedAt = item.UpdatedAt
	return r.t.put(current.ID, current)
}

func (r *memoryDebtItems) UpdateOwner(ctx context.Context, id uuid.UUID, agreementID *uuid.UUID) error {
	current, ok := r.t.get(id)
	if !ok {
		return ErrNotFound
	}
	if agreementID != nil {
		owner := *agreementID
		current.OwnerAgreementID = &owner
	} else {
		current.OwnerAgreementID = nil
	}
	return r.t.put(id, current)
}

func (r *memoryDebtItems) list(keep func(domain.DebtItem) bool) []*domain.DebtItem {
	rows := r.t.filter(keep)
	items := make([]*domain.DebtItem, len(rows))
	for i := range rows {
		items[i] = &rows[i]
	}
	sort.Slice(items, func(i, j int) bool {
		return domain.FIFOLess(items[i], items[j])
	})
	return items
}

type memoryPayments struct {
	t *overlay[domain.Payment]
}

func (r *memoryPayments) Create(ctx context.Context, payment *domain.Payment) error {
	if _, exists := r.t.get(payment.ID); exists {
		return ErrDuplicate
	}
	if payment.AgreementID != nil && payment.PaymentNumber != nil {
		clash := r.t.filter(func(p domain.Payment) bool {
			return p.AgreementID != nil && *p.AgreementID == *payment.AgreementID &&
				p.PaymentNumber != nil && *p.PaymentNumber == *payment.PaymentNumber
		})
		if len(clash) > 0 {
			return ErrDuplicate
		}
	}

	stored := *payment
	stored.AppliedBreakdown = append([]domain.AppliedItem{}, payment.AppliedBreakdown...)
	return r.t.put(stored.ID, stored)
}

func (r *memoryPayments) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, ok := r.t.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &payment, nil
}

func (r *memoryPayments) ListByAssociate(ctx context.Context, associateID uuid.UUID, paymentType *domain.PaymentType) ([]*domain.Payment, error) {
	return r.newestFirst(func(p domain.Payment) bool {
		return p.AssociateID == associateID && (paymentType == nil || p.PaymentType == *paymentType)
	}), nil
}

func (r *memoryPayments) ListByStatement(ctx context.Context, statementID uuid.UUID) ([]*domain.Payment, error) {
	return r.newestFirst(func(p domain.Payment) bool {
		return p.StatementID != nil && *p.StatementID == statementID
	}), nil
}

func (r *memoryPayments) ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]*domain.Payment, error) {
	rows := r.t.filter(func(p domain.Payment) bool {
		return p.AgreementID != nil && *p.AgreementID == agreementID
	})
	payments := make([]*domain.Payment, len(rows))
	for i := range rows {
		payments[i] = &rows[i]
	}
	sort.Slice(payments, func(i, j int) bool {
		return paymentNumber(payments[i]) < paymentNumber(payments[j])
	})
	return payments, nil
}

func (r *memoryPayments) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.t.get(id); !ok {
		return ErrNotFound
	}
	return r.t.remove(id)
}

func (r *memoryPayments) newestFirst(keep func(domain.Payment) bool) []*domain.Payment {
	rows := r.t.filter(keep)
	payments := make([]*domain.Payment, len(rows))
	for i := range rows {
		payments[i] = &rows[i]
	}
	sort.Slice(payments, func(i, j int) bool {
		a, b := payments[i], payments[j]
		if !a.PaymentDate.Equal(b.PaymentDate) {
			return a.PaymentDate.After(b.PaymentDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return uuidLess(b.ID, a.ID)
	})
	return payments
}

func paymentNumber(p *domain.Payment) int {
	if p.PaymentNumber == nil {
		return 0
	}
	return *p.PaymentNumber
}

type memoryAgreements struct {
	t *overlay[domain.Agreement]
}

func (r *memoryAgreements) Create(ctx context.Context, agreement *domain.Agreement) error {
	if _, exists := r.t.get(agreement.ID); exists {
		return ErrDuplicate
	}
	stored := *agreement
	stored.ItemIDs = append([]uuid.UUID{}, agreement.ItemIDs...)
	return r.t.put(stored.ID, stored)
}

func (r *memoryAgreements) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agreement, error) {
	agreement, ok := r.t.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &agreement, nil
}

func (r *memoryAgreements) Update(ctx context.Context, agreement *domain.Agreement) error {
	current, ok := r.t.get(agreement.ID)
	if !ok {
		return ErrNotFound
	}
	current.Status = agreement.Status
	current.TotalPaid = agreement.TotalPaid
	current.CancellationReason = agreement.CancellationReason
	current.UpdatedAt = agreement.UpdatedAt
	return r.t.put(current.ID, current)
}

func (r *memoryAgreements) ListByAssociate(ctx context.Context, associateID uuid.UUID) ([]*domain.Agreement, error) {
	agreements := r.list(func(a domain.Agreement) bool { return a.AssociateID == associateID })
	sort.Slice(agreements, func(i, j int) bool {
		a, b := agreements[i], agreements[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return uuidLess(b.ID, a.ID)
	})
	return agreements, nil
}

func (r *memoryAgreements) ListByStatus(ctx context.Context, status domain.AgreementStatus) ([]*domain.Agreement, error) {
	agreements := r.list(func(a domain.Agreement) bool { return a.Status == status })
	sort.Slice(agreements, func(i, j int) bool {
		a, b := agreements[i], agreements[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return uuidLess(a.ID, b.ID)
	})
	return agreements, nil
}

func (r *memoryAgreements) list(keep func(domain.Agreement) bool) []*domain.Agreement {
	rows := r.t.filter(keep)
	agreements := make([]*domain.Agreement, len(rows))
	for i := range rows {
		agreements[i] = &rows[i]
	}
	return agreements
}

type memoryPeriods struct {
	t *overlay[domain.Period]
}

func (r *memoryPeriods) Create(ctx context.Context, period *domain.Period) error {
	if _, exists := r.t.get(period.ID); exists {
		return ErrDuplicate
	}
	clash := r.t.filter(func(p domain.Period) bool { return p.Code == period.Code })
	if len(clash) > 0 {
		return ErrDuplicate
	}
	return r.t.put(period.ID, *period)
}

func (r *memoryPeriods) GetByID(ctx context.Context, id uuid.UUID) (*domain.Period, error) {
	period, ok := r.t.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &period, nil
}

func (r *memoryPeriods) GetCurrent(ctx context.Context) (*domain.Period, error) {
	rows := r.t.filter(func(p domain.Period) bool { return p.Status == domain.PeriodStatusCollecting })
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	current := rows[0]
	for _, p := range rows[1:] {
		if p.StartDate.After(current.StartDate) {
			current = p
		}
	}
	return &current, nil
}

func (r *memoryPeriods) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PeriodStatus) error {
	current, ok := r.t.get(id)
	if !ok {
		return ErrNotFound
	}
	current.Status = status
	return r.t.put(id, current)
}

type memoryStatements struct {
	t *overlay[domain.Statement]
}

func (r *memoryStatements) Create(ctx context.Context, statement *domain.Statement) error {
	if _, exists := r.t.get(statement.ID); exists {
		return ErrDuplicate
	}
	return r.t.put(statement.ID, *statement)
}

func (r *memoryStatements) GetByID(ctx context.Context, id uuid.UUID) (*domain.Statement, error) {
	statement, ok := r.t.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &statement, nil
}

func (r *memoryStatements) ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Statement, error) {
	rows := r.t.filter(func(s domain.Statement) bool { return s.PeriodID == periodID })
	statements := make([]*domain.Statement, len(rows))
	for i := range rows {
		statements[i] = &rows[i]
	}
	sort.Slice(statements, func(i, j int) bool {
		a, b := statements[i], statements[j]
		if a.AssociateID != b.AssociateID {
			return uuidLess(a.AssociateID, b.AssociateID)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return statements, nil
}

func (r *memoryStatements) Update(ctx context.Context, statement *domain.Statement) error {
	current, ok := r.t.get(statement.ID)
	if !ok {
		return ErrNotFound
	}
	current.PaidAmount = statement.PaidAmount
	current.CarryoverItemID = statement.CarryoverItemID
	current.UpdatedAt = statement.UpdatedAt
	return r.t.put(current.ID, current)
}
