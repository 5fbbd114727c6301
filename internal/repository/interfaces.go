package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/credicuenta/debt-ledger/internal/domain"
)

var (
	// ErrNotFound is returned by every repository when a row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate record")
	// ErrReadOnly is returned when writing through a snapshot
	ErrReadOnly = errors.New("read-only transaction")
)

// DebtItemRepository defines the interface for debt item data operations
type DebtItemRepository interface {
	// Create creates a new debt item
	Create(ctx context.Context, item *domain.DebtItem) error

	// GetByID retrieves a debt item by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DebtItem, error)

	// ListByAssociate retrieves every item of an associate in FIFO order
	ListByAssociate(ctx context.Context, associateID uuid.UUID) ([]*domain.DebtItem, error)

	// ListOpenPool retrieves the open items in the general pool in FIFO order
	ListOpenPool(ctx context.Context, associateID uuid.UUID) ([]*domain.DebtItem, error)

	// ListByOwnerAgreement retrieves the items absorbed by an agreement in FIFO order
	ListByOwnerAgreement(ctx context.Context, agreementID uuid.UUID) ([]*domain.DebtItem, error)

	// UpdatePaidAmount stores a new paid amount for an item
	UpdatePaidAmount(ctx context.Context, item *domain.DebtItem) error

	// UpdateOwner moves an item into an agreement or back to the pool (nil)
	UpdateOwner(ctx context.Context, id uuid.UUID, agreementID *uuid.UUID) error
}

// PaymentRepository defines the interface for ledger operations
type PaymentRepository interface {
	// Create appends a payment and its breakdown
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment with its breakdown
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// ListByAssociate retrieves payments newest first, optionally filtered by type
	ListByAssociate(ctx context.Context, associateID uuid.UUID, paymentType *domain.PaymentType) ([]*domain.Payment, error)

	// ListByStatement retrieves the payments made against a statement
	ListByStatement(ctx context.Context, statementID uuid.UUID) ([]*domain.Payment, error)

	// ListByAgreement retrieves the installments paid on an agreement
	ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]*domain.Payment, error)

	// Delete removes a payment and its breakdown
	Delete(ctx context.Context, id uuid.UUID) error
}

// AgreementRepository defines the interface for agreement data operations
type AgreementRepository interface {
	// Create creates a new agreement and links its items
	Create(ctx context.Context, agreement *domain.Agreement) error

	// GetByID retrieves an agreement
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Agreement, error)

	// Update stores status, totals and cancellation reason
	Update(ctx context.Context, agreement *domain.Agreement) error

	// ListByAssociate retrieves the agreements of an associate, newest first
	ListByAssociate(ctx context.Context, associateID uuid.UUID) ([]*domain.Agreement, error)

	// ListByStatus retrieves agreements in a given status
	ListByStatus(ctx context.Context, status domain.AgreementStatus) ([]*domain.Agreement, error)
}

// PeriodRepository defines the interface for period data operations
type PeriodRepository interface {
	// Create creates a new period
	Create(ctx context.Context, period *domain.Period) error

	// GetByID retrieves a period
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Period, error)

	// GetCurrent retrieves the most recent period in COLLECTING status
	GetCurrent(ctx context.Context) (*domain.Period, error)

	// UpdateStatus changes the status of a period
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PeriodStatus) error
}

// StatementRepository defines the interface for statement data operations
type StatementRepository interface {
	// Create creates a new statement
	Create(ctx context.Context, statement *domain.Statement) error

	// GetByID retrieves a statement
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Statement, error)

	// ListByPeriod retrieves every statement of a period
	ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Statement, error)

	// Update stores paid amount and carryover reference
	Update(ctx context.Context, statement *domain.Statement) error
}

// Repositories groups the repositories bound to one unit of work
type Repositories interface {
	DebtItems() DebtItemRepository
	Payments() PaymentRepository
	Agreements() AgreementRepository
	Periods() PeriodRepository
	Statements() StatementRepository
}

// Store gives access to repositories inside transactions.
//
// WithinAssociateTx runs fn in a read-write transaction that holds the
// associate's lock; fn's writes are committed only when it returns nil.
// WithinSnapshot runs fn against a consistent read-only view.
// WithinTx runs fn in a read-write transaction without an associate lock,
// used for rows that are not owned by an associate (periods).
type Store interface {
	WithinAssociateTx(ctx context.Context, associateID uuid.UUID, fn func(Repositories) error) error
	WithinSnapshot(ctx context.Context, fn func(Repositories) error) error
	WithinTx(ctx context.Context, fn func(Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}
