package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	customError "github.com/credicuenta/debt-ledger/pkg/errors"
)

// Postgres error codes that mean "another transaction won, try again"
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a Store backed by PostgreSQL. Associate
// transactions take a transaction scoped advisory lock so that every
// instance of the service serializes writes for the same associate.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) WithinAssociateTx(ctx context.Context, associateID uuid.UUID, fn func(Repositories) error) error {
	return s.runTx(ctx, nil, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, associateID.String()); err != nil {
			return err
		}
		return fn(newPostgresRepositories(tx))
	})
}

func (s *postgresStore) WithinSnapshot(ctx context.Context, fn func(Repositories) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	return s.runTx(ctx, opts, func(tx *sqlx.Tx) error {
		return fn(newPostgresRepositories(tx))
	})
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	return s.runTx(ctx, nil, func(tx *sqlx.Tx) error {
		return fn(newPostgresRepositories(tx))
	})
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

func (s *postgresStore) runTx(ctx context.Context, opts *sql.TxOptions, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return translateError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return translateError(err)
	}

	if err := tx.Commit(); err != nil {
		return translateError(err)
	}
	return nil
}

// translateError maps driver errors that callers must react to
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected:
			return customError.WrapConcurrencyConflict(err)
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		}
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// execOne runs a statement that must touch exactly one row
func execOne(ctx context.Context, db sqlx.ExecerContext, query string, args ...interface{}) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

type postgresRepositories struct {
	debtItems  *debtItemRepository
	payments   *paymentRepository
	agreements *agreementRepository
	periods    *periodRepository
	statements *statementRepository
}

func newPostgresRepositories(db sqlx.ExtContext) *postgresRepositories {
	return &postgresRepositories{
		debtItems:  &debtItemRepository{db: db},
		payments:   &paymentRepository{db: db},
		agreements: &agreementRepository{db: db},
		periods:    &periodRepository{db: db},
		statements: &statementRepository{db: db},
	}
}

func (r *postgresRepositories) DebtItems() DebtItemRepository   { return r.debtItems }
func (r *postgresRepositories) Payments() PaymentRepository     { return r.payments }
func (r *postgresRepositories) Agreements() AgreementRepository { return r.agreements }
func (r *postgresRepositories) Periods() PeriodRepository       { return r.periods }
func (r *postgresRepositories) Statements() StatementRepository { return r.statements }
