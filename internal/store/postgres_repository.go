/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` and
 * `CustomerDirectory` interfaces. All money movement happens inside database
 * transactions with row locks so that concurrent operations on the same
 * account serialize instead of losing updates.
 *
 * @dependencies
 * - context, errors, fmt, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/google/uuid: Ledger record ids.
 * - internal/domain: Domain models and the error taxonomy.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SamMDev/Console-Banking-App/internal/domain"
)

const (
	pgUniqueViolation  = "23505"
	pgCheckViolation   = "23514"
	pgLockNotAvailable = "55P03"
)

// PostgresRepository is a concrete implementation of the Repository interface
// for PostgreSQL.
type PostgresRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresRepository creates a new instance of PostgresRepository.
// lockTimeout bounds how long a mutation waits for a contended row before the
// operation surfaces as domain.ErrBusy.
func NewPostgresRepository(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresRepository {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &PostgresRepository{db: db, lockTimeout: lockTimeout}
}

// Migrate creates the schema if it does not exist yet. The balances table
// carries the non-negative check so the invariant holds even if a caller
// bypasses the service layer.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS customers (
			id          BIGSERIAL PRIMARY KEY,
			first_name  TEXT NOT NULL,
			last_name   TEXT NOT NULL,
			email       TEXT NOT NULL UNIQUE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS balances (
			customer_id BIGINT PRIMARY KEY,
			balance     BIGINT NOT NULL CHECK (balance >= 0),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS payments (
			id          UUID PRIMARY KEY,
			sender_id   BIGINT NOT NULL,
			receiver_id BIGINT NOT NULL,
			amount      BIGINT NOT NULL CHECK (amount > 0),
			created_at  TIMESTAMPTZ NOT NULL,
			seq         BIGSERIAL
		);
		CREATE INDEX IF NOT EXISTS payments_sender_idx ON payments (sender_id, seq);
		CREATE INDEX IF NOT EXISTS payments_receiver_idx ON payments (receiver_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// GetBalance reads the stored balance for a customer.
func (r *PostgresRepository) GetBalance(ctx context.Context, customerID int64) (domain.Money, error) {
	var balance int64
	err := r.db.QueryRow(ctx, "SELECT balance FROM balances WHERE customer_id = $1", customerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("fetching balance for customer %d: %w", customerID, err)
	}
	return domain.Money(balance), nil
}

// SetBalance overwrites the stored balance. The store is a raw key/value
// surface: the non-negative precondition is the caller's responsibility, but
// the table check rejects negative writes outright.
func (r *PostgresRepository) SetBalance(ctx context.Context, customerID int64, amount domain.Money) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classifyWriteErr(fmt.Errorf("beginning balance update transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := r.applyLockTimeout(ctx, tx); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, "UPDATE balances SET balance = $1, updated_at = NOW() WHERE customer_id = $2", int64(amount), customerID)
	if err != nil {
		return classifyWriteErr(fmt.Errorf("updating balance for customer %d: %w", customerID, err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyWriteErr(fmt.Errorf("committing balance update for customer %d: %w", customerID, err))
	}
	return nil
}

// CreateBalance opens a balance row for a newly registered customer.
func (r *PostgresRepository) CreateBalance(ctx context.Context, customerID int64, initial domain.Money) error {
	_, err := r.db.Exec(ctx, "INSERT INTO balances (customer_id, balance) VALUES ($1, $2)", customerID, int64(initial))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrAlreadyExists
		}
		return classifyWriteErr(fmt.Errorf("creating balance for customer %d: %w", customerID, err))
	}
	return nil
}

// DebitBalance performs an atomic debit on a customer's balance. The funds
// check and the write happen under the same row lock.
func (r *PostgresRepository) DebitBalance(ctx context.Context, customerID int64, amount domain.Money) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classifyWriteErr(fmt.Errorf("beginning debit transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := r.applyLockTimeout(ctx, tx); err != nil {
		return err
	}

	var balance int64
	// FOR UPDATE locks the row so a concurrent debit cannot read the same
	// pre-debit balance.
	err = tx.QueryRow(ctx, "SELECT balance FROM balances WHERE customer_id = $1 FOR UPDATE", customerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return classifyWriteErr(fmt.Errorf("locking balance for customer %d: %w", customerID, err))
	}

	if balance < int64(amount) {
		return domain.ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx, "UPDATE balances SET balance = balance - $1, updated_at = NOW() WHERE customer_id = $2", int64(amount), customerID)
	if err != nil {
		return classifyWriteErr(fmt.Errorf("debiting customer %d: %w", customerID, err))
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyWriteErr(fmt.Errorf("committing debit for customer %d: %w", customerID, err))
	}
	return nil
}

// CreditBalance performs an atomic credit on a customer's balance. The
// update queues on the row lock like any other mutation, so the wait is
// bounded by lock_timeout and surfaces as Busy instead of blocking behind a
// long transfer transaction.
func (r *PostgresRepository) CreditBalance(ctx context.Context, customerID int64, amount domain.Money) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classifyWriteErr(fmt.Errorf("beginning credit transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := r.applyLockTimeout(ctx, tx); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, "UPDATE balances SET balance = balance + $1, updated_at = NOW() WHERE customer_id = $2", int64(amount), customerID)
	if err != nil {
		return classifyWriteErr(fmt.Errorf("crediting customer %d: %w", customerID, err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyWriteErr(fmt.Errorf("committing credit for customer %d: %w", customerID, err))
	}
	return nil
}

// TransferFunds debits the sender, credits the receiver and appends the
// ledger record in a single database transaction. Rows are locked in
// ascending customer-id order so two opposite transfers between the same
// pair of accounts cannot deadlock.
func (r *PostgresRepository) TransferFunds(ctx context.Context, senderID, receiverID int64, amount domain.Money, at time.Time) (uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, classifyWriteErr(fmt.Errorf("beginning transfer transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := r.applyLockTimeout(ctx, tx); err != nil {
		return uuid.Nil, err
	}

	rows, err := tx.Query(ctx,
		"SELECT customer_id, balance FROM balances WHERE customer_id = ANY($1) ORDER BY customer_id FOR UPDATE",
		[]int64{senderID, receiverID},
	)
	if err != nil {
		return uuid.Nil, classifyWriteErr(fmt.Errorf("locking transfer accounts: %w", err))
	}

	balances := make(map[int64]int64, 2)
	for rows.Next() {
		var id, balance int64
		if err := rows.Scan(&id, &balance); err != nil {
			rows.Close()
			return uuid.Nil, classifyWriteErr(fmt.Errorf("scanning transfer accounts: %w", err))
		}
		balances[id] = balance
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return uuid.Nil, classifyWriteErr(fmt.Errorf("iterating transfer accounts: %w", err))
	}

	senderBalance, ok := balances[senderID]
	if !ok {
		return uuid.Nil, fmt.Errorf("sender %d: %w", senderID, domain.ErrNotFound)
	}
	if _, ok := balances[receiverID]; !ok {
		return uuid.Nil, fmt.Errorf("receiver %d: %w", receiverID, domain.ErrNotFound)
	}

	if senderBalance < int64(amount) {
		return uuid.Nil, domain.ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, "UPDATE balances SET balance = balance - $1, updated_at = NOW() WHERE customer_id = $2", int64(amount), senderID); err != nil {
		return uuid.Nil, classifyWriteErr(fmt.Errorf("debiting sender %d: %w", senderID, err))
	}
	if _, err := tx.Exec(ctx, "UPDATE balances SET balance = balance + $1, updated_at = NOW() WHERE customer_id = $2", int64(amount), receiverID); err != nil {
		return uuid.Nil, classifyWriteErr(fmt.Errorf("crediting receiver %d: %w", receiverID, err))
	}

	recordID := uuid.New()
	if _, err := tx.Exec(ctx,
		"INSERT INTO payments (id, sender_id, receiver_id, amount, created_at) VALUES ($1, $2, $3, $4, $5)",
		recordID, senderID, receiverID, int64(amount), at,
	); err != nil {
		return uuid.Nil, classifyWriteErr(fmt.Errorf("appending payment record: %w", err))
	}

	// A failed commit after the write phase cannot be distinguished from a
	// torn transfer on this side of the connection, so it surfaces as
	// PartialFailure for reconciliation rather than a clean rejection.
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing transfer %d->%d: %v: %w", senderID, receiverID, err, domain.ErrPartialFailure)
	}
	return recordID, nil
}

// AppendPayment records a completed transfer outside of a transfer
// transaction. Used by the raw ledger surface; TransferFunds appends its
// record inside the same transaction as the balance writes instead.
func (r *PostgresRepository) AppendPayment(ctx context.Context, senderID, receiverID int64, amount domain.Money, at time.Time) (uuid.UUID, error) {
	recordID := uuid.New()
	_, err := r.db.Exec(ctx,
		"INSERT INTO payments (id, sender_id, receiver_id, amount, created_at) VALUES ($1, $2, $3, $4, $5)",
		recordID, senderID, receiverID, int64(amount), at,
	)
	if err != nil {
		return uuid.Nil, classifyWriteErr(fmt.Errorf("appending payment record: %w", err))
	}
	return recordID, nil
}

// PaymentsBySender returns the sent side of a customer's history in ledger
// append order.
func (r *PostgresRepository) PaymentsBySender(ctx context.Context, senderID int64) ([]domain.PaymentRecord, error) {
	return r.queryPayments(ctx, "sender_id", senderID)
}

// PaymentsByReceiver returns the received side of a customer's history in
// ledger append order.
func (r *PostgresRepository) PaymentsByReceiver(ctx context.Context, receiverID int64) ([]domain.PaymentRecord, error) {
	return r.queryPayments(ctx, "receiver_id", receiverID)
}

func (r *PostgresRepository) queryPayments(ctx context.Context, column string, customerID int64) ([]domain.PaymentRecord, error) {
	query := fmt.Sprintf("SELECT id, sender_id, receiver_id, amount, created_at FROM payments WHERE %s = $1 ORDER BY seq", column)
	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("fetching payments: %w", err)
	}
	defer rows.Close()

	records := make([]domain.PaymentRecord, 0)
	for rows.Next() {
		var rec domain.PaymentRecord
		var amount int64
		if err := rows.Scan(&rec.ID, &rec.SenderID, &rec.ReceiverID, &amount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning payment record: %w", err)
		}
		rec.Amount = domain.Money(amount)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment records: %w", err)
	}
	return records, nil
}

// LedgerTotals reports the balances sum and the payment count for the
// reconciliation sweep.
func (r *PostgresRepository) LedgerTotals(ctx context.Context) (domain.Money, int64, error) {
	var total, count int64
	err := r.db.QueryRow(ctx,
		"SELECT COALESCE((SELECT SUM(balance) FROM balances), 0), (SELECT COUNT(*) FROM payments)",
	).Scan(&total, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("reading ledger totals: %w", err)
	}
	return domain.Money(total), count, nil
}

// CustomerExists reports whether the directory knows the customer id.
func (r *PostgresRepository) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)", customerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking customer %d: %w", customerID, err)
	}
	return exists, nil
}

// ResolveCustomer returns the id and display name for a customer.
func (r *PostgresRepository) ResolveCustomer(ctx context.Context, customerID int64) (domain.CustomerRef, error) {
	var ref domain.CustomerRef
	err := r.db.QueryRow(ctx,
		"SELECT id, first_name || ' ' || last_name FROM customers WHERE id = $1",
		customerID,
	).Scan(&ref.ID, &ref.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CustomerRef{}, domain.ErrNotFound
		}
		return domain.CustomerRef{}, fmt.Errorf("resolving customer %d: %w", customerID, err)
	}
	return ref, nil
}

// CreateCustomer registers a customer record. Profile management beyond this
// belongs to the directory's owner; the ledger only needs it for dev-mode
// seeding.
func (r *PostgresRepository) CreateCustomer(ctx context.Context, firstName, lastName, email string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		"INSERT INTO customers (first_name, last_name, email) VALUES ($1, $2, $3) RETURNING id",
		firstName, lastName, email,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, domain.ErrAlreadyExists
		}
		return 0, classifyWriteErr(fmt.Errorf("creating customer: %w", err))
	}
	return id, nil
}

// applyLockTimeout bounds row-lock waits inside the transaction so contended
// operations surface as Busy instead of hanging.
func (r *PostgresRepository) applyLockTimeout(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds()))
	if err != nil {
		return classifyWriteErr(fmt.Errorf("setting lock timeout: %w", err))
	}
	return nil
}

// classifyWriteErr maps driver errors onto the domain taxonomy. Lock waits
// that hit lock_timeout become Busy; everything else is a WriteFailure the
// caller may retry with backoff.
func classifyWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable:
			return fmt.Errorf("%v: %w", err, domain.ErrBusy)
		case pgCheckViolation:
			return fmt.Errorf("%v: %w", err, domain.ErrInvalidAmount)
		}
	}
	return fmt.Errorf("%v: %w", err, domain.ErrWriteFailure)
}

var (
	_ Repository        = (*PostgresRepository)(nil)
	_ CustomerDirectory = (*PostgresRepository)(nil)
	_ CustomerRegistrar = (*PostgresRepository)(nil)
)
