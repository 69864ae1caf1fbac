/**
 * @description
 * This file defines the storage contracts consumed by the ledger service. The
 * interfaces decouple the business rules from the concrete database so the
 * service can run against PostgreSQL in production and the in-memory store in
 * tests and dev mode.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: Ledger record ids.
 * - internal/domain: Domain models and the error taxonomy.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SamMDev/Console-Banking-App/internal/domain"
)

// BalanceStore is the raw key/value surface over the balances table. It does
// not enforce the non-negative invariant itself; that is the service's job.
// Every call hits durable storage, so two sequential reads may observe
// different values when concurrent writers exist.
type BalanceStore interface {
	// GetBalance returns the stored balance, or domain.ErrNotFound when no
	// balance row exists for the customer.
	GetBalance(ctx context.Context, customerID int64) (domain.Money, error)

	// SetBalance overwrites the stored balance. domain.ErrNotFound when the
	// row is missing, domain.ErrWriteFailure on storage error.
	SetBalance(ctx context.Context, customerID int64, amount domain.Money) error

	// CreateBalance opens a balance row. domain.ErrAlreadyExists when one
	// is already present.
	CreateBalance(ctx context.Context, customerID int64, initial domain.Money) error

	// DebitBalance atomically subtracts amount after checking funds, both
	// under the same row lock. domain.ErrInsufficientFunds leaves the row
	// untouched.
	DebitBalance(ctx context.Context, customerID int64, amount domain.Money) error

	// CreditBalance atomically adds amount to an existing row.
	CreditBalance(ctx context.Context, customerID int64, amount domain.Money) error
}

// PaymentLedger is the append-only history of completed transfers.
type PaymentLedger interface {
	// AppendPayment records a completed transfer and returns the
	// storage-generated record id.
	AppendPayment(ctx context.Context, senderID, receiverID int64, amount domain.Money, at time.Time) (uuid.UUID, error)

	// PaymentsBySender and PaymentsByReceiver return records in ledger
	// append order. An empty result is an empty slice, not an error.
	PaymentsBySender(ctx context.Context, senderID int64) ([]domain.PaymentRecord, error)
	PaymentsByReceiver(ctx context.Context, receiverID int64) ([]domain.PaymentRecord, error)
}

// Transferer moves funds between two accounts and appends the matching
// ledger record as a single storage transaction: either all three writes
// commit or none of them do, and the intermediate state is never externally
// observable.
type Transferer interface {
	TransferFunds(ctx context.Context, senderID, receiverID int64, amount domain.Money, at time.Time) (uuid.UUID, error)
}

// CustomerDirectory is the external collaborator that owns customer
// identity. The ledger uses it only to validate that a transfer receiver
// exists and to enrich payment history with display names.
type CustomerDirectory interface {
	CustomerExists(ctx context.Context, customerID int64) (bool, error)
	ResolveCustomer(ctx context.Context, customerID int64) (domain.CustomerRef, error)
}

// CustomerRegistrar creates customer records. Only dev-mode seeding uses it;
// registration proper belongs to the directory's owner.
type CustomerRegistrar interface {
	CreateCustomer(ctx context.Context, firstName, lastName, email string) (int64, error)
}

// Repository is the full persistence contract the service is wired with.
type Repository interface {
	BalanceStore
	PaymentLedger
	Transferer

	// LedgerTotals reports the aggregate state used by the reconciliation
	// sweep: the sum of all balances and the number of ledger records.
	LedgerTotals(ctx context.Context) (domain.Money, int64, error)
}
