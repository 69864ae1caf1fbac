package domain

import "errors"

var (
	// ErrNotFound indicates that no balance or customer record exists for
	// the given id. Fatal to the single operation, never retried.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists indicates an attempt to open an account that already
	// has a balance row.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInsufficientFunds is a business rejection, not a system failure.
	// The operation had zero effect on stored state.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount indicates a non-positive amount. Caller contract
	// violation, zero effect.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrSelfTransfer indicates sender and receiver are the same account.
	ErrSelfTransfer = errors.New("cannot transfer to the same account")

	// ErrWriteFailure indicates a storage error before any money moved.
	// Callers may retry with backoff.
	ErrWriteFailure = errors.New("storage write failed")

	// ErrBusy indicates the operation timed out waiting for an account
	// lock. Callers may retry with backoff.
	ErrBusy = errors.New("account is busy")

	// ErrPartialFailure indicates a multi-step transfer was interrupted
	// after its write phase began and the rollback could not be confirmed.
	// It must never be surfaced as a normal rejection: the affected
	// accounts need reconciliation.
	ErrPartialFailure = errors.New("transfer partially applied")
)
