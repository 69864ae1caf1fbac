/**
 * @description
 * In-memory implementation of the store contracts. It backs the test suite
 * and `DEV_MODE` runs where no database is available. Mutations take
 * per-account locks, acquired in ascending id order for operations spanning
 * two accounts, with a bounded wait that surfaces as domain.ErrBusy.
 *
 * @dependencies
 * - context, sync, time: Standard Go libraries.
 * - github.com/google/uuid: Ledger record ids.
 * - internal/domain, internal/store: Domain models and store contracts.
 */

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SamMDev/Console-Banking-App/internal/domain"
	"github.com/SamMDev/Console-Banking-App/internal/store"
)

// Store is an in-memory Repository and CustomerDirectory.
type Store struct {
	lockWait time.Duration

	mu        sync.RWMutex
	balances  map[int64]domain.Money
	payments  []domain.PaymentRecord
	customers map[int64]domain.CustomerRef
	nextID    int64

	locksMu sync.Mutex
	locks   map[int64]chan struct{}
}

// New creates an empty Store. lockWait bounds how long a mutation waits for
// a contended account before returning domain.ErrBusy.
func New(lockWait time.Duration) *Store {
	if lockWait <= 0 {
		lockWait = 5 * time.Second
	}
	return &Store{
		lockWait:  lockWait,
		balances:  make(map[int64]domain.Money),
		payments:  make([]domain.PaymentRecord, 0),
		customers: make(map[int64]domain.CustomerRef),
		nextID:    1,
		locks:     make(map[int64]chan struct{}),
	}
}

// accountLock returns the buffered-channel lock for one account, creating it
// on first use.
func (s *Store) accountLock(customerID int64) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[customerID]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[customerID] = l
	}
	return l
}

// lockAccounts acquires the locks for the given accounts in ascending id
// order so opposite transfers between the same pair cannot deadlock. The
// returned release function unlocks in reverse order.
func (s *Store) lockAccounts(ctx context.Context, ids ...int64) (func(), error) {
	ordered := make([]int64, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, id)
	}
	if len(ordered) == 2 && ordered[0] > ordered[1] {
		ordered[0], ordered[1] = ordered[1], ordered[0]
	}

	deadline := time.NewTimer(s.lockWait)
	defer deadline.Stop()

	held := make([]chan struct{}, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, id := range ordered {
		l := s.accountLock(id)
		select {
		case l <- struct{}{}:
			held = append(held, l)
		case <-deadline.C:
			release()
			return nil, fmt.Errorf("waiting for account %d: %w", id, domain.ErrBusy)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

// GetBalance reads the stored balance for a customer.
func (s *Store) GetBalance(ctx context.Context, customerID int64) (domain.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[customerID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return balance, nil
}

// SetBalance overwrites the stored balance for an existing row.
func (s *Store) SetBalance(ctx context.Context, customerID int64, amount domain.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[customerID]; !ok {
		return domain.ErrNotFound
	}
	s.balances[customerID] = amount
	return nil
}

// CreateBalance opens a balance row.
func (s *Store) CreateBalance(ctx context.Context, customerID int64, initial domain.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[customerID]; ok {
		return domain.ErrAlreadyExists
	}
	s.balances[customerID] = initial
	return nil
}

// DebitBalance atomically checks funds and subtracts under the account lock.
func (s *Store) DebitBalance(ctx context.Context, customerID int64, amount domain.Money) error {
	release, err := s.lockAccounts(ctx, customerID)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[customerID]
	if !ok {
		return domain.ErrNotFound
	}
	if balance < amount {
		return domain.ErrInsufficientFunds
	}
	s.balances[customerID] = balance - amount
	return nil
}

// CreditBalance atomically adds to an existing row under the account lock.
func (s *Store) CreditBalance(ctx context.Context, customerID int64, amount domain.Money) error {
	release, err := s.lockAccounts(ctx, customerID)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[customerID]
	if !ok {
		return domain.ErrNotFound
	}
	s.balances[customerID] = balance + amount
	return nil
}

// TransferFunds moves funds and appends the ledger record while holding both
// account locks, so the intermediate state is never observable.
func (s *Store) TransferFunds(ctx context.Context, senderID, receiverID int64, amount domain.Money, at time.Time) (uuid.UUID, error) {
	release, err := s.lockAccounts(ctx, senderID, receiverID)
	if err != nil {
		return uuid.Nil, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	senderBalance, ok := s.balances[senderID]
	if !ok {
		return uuid.Nil, fmt.Errorf("sender %d: %w", senderID, domain.ErrNotFound)
	}
	if _, ok := s.balances[receiverID]; !ok {
		return uuid.Nil, fmt.Errorf("receiver %d: %w", receiverID, domain.ErrNotFound)
	}
	if senderBalance < amount {
		return uuid.Nil, domain.ErrInsufficientFunds
	}

	s.balances[senderID] -= amount
	s.balances[receiverID] += amount

	rec := domain.PaymentRecord{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		CreatedAt:  at,
	}
	s.payments = append(s.payments, rec)
	return rec.ID, nil
}

// AppendPayment records a completed transfer in append order.
func (s *Store) AppendPayment(ctx context.Context, senderID, receiverID int64, amount domain.Money, at time.Time) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := domain.PaymentRecord{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		CreatedAt:  at,
	}
	s.payments = append(s.payments, rec)
	return rec.ID, nil
}

// PaymentsBySender returns sent payments in ledger append order.
func (s *Store) PaymentsBySender(ctx context.Context, senderID int64) ([]domain.PaymentRecord, error) {
	return s.filterPayments(func(rec domain.PaymentRecord) bool { return rec.SenderID == senderID }), nil
}

// PaymentsByReceiver returns received payments in ledger append order.
func (s *Store) PaymentsByReceiver(ctx context.Context, receiverID int64) ([]domain.PaymentRecord, error) {
	return s.filterPayments(func(rec domain.PaymentRecord) bool { return rec.ReceiverID == receiverID }), nil
}

func (s *Store) filterPayments(match func(domain.PaymentRecord) bool) []domain.PaymentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.PaymentRecord, 0)
	for _, rec := range s.payments {
		if match(rec) {
			result = append(result, rec)
		}
	}
	return result
}

// LedgerTotals reports the balances sum and payment count.
func (s *Store) LedgerTotals(ctx context.Context) (domain.Money, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total domain.Money
	for _, balance := range s.balances {
		total += balance
	}
	return total, int64(len(s.payments)), nil
}

// CustomerExists reports whether the directory knows the customer id.
func (s *Store) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.customers[customerID]
	return ok, nil
}

// ResolveCustomer returns the id and display name for a customer.
func (s *Store) ResolveCustomer(ctx context.Context, customerID int64) (domain.CustomerRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.customers[customerID]
	if !ok {
		return domain.CustomerRef{}, domain.ErrNotFound
	}
	return ref, nil
}

// CreateCustomer registers a customer record with a generated id.
func (s *Store) CreateCustomer(ctx context.Context, firstName, lastName, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.customers[id] = domain.CustomerRef{ID: id, Name: firstName + " " + lastName}
	return id, nil
}

var (
	_ store.Repository        = (*Store)(nil)
	_ store.CustomerDirectory = (*Store)(nil)
	_ store.CustomerRegistrar = (*Store)(nil)
)
