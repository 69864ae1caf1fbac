package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SamMDev/Console-Banking-App/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(2 * time.Second)
}

func openAccount(t *testing.T, s *Store, id int64, balance domain.Money) {
	t.Helper()
	if err := s.CreateBalance(context.Background(), id, balance); err != nil {
		t.Fatalf("creating balance for %d: %v", id, err)
	}
}

func TestBalanceLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetBalance(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before creation, got %v", err)
	}

	openAccount(t, s, 1, 0)

	if err := s.CreateBalance(ctx, 1, 0); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on second create, got %v", err)
	}

	if err := s.SetBalance(ctx, 1, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balance, err := s.GetBalance(ctx, 1)
	if err != nil || balance != 500 {
		t.Fatalf("expected balance 500, got %d (err %v)", balance, err)
	}

	if err := s.SetBalance(ctx, 99, 100); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
}

func TestDebitBalance(t *testing.T) {
	tests := []struct {
		name        string
		start       domain.Money
		debit       domain.Money
		wantErr     error
		wantBalance domain.Money
	}{
		{name: "exact balance", start: 100, debit: 100, wantBalance: 0},
		{name: "partial debit", start: 100, debit: 40, wantBalance: 60},
		{name: "insufficient funds", start: 100, debit: 101, wantErr: domain.ErrInsufficientFunds, wantBalance: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			ctx := context.Background()
			openAccount(t, s, 1, tt.start)

			err := s.DebitBalance(ctx, 1, tt.debit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			balance, _ := s.GetBalance(ctx, 1)
			if balance != tt.wantBalance {
				t.Fatalf("balance = %d, want %d", balance, tt.wantBalance)
			}
		})
	}
}

func TestTransferFunds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	openAccount(t, s, 1, 10000)
	openAccount(t, s, 2, 5000)

	recordID, err := s.TransferFunds(ctx, 1, 2, 3000, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	senderBalance, _ := s.GetBalance(ctx, 1)
	receiverBalance, _ := s.GetBalance(ctx, 2)
	if senderBalance != 7000 || receiverBalance != 8000 {
		t.Fatalf("balances = %d/%d, want 7000/8000", senderBalance, receiverBalance)
	}

	sent, err := s.PaymentsBySender(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sent) != 1 || sent[0].ID != recordID || sent[0].Amount != 3000 {
		t.Fatalf("unexpected sent history: %+v", sent)
	}

	received, err := s.PaymentsByReceiver(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(received) != 1 || received[0].ID != recordID {
		t.Fatalf("unexpected received history: %+v", received)
	}
}

func TestTransferFundsRejections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	openAccount(t, s, 1, 100)
	openAccount(t, s, 2, 0)

	if _, err := s.TransferFunds(ctx, 1, 2, 101, time.Now()); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := s.TransferFunds(ctx, 1, 99, 50, time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing receiver, got %v", err)
	}
	if _, err := s.TransferFunds(ctx, 99, 2, 50, time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing sender, got %v", err)
	}

	// Zero effect on rejection.
	senderBalance, _ := s.GetBalance(ctx, 1)
	receiverBalance, _ := s.GetBalance(ctx, 2)
	if senderBalance != 100 || receiverBalance != 0 {
		t.Fatalf("rejected transfers must not move money, balances = %d/%d", senderBalance, receiverBalance)
	}
	if payments, _ := s.PaymentsBySender(ctx, 1); len(payments) != 0 {
		t.Fatalf("rejected transfers must not append ledger records: %+v", payments)
	}
}

func TestConcurrentWithdrawalsNoOverdraft(t *testing.T) {
	const n = 8
	const amount = domain.Money(100)

	s := newTestStore(t)
	ctx := context.Background()
	openAccount(t, s, 1, n*amount-1)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.DebitBalance(ctx, 1, amount)
		}()
	}
	wg.Wait()
	close(errs)

	var successes, rejections int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInsufficientFunds):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != n-1 || rejections != 1 {
		t.Fatalf("expected %d successes and 1 rejection, got %d/%d", n-1, successes, rejections)
	}
	balance, _ := s.GetBalance(ctx, 1)
	if balance != amount-1 {
		t.Fatalf("final balance = %d, want %d", balance, amount-1)
	}
}

func TestOppositeTransfersDoNotDeadlock(t *testing.T) {
	const rounds = 200

	s := newTestStore(t)
	ctx := context.Background()
	openAccount(t, s, 1, 100000)
	openAccount(t, s, 2, 100000)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			s.TransferFunds(ctx, 1, 2, 1, time.Now())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			s.TransferFunds(ctx, 2, 1, 1, time.Now())
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("opposite transfers deadlocked")
	}

	// Conservation: transfers among a closed set keep the total invariant.
	total, payments, err := s.LedgerTotals(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 200000 {
		t.Fatalf("balances total = %d, want 200000", total)
	}
	if payments == 0 {
		t.Fatal("expected ledger records from completed transfers")
	}
}

func TestLockWaitSurfacesBusy(t *testing.T) {
	s := New(50 * time.Millisecond)
	ctx := context.Background()
	openAccount(t, s, 1, 100)

	// Hold the account lock so the debit cannot acquire it in time.
	release, err := s.lockAccounts(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	if err := s.DebitBalance(ctx, 1, 10); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	// Credits queue on the same account lock with the same bounded wait.
	if err := s.CreditBalance(ctx, 1, 10); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy for contended credit, got %v", err)
	}

	balance, _ := s.GetBalance(ctx, 1)
	if balance != 100 {
		t.Fatalf("busy mutations must not change the balance, got %d", balance)
	}
}

func TestPaymentsOrderAndEmptyResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	openAccount(t, s, 1, 1000)
	openAccount(t, s, 2, 0)

	for i := 0; i < 3; i++ {
		if _, err := s.TransferFunds(ctx, 1, 2, domain.Money(i+1), time.Now()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	sent, _ := s.PaymentsBySender(ctx, 1)
	if len(sent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(sent))
	}
	for i, rec := range sent {
		if rec.Amount != domain.Money(i+1) {
			t.Fatalf("records out of append order: %+v", sent)
		}
	}

	empty, err := s.PaymentsBySender(ctx, 2)
	if err != nil {
		t.Fatalf("empty history must not be an error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty slice, got %#v", empty)
	}
}

func TestDirectory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateCustomer(ctx, "Anna", "Novak", "anna@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exists, err := s.CustomerExists(ctx, id)
	if err != nil || !exists {
		t.Fatalf("expected customer %d to exist (err %v)", id, err)
	}

	ref, err := s.ResolveCustomer(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Name != "Anna Novak" {
		t.Fatalf("display name = %q, want %q", ref.Name, "Anna Novak")
	}

	if _, err := s.ResolveCustomer(ctx, id+1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
