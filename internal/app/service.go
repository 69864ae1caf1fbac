/**
 * @description
 * This file contains the core business logic for the ledger. The `Service`
 * struct orchestrates all money movement, coordinating the balance store,
 * the payment ledger, the customer directory and the event producer.
 *
 * Key rules:
 * - Amounts must be positive; self-transfers are rejected outright.
 * - An insufficient-funds rejection has zero effect on stored state.
 * - A transfer's debit, credit and ledger append commit as one unit; a
 *   mid-flight failure surfaces as domain.ErrPartialFailure and is journaled
 *   for reconciliation, never reported as a normal rejection.
 * - Once the write phase of a transfer begins, cancellation is ignored: the
 *   operation runs to commit or rollback.
 *
 * @dependencies
 * - context, errors, fmt, log/slog, time: Standard Go libraries.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq: Transfer event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SamMDev/Console-Banking-App/internal/domain"
	"github.com/SamMDev/Console-Banking-App/internal/store"
	"github.com/SamMDev/Console-Banking-App/pkg/rabbitmq"
)

// Service provides the ledger's business logic.
type Service struct {
	repo      store.Repository
	directory store.CustomerDirectory
	events    rabbitmq.Publisher
	journal   *FailureJournal
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new ledger service instance.
func NewService(repo store.Repository, directory store.CustomerDirectory, events rabbitmq.Publisher, journal *FailureJournal, logger *slog.Logger) *Service {
	if journal == nil {
		journal = NewFailureJournal()
	}
	return &Service{
		repo:      repo,
		directory: directory,
		events:    events,
		journal:   journal,
		logger:    logger,
		now:       time.Now,
	}
}

// OpenAccount creates the zero balance row for a registered customer.
func (s *Service) OpenAccount(ctx context.Context, customerID int64) error {
	exists, err := s.directory.CustomerExists(ctx, customerID)
	if err != nil {
		return fmt.Errorf("checking customer %d: %w", customerID, err)
	}
	if !exists {
		return fmt.Errorf("customer %d: %w", customerID, domain.ErrNotFound)
	}
	if err := s.repo.CreateBalance(ctx, customerID, 0); err != nil {
		return err
	}
	s.logger.Info("account opened", "customer_id", customerID)
	return nil
}

// Balance returns the current stored balance for a customer.
func (s *Service) Balance(ctx context.Context, customerID int64) (domain.Money, error) {
	return s.repo.GetBalance(ctx, customerID)
}

// Withdraw subtracts amount from the customer's balance. The funds check and
// the write happen atomically in the store, so a rejection has no effect.
func (s *Service) Withdraw(ctx context.Context, customerID int64, amount domain.Money) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if err := s.repo.DebitBalance(ctx, customerID, amount); err != nil {
		return err
	}
	s.logger.Info("withdrawal completed", "customer_id", customerID, "amount", amount.String())
	return nil
}

// Deposit adds amount to the customer's balance. No upper bound is enforced;
// a deposit never implicitly opens an account.
func (s *Service) Deposit(ctx context.Context, customerID int64, amount domain.Money) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if err := s.repo.CreditBalance(ctx, customerID, amount); err != nil {
		return err
	}
	s.logger.Info("deposit completed", "customer_id", customerID, "amount", amount.String())
	return nil
}

// Transfer moves amount from sender to receiver and appends the payment
// record, all as one storage transaction.
func (s *Service) Transfer(ctx context.Context, senderID, receiverID int64, amount domain.Money) (*domain.PaymentRecord, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if senderID == receiverID {
		return nil, domain.ErrSelfTransfer
	}

	exists, err := s.directory.CustomerExists(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("checking receiver %d: %w", receiverID, err)
	}
	if !exists {
		return nil, fmt.Errorf("receiver %d: %w", receiverID, domain.ErrNotFound)
	}

	// Last cancellation point: from here on the operation runs to commit or
	// rollback even if the caller goes away.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	writeCtx := context.WithoutCancel(ctx)

	at := s.now().UTC()
	recordID, err := s.repo.TransferFunds(writeCtx, senderID, receiverID, amount, at)
	if err != nil {
		if errors.Is(err, domain.ErrPartialFailure) {
			s.recordPartialFailure(writeCtx, senderID, receiverID, amount, at, err)
		}
		return nil, err
	}

	rec := &domain.PaymentRecord{
		ID:         recordID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		CreatedAt:  at,
	}
	s.logger.Info("transfer completed",
		"record_id", recordID, "sender_id", senderID, "receiver_id", receiverID, "amount", amount.String())
	s.publishEvent(writeCtx, domain.TransferEvent{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		Status:     domain.TransferStatusCompleted,
		OccurredAt: at,
	})
	return rec, nil
}

// PaymentHistory returns one side of a customer's payment history, enriched
// with display names from the customer directory. Missing customers degrade
// to empty names: a ledger record is a historical fact, not a live
// reference.
func (s *Service) PaymentHistory(ctx context.Context, customerID int64, direction domain.HistoryDirection) ([]domain.PaymentRecord, error) {
	var (
		records []domain.PaymentRecord
		err     error
	)
	switch direction {
	case domain.HistorySent:
		records, err = s.repo.PaymentsBySender(ctx, customerID)
	case domain.HistoryReceived:
		records, err = s.repo.PaymentsByReceiver(ctx, customerID)
	default:
		return nil, fmt.Errorf("unknown history direction %q", direction)
	}
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string)
	resolve := func(id int64) string {
		if name, ok := names[id]; ok {
			return name
		}
		name := ""
		if ref, err := s.directory.ResolveCustomer(ctx, id); err == nil {
			name = ref.Name
		}
		names[id] = name
		return name
	}
	for i := range records {
		records[i].SenderName = resolve(records[i].SenderID)
		records[i].ReceiverName = resolve(records[i].ReceiverID)
	}
	return records, nil
}

func (s *Service) recordPartialFailure(ctx context.Context, senderID, receiverID int64, amount domain.Money, at time.Time, cause error) {
	s.logger.Error("transfer partially applied; accounts need reconciliation",
		"sender_id", senderID, "receiver_id", receiverID, "amount", amount.String(), "err", cause)
	s.journal.Record(FailureEntry{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		OccurredAt: at,
		Reason:     cause.Error(),
	})
	s.publishEvent(ctx, domain.TransferEvent{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		Status:     domain.TransferStatusPartialFailure,
		Reason:     cause.Error(),
		OccurredAt: at,
	})
}

// publishEvent is best effort: a broker outage must not fail a committed
// transfer.
func (s *Service) publishEvent(ctx context.Context, event domain.TransferEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransferEvent(ctx, event); err != nil {
		s.logger.Warn("transfer event publish failed",
			"status", event.Status, "sender_id", event.SenderID, "receiver_id", event.ReceiverID, "err", err)
	}
}
