/**
 * @description
 * This file defines the core domain models for the ledger: payment records,
 * history direction, customer references, and the events published after a
 * completed or torn transfer.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentRecord is one completed transfer in the append-only ledger.
// Records are immutable historical facts: they reference customer ids but do
// not track the customers' continued existence, so the name fields may be
// empty when a customer can no longer be resolved.
type PaymentRecord struct {
	ID           uuid.UUID `json:"id"`
	SenderID     int64     `json:"sender_id"`
	SenderName   string    `json:"sender_name,omitempty"`
	ReceiverID   int64     `json:"receiver_id"`
	ReceiverName string    `json:"receiver_name,omitempty"`
	Amount       Money     `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryDirection selects which side of the ledger a history query reads.
type HistoryDirection string

const (
	HistorySent     HistoryDirection = "sent"
	HistoryReceived HistoryDirection = "received"
)

// CustomerRef is the minimal view of a customer the ledger needs: an opaque
// key plus a display name for payment history. Identity fields are owned by
// the customer directory and never mutated here.
type CustomerRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TransferEvent is the payload published after a transfer completes, or
// after a partial failure is detected mid-flight.
type TransferEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Amount     Money     `json:"amount"`
	Status     string    `json:"status"` // 'completed' or 'partial_failure'
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	TransferStatusCompleted      = "completed"
	TransferStatusPartialFailure = "partial_failure"
)
