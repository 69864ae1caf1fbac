/**
 * @description
 * This file contains the HTTP handlers for the ledger's API endpoints.
 * Handlers parse requests, call the ledger service, and map the domain error
 * taxonomy onto HTTP status codes. All business rules live in the service;
 * the handlers are a thin presentation adapter.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain: Service logic, models and errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SamMDev/Console-Banking-App/internal/app"
	"github.com/SamMDev/Console-Banking-App/internal/domain"
)

// LedgerHandlers holds the ledger service and request-scoped dependencies.
type LedgerHandlers struct {
	service        *app.Service
	limiter        *RedisTransferRateLimiter
	transferPerMin int
	logger         *slog.Logger
}

// NewLedgerHandlers creates a new instance of LedgerHandlers. limiter may be
// nil when rate limiting is disabled.
func NewLedgerHandlers(service *app.Service, limiter *RedisTransferRateLimiter, transferPerMin int, logger *slog.Logger) *LedgerHandlers {
	return &LedgerHandlers{
		service:        service,
		limiter:        limiter,
		transferPerMin: transferPerMin,
		logger:         logger,
	}
}

type openAccountRequest struct {
	CustomerID int64 `json:"customer_id"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type transferRequest struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Amount     string `json:"amount"`
}

type balanceResponse struct {
	CustomerID int64  `json:"customer_id"`
	Balance    string `json:"balance"`
}

type transferResponse struct {
	RecordID   string `json:"record_id"`
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Amount     string `json:"amount"`
	CreatedAt  string `json:"created_at"`
}

type paymentResponse struct {
	ID           string `json:"id"`
	SenderID     int64  `json:"sender_id"`
	SenderName   string `json:"sender_name,omitempty"`
	ReceiverID   int64  `json:"receiver_id"`
	ReceiverName string `json:"receiver_name,omitempty"`
	Amount       string `json:"amount"`
	CreatedAt    string `json:"created_at"`
}

// OpenAccountHandler creates the zero balance row for a customer.
func (h *LedgerHandlers) OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID <= 0 {
		h.writeError(w, http.StatusBadRequest, "customer_id must be positive")
		return
	}

	if err := h.service.OpenAccount(r.Context(), req.CustomerID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, balanceResponse{CustomerID: req.CustomerID, Balance: domain.Money(0).String()})
}

// BalanceHandler returns a customer's current balance.
func (h *LedgerHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerIDParam(w, r)
	if !ok {
		return
	}

	balance, err := h.service.Balance(r.Context(), customerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, balanceResponse{CustomerID: customerID, Balance: balance.String()})
}

// DepositHandler adds funds to a customer's balance.
func (h *LedgerHandlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerIDParam(w, r)
	if !ok {
		return
	}
	amount, ok := h.amountBody(w, r)
	if !ok {
		return
	}

	if err := h.service.Deposit(r.Context(), customerID, amount); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.respondBalance(w, r, customerID)
}

// WithdrawHandler removes funds from a customer's balance.
func (h *LedgerHandlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerIDParam(w, r)
	if !ok {
		return
	}
	amount, ok := h.amountBody(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), customerID, amount); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.respondBalance(w, r, customerID)
}

// TransferHandler moves funds between two customers.
func (h *LedgerHandlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SenderID <= 0 || req.ReceiverID <= 0 {
		h.writeError(w, http.StatusBadRequest, "sender_id and receiver_id must be positive")
		return
	}
	amount, err := domain.ParseMoney(req.Amount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.allowTransfer(w, r, req.SenderID) {
		return
	}

	rec, err := h.service.Transfer(r.Context(), req.SenderID, req.ReceiverID, amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, transferResponse{
		RecordID:   rec.ID.String(),
		SenderID:   rec.SenderID,
		ReceiverID: rec.ReceiverID,
		Amount:     rec.Amount.String(),
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
	})
}

// PaymentHistoryHandler returns the sent or received side of a customer's
// payment history.
func (h *LedgerHandlers) PaymentHistoryHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerIDParam(w, r)
	if !ok {
		return
	}

	direction := domain.HistoryDirection(r.URL.Query().Get("direction"))
	if direction != domain.HistorySent && direction != domain.HistoryReceived {
		h.writeError(w, http.StatusBadRequest, "direction must be 'sent' or 'received'")
		return
	}

	records, err := h.service.PaymentHistory(r.Context(), customerID, direction)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	payments := make([]paymentResponse, 0, len(records))
	for _, rec := range records {
		payments = append(payments, paymentResponse{
			ID:           rec.ID.String(),
			SenderID:     rec.SenderID,
			SenderName:   rec.SenderName,
			ReceiverID:   rec.ReceiverID,
			ReceiverName: rec.ReceiverName,
			Amount:       rec.Amount.String(),
			CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		})
	}
	h.writeJSON(w, http.StatusOK, payments)
}

func (h *LedgerHandlers) respondBalance(w http.ResponseWriter, r *http.Request, customerID int64) {
	balance, err := h.service.Balance(r.Context(), customerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, balanceResponse{CustomerID: customerID, Balance: balance.String()})
}

func (h *LedgerHandlers) customerIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "customerID")
	customerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || customerID <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid customer id")
		return 0, false
	}
	return customerID, true
}

func (h *LedgerHandlers) amountBody(w http.ResponseWriter, r *http.Request) (domain.Money, bool) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return 0, false
	}
	amount, err := domain.ParseMoney(req.Amount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return amount, true
}

// allowTransfer applies the per-sender rate limit. Limiter failures fail
// open: losing Redis must not halt payments.
func (h *LedgerHandlers) allowTransfer(w http.ResponseWriter, r *http.Request, senderID int64) bool {
	if h.limiter == nil || h.transferPerMin <= 0 {
		return true
	}
	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), strconv.FormatInt(senderID, 10), h.transferPerMin, time.Minute)
	if err != nil {
		h.logger.Warn("transfer rate limiter unavailable", "err", err)
		return true
	}
	if count > h.transferPerMin {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "too many transfer requests, slow down")
		return false
	}
	return true
}

// writeDomainError maps the domain error taxonomy onto HTTP status codes.
// PartialFailure is deliberately distinct from other 5xx responses so
// callers can tell "nothing happened" from "something went wrong mid-flight".
func (h *LedgerHandlers) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrSelfTransfer):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrBusy):
		w.Header().Set("Retry-After", "1")
		h.writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrPartialFailure):
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "transfer partially applied, reconciliation required",
			"code":  domain.TransferStatusPartialFailure,
		})
	default:
		h.logger.Error("unhandled service error", "err", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "err", err)
	}
}
