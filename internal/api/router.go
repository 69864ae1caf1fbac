/**
 * @description
 * This file sets up the HTTP router for the ledger service: endpoint
 * definitions plus standard middleware for logging, panic recovery and
 * request timeouts.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LedgerRoutes creates and returns the router for the ledger service.
func LedgerRoutes(h *LedgerHandlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Post("/accounts", h.OpenAccountHandler)
	r.Get("/accounts/{customerID}/balance", h.BalanceHandler)
	r.Post("/accounts/{customerID}/deposits", h.DepositHandler)
	r.Post("/accounts/{customerID}/withdrawals", h.WithdrawHandler)
	r.Get("/accounts/{customerID}/payments", h.PaymentHistoryHandler)
	r.Post("/transfers", h.TransferHandler)

	return r
}
