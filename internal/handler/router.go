package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/credicuenta/debt-ledger/pkg/response"
)

// NewRouter wires every HTTP route of the ledger. metrics may be nil.
func NewRouter(ledger *LedgerHandler, health *HealthHandler, metrics http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.RecoveryMiddleware, response.LoggingMiddleware, response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)

	if metrics != nil {
		router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/associates/{id}/debt-items", ledger.AddDebtItem).Methods(http.MethodPost)
	api.HandleFunc("/associates/{id}/debt-items", ledger.ListDebtItems).Methods(http.MethodGet)
	api.HandleFunc("/associates/{id}/debt-payments", ledger.RegisterDebtPayment).Methods(http.MethodPost)
	api.HandleFunc("/associates/{id}/debt-summary", ledger.GetDebtBreakdown).Methods(http.MethodGet)
	api.HandleFunc("/associates/{id}/consolidated-debt", ledger.GetConsolidatedDebt).Methods(http.MethodGet)
	api.HandleFunc("/associates/{id}/all-payments", ledger.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/associates/{id}/agreements", ledger.ListAgreements).Methods(http.MethodGet)

	api.HandleFunc("/payments/{id}", ledger.DeletePayment).Methods(http.MethodDelete)

	api.HandleFunc("/agreements", ledger.CreateAgreement).Methods(http.MethodPost)
	api.HandleFunc("/agreements/{id}", ledger.GetAgreement).Methods(http.MethodGet)
	api.HandleFunc("/agreements/{id}/payments/{payment_number:[0-9]+}", ledger.RegisterInstallment).Methods(http.MethodPost)
	api.HandleFunc("/agreements/{id}/cancel", ledger.CancelAgreement).Methods(http.MethodPost)

	api.HandleFunc("/periods", ledger.CreatePeriod).Methods(http.MethodPost)
	api.HandleFunc("/periods/{id}/advance", ledger.AdvancePeriod).Methods(http.MethodPost)

	api.HandleFunc("/statements", ledger.CreateStatement).Methods(http.MethodPost)
	api.HandleFunc("/statements/{id}", ledger.GetStatement).Methods(http.MethodGet)
	api.HandleFunc("/statements/{id}/payments", ledger.RegisterStatementPayment).Methods(http.MethodPost)
	api.HandleFunc("/statements/{id}/payments/{payment_id}", ledger.DeleteStatementPayment).Methods(http.MethodDelete)

	return router
}
