package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/credicuenta/debt-ledger/internal/domain"
	"github.com/credicuenta/debt-ledger/internal/service"
	apperrors "github.com/credicuenta/debt-ledger/pkg/errors"
	"github.com/credicuenta/debt-ledger/pkg/response"
)

type LedgerHandler struct {
	ledger    service.Ledger
	validator *validator.Validate
}

func NewLedgerHandler(ledger service.Ledger) *LedgerHandler {
	return &LedgerHandler{
		ledger:    ledger,
		validator: newValidator(),
	}
}

// decode reads and validates a JSON body; it writes the error response itself
func (h *LedgerHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Coded(w, http.StatusBadRequest, apperrors.ErrCodeValidation, "invalid request body", nil, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeError(w, r, apperrors.WrapValidation(name, "must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// AddDebtItem handles POST /associates/{id}/debt-items
func (h *LedgerHandler) AddDebtItem(w http.ResponseWriter, r *http.Request) {
	associateID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req domain.AddDebtItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.ledger.AddDebtItem(r.Context(), associateID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, domain.NewDebtItemView(item))
}

// ListDebtItems handles GET /associates/{id}/debt-items[?open=true]
func (h *LedgerHandler) ListDebtItems(w http.ResponseWriter, r *http.Request) {
	associateID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	openOnly := false
	if raw := r.URL.Query().Get("open"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, apperrors.WrapValidation("open", "must be a boolean"))
			return
		}
		openOnly = parsed
	}

	var (
		items []domain.DebtItemView
		err   error
	)
	if openOnly {
		items, err = h.ledger.ListOpenItems(r.Context(), associateID)
	} else {
		items, err = h.ledger.ListDebtItems(r.Context(), associateID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, items)
}

// RegisterDebtPayment handles POST /associates/{id}/debt-payments
func (h *LedgerHandler) RegisterDebtPayment(w http.ResponseWriter, r *http.Request) {
	associateID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req domain.RegisterDebtPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.ledger.RegisterDebtPayment(r.Context(), associateID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, result)
}

// GetDebtBreakdown handles GET /associates/{id}/debt-summary
func (h *LedgerHandler) GetDebtBreakdown(w http.ResponseWriter, r *http.Request) {
	associateID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	breakdown, err := h.ledger.GetDebtBreakdown(r.Context(), associateID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, breakdown)
}

// GetConsolidatedDebt handles GET /associates/{id}/consolidated-debt
func (h *LedgerHandler) GetConsolidatedDebt(w http.ResponseWriter, r *http.Request) {
	associateID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	consolidated, err := h.ledger.GetConsolidatedDebt(r.Context(), associateID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, consolidated)
}

// ListPayments handles GET /associates/{id}/all-payments[?type=]
func (h *LedgerHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	associateID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var paymentType *domain.PaymentType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := domain.PaymentType(raw)
		paymentType = &t
	}

	payments, err := h.ledger.ListPayments(r.Context(), associateID, paymentType)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, payments)
}

// ListAgreements handles GET /associates/{id}/agreements
func (h *LedgerHandler) ListAgreements(w http.ResponseWriter, r *http.Request) {
	associateID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	agreements, err := h.ledger.ListAgreements(r.Context(), associateID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, agreements)
}

// DeletePayment handles DELETE /payments/{id}
func (h *LedgerHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.ledger.DeletePayment(r.Context(), paymentID); err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, map[string]interface{}{"payment_id": paymentID, "deleted": true})
}

// CreateAgreement handles POST /agreements
func (h *LedgerHandler) CreateAgreement(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAgreementRequest
	if !h.decode(w, r, &req) {
		return
	}

	agreement, err := h.ledger.CreateAgreement(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, agreement)
}

// GetAgreement handles GET /agreements/{id}
func (h *LedgerHandler) GetAgreement(w http.ResponseWriter, r *http.Request) {
	agreementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	agreement, err := h.ledger.GetAgreement(r.Context(), agreementID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, agreement)
}

// RegisterInstallment handles POST /agreements/{id}/payments/{payment_number}
func (h *LedgerHandler) RegisterInstallment(w http.ResponseWriter, r *http.Request) {
	agreementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	paymentNumber, err := strconv.Atoi(mux.Vars(r)["payment_number"])
	if err != nil {
		writeError(w, r, apperrors.WrapValidation("payment_number", "must be an integer"))
		return
	}

	var req domain.PaymentData
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.ledger.RegisterInstallment(r.Context(), agreementID, paymentNumber, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, result)
}

// CancelAgreement handles POST /agreements/{id}/cancel
func (h *LedgerHandler) CancelAgreement(w http.ResponseWriter, r *http.Request) {
	agreementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req domain.CancelAgreementRequest
	if !h.decode(w, r, &req) {
		return
	}

	agreement, err := h.ledger.CancelAgreement(r.Context(), agreementID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, agreement)
}

// CreatePeriod handles POST /periods
func (h *LedgerHandler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePeriodRequest
	if !h.decode(w, r, &req) {
		return
	}

	period, err := h.ledger.CreatePeriod(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, period)
}

// AdvancePeriod handles POST /periods/{id}/advance
func (h *LedgerHandler) AdvancePeriod(w http.ResponseWriter, r *http.Request) {
	periodID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req domain.AdvancePeriodRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.ledger.AdvancePeriod(r.Context(), periodID, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, result)
}

// CreateStatement handles POST /statements
func (h *LedgerHandler) CreateStatement(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateStatementRequest
	if !h.decode(w, r, &req) {
		return
	}

	statement, err := h.ledger.CreateStatement(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, statement)
}

// GetStatement handles GET /statements/{id}
func (h *LedgerHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	statementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	statement, err := h.ledger.GetStatement(r.Context(), statementID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, statement)
}

// RegisterStatementPayment handles POST /statements/{id}/payments
func (h *LedgerHandler) RegisterStatementPayment(w http.ResponseWriter, r *http.Request) {
	statementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req domain.PaymentData
	if !h.decode(w, r, &req) {
		return
	}

	payment, err := h.ledger.RegisterStatementPayment(r.Context(), statementID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, payment)
}

// DeleteStatementPayment handles DELETE /statements/{id}/payments/{payment_id}
func (h *LedgerHandler) DeleteStatementPayment(w http.ResponseWriter, r *http.Request) {
	statementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "payment_id")
	if !ok {
		return
	}

	if err := h.ledger.DeleteStatementPayment(r.Context(), statementID, paymentID); err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, map[string]interface{}{"payment_id": paymentID, "deleted": true})
}
