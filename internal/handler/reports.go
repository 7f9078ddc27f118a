package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/andina-pos/api/internal/enum"
	"github.com/andina-pos/api/internal/middleware"
	"github.com/andina-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ReportHandler handles read-only reporting endpoints.
type ReportHandler struct {
	ledger  *service.SalesLedger
	credits *service.CreditService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(ledger *service.SalesLedger, credits *service.CreditService) *ReportHandler {
	return &ReportHandler{ledger: ledger, credits: credits}
}

// RegisterRoutes registers report endpoints on the given Chi router.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/receivables", h.Receivables)
}

// --- Response types ---

type dailySalesResponse struct {
	Date        string            `json:"date"`
	TotalCount  int               `json:"total_count"`
	TotalAmount string            `json:"total_amount"`
	ByMethod    map[string]string `json:"by_method"`
	Sales       []saleSummary     `json:"sales"`
}

type saleSummary struct {
	ID            uuid.UUID `json:"id"`
	SaleNumber    string    `json:"sale_number"`
	OperatorID    uuid.UUID `json:"operator_id"`
	PaymentMethod string    `json:"payment_method"`
	Total         string    `json:"total"`
}

type receivableResponse struct {
	Account       creditAccountResponse `json:"account"`
	Balance       string                `json:"balance"`
	DaysRemaining int                   `json:"days_remaining"`
	Status        string                `json:"status"`
}

// --- Handlers ---

// DailySales summarizes committed sales for one date. ADMINs may pass
// operator_id to scope the report; everyone else sees only their own sales.
func (h *ReportHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var operatorID *uuid.UUID
	switch {
	case claims.Role != enum.UserRoleAdmin:
		operatorID = &claims.UserID
	case r.URL.Query().Get("operator_id") != "":
		id, err := uuid.Parse(r.URL.Query().Get("operator_id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid operator_id"})
			return
		}
		operatorID = &id
	}

	summary, err := h.ledger.SummarizeSalesForDate(r.Context(), date, operatorID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDate) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: daily sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	byMethod := make(map[string]string, len(summary.ByMethod))
	for method, amount := range summary.ByMethod {
		byMethod[method] = amount.StringFixed(2)
	}

	sales := make([]saleSummary, len(summary.Sales))
	for i, s := range summary.Sales {
		sales[i] = saleSummary{
			ID:            s.ID,
			SaleNumber:    s.SaleNumber,
			OperatorID:    s.OperatorID,
			PaymentMethod: s.PaymentMethod,
			Total:         numericToString(s.Total),
		}
	}

	writeJSON(w, http.StatusOK, dailySalesResponse{
		Date:        summary.Date,
		TotalCount:  summary.TotalCount,
		TotalAmount: summary.TotalAmount.StringFixed(2),
		ByMethod:    byMethod,
		Sales:       sales,
	})
}

// Receivables lists open credit accounts, overdue first.
func (h *ReportHandler) Receivables(w http.ResponseWriter, r *http.Request) {
	report, err := h.credits.ReceivablesReport(r.Context())
	if err != nil {
		log.Printf("ERROR: receivables report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]receivableResponse, len(report))
	for i, rec := range report {
		resp[i] = receivableResponse{
			Account:       toCreditAccountResponse(rec.Account),
			Balance:       rec.Balance.StringFixed(2),
			DaysRemaining: rec.DaysRemaining,
			Status:        rec.Status,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
