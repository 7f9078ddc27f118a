package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/andina-pos/api/internal/database"
	"github.com/andina-pos/api/internal/middleware"
	"github.com/andina-pos/api/internal/service"
	"github.com/andina-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditHandler handles credit account endpoints.
type CreditHandler struct {
	service *service.CreditService
	hub     *ws.Hub
}

// NewCreditHandler creates a new CreditHandler.
func NewCreditHandler(svc *service.CreditService, hub *ws.Hub) *CreditHandler {
	return &CreditHandler{service: svc, hub: hub}
}

// RegisterRoutes registers credit endpoints on the given Chi router.
func (h *CreditHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Get("/{id}/balance", h.GetBalance)
	r.Get("/{id}/payments", h.ListPayments)
	r.Post("/{id}/payments", h.ApplyPayment)
}

// --- Request / Response types ---

type openCreditRequest struct {
	CustomerName     string `json:"customer_name"`
	CustomerDocument string `json:"customer_document"`
	Amount           string `json:"amount"`
	DueDate          string `json:"due_date"`
	RelatedSaleID    string `json:"related_sale_id"`
}

type creditAccountResponse struct {
	ID               uuid.UUID  `json:"id"`
	CustomerName     string     `json:"customer_name"`
	CustomerDocument *string    `json:"customer_document"`
	OriginalAmount   string     `json:"original_amount"`
	RelatedSaleID    *uuid.UUID `json:"related_sale_id"`
	DueDate          string     `json:"due_date"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toCreditAccountResponse(a database.CreditAccount) creditAccountResponse {
	resp := creditAccountResponse{
		ID:             a.ID,
		CustomerName:   a.CustomerName,
		OriginalAmount: numericToString(a.OriginalAmount),
		DueDate:        a.DueDate.Time.Format("2006-01-02"),
		CreatedAt:      a.CreatedAt,
	}
	if a.CustomerDocument.Valid {
		resp.CustomerDocument = &a.CustomerDocument.String
	}
	if a.RelatedSaleID.Valid {
		id := uuid.UUID(a.RelatedSaleID.Bytes)
		resp.RelatedSaleID = &id
	}
	return resp
}

type balanceResponse struct {
	Account  creditAccountResponse `json:"account"`
	Original string                `json:"original_amount"`
	Paid     string                `json:"paid_total"`
	Balance  string                `json:"balance"`
	Status   string                `json:"status"`
}

type applyPaymentRequest struct {
	Amount          string `json:"amount"`
	PaymentMethod   string `json:"payment_method"`
	ReferenceNumber string `json:"reference_number"`
}

type creditPaymentResponse struct {
	ID              uuid.UUID `json:"id"`
	CreditAccountID uuid.UUID `json:"credit_account_id"`
	Amount          string    `json:"amount"`
	PaymentMethod   string    `json:"payment_method"`
	ReferenceNumber *string   `json:"reference_number"`
	Status          string    `json:"status"`
	ReceivedBy      uuid.UUID `json:"received_by"`
	CreatedAt       time.Time `json:"created_at"`
}

func toCreditPaymentResponse(p database.CreditPayment) creditPaymentResponse {
	resp := creditPaymentResponse{
		ID:              p.ID,
		CreditAccountID: p.CreditAccountID,
		Amount:          numericToString(p.Amount),
		PaymentMethod:   p.PaymentMethod,
		Status:          p.Status,
		ReceivedBy:      p.ReceivedBy,
		CreatedAt:       p.CreatedAt,
	}
	if p.ReferenceNumber.Valid {
		resp.ReferenceNumber = &p.ReferenceNumber.String
	}
	return resp
}

// --- Handlers ---

// Open creates a credit account, optionally tied to an existing sale.
func (h *CreditHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be a decimal string"})
		return
	}

	var relatedSaleID *uuid.UUID
	if req.RelatedSaleID != "" {
		id, err := uuid.Parse(req.RelatedSaleID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid related_sale_id"})
			return
		}
		relatedSaleID = &id
	}

	account, err := h.service.OpenCredit(r.Context(), service.OpenCreditRequest{
		CustomerName:     req.CustomerName,
		CustomerDocument: req.CustomerDocument,
		Amount:           amount,
		DueDate:          req.DueDate,
		RelatedSaleID:    relatedSaleID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerRequired),
			errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrInvalidDueDate):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrSaleNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrAmountMismatch):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: open credit: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, toCreditAccountResponse(account))
}

// GetBalance returns the recomputed balance and derived status of an account.
func (h *CreditHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credit account ID"})
		return
	}

	balance, err := h.service.GetBalance(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: get credit balance: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		Account:  toCreditAccountResponse(balance.Account),
		Original: balance.Original.StringFixed(2),
		Paid:     balance.Paid.StringFixed(2),
		Balance:  balance.Balance.StringFixed(2),
		Status:   balance.Status,
	})
}

// ListPayments returns the payment history for an account, oldest first.
func (h *CreditHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credit account ID"})
		return
	}

	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: list credit payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]creditPaymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toCreditPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ApplyPayment records a payment against a credit account.
func (h *CreditHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credit account ID"})
		return
	}

	var req applyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be a decimal string"})
		return
	}

	payment, err := h.service.ApplyPayment(r.Context(), service.ApplyPaymentRequest{
		CreditAccountID: id,
		Amount:          amount,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
		ReceivedBy:      claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrInvalidMethod),
			errors.Is(err, service.ErrReferenceRequired):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrAccountNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOverpayment):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: apply credit payment: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := toCreditPaymentResponse(payment)
	h.broadcast(ws.EventCreditPaymentReceived, resp)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *CreditHandler) broadcast(eventType string, payload interface{}) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	h.hub.Broadcast(ws.Event{Type: eventType, Payload: data})
}
