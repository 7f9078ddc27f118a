package handler

import (
	"context"
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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// SaleReader defines the read-side database methods for sale detail endpoints.
type SaleReader interface {
	GetSale(ctx context.Context, id uuid.UUID) (database.Sale, error)
	ListSaleItemsBySale(ctx context.Context, saleID uuid.UUID) ([]database.SaleItem, error)
}

// SaleHandler handles sale recording and lookup endpoints.
type SaleHandler struct {
	service *service.SaleService
	reader  SaleReader
	hub     *ws.Hub
}

// NewSaleHandler creates a new SaleHandler.
func NewSaleHandler(svc *service.SaleService, reader SaleReader, hub *ws.Hub) *SaleHandler {
	return &SaleHandler{service: svc, reader: reader, hub: hub}
}

// RegisterRoutes registers sale endpoints on the given Chi router.
func (h *SaleHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
}

// --- Request / Response types ---

type createSaleRequest struct {
	PaymentMethod   string            `json:"payment_method"`
	ReferenceNumber string            `json:"reference_number"`
	Items           []saleItemRequest `json:"items"`

	// Only for STORE_CREDIT sales.
	CustomerName     string `json:"customer_name"`
	CustomerDocument string `json:"customer_document"`
	DueDate          string `json:"due_date"`
}

type saleItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type saleItemResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Subtotal  string    `json:"subtotal"`
}

type saleResponse struct {
	ID              uuid.UUID          `json:"id"`
	SaleNumber      string             `json:"sale_number"`
	OperatorID      uuid.UUID          `json:"operator_id"`
	PaymentMethod   string             `json:"payment_method"`
	Total           string             `json:"total"`
	ReferenceNumber *string            `json:"reference_number"`
	Items           []saleItemResponse `json:"items"`
	CreditAccountID *uuid.UUID         `json:"credit_account_id,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

func toSaleResponse(sale database.Sale, items []database.SaleItem, account *database.CreditAccount) saleResponse {
	resp := saleResponse{
		ID:            sale.ID,
		SaleNumber:    sale.SaleNumber,
		OperatorID:    sale.OperatorID,
		PaymentMethod: sale.PaymentMethod,
		Total:         numericToString(sale.Total),
		CreatedAt:     sale.CreatedAt,
	}
	if sale.ReferenceNumber.Valid {
		resp.ReferenceNumber = &sale.ReferenceNumber.String
	}
	resp.Items = make([]saleItemResponse, len(items))
	for i, it := range items {
		resp.Items[i] = saleItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: numericToString(it.UnitPrice),
			Subtotal:  numericToString(it.Subtotal),
		}
	}
	if account != nil {
		id := account.ID
		resp.CreditAccountID = &id
	}
	return resp
}

// --- Handlers ---

// Create records a sale. STORE_CREDIT sales also open the customer's credit
// account in the same transaction.
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req createSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CreateSaleItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateSaleItemRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	result, err := h.service.CreateSale(r.Context(), service.CreateSaleRequest{
		OperatorID:       claims.UserID,
		PaymentMethod:    req.PaymentMethod,
		ReferenceNumber:  req.ReferenceNumber,
		Items:            items,
		CustomerName:     req.CustomerName,
		CustomerDocument: req.CustomerDocument,
		DueDate:          req.DueDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMethod),
			errors.Is(err, service.ErrEmptyItems),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInvalidProductID),
			errors.Is(err, service.ErrCreditCustomer),
			errors.Is(err, service.ErrCreditDueDate),
			errors.Is(err, service.ErrInvalidDueDate),
			errors.Is(err, service.ErrSaleRefRequired):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrProductNotFound):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: create sale: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := toSaleResponse(result.Sale, result.Items, result.CreditAccount)
	h.broadcast(ws.EventSaleCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// Get returns a sale with its items.
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sale ID"})
		return
	}

	sale, err := h.reader.GetSale(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "sale not found"})
			return
		}
		log.Printf("ERROR: get sale: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.reader.ListSaleItemsBySale(r.Context(), sale.ID)
	if err != nil {
		log.Printf("ERROR: list sale items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toSaleResponse(sale, items, nil))
}

// broadcast publishes an event to connected clients. Failure to marshal the
// payload is logged and dropped; it must not fail the request.
func (h *SaleHandler) broadcast(eventType string, payload interface{}) {
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

// numericToString renders a pgtype.Numeric as a plain decimal string for
// JSON responses.
func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}

// numericToDecimal converts a pgtype.Numeric to a shopspring decimal.
func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
