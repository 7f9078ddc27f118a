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

// ClosingHandler handles cash closing endpoints.
type ClosingHandler struct {
	service *service.ClosingService
	hub     *ws.Hub
}

// NewClosingHandler creates a new ClosingHandler.
func NewClosingHandler(svc *service.ClosingService, hub *ws.Hub) *ClosingHandler {
	return &ClosingHandler{service: svc, hub: hub}
}

// RegisterRoutes registers closing endpoints on the given Chi router.
func (h *ClosingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/reconcile", h.Reconcile)
	r.Post("/", h.Commit)
	r.Get("/status", h.Status)
	r.Get("/", h.List)
}

// --- Request / Response types ---

type closingRequest struct {
	Date    string            `json:"date"`
	Counted map[string]string `json:"counted"`
}

type reconcileResponse struct {
	Date               string            `json:"date"`
	OperatorID         uuid.UUID         `json:"operator_id"`
	ExpectedByMethod   map[string]string `json:"expected_by_method"`
	CountedByMethod    map[string]string `json:"counted_by_method"`
	ExpectedTotal      string            `json:"expected_total"`
	CountedTotal       string            `json:"counted_total"`
	Variance           string            `json:"variance"`
	ToleranceThreshold string            `json:"tolerance_threshold"`
	WithinTolerance    bool              `json:"within_tolerance"`
}

func toReconcileResponse(r *service.ReconcileResult) reconcileResponse {
	expected := make(map[string]string, len(r.ExpectedByMethod))
	for method, amount := range r.ExpectedByMethod {
		expected[method] = amount.StringFixed(2)
	}
	counted := make(map[string]string, len(r.CountedByMethod))
	for method, amount := range r.CountedByMethod {
		counted[method] = amount.StringFixed(2)
	}
	return reconcileResponse{
		Date:               r.Date,
		OperatorID:         r.OperatorID,
		ExpectedByMethod:   expected,
		CountedByMethod:    counted,
		ExpectedTotal:      r.ExpectedTotal.StringFixed(2),
		CountedTotal:       r.CountedTotal.StringFixed(2),
		Variance:           r.Variance.StringFixed(2),
		ToleranceThreshold: r.ToleranceThreshold.StringFixed(2),
		WithinTolerance:    r.WithinTolerance,
	}
}

type closingResponse struct {
	ID             uuid.UUID `json:"id"`
	ClosingDate    string    `json:"closing_date"`
	OperatorID     uuid.UUID `json:"operator_id"`
	CountedAmount  string    `json:"counted_amount"`
	ExpectedAmount string    `json:"expected_amount"`
	Variance       string    `json:"variance"`
	CreatedAt      time.Time `json:"created_at"`
}

func toClosingResponse(c database.CashClosing) closingResponse {
	return closingResponse{
		ID:             c.ID,
		ClosingDate:    c.ClosingDate.Time.Format("2006-01-02"),
		OperatorID:     c.OperatorID,
		CountedAmount:  numericToString(c.CountedAmount),
		ExpectedAmount: numericToString(c.ExpectedAmount),
		Variance:       numericToString(c.Variance),
		CreatedAt:      c.CreatedAt,
	}
}

// parseCounted converts the counted map's decimal strings.
func parseCounted(raw map[string]string) (map[string]decimal.Decimal, error) {
	counted := make(map[string]decimal.Decimal, len(raw))
	for method, amount := range raw {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, errors.New("counted amounts must be decimal strings")
		}
		counted[method] = d
	}
	return counted, nil
}

// --- Handlers ---

// Reconcile previews the day's reconciliation without recording anything.
func (h *ClosingHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req closingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	counted, err := parseCounted(req.Counted)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.service.Reconcile(r.Context(), req.Date, claims.UserID, counted)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDate),
			errors.Is(err, service.ErrInvalidMethod),
			errors.Is(err, service.ErrNegativeCounted):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: reconcile closing: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toReconcileResponse(result))
}

// Commit records the day's closing for the authenticated operator.
func (h *ClosingHandler) Commit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req closingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	counted, err := parseCounted(req.Counted)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	closing, result, err := h.service.Commit(r.Context(), req.Date, claims.UserID, counted)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDate),
			errors.Is(err, service.ErrInvalidMethod),
			errors.Is(err, service.ErrNegativeCounted):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrToleranceExceeded):
			resp := map[string]interface{}{"error": err.Error()}
			if result != nil {
				resp["reconciliation"] = toReconcileResponse(result)
			}
			writeJSON(w, http.StatusUnprocessableEntity, resp)
		case errors.Is(err, service.ErrAlreadyClosed):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: commit closing: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := map[string]interface{}{
		"closing":        toClosingResponse(*closing),
		"reconciliation": toReconcileResponse(result),
	}
	h.broadcast(ws.EventClosingCommitted, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// Status reports whether the authenticated operator already closed a date.
func (h *ClosingHandler) Status(w http.ResponseWriter, r *http.Request) {
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

	closed, err := h.service.IsDateClosed(r.Context(), date, claims.UserID)
	if err != nil {
		log.Printf("ERROR: closing status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"date": date, "closed": closed})
}

// List returns committed closings for an inclusive date range.
func (h *ClosingHandler) List(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from: " + err.Error()})
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to: " + err.Error()})
		return
	}

	closings, err := h.service.ListClosings(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDate) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: list closings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]closingResponse, len(closings))
	for i, c := range closings {
		resp[i] = toClosingResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ClosingHandler) broadcast(eventType string, payload interface{}) {
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
