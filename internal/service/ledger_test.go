package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andina-pos/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// mockLedgerStore implements LedgerStore with configurable behavior.
type mockLedgerStore struct {
	listSalesBetweenFn func(ctx context.Context, arg database.ListSalesBetweenParams) ([]database.Sale, error)
}

func (m *mockLedgerStore) ListSalesBetween(ctx context.Context, arg database.ListSalesBetweenParams) ([]database.Sale, error) {
	return m.listSalesBetweenFn(ctx, arg)
}

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func testSale(operatorID uuid.UUID, method, total string) database.Sale {
	return database.Sale{
		ID:            uuid.New(),
		SaleNumber:    "VTA-000001",
		OperatorID:    operatorID,
		PaymentMethod: method,
		Total:         makeNumeric(total),
		CreatedAt:     time.Now(),
	}
}

func TestSummarizeSalesForDate_GroupsByMethod(t *testing.T) {
	operatorID := uuid.New()
	store := &mockLedgerStore{
		listSalesBetweenFn: func(ctx context.Context, arg database.ListSalesBetweenParams) ([]database.Sale, error) {
			return []database.Sale{
				testSale(operatorID, "CASH", "100.00"),
				testSale(operatorID, "CASH", "50.50"),
				testSale(operatorID, "DEBIT", "200.00"),
				testSale(operatorID, "TRANSFER", "75.25"),
			}, nil
		},
	}
	ledger := NewSalesLedger(store, time.UTC)

	summary, err := ledger.SummarizeSalesForDate(context.Background(), "2026-08-31", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Date != "2026-08-31" {
		t.Errorf("date: got %s, want 2026-08-31", summary.Date)
	}
	if summary.TotalCount != 4 {
		t.Errorf("total count: got %d, want 4", summary.TotalCount)
	}
	if !summary.TotalAmount.Equal(decimal.RequireFromString("425.75")) {
		t.Errorf("total amount: got %s, want 425.75", summary.TotalAmount)
	}
	if !summary.ByMethod["CASH"].Equal(decimal.RequireFromString("150.50")) {
		t.Errorf("CASH total: got %s, want 150.50", summary.ByMethod["CASH"])
	}
	if !summary.ByMethod["DEBIT"].Equal(decimal.RequireFromString("200.00")) {
		t.Errorf("DEBIT total: got %s, want 200.00", summary.ByMethod["DEBIT"])
	}
}

func TestSummarizeSalesForDate_EmptyDay(t *testing.T) {
	store := &mockLedgerStore{
		listSalesBetweenFn: func(ctx context.Context, arg database.ListSalesBetweenParams) ([]database.Sale, error) {
			return nil, nil
		},
	}
	ledger := NewSalesLedger(store, time.UTC)

	summary, err := ledger.SummarizeSalesForDate(context.Background(), "2026-08-31", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalCount != 0 {
		t.Errorf("total count: got %d, want 0", summary.TotalCount)
	}
	if !summary.TotalAmount.IsZero() {
		t.Errorf("total amount: got %s, want 0", summary.TotalAmount)
	}
}

func TestSummarizeSalesForDate_InvalidDate(t *testing.T) {
	store := &mockLedgerStore{
		listSalesBetweenFn: func(ctx context.Context, arg database.ListSalesBetweenParams) ([]database.Sale, error) {
			t.Fatal("store should not be called on invalid date")
			return nil, nil
		},
	}
	ledger := NewSalesLedger(store, time.UTC)

	for _, date := range []string{"", "31-08-2026", "2026-13-01", "not-a-date"} {
		if _, err := ledger.SummarizeSalesForDate(context.Background(), date, nil); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("date %q: got %v, want ErrInvalidDate", date, err)
		}
	}
}

func TestSummarizeSalesForDate_QueryWindow(t *testing.T) {
	operatorID := uuid.New()
	var gotArg database.ListSalesBetweenParams
	store := &mockLedgerStore{
		listSalesBetweenFn: func(ctx context.Context, arg database.ListSalesBetweenParams) ([]database.Sale, error) {
			gotArg = arg
			return nil, nil
		},
	}
	ledger := NewSalesLedger(store, time.UTC)

	if _, err := ledger.SummarizeSalesForDate(context.Background(), "2026-08-31", &operatorID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantFrom := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	if !gotArg.From.Equal(wantFrom) {
		t.Errorf("from: got %v, want %v", gotArg.From, wantFrom)
	}
	if !gotArg.To.Equal(wantFrom.AddDate(0, 0, 1)) {
		t.Errorf("to: got %v, want %v", gotArg.To, wantFrom.AddDate(0, 0, 1))
	}
	if !gotArg.OperatorID.Valid || uuid.UUID(gotArg.OperatorID.Bytes) != operatorID {
		t.Errorf("operator filter not passed through: %+v", gotArg.OperatorID)
	}
}
