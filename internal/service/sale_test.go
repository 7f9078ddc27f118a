package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andina-pos/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// mockSaleStore implements SaleStore with configurable behavior.
type mockSaleStore struct {
	getNextSaleNumberFn   func(ctx context.Context) (int32, error)
	getProductFn          func(ctx context.Context, id uuid.UUID) (database.Product, error)
	createSaleFn          func(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error)
	createSaleItemFn      func(ctx context.Context, arg database.CreateSaleItemParams) (database.SaleItem, error)
	createCreditAccountFn func(ctx context.Context, arg database.CreateCreditAccountParams) (database.CreditAccount, error)
}

func (m *mockSaleStore) GetNextSaleNumber(ctx context.Context) (int32, error) {
	return m.getNextSaleNumberFn(ctx)
}
func (m *mockSaleStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	return m.getProductFn(ctx, id)
}
func (m *mockSaleStore) CreateSale(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error) {
	return m.createSaleFn(ctx, arg)
}
func (m *mockSaleStore) CreateSaleItem(ctx context.Context, arg database.CreateSaleItemParams) (database.SaleItem, error) {
	return m.createSaleItemFn(ctx, arg)
}
func (m *mockSaleStore) CreateCreditAccount(ctx context.Context, arg database.CreateCreditAccountParams) (database.CreditAccount, error) {
	return m.createCreditAccountFn(ctx, arg)
}

// defaultSaleStore prices one known product at 25.00.
func defaultSaleStore(productID uuid.UUID) *mockSaleStore {
	return &mockSaleStore{
		getNextSaleNumberFn: func(ctx context.Context) (int32, error) { return 1, nil },
		getProductFn: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			if id == productID {
				return database.Product{ID: productID, Name: "Harina PAN", Price: makeNumeric("25.00")}, nil
			}
			return database.Product{}, pgx.ErrNoRows
		},
		createSaleFn: func(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error) {
			return database.Sale{
				ID:            uuid.New(),
				SaleNumber:    arg.SaleNumber,
				OperatorID:    arg.OperatorID,
				PaymentMethod: arg.PaymentMethod,
				Total:         arg.Total,
				CreatedAt:     time.Now(),
			}, nil
		},
		createSaleItemFn: func(ctx context.Context, arg database.CreateSaleItemParams) (database.SaleItem, error) {
			return database.SaleItem{
				ID:        uuid.New(),
				SaleID:    arg.SaleID,
				ProductID: arg.ProductID,
				Quantity:  arg.Quantity,
				UnitPrice: arg.UnitPrice,
				Subtotal:  arg.Subtotal,
			}, nil
		},
	}
}

func newTestSaleService(store *mockSaleStore) *SaleService {
	pool := &mockTxBeginner{tx: &mockTx{}}
	newStore := func(db database.DBTX) SaleStore { return store }
	return NewSaleService(pool, newStore, time.UTC)
}

func TestCreateSale_HappyPath(t *testing.T) {
	productID := uuid.New()
	operatorID := uuid.New()
	store := defaultSaleStore(productID)
	svc := newTestSaleService(store)

	result, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		OperatorID:    operatorID,
		PaymentMethod: "CASH",
		Items: []CreateSaleItemRequest{
			{ProductID: productID.String(), Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Sale.SaleNumber != "VTA-000001" {
		t.Errorf("sale number: got %s, want VTA-000001", result.Sale.SaleNumber)
	}
	if !numericToDecimal(result.Sale.Total).Equal(decimal.RequireFromString("75.00")) {
		t.Errorf("total: got %s, want 75.00", numericToDecimal(result.Sale.Total))
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if result.CreditAccount != nil {
		t.Error("cash sale must not open a credit account")
	}
}

func TestCreateSale_StoreCreditOpensAccount(t *testing.T) {
	productID := uuid.New()
	store := defaultSaleStore(productID)
	var accountArg database.CreateCreditAccountParams
	store.createCreditAccountFn = func(ctx context.Context, arg database.CreateCreditAccountParams) (database.CreditAccount, error) {
		accountArg = arg
		return database.CreditAccount{
			ID:             uuid.New(),
			CustomerName:   arg.CustomerName,
			OriginalAmount: arg.OriginalAmount,
			RelatedSaleID:  arg.RelatedSaleID,
			DueDate:        arg.DueDate,
		}, nil
	}
	svc := newTestSaleService(store)

	result, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		OperatorID:    uuid.New(),
		PaymentMethod: "STORE_CREDIT",
		Items: []CreateSaleItemRequest{
			{ProductID: productID.String(), Quantity: 2},
		},
		CustomerName: "Jose Rivas",
		DueDate:      "2026-10-15",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CreditAccount == nil {
		t.Fatal("store-credit sale must open a credit account")
	}
	if !numericToDecimal(accountArg.OriginalAmount).Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("account amount: got %s, want sale total 50.00", numericToDecimal(accountArg.OriginalAmount))
	}
	if !accountArg.RelatedSaleID.Valid || uuid.UUID(accountArg.RelatedSaleID.Bytes) != result.Sale.ID {
		t.Error("account must reference the originating sale")
	}
}

func TestCreateSale_Validation(t *testing.T) {
	productID := uuid.New()
	svc := newTestSaleService(defaultSaleStore(productID))
	items := []CreateSaleItemRequest{{ProductID: productID.String(), Quantity: 1}}

	cases := []struct {
		name string
		req  CreateSaleRequest
		want error
	}{
		{"bad method", CreateSaleRequest{PaymentMethod: "BITCOIN", Items: items}, ErrInvalidMethod},
		{"no items", CreateSaleRequest{PaymentMethod: "CASH"}, ErrEmptyItems},
		{"zero quantity", CreateSaleRequest{PaymentMethod: "CASH", Items: []CreateSaleItemRequest{{ProductID: productID.String(), Quantity: 0}}}, ErrInvalidQuantity},
		{"bad product id", CreateSaleRequest{PaymentMethod: "CASH", Items: []CreateSaleItemRequest{{ProductID: "nope", Quantity: 1}}}, ErrInvalidProductID},
		{"credit needs customer", CreateSaleRequest{PaymentMethod: "STORE_CREDIT", Items: items, DueDate: "2026-10-15"}, ErrCreditCustomer},
		{"credit needs due date", CreateSaleRequest{PaymentMethod: "STORE_CREDIT", Items: items, CustomerName: "X"}, ErrCreditDueDate},
		{"transfer needs reference", CreateSaleRequest{PaymentMethod: "TRANSFER", Items: items}, ErrSaleRefRequired},
		{"mobile needs reference", CreateSaleRequest{PaymentMethod: "MOBILE_PAYMENT", Items: items}, ErrSaleRefRequired},
	}
	for _, tc := range cases {
		if _, err := svc.CreateSale(context.Background(), tc.req); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestCreateSale_UnknownProduct(t *testing.T) {
	svc := newTestSaleService(defaultSaleStore(uuid.New()))

	_, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		OperatorID:    uuid.New(),
		PaymentMethod: "CASH",
		Items: []CreateSaleItemRequest{
			{ProductID: uuid.New().String(), Quantity: 1},
		},
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("got %v, want ErrProductNotFound", err)
	}
}

func TestCreateSale_RetriesSaleNumberConflict(t *testing.T) {
	productID := uuid.New()
	store := defaultSaleStore(productID)
	attempts := 0
	store.createSaleFn = func(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error) {
		attempts++
		if attempts == 1 {
			return database.Sale{}, &pgconn.PgError{Code: "23505", ConstraintName: "sales_sale_number_key"}
		}
		return database.Sale{ID: uuid.New(), SaleNumber: arg.SaleNumber, Total: arg.Total}, nil
	}
	svc := newTestSaleService(store)

	result, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		OperatorID:    uuid.New(),
		PaymentMethod: "CASH",
		Items: []CreateSaleItemRequest{
			{ProductID: productID.String(), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected retry after conflict, got %d attempts", attempts)
	}
	if result.Sale.SaleNumber == "" {
		t.Error("sale number missing after retry")
	}
}

func TestCreateSale_GivesUpAfterRepeatedConflicts(t *testing.T) {
	productID := uuid.New()
	store := defaultSaleStore(productID)
	attempts := 0
	store.createSaleFn = func(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error) {
		attempts++
		return database.Sale{}, &pgconn.PgError{Code: "23505", ConstraintName: "sales_sale_number_key"}
	}
	svc := newTestSaleService(store)

	_, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		OperatorID:    uuid.New(),
		PaymentMethod: "CASH",
		Items: []CreateSaleItemRequest{
			{ProductID: productID.String(), Quantity: 1},
		},
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if attempts != maxSaleNumberRetries {
		t.Errorf("attempts: got %d, want %d", attempts, maxSaleNumberRetries)
	}
}
