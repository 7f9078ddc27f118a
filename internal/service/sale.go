package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andina-pos/api/internal/database"
	"github.com/andina-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxSaleNumberRetries = 3

// Errors returned by the sale service.
var (
	ErrEmptyItems         = errors.New("items are required")
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrInvalidProductID   = errors.New("invalid product_id")
	ErrProductNotFound    = errors.New("product not found")
	ErrCreditCustomer     = errors.New("customer_name is required for STORE_CREDIT sales")
	ErrCreditDueDate      = errors.New("due_date is required for STORE_CREDIT sales")
	ErrSaleRefRequired    = errors.New("reference_number is required for this payment method")
)

// SaleStore defines the DB methods needed to record sales.
// Satisfied by *database.Queries (and its WithTx variant).
type SaleStore interface {
	GetNextSaleNumber(ctx context.Context) (int32, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateSale(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error)
	CreateSaleItem(ctx context.Context, arg database.CreateSaleItemParams) (database.SaleItem, error)
	CreateCreditAccount(ctx context.Context, arg database.CreateCreditAccountParams) (database.CreditAccount, error)
}

// NewSaleStore creates a SaleStore from a DBTX (pool or tx).
type NewSaleStore func(db database.DBTX) SaleStore

// CreateSaleRequest is the validated input for recording a sale.
type CreateSaleRequest struct {
	OperatorID      uuid.UUID
	PaymentMethod   string
	ReferenceNumber string
	Items           []CreateSaleItemRequest

	// Required when PaymentMethod is STORE_CREDIT.
	CustomerName     string
	CustomerDocument string
	DueDate          string // YYYY-MM-DD
}

// CreateSaleItemRequest is a single line item.
type CreateSaleItemRequest struct {
	ProductID string
	Quantity  int32
}

// CreateSaleResult is the recorded sale with its items and, for
// store-credit sales, the credit account opened by the same transaction.
type CreateSaleResult struct {
	Sale          database.Sale
	Items         []database.SaleItem
	CreditAccount *database.CreditAccount
}

// SaleService records committed sales.
type SaleService struct {
	pool     TxBeginner
	newStore NewSaleStore
	loc      *time.Location
}

// NewSaleService creates a new SaleService.
func NewSaleService(pool TxBeginner, newStore NewSaleStore, loc *time.Location) *SaleService {
	return &SaleService{pool: pool, newStore: newStore, loc: loc}
}

// CreateSale validates, prices, and records a sale atomically. A sale paid
// via STORE_CREDIT opens the customer's credit account in the same
// transaction, with the account amount equal to the sale total.
// Retries up to maxSaleNumberRetries times on sale_number unique constraint
// violations (concurrent transactions can read the same MAX).
func (s *SaleService) CreateSale(ctx context.Context, req CreateSaleRequest) (*CreateSaleResult, error) {
	if !enum.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidMethod
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	switch req.PaymentMethod {
	case enum.PaymentMethodStoreCredit:
		if req.CustomerName == "" {
			return nil, ErrCreditCustomer
		}
		if req.DueDate == "" {
			return nil, ErrCreditDueDate
		}
		if _, err := time.ParseInLocation(dateLayout, req.DueDate, s.loc); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDueDate, req.DueDate)
		}
	case enum.PaymentMethodTransfer, enum.PaymentMethodMobilePayment:
		if req.ReferenceNumber == "" {
			return nil, ErrSaleRefRequired
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxSaleNumberRetries; attempt++ {
		result, err := s.createSaleTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isSaleNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isSaleNumberConflict checks if the error is a unique constraint violation
// on the sale number (pgconn error code 23505).
func isSaleNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "sales_sale_number_key"
	}
	return false
}

// createSaleTx executes the full sale creation in a single transaction.
func (s *SaleService) createSaleTx(ctx context.Context, req CreateSaleRequest) (*CreateSaleResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextNum, err := store.GetNextSaleNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next sale number: %w", err)
	}
	saleNumber := fmt.Sprintf("VTA-%06d", nextNum)

	// --- Process items: validate + price from the catalog ---
	total := decimal.Zero
	type pricedItem struct {
		productID uuid.UUID
		quantity  int32
		unitPrice decimal.Decimal
		subtotal  decimal.Decimal
	}
	var items []pricedItem

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		product, err := store.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}

		unitPrice := numericToDecimal(product.Price)
		subtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		total = total.Add(subtotal)

		items = append(items, pricedItem{
			productID: productID,
			quantity:  item.Quantity,
			unitPrice: unitPrice,
			subtotal:  subtotal,
		})
	}

	referenceNumber := pgtype.Text{}
	if req.ReferenceNumber != "" {
		referenceNumber = pgtype.Text{String: req.ReferenceNumber, Valid: true}
	}

	sale, err := store.CreateSale(ctx, database.CreateSaleParams{
		SaleNumber:      saleNumber,
		OperatorID:      req.OperatorID,
		PaymentMethod:   req.PaymentMethod,
		Total:           decimalToNumeric(total),
		ReferenceNumber: referenceNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}

	var itemResults []database.SaleItem
	for _, pi := range items {
		it, err := store.CreateSaleItem(ctx, database.CreateSaleItemParams{
			SaleID:    sale.ID,
			ProductID: pi.productID,
			Quantity:  pi.quantity,
			UnitPrice: decimalToNumeric(pi.unitPrice),
			Subtotal:  decimalToNumeric(pi.subtotal),
		})
		if err != nil {
			return nil, fmt.Errorf("create sale item: %w", err)
		}
		itemResults = append(itemResults, it)
	}

	var creditAccount *database.CreditAccount
	if req.PaymentMethod == enum.PaymentMethodStoreCredit {
		due, _ := time.ParseInLocation(dateLayout, req.DueDate, s.loc)
		customerDocument := pgtype.Text{}
		if req.CustomerDocument != "" {
			customerDocument = pgtype.Text{String: req.CustomerDocument, Valid: true}
		}
		account, err := store.CreateCreditAccount(ctx, database.CreateCreditAccountParams{
			CustomerName:     req.CustomerName,
			CustomerDocument: customerDocument,
			OriginalAmount:   decimalToNumeric(total),
			RelatedSaleID:    pgtype.UUID{Bytes: sale.ID, Valid: true},
			DueDate:          pgtype.Date{Time: due, Valid: true},
		})
		if err != nil {
			return nil, fmt.Errorf("create credit account: %w", err)
		}
		creditAccount = &account
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateSaleResult{
		Sale:          sale,
		Items:         itemResults,
		CreditAccount: creditAccount,
	}, nil
}
