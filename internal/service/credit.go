package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/andina-pos/api/internal/database"
	"github.com/andina-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the credit service.
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrCustomerRequired  = errors.New("customer_name is required")
	ErrInvalidDueDate    = errors.New("invalid due_date, expected YYYY-MM-DD")
	ErrInvalidMethod     = errors.New("invalid payment_method")
	ErrSaleNotFound      = errors.New("related sale not found")
	ErrAmountMismatch    = errors.New("amount does not match the related sale total")
	ErrAccountNotFound   = errors.New("credit account not found")
	ErrOverpayment       = errors.New("payment exceeds remaining balance")
	ErrReferenceRequired = errors.New("reference_number is required for non-cash payments")
)

// CreditStore defines the DB methods needed by the credit service.
// Satisfied by *database.Queries (and its WithTx variant).
type CreditStore interface {
	GetSale(ctx context.Context, id uuid.UUID) (database.Sale, error)
	CreateCreditAccount(ctx context.Context, arg database.CreateCreditAccountParams) (database.CreditAccount, error)
	GetCreditAccount(ctx context.Context, id uuid.UUID) (database.CreditAccount, error)
	GetCreditAccountForUpdate(ctx context.Context, id uuid.UUID) (database.CreditAccount, error)
	SumCompletedPaymentsByAccount(ctx context.Context, creditAccountID uuid.UUID) (pgtype.Numeric, error)
	CreateCreditPayment(ctx context.Context, arg database.CreateCreditPaymentParams) (database.CreditPayment, error)
	ListCreditPaymentsByAccount(ctx context.Context, creditAccountID uuid.UUID) ([]database.CreditPayment, error)
	ListCreditAccountsWithPaid(ctx context.Context) ([]database.ListCreditAccountsWithPaidRow, error)
}

// NewCreditStore creates a CreditStore from a DBTX (pool or tx).
type NewCreditStore func(db database.DBTX) CreditStore

// CreditService tracks credit extended to customers and payments against it.
type CreditService struct {
	store    CreditStore
	pool     TxBeginner
	newStore NewCreditStore
	loc      *time.Location
}

// NewCreditService creates a new CreditService.
func NewCreditService(store CreditStore, pool TxBeginner, newStore NewCreditStore, loc *time.Location) *CreditService {
	return &CreditService{store: store, pool: pool, newStore: newStore, loc: loc}
}

// OpenCreditRequest is the validated input for opening a credit account.
type OpenCreditRequest struct {
	CustomerName     string
	CustomerDocument string
	Amount           decimal.Decimal
	DueDate          string // YYYY-MM-DD
	RelatedSaleID    *uuid.UUID
}

// OpenCredit creates a credit account. When RelatedSaleID is given the
// amount must equal the originating sale's total; the original system never
// checked this, here the mismatch is rejected outright.
func (s *CreditService) OpenCredit(ctx context.Context, req OpenCreditRequest) (database.CreditAccount, error) {
	if req.CustomerName == "" {
		return database.CreditAccount{}, ErrCustomerRequired
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return database.CreditAccount{}, ErrInvalidAmount
	}
	due, err := time.ParseInLocation(dateLayout, req.DueDate, s.loc)
	if err != nil {
		return database.CreditAccount{}, fmt.Errorf("%w: %q", ErrInvalidDueDate, req.DueDate)
	}

	relatedSaleID := pgtype.UUID{}
	if req.RelatedSaleID != nil {
		sale, err := s.store.GetSale(ctx, *req.RelatedSaleID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.CreditAccount{}, ErrSaleNotFound
			}
			return database.CreditAccount{}, fmt.Errorf("get sale: %w", err)
		}
		if !req.Amount.Equal(numericToDecimal(sale.Total)) {
			return database.CreditAccount{}, ErrAmountMismatch
		}
		relatedSaleID = pgtype.UUID{Bytes: *req.RelatedSaleID, Valid: true}
	}

	customerDocument := pgtype.Text{}
	if req.CustomerDocument != "" {
		customerDocument = pgtype.Text{String: req.CustomerDocument, Valid: true}
	}

	account, err := s.store.CreateCreditAccount(ctx, database.CreateCreditAccountParams{
		CustomerName:     req.CustomerName,
		CustomerDocument: customerDocument,
		OriginalAmount:   decimalToNumeric(req.Amount),
		RelatedSaleID:    relatedSaleID,
		DueDate:          pgtype.Date{Time: due, Valid: true},
	})
	if err != nil {
		return database.CreditAccount{}, fmt.Errorf("create credit account: %w", err)
	}
	return account, nil
}

// ApplyPaymentRequest is the validated input for applying a payment.
type ApplyPaymentRequest struct {
	CreditAccountID uuid.UUID
	Amount          decimal.Decimal
	PaymentMethod   string
	ReferenceNumber string
	ReceivedBy      uuid.UUID
}

// ApplyPayment appends an immutable payment row against a credit account.
// The account row is locked (FOR UPDATE) for the balance check so two
// concurrent payments cannot both pass validation against a stale balance.
func (s *CreditService) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (database.CreditPayment, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return database.CreditPayment{}, ErrInvalidAmount
	}
	if !enum.IsValidPaymentMethod(req.PaymentMethod) || req.PaymentMethod == enum.PaymentMethodStoreCredit {
		return database.CreditPayment{}, ErrInvalidMethod
	}
	if req.PaymentMethod != enum.PaymentMethodCash && req.ReferenceNumber == "" {
		return database.CreditPayment{}, ErrReferenceRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.CreditPayment{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	account, err := store.GetCreditAccountForUpdate(ctx, req.CreditAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CreditPayment{}, ErrAccountNotFound
		}
		return database.CreditPayment{}, fmt.Errorf("get credit account: %w", err)
	}

	paid, err := store.SumCompletedPaymentsByAccount(ctx, account.ID)
	if err != nil {
		return database.CreditPayment{}, fmt.Errorf("sum payments: %w", err)
	}

	balance := numericToDecimal(account.OriginalAmount).Sub(numericToDecimal(paid))
	if req.Amount.GreaterThan(balance) {
		return database.CreditPayment{}, ErrOverpayment
	}

	referenceNumber := pgtype.Text{}
	if req.ReferenceNumber != "" {
		referenceNumber = pgtype.Text{String: req.ReferenceNumber, Valid: true}
	}

	payment, err := store.CreateCreditPayment(ctx, database.CreateCreditPaymentParams{
		CreditAccountID: account.ID,
		Amount:          decimalToNumeric(req.Amount),
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: referenceNumber,
		Status:          enum.CreditPaymentStatusCompleted,
		ReceivedBy:      req.ReceivedBy,
	})
	if err != nil {
		return database.CreditPayment{}, fmt.Errorf("create credit payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.CreditPayment{}, fmt.Errorf("commit tx: %w", err)
	}
	return payment, nil
}

// Balance is the recomputed state of a credit account. Status is derived
// from balance and due date on every read, never cached.
type Balance struct {
	Account  database.CreditAccount
	Original decimal.Decimal
	Paid     decimal.Decimal
	Balance  decimal.Decimal
	Status   string
}

// GetBalance recomputes the account's balance and derived status.
func (s *CreditService) GetBalance(ctx context.Context, creditAccountID uuid.UUID) (*Balance, error) {
	account, err := s.store.GetCreditAccount(ctx, creditAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get credit account: %w", err)
	}

	paid, err := s.store.SumCompletedPaymentsByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}

	original := numericToDecimal(account.OriginalAmount)
	paidTotal := numericToDecimal(paid)
	balance := original.Sub(paidTotal)

	return &Balance{
		Account:  account,
		Original: original,
		Paid:     paidTotal,
		Balance:  balance,
		Status:   s.deriveStatus(balance, account.DueDate.Time),
	}, nil
}

// ListPayments returns the payment history for an account, oldest first.
func (s *CreditService) ListPayments(ctx context.Context, creditAccountID uuid.UUID) ([]database.CreditPayment, error) {
	if _, err := s.store.GetCreditAccount(ctx, creditAccountID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get credit account: %w", err)
	}
	payments, err := s.store.ListCreditPaymentsByAccount(ctx, creditAccountID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// Receivable is one open credit account in the receivables report.
type Receivable struct {
	Account       database.CreditAccount
	Balance       decimal.Decimal
	DaysRemaining int
	Status        string
}

// ReceivablesReport lists accounts that still owe money: overdue accounts
// first, then pending, each group in ascending due-date order.
// DaysRemaining is clamped at 0 for overdue accounts.
func (s *CreditService) ReceivablesReport(ctx context.Context) ([]Receivable, error) {
	rows, err := s.store.ListCreditAccountsWithPaid(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credit accounts: %w", err)
	}

	today := s.today()
	var report []Receivable
	for _, r := range rows {
		balance := numericToDecimal(r.Account.OriginalAmount).Sub(numericToDecimal(r.PaidTotal))
		status := s.deriveStatus(balance, r.Account.DueDate.Time)
		if status == enum.CreditStatusPaid {
			continue
		}
		days := int(s.dueDay(r.Account.DueDate.Time).Sub(today).Hours() / 24)
		if days < 0 {
			days = 0
		}
		report = append(report, Receivable{
			Account:       r.Account,
			Balance:       balance,
			DaysRemaining: days,
			Status:        status,
		})
	}

	sort.SliceStable(report, func(i, j int) bool {
		if report[i].Status != report[j].Status {
			return report[i].Status == enum.CreditStatusOverdue
		}
		return report[i].Account.DueDate.Time.Before(report[j].Account.DueDate.Time)
	})
	return report, nil
}

// deriveStatus recomputes the account status: PAID when nothing is owed,
// OVERDUE when past due with a balance, PENDING otherwise.
func (s *CreditService) deriveStatus(balance decimal.Decimal, dueDate time.Time) string {
	if balance.LessThanOrEqual(decimal.Zero) {
		return enum.CreditStatusPaid
	}
	if s.dueDay(dueDate).Before(s.today()) {
		return enum.CreditStatusOverdue
	}
	return enum.CreditStatusPending
}

// today returns midnight of the current day in the store's timezone.
func (s *CreditService) today() time.Time {
	now := time.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// dueDay rebuilds a stored due date as midnight in the store's timezone.
// Postgres date columns scan as UTC midnight, so comparing the raw instant
// against today() misplaces the day boundary in non-UTC zones.
func (s *CreditService) dueDay(dueDate time.Time) time.Time {
	y, m, d := dueDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}
