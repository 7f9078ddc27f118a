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

// Errors returned by the closing service.
var (
	ErrNegativeCounted   = errors.New("counted amounts must not be negative")
	ErrAlreadyClosed     = errors.New("day is already closed for this operator")
	ErrToleranceExceeded = errors.New("variance exceeds the tolerance threshold")
)

// ClosingStore defines the DB methods needed by the closing service.
// Satisfied by *database.Queries.
type ClosingStore interface {
	GetCashClosing(ctx context.Context, arg database.GetCashClosingParams) (database.CashClosing, error)
	CreateCashClosing(ctx context.Context, arg database.CreateCashClosingParams) (database.CashClosing, error)
	ListCashClosingsBetween(ctx context.Context, arg database.ListCashClosingsBetweenParams) ([]database.CashClosing, error)
}

// ReconcileResult compares expected sales totals against operator-entered
// counted amounts for one day and operator.
type ReconcileResult struct {
	Date               string
	OperatorID         uuid.UUID
	ExpectedByMethod   map[string]decimal.Decimal
	CountedByMethod    map[string]decimal.Decimal
	ExpectedTotal      decimal.Decimal
	CountedTotal       decimal.Decimal
	Variance           decimal.Decimal
	ToleranceThreshold decimal.Decimal
	WithinTolerance    bool
}

// ClosingService reconciles counted cash against the sales ledger and
// records committed closings.
type ClosingService struct {
	ledger       *SalesLedger
	store        ClosingStore
	tolerancePct decimal.Decimal
	loc          *time.Location
}

// NewClosingService creates a ClosingService. tolerancePct is the maximum
// acceptable variance as a percentage of the expected total; 0 means any
// nonzero variance blocks the closing.
func NewClosingService(ledger *SalesLedger, store ClosingStore, tolerancePct decimal.Decimal, loc *time.Location) *ClosingService {
	return &ClosingService{ledger: ledger, store: store, tolerancePct: tolerancePct, loc: loc}
}

// Reconcile computes expected totals per payment method from the sales
// ledger and compares them against counted amounts. Query-only: committing
// is a separate step. Variance is reported as a magnitude; whether the
// drawer is over or short can be read off the two totals.
func (s *ClosingService) Reconcile(ctx context.Context, date string, operatorID uuid.UUID, counted map[string]decimal.Decimal) (*ReconcileResult, error) {
	for method, amount := range counted {
		if !enum.IsValidPaymentMethod(method) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("%w: %s", ErrNegativeCounted, method)
		}
	}

	summary, err := s.ledger.SummarizeSalesForDate(ctx, date, &operatorID)
	if err != nil {
		return nil, err
	}

	countedTotal := decimal.Zero
	countedByMethod := make(map[string]decimal.Decimal, len(counted))
	for method, amount := range counted {
		countedByMethod[method] = amount
		countedTotal = countedTotal.Add(amount)
	}

	variance := summary.TotalAmount.Sub(countedTotal).Abs()
	threshold := summary.TotalAmount.Mul(s.tolerancePct).Div(decimal.NewFromInt(100))

	return &ReconcileResult{
		Date:               summary.Date,
		OperatorID:         operatorID,
		ExpectedByMethod:   summary.ByMethod,
		CountedByMethod:    countedByMethod,
		ExpectedTotal:      summary.TotalAmount,
		CountedTotal:       countedTotal,
		Variance:           variance,
		ToleranceThreshold: threshold,
		WithinTolerance:    variance.LessThanOrEqual(threshold),
	}, nil
}

// IsDateClosed reports whether a closing already exists for (date, operator).
func (s *ClosingService) IsDateClosed(ctx context.Context, date string, operatorID uuid.UUID) (bool, error) {
	day, err := time.ParseInLocation(dateLayout, date, s.loc)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	_, err = s.store.GetCashClosing(ctx, database.GetCashClosingParams{
		ClosingDate: pgtype.Date{Time: day, Valid: true},
		OperatorID:  operatorID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get cash closing: %w", err)
	}
	return true, nil
}

// Commit re-runs the reconciliation, gates on the tolerance, and records
// the closing. The UNIQUE (closing_date, operator_id) constraint is the
// real guard against double-closing; the IsDateClosed pre-check only gives
// a friendlier error on the common path.
func (s *ClosingService) Commit(ctx context.Context, date string, operatorID uuid.UUID, counted map[string]decimal.Decimal) (*database.CashClosing, *ReconcileResult, error) {
	// An already-closed day wins over everything else, whatever counted
	// amounts the second call carries.
	closed, err := s.IsDateClosed(ctx, date, operatorID)
	if err != nil {
		return nil, nil, err
	}
	if closed {
		return nil, nil, ErrAlreadyClosed
	}

	result, err := s.Reconcile(ctx, date, operatorID, counted)
	if err != nil {
		return nil, nil, err
	}
	if !result.WithinTolerance {
		return nil, result, ErrToleranceExceeded
	}

	day, _ := time.ParseInLocation(dateLayout, result.Date, s.loc)
	closing, err := s.store.CreateCashClosing(ctx, database.CreateCashClosingParams{
		ClosingDate:    pgtype.Date{Time: day, Valid: true},
		OperatorID:     operatorID,
		CountedAmount:  decimalToNumeric(result.CountedTotal),
		ExpectedAmount: decimalToNumeric(result.ExpectedTotal),
		Variance:       decimalToNumeric(result.Variance),
	})
	if err != nil {
		if isClosingConflict(err) {
			return nil, result, ErrAlreadyClosed
		}
		return nil, nil, fmt.Errorf("create cash closing: %w", err)
	}
	return &closing, result, nil
}

// ListClosings returns committed closings for an inclusive date range.
func (s *ClosingService) ListClosings(ctx context.Context, from, to string) ([]database.CashClosing, error) {
	fromDay, err := time.ParseInLocation(dateLayout, from, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, from)
	}
	toDay, err := time.ParseInLocation(dateLayout, to, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, to)
	}
	closings, err := s.store.ListCashClosingsBetween(ctx, database.ListCashClosingsBetweenParams{
		From: pgtype.Date{Time: fromDay, Valid: true},
		To:   pgtype.Date{Time: toDay, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("list cash closings: %w", err)
	}
	return closings, nil
}

// isClosingConflict checks for a unique constraint violation on
// (closing_date, operator_id), pgconn error code 23505.
func isClosingConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "cash_closings_closing_date_operator_id_key"
	}
	return false
}
