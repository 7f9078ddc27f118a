package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andina-pos/api/internal/database"
	"github.com/andina-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ErrInvalidDate is returned when a date string does not parse as a calendar day.
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// LedgerStore defines the DB methods needed to read committed sales.
// Satisfied by *database.Queries; narrow interface for testability.
type LedgerStore interface {
	ListSalesBetween(ctx context.Context, arg database.ListSalesBetweenParams) ([]database.Sale, error)
}

// DailySummary is the aggregate of committed sales for one calendar day.
// Amounts stay as decimals internally; formatting to 2 decimal places
// happens only at the JSON boundary.
type DailySummary struct {
	Date        string
	TotalCount  int
	TotalAmount decimal.Decimal
	ByMethod    map[string]decimal.Decimal
	Sales       []database.Sale
}

// SalesLedger is a read-only view over committed sales.
type SalesLedger struct {
	store LedgerStore
	loc   *time.Location
}

// NewSalesLedger creates a SalesLedger. Calendar days are interpreted in loc.
func NewSalesLedger(store LedgerStore, loc *time.Location) *SalesLedger {
	return &SalesLedger{store: store, loc: loc}
}

// SummarizeSalesForDate returns every sale on the given day plus count and
// amount totals grouped by payment method. operatorID restricts the summary
// to one operator when non-nil. A day with no sales yields a zeroed summary,
// not an error.
func (l *SalesLedger) SummarizeSalesForDate(ctx context.Context, date string, operatorID *uuid.UUID) (*DailySummary, error) {
	day, err := time.ParseInLocation(dateLayout, date, l.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	var opID pgtype.UUID
	if operatorID != nil {
		opID = pgtype.UUID{Bytes: *operatorID, Valid: true}
	}

	sales, err := l.store.ListSalesBetween(ctx, database.ListSalesBetweenParams{
		From:       day,
		To:         day.AddDate(0, 0, 1),
		OperatorID: opID,
	})
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	summary := &DailySummary{
		Date:        day.Format(dateLayout),
		TotalCount:  len(sales),
		TotalAmount: decimal.Zero,
		ByMethod:    make(map[string]decimal.Decimal, len(enum.PaymentMethods)),
		Sales:       sales,
	}
	for _, s := range sales {
		amount := numericToDecimal(s.Total)
		summary.TotalAmount = summary.TotalAmount.Add(amount)
		summary.ByMethod[s.PaymentMethod] = summary.ByMethod[s.PaymentMethod].Add(amount)
	}
	return summary, nil
}
