package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getCashClosing = `
SELECT id, closing_date, operator_id, counted_amount, expected_amount, variance, created_at
FROM cash_closings
WHERE closing_date = $1 AND operator_id = $2
`

type GetCashClosingParams struct {
	ClosingDate pgtype.Date
	OperatorID  uuid.UUID
}

func (q *Queries) GetCashClosing(ctx context.Context, arg GetCashClosingParams) (CashClosing, error) {
	row := q.db.QueryRow(ctx, getCashClosing, arg.ClosingDate, arg.OperatorID)
	var c CashClosing
	err := row.Scan(&c.ID, &c.ClosingDate, &c.OperatorID, &c.CountedAmount, &c.ExpectedAmount, &c.Variance, &c.CreatedAt)
	return c, err
}

const createCashClosing = `
INSERT INTO cash_closings (closing_date, operator_id, counted_amount, expected_amount, variance)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, closing_date, operator_id, counted_amount, expected_amount, variance, created_at
`

type CreateCashClosingParams struct {
	ClosingDate    pgtype.Date
	OperatorID     uuid.UUID
	CountedAmount  pgtype.Numeric
	ExpectedAmount pgtype.Numeric
	Variance       pgtype.Numeric
}

// CreateCashClosing inserts a closing record. The cash_closings table has a
// UNIQUE (closing_date, operator_id) constraint; a 23505 on it means the day
// is already closed for that operator.
func (q *Queries) CreateCashClosing(ctx context.Context, arg CreateCashClosingParams) (CashClosing, error) {
	row := q.db.QueryRow(ctx, createCashClosing,
		arg.ClosingDate, arg.OperatorID, arg.CountedAmount, arg.ExpectedAmount, arg.Variance)
	var c CashClosing
	err := row.Scan(&c.ID, &c.ClosingDate, &c.OperatorID, &c.CountedAmount, &c.ExpectedAmount, &c.Variance, &c.CreatedAt)
	return c, err
}

const listCashClosingsBetween = `
SELECT id, closing_date, operator_id, counted_amount, expected_amount, variance, created_at
FROM cash_closings
WHERE closing_date >= $1 AND closing_date <= $2
ORDER BY closing_date, created_at
`

type ListCashClosingsBetweenParams struct {
	From pgtype.Date
	To   pgtype.Date
}

func (q *Queries) ListCashClosingsBetween(ctx context.Context, arg ListCashClosingsBetweenParams) ([]CashClosing, error) {
	rows, err := q.db.Query(ctx, listCashClosingsBetween, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var closings []CashClosing
	for rows.Next() {
		var c CashClosing
		if err := rows.Scan(&c.ID, &c.ClosingDate, &c.OperatorID, &c.CountedAmount, &c.ExpectedAmount, &c.Variance, &c.CreatedAt); err != nil {
			return nil, err
		}
		closings = append(closings, c)
	}
	return closings, rows.Err()
}
