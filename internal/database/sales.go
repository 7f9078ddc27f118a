package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getNextSaleNumber = `
SELECT COALESCE(MAX(substring(sale_number from 5)::int), 0) + 1
FROM sales
`

// GetNextSaleNumber returns the next sequential sale number.
// Sale numbers are formatted "VTA-%06d"; the MAX read races with
// concurrent inserts, callers retry on the unique violation.
func (q *Queries) GetNextSaleNumber(ctx context.Context) (int32, error) {
	row := q.db.QueryRow(ctx, getNextSaleNumber)
	var n int32
	err := row.Scan(&n)
	return n, err
}

const createSale = `
INSERT INTO sales (sale_number, operator_id, payment_method, total, reference_number)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, sale_number, operator_id, payment_method, total, reference_number, created_at
`

type CreateSaleParams struct {
	SaleNumber      string
	OperatorID      uuid.UUID
	PaymentMethod   string
	Total           pgtype.Numeric
	ReferenceNumber pgtype.Text
}

func (q *Queries) CreateSale(ctx context.Context, arg CreateSaleParams) (Sale, error) {
	row := q.db.QueryRow(ctx, createSale,
		arg.SaleNumber, arg.OperatorID, arg.PaymentMethod, arg.Total, arg.ReferenceNumber)
	var s Sale
	err := row.Scan(&s.ID, &s.SaleNumber, &s.OperatorID, &s.PaymentMethod, &s.Total, &s.ReferenceNumber, &s.CreatedAt)
	return s, err
}

const createSaleItem = `
INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, sale_id, product_id, quantity, unit_price, subtotal
`

type CreateSaleItemParams struct {
	SaleID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
}

func (q *Queries) CreateSaleItem(ctx context.Context, arg CreateSaleItemParams) (SaleItem, error) {
	row := q.db.QueryRow(ctx, createSaleItem,
		arg.SaleID, arg.ProductID, arg.Quantity, arg.UnitPrice, arg.Subtotal)
	var it SaleItem
	err := row.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Subtotal)
	return it, err
}

const getSale = `
SELECT id, sale_number, operator_id, payment_method, total, reference_number, created_at
FROM sales
WHERE id = $1
`

func (q *Queries) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	row := q.db.QueryRow(ctx, getSale, id)
	var s Sale
	err := row.Scan(&s.ID, &s.SaleNumber, &s.OperatorID, &s.PaymentMethod, &s.Total, &s.ReferenceNumber, &s.CreatedAt)
	return s, err
}

const listSaleItemsBySale = `
SELECT id, sale_id, product_id, quantity, unit_price, subtotal
FROM sale_items
WHERE sale_id = $1
ORDER BY id
`

func (q *Queries) ListSaleItemsBySale(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error) {
	rows, err := q.db.Query(ctx, listSaleItemsBySale, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SaleItem
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const listSalesBetween = `
SELECT id, sale_number, operator_id, payment_method, total, reference_number, created_at
FROM sales
WHERE created_at >= $1 AND created_at < $2
  AND ($3::uuid IS NULL OR operator_id = $3)
ORDER BY created_at
`

type ListSalesBetweenParams struct {
	From       time.Time
	To         time.Time
	OperatorID pgtype.UUID
}

func (q *Queries) ListSalesBetween(ctx context.Context, arg ListSalesBetweenParams) ([]Sale, error) {
	rows, err := q.db.Query(ctx, listSalesBetween, arg.From, arg.To, arg.OperatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sales []Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.SaleNumber, &s.OperatorID, &s.PaymentMethod, &s.Total, &s.ReferenceNumber, &s.CreatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}
