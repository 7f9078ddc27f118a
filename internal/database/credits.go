package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createCreditAccount = `
INSERT INTO credit_accounts (customer_name, customer_document, original_amount, related_sale_id, due_date)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, customer_name, customer_document, original_amount, related_sale_id, due_date, created_at
`

type CreateCreditAccountParams struct {
	CustomerName     string
	CustomerDocument pgtype.Text
	OriginalAmount   pgtype.Numeric
	RelatedSaleID    pgtype.UUID
	DueDate          pgtype.Date
}

func (q *Queries) CreateCreditAccount(ctx context.Context, arg CreateCreditAccountParams) (CreditAccount, error) {
	row := q.db.QueryRow(ctx, createCreditAccount,
		arg.CustomerName, arg.CustomerDocument, arg.OriginalAmount, arg.RelatedSaleID, arg.DueDate)
	var a CreditAccount
	err := row.Scan(&a.ID, &a.CustomerName, &a.CustomerDocument, &a.OriginalAmount, &a.RelatedSaleID, &a.DueDate, &a.CreatedAt)
	return a, err
}

const getCreditAccount = `
SELECT id, customer_name, customer_document, original_amount, related_sale_id, due_date, created_at
FROM credit_accounts
WHERE id = $1
`

func (q *Queries) GetCreditAccount(ctx context.Context, id uuid.UUID) (CreditAccount, error) {
	row := q.db.QueryRow(ctx, getCreditAccount, id)
	var a CreditAccount
	err := row.Scan(&a.ID, &a.CustomerName, &a.CustomerDocument, &a.OriginalAmount, &a.RelatedSaleID, &a.DueDate, &a.CreatedAt)
	return a, err
}

const getCreditAccountForUpdate = `
SELECT id, customer_name, customer_document, original_amount, related_sale_id, due_date, created_at
FROM credit_accounts
WHERE id = $1
FOR UPDATE
`

// GetCreditAccountForUpdate locks the account row, serializing concurrent
// payments so the overpayment check never runs against a stale balance.
func (q *Queries) GetCreditAccountForUpdate(ctx context.Context, id uuid.UUID) (CreditAccount, error) {
	row := q.db.QueryRow(ctx, getCreditAccountForUpdate, id)
	var a CreditAccount
	err := row.Scan(&a.ID, &a.CustomerName, &a.CustomerDocument, &a.OriginalAmount, &a.RelatedSaleID, &a.DueDate, &a.CreatedAt)
	return a, err
}

const sumCompletedPaymentsByAccount = `
SELECT COALESCE(SUM(amount), 0)
FROM credit_payments
WHERE credit_account_id = $1 AND status = 'COMPLETED'
`

func (q *Queries) SumCompletedPaymentsByAccount(ctx context.Context, creditAccountID uuid.UUID) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumCompletedPaymentsByAccount, creditAccountID)
	var sum pgtype.Numeric
	err := row.Scan(&sum)
	return sum, err
}

const createCreditPayment = `
INSERT INTO credit_payments (credit_account_id, amount, payment_method, reference_number, status, received_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, credit_account_id, amount, payment_method, reference_number, status, received_by, created_at
`

type CreateCreditPaymentParams struct {
	CreditAccountID uuid.UUID
	Amount          pgtype.Numeric
	PaymentMethod   string
	ReferenceNumber pgtype.Text
	Status          string
	ReceivedBy      uuid.UUID
}

func (q *Queries) CreateCreditPayment(ctx context.Context, arg CreateCreditPaymentParams) (CreditPayment, error) {
	row := q.db.QueryRow(ctx, createCreditPayment,
		arg.CreditAccountID, arg.Amount, arg.PaymentMethod, arg.ReferenceNumber, arg.Status, arg.ReceivedBy)
	var p CreditPayment
	err := row.Scan(&p.ID, &p.CreditAccountID, &p.Amount, &p.PaymentMethod, &p.ReferenceNumber, &p.Status, &p.ReceivedBy, &p.CreatedAt)
	return p, err
}

const listCreditPaymentsByAccount = `
SELECT id, credit_account_id, amount, payment_method, reference_number, status, received_by, created_at
FROM credit_payments
WHERE credit_account_id = $1
ORDER BY created_at
`

func (q *Queries) ListCreditPaymentsByAccount(ctx context.Context, creditAccountID uuid.UUID) ([]CreditPayment, error) {
	rows, err := q.db.Query(ctx, listCreditPaymentsByAccount, creditAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []CreditPayment
	for rows.Next() {
		var p CreditPayment
		if err := rows.Scan(&p.ID, &p.CreditAccountID, &p.Amount, &p.PaymentMethod, &p.ReferenceNumber, &p.Status, &p.ReceivedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

const listCreditAccountsWithPaid = `
SELECT a.id, a.customer_name, a.customer_document, a.original_amount, a.related_sale_id, a.due_date, a.created_at,
       COALESCE(SUM(p.amount) FILTER (WHERE p.status = 'COMPLETED'), 0) AS paid_total
FROM credit_accounts a
LEFT JOIN credit_payments p ON p.credit_account_id = a.id
GROUP BY a.id
ORDER BY a.due_date, a.created_at
`

type ListCreditAccountsWithPaidRow struct {
	Account   CreditAccount
	PaidTotal pgtype.Numeric
}

func (q *Queries) ListCreditAccountsWithPaid(ctx context.Context) ([]ListCreditAccountsWithPaidRow, error) {
	rows, err := q.db.Query(ctx, listCreditAccountsWithPaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []ListCreditAccountsWithPaidRow
	for rows.Next() {
		var r ListCreditAccountsWithPaidRow
		if err := rows.Scan(&r.Account.ID, &r.Account.CustomerName, &r.Account.CustomerDocument,
			&r.Account.OriginalAmount, &r.Account.RelatedSaleID, &r.Account.DueDate, &r.Account.CreatedAt,
			&r.PaidTotal); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
