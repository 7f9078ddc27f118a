package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Username       string
	FullName       string
	HashedPassword string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Category struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	SortOrder   int32
	IsActive    bool
	CreatedAt   time.Time
}

type Product struct {
	ID         uuid.UUID
	CategoryID pgtype.UUID
	Name       string
	Sku        pgtype.Text
	Price      pgtype.Numeric
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Sale struct {
	ID              uuid.UUID
	SaleNumber      string
	OperatorID      uuid.UUID
	PaymentMethod   string
	Total           pgtype.Numeric
	ReferenceNumber pgtype.Text
	CreatedAt       time.Time
}

type SaleItem struct {
	ID        uuid.UUID
	SaleID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
}

type CreditAccount struct {
	ID               uuid.UUID
	CustomerName     string
	CustomerDocument pgtype.Text
	OriginalAmount   pgtype.Numeric
	RelatedSaleID    pgtype.UUID
	DueDate          pgtype.Date
	CreatedAt        time.Time
}

type CreditPayment struct {
	ID              uuid.UUID
	CreditAccountID uuid.UUID
	Amount          pgtype.Numeric
	PaymentMethod   string
	ReferenceNumber pgtype.Text
	Status          string
	ReceivedBy      uuid.UUID
	CreatedAt       time.Time
}

type CashClosing struct {
	ID             uuid.UUID
	ClosingDate    pgtype.Date
	OperatorID     uuid.UUID
	CountedAmount  pgtype.Numeric
	ExpectedAmount pgtype.Numeric
	Variance       pgtype.Numeric
	CreatedAt      time.Time
}
