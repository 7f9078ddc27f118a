package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Categories ---

const listCategories = `
SELECT id, name, description, sort_order, is_active, created_at
FROM categories
WHERE is_active = true
ORDER BY sort_order, name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.SortOrder, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

const createCategory = `
INSERT INTO categories (name, description, sort_order)
VALUES ($1, $2, $3)
RETURNING id, name, description, sort_order, is_active, created_at
`

type CreateCategoryParams struct {
	Name        string
	Description pgtype.Text
	SortOrder   int32
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory, arg.Name, arg.Description, arg.SortOrder)
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.SortOrder, &c.IsActive, &c.CreatedAt)
	return c, err
}

const updateCategory = `
UPDATE categories
SET name = $2, description = $3, sort_order = $4
WHERE id = $1 AND is_active = true
RETURNING id, name, description, sort_order, is_active, created_at
`

type UpdateCategoryParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	SortOrder   int32
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, updateCategory, arg.ID, arg.Name, arg.Description, arg.SortOrder)
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.SortOrder, &c.IsActive, &c.CreatedAt)
	return c, err
}

const softDeleteCategory = `
UPDATE categories
SET is_active = false
WHERE id = $1 AND is_active = true
RETURNING id
`

func (q *Queries) SoftDeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeleteCategory, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

// --- Products ---

const listProducts = `
SELECT id, category_id, name, sku, price, is_active, created_at, updated_at
FROM products
WHERE is_active = true
ORDER BY name
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Sku, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const getProduct = `
SELECT id, category_id, name, sku, price, is_active, created_at, updated_at
FROM products
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	var p Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Sku, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const createProduct = `
INSERT INTO products (category_id, name, sku, price)
VALUES ($1, $2, $3, $4)
RETURNING id, category_id, name, sku, price, is_active, created_at, updated_at
`

type CreateProductParams struct {
	CategoryID pgtype.UUID
	Name       string
	Sku        pgtype.Text
	Price      pgtype.Numeric
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.CategoryID, arg.Name, arg.Sku, arg.Price)
	var p Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Sku, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const updateProduct = `
UPDATE products
SET category_id = $2, name = $3, sku = $4, price = $5, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id, category_id, name, sku, price, is_active, created_at, updated_at
`

type UpdateProductParams struct {
	ID         uuid.UUID
	CategoryID pgtype.UUID
	Name       string
	Sku        pgtype.Text
	Price      pgtype.Numeric
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct, arg.ID, arg.CategoryID, arg.Name, arg.Sku, arg.Price)
	var p Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Sku, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const softDeleteProduct = `
UPDATE products
SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id
`

func (q *Queries) SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeleteProduct, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}
