package products

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cafeflow/cafeflow/internal/domain"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, category, price, description, image, ingredients, availability`

// ListAvailable returns the customer-facing menu: available products only.
func (r *ProductRepository) ListAvailable(ctx context.Context) ([]domain.Product, error) {
	return r.query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE availability = TRUE
		ORDER BY category, name
	`)
}

// ListAll returns every product including unavailable ones, for the admin
// catalog view.
func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	return r.query(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY category, name
	`)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)

	product, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetByIDs resolves a batch of product ids in one query. Missing ids are
// simply absent from the result map.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := make(map[string]domain.Product)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[product.ID] = product
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, price, description, image, ingredients, availability)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, product.ID, product.Name, product.Category, product.Price,
		product.Description, product.Image, product.Ingredients, product.Availability)
	return err
}

// Update overwrites the full row. Partial-update semantics live in the
// handler, which merges the request onto the stored product first. Returns
// false when the id does not resolve.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, price = $4, description = $5, image = $6, ingredients = $7, availability = $8
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.Price,
		product.Description, product.Image, product.Ingredients, product.Availability)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// Delete removes the product. Historical order lines keep their snapshots;
// nothing cascades.
func (r *ProductRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM products
		WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *ProductRepository) query(ctx context.Context, q string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (domain.Product, error) {
	var product domain.Product
	var description, image, ingredients sql.NullString
	err := s.Scan(&product.ID, &product.Name, &product.Category, &product.Price,
		&description, &image, &ingredients, &product.Availability)
	if err != nil {
		return domain.Product{}, err
	}
	product.Description = description.String
	product.Image = image.String
	product.Ingredients = ingredients.String
	return product, nil
}
