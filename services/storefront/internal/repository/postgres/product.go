package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zayana/storefront/pkg/database"
	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/services/storefront/internal/domain"
)

const productColumns = `id, name_en, name_ar, description_en, description_ar, price, image_url, created_at`

// sortClauses whitelists ORDER BY fragments; user input never reaches SQL.
var sortClauses = map[domain.ProductSort]string{
	domain.SortNewest: "created_at DESC, id",
	domain.SortName:   "name_en ASC, id",
	domain.SortPrice:  "price ASC, id",
}

type ProductRepository struct {
	db database.DBTX
}

func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// List searches name and description in both languages, case-insensitively.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) (_ []domain.Product, _ int, err error) {
	var (
		where string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = `WHERE name_en ILIKE $1 OR name_ar ILIKE $1 OR description_en ILIKE $1 OR description_ar ILIKE $1`
		args = append(args, "%"+escapeLike(s)+"%")
	}
	order, ok := sortClauses[filter.Sort]
	if !ok {
		order = sortClauses[domain.SortNewest]
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		productColumns, where, order, len(args)+1, len(args)+2)
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products []domain.Product
		total    int
	)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.NameEN, &p.NameAR, &p.DescriptionEN, &p.DescriptionAR,
			&p.Price, &p.ImageURL, &p.CreatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return products, total, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "GetProduct", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("product", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (r *ProductRepository) Create(ctx context.Context, in domain.ProductInput) (_ *domain.Product, err error) {
	query := `
		INSERT INTO products (id, name_en, name_ar, description_en, description_ar, price, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + productColumns
	ctx, end := database.TraceQuery(ctx, "CreateProduct", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, query,
		uuid.NewString(), in.NameEN, in.NameAR, in.DescriptionEN, in.DescriptionAR, in.Price, in.ImageURL,
	))
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) Update(ctx context.Context, id string, in domain.ProductInput) (_ *domain.Product, err error) {
	query := `
		UPDATE products
		SET name_en = $2, name_ar = $3, description_en = $4, description_ar = $5, price = $6, image_url = $7
		WHERE id = $1
		RETURNING ` + productColumns
	ctx, end := database.TraceQuery(ctx, "UpdateProduct", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, query,
		id, in.NameEN, in.NameAR, in.DescriptionEN, in.DescriptionAR, in.Price, in.ImageURL,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("product", id)
	}
	if err != nil {
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	return p, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM products WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "DeleteProduct", query)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID, &p.NameEN, &p.NameAR, &p.DescriptionEN, &p.DescriptionAR,
		&p.Price, &p.ImageURL, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes % and _ in user input match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
