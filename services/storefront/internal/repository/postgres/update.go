package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zayana/storefront/pkg/database"
	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/services/storefront/internal/domain"
)

type UpdateRepository struct {
	db database.DBTX
}

func NewUpdateRepository(db database.DBTX) *UpdateRepository {
	return &UpdateRepository{db: db}
}

// List returns one page of updates, newest first, and the total count.
func (r *UpdateRepository) List(ctx context.Context, page, perPage int) (_ []domain.Update, _ int, err error) {
	query := `
		SELECT id, title_en, title_ar, content_en, content_ar, created_at,
			count(*) OVER() AS total_count
		FROM updates
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`
	ctx, end := database.TraceQuery(ctx, "ListUpdates", query)
	defer func() { end(err) }()

	if page < 1 {
		page = 1
	}
	rows, err := r.db.Query(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list updates: %w", err)
	}
	defer rows.Close()

	var (
		updates []domain.Update
		total   int
	)
	for rows.Next() {
		var u domain.Update
		if err := rows.Scan(&u.ID, &u.TitleEN, &u.TitleAR, &u.ContentEN, &u.ContentAR, &u.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan update: %w", err)
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate updates: %w", err)
	}
	return updates, total, nil
}

func (r *UpdateRepository) Create(ctx context.Context, in domain.UpdateInput) (_ *domain.Update, err error) {
	query := `
		INSERT INTO updates (id, title_en, title_ar, content_en, content_ar)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title_en, title_ar, content_en, content_ar, created_at`
	ctx, end := database.TraceQuery(ctx, "CreateUpdate", query)
	defer func() { end(err) }()

	var u domain.Update
	err = r.db.QueryRow(ctx, query, uuid.NewString(), in.TitleEN, in.TitleAR, in.ContentEN, in.ContentAR).
		Scan(&u.ID, &u.TitleEN, &u.TitleAR, &u.ContentEN, &u.ContentAR, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert update: %w", err)
	}
	return &u, nil
}

func (r *UpdateRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM updates WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "DeleteUpdate", query)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete update %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("update", id)
	}
	return nil
}
