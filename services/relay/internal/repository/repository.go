package repository

import (
	"context"

	"github.com/zayana/storefront/services/relay/internal/domain"
)

// ProductReader looks a product up by id. A missing product is reported as
// apperrors.ErrNotFound.
type ProductReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}
