package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Names and descriptions are stored in both
// storefront languages.
type Product struct {
	ID            string          `json:"id"`
	NameEN        string          `json:"name_en"`
	NameAR        string          `json:"name_ar"`
	DescriptionEN string          `json:"description_en"`
	DescriptionAR string          `json:"description_ar"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      string          `json:"image_url"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ProductSort selects the catalog ordering.
type ProductSort string

const (
	SortNewest ProductSort = "newest"
	SortName   ProductSort = "name"
	SortPrice  ProductSort = "price"
)

// ParseProductSort falls back to SortNewest for unknown values.
func ParseProductSort(s string) ProductSort {
	switch ProductSort(s) {
	case SortName, SortPrice:
		return ProductSort(s)
	default:
		return SortNewest
	}
}

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Search  string
	Sort    ProductSort
	Page    int
	PerPage int
}

// ProductInput is the admin create/update payload.
type ProductInput struct {
	NameEN        string          `json:"name_en" validate:"required,max=200"`
	NameAR        string          `json:"name_ar" validate:"required,max=200"`
	DescriptionEN string          `json:"description_en" validate:"max=5000"`
	DescriptionAR string          `json:"description_ar" validate:"max=5000"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      string          `json:"image_url" validate:"omitempty,url"`
}
