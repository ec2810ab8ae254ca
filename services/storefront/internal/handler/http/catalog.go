package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zayana/storefront/pkg/httputil"
	"github.com/zayana/storefront/pkg/pagination"
	"github.com/zayana/storefront/services/storefront/internal/domain"
	"github.com/zayana/storefront/services/storefront/internal/repository"
)

// maxSearchLen bounds the search term, in runes.
const maxSearchLen = 100

// CatalogHandler serves the public product endpoints.
type CatalogHandler struct {
	products repository.ProductRepository
	featured int
	logger   *slog.Logger
}

func NewCatalogHandler(products repository.ProductRepository, featured int, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{products: products, featured: featured, logger: logger}
}

// ListProducts handles GET /api/v1/products?search=&sort=&page=&per_page=
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	q := r.URL.Query()

	search := strings.TrimSpace(q.Get("search"))
	if runes := []rune(search); len(runes) > maxSearchLen {
		search = string(runes[:maxSearchLen])
	}

	products, total, err := h.products.List(r.Context(), domain.ProductFilter{
		Search:  search,
		Sort:    domain.ParseProductSort(q.Get("sort")),
		Page:    params.Page,
		PerPage: params.PerPage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pagination.NewResult(products, total, params)})
}

// FeaturedProducts handles GET /api/v1/products/featured: the newest products.
func (h *CatalogHandler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, _, err := h.products.List(r.Context(), domain.ProductFilter{
		Sort:    domain.SortNewest,
		Page:    1,
		PerPage: h.featured,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	product, err := h.products.GetByID(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}
