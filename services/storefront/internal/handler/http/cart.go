package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/pkg/httputil"
	"github.com/zayana/storefront/pkg/i18n"
	"github.com/zayana/storefront/services/storefront/internal/repository"
	"github.com/zayana/storefront/services/storefront/internal/service"
)

// CartHandler serves the session cart. Every request opens the session's
// CartStore from storage, so handlers stay stateless.
type CartHandler struct {
	storage  repository.CartRepository
	products repository.ProductRepository
	logger   *slog.Logger
}

func NewCartHandler(storage repository.CartRepository, products repository.ProductRepository, logger *slog.Logger) *CartHandler {
	return &CartHandler{storage: storage, products: products, logger: logger}
}

// AddItemRequest is the body of POST /api/v1/cart/items.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

// UpdateItemRequest is the body of PUT /api/v1/cart/items/{productId}.
// A quantity of zero or less removes the line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) open(w http.ResponseWriter, r *http.Request) (*service.CartStore, bool) {
	sid, ok := sessionID(w, r)
	if !ok {
		return nil, false
	}
	return openCart(w, r, h.storage, sid, h.logger)
}

// openCart answers 503 when the saved cart cannot be read, rather than
// serving an empty cart that the next write would persist over it.
func openCart(w http.ResponseWriter, r *http.Request, storage repository.CartRepository, sid string, logger *slog.Logger) (*service.CartStore, bool) {
	store, err := service.OpenCart(r.Context(), storage, sid, logger)
	if err != nil {
		logger.ErrorContext(r.Context(), "open cart failed",
			slog.String("session_id", sid),
			slog.String("error", err.Error()),
		)
		httputil.WriteError(w, r, apperrors.Unavailable("cart storage is unavailable"), logger)
		return nil, false
	}
	return store, true
}

func (h *CartHandler) writeCart(w http.ResponseWriter, status int, store *service.CartStore) {
	httputil.WriteJSON(w, status, httputil.Response{Data: store.Snapshot()})
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.open(w, r)
	if !ok {
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := store.Clear(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	loc := locale(r)
	w.Header().Set("Content-Language", string(loc))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"cart":    store.Snapshot(),
		"message": i18n.T(loc, i18n.KeyCartCleared),
	}})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.open(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity <= 0 {
		writeLocalized(w, r, http.StatusBadRequest, "INVALID_QUANTITY", i18n.KeyInvalidQuantity)
		return
	}

	product, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			writeLocalized(w, r, http.StatusNotFound, "PRODUCT_NOT_FOUND", i18n.KeyProductNotFound)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := store.AddItem(r.Context(), *product, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

// UpdateItem handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.open(w, r)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := store.UpdateQuantity(r.Context(), chi.URLParam(r, "productId"), req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := store.RemoveItem(r.Context(), chi.URLParam(r, "productId")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}
