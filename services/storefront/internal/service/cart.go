// Package service holds the storefront's orchestration: the per-session
// cart and checkout.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/services/storefront/internal/domain"
	"github.com/zayana/storefront/services/storefront/internal/repository"
)

// CartStore is the cart of one session. Every mutation is applied to a
// copy, persisted, and only then made visible, so a failed save leaves the
// CartStore unchanged.
type CartStore struct {
	mu        sync.Mutex
	cart      domain.Cart
	sessionID string
	storage   repository.CartRepository
	logger    *slog.Logger
}

// OpenCart restores the session's cart. Missing or corrupt data yields an empty
// cart. Any other storage failure is returned, so a transient outage never
// lets the next save overwrite the shopper's lines.
func OpenCart(ctx context.Context, storage repository.CartRepository, sessionID string, logger *slog.Logger) (*CartStore, error) {
	s := &CartStore{sessionID: sessionID, storage: storage, logger: logger}

	saved, err := storage.Load(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrCorruptCart):
		logger.WarnContext(ctx, "discarding unreadable cart",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	case err != nil:
		return nil, fmt.Errorf("load cart: %w", err)
	case saved != nil:
		s.cart = sanitizeCart(saved)
	}
	return s, nil
}

// sanitizeCart drops lines a well-behaved writer could never have produced and
// merges duplicates.
func sanitizeCart(c *domain.Cart) domain.Cart {
	var out domain.Cart
	for _, l := range c.Lines {
		if l.Product.ID == "" || l.Quantity <= 0 {
			continue
		}
		if i := out.IndexOf(l.Product.ID); i >= 0 {
			out.Lines[i].Quantity += l.Quantity
			continue
		}
		out.Lines = append(out.Lines, l)
	}
	return out
}

func (s *CartStore) SessionID() string { return s.sessionID }

// AddItem merges quantity into the product's line or appends a new line.
func (s *CartStore) AddItem(ctx context.Context, product domain.Product, quantity int) error {
	if quantity <= 0 {
		return apperrors.InvalidInput("quantity must be positive")
	}
	if product.ID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	return s.mutate(ctx, func(c *domain.Cart) {
		if i := c.IndexOf(product.ID); i >= 0 {
			c.Lines[i].Quantity += quantity
			return
		}
		c.Lines = append(c.Lines, domain.CartLine{Product: product, Quantity: quantity})
	})
}

// UpdateQuantity sets the line's quantity; zero or less removes the line.
// Unknown products are ignored.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}
	return s.mutate(ctx, func(c *domain.Cart) {
		if i := c.IndexOf(productID); i >= 0 {
			c.Lines[i].Quantity = quantity
		}
	})
}

func (s *CartStore) RemoveItem(ctx context.Context, productID string) error {
	return s.mutate(ctx, func(c *domain.Cart) {
		if i := c.IndexOf(productID); i >= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		}
	})
}

// Clear empties the cart and persists the empty state.
func (s *CartStore) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(c *domain.Cart) { c.Lines = nil })
}

func (s *CartStore) mutate(ctx context.Context, fn func(*domain.Cart)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	fn(&next)
	if err := s.storage.Save(ctx, s.sessionID, &next); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	s.cart = next
	return nil
}

// Snapshot returns a copy safe to render or iterate without the lock.
func (s *CartStore) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *CartStore) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.IsEmpty()
}
