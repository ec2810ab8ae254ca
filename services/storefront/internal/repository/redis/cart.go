package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zayana/storefront/pkg/database"
	"github.com/zayana/storefront/services/storefront/internal/domain"
	"github.com/zayana/storefront/services/storefront/internal/repository"
)

// CartStorage implements repository.CartRepository with one JSON value per session under
// "zayana-cart:<session>". Each save refreshes the TTL.
type CartStorage struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ repository.CartRepository = (*CartStorage)(nil)

func NewCartStorage(client redis.Cmdable, ttl time.Duration) *CartStorage {
	return &CartStorage{client: client, ttl: ttl}
}

func Key(sessionID string) string {
	return domain.CartNamespace + ":" + sessionID
}

func (s *CartStorage) Load(ctx context.Context, sessionID string) (c *domain.Cart, err error) {
	key := Key(sessionID)
	ctx, end := database.TraceRedis(ctx, "LoadCart", key)
	defer func() { end(err) }()

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var saved domain.Cart
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", key, errors.Join(domain.ErrCorruptCart, err))
	}
	return &saved, nil
}

func (s *CartStorage) Save(ctx context.Context, sessionID string, c *domain.Cart) (err error) {
	key := Key(sessionID)
	ctx, end := database.TraceRedis(ctx, "SaveCart", key)
	defer func() { end(err) }()

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
