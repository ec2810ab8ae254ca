package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zayana/storefront/pkg/database"
	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/services/relay/internal/domain"
	"github.com/zayana/storefront/services/relay/internal/repository"
)

const (
	keyPrefix = "zayana-relay:product:"

	// notFoundMarker caches a missing product so a burst of orders for a
	// deleted product does not hit the database each time.
	notFoundMarker = "notfound"
	notFoundTTL    = time.Minute
)

// CachedProductReader is a read-through cache in front of a ProductReader.
// Redis failures fall back to the wrapped reader.
type CachedProductReader struct {
	next   repository.ProductReader
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedProductReader(next repository.ProductReader, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedProductReader {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProductReader{next: next, client: client, ttl: ttl, logger: logger}
}

func Key(productID string) string {
	return keyPrefix + productID
}

func (c *CachedProductReader) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	key := Key(id)

	if p, hit, err := c.lookup(ctx, key); hit {
		return p, err
	}

	p, err := c.next.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.set(ctx, key, notFoundMarker, notFoundTTL)
		}
		return nil, err
	}

	if data, mErr := json.Marshal(p); mErr == nil {
		c.set(ctx, key, data, c.ttl)
	}
	return p, nil
}

// lookup reports hit=false whenever the database has to be asked.
func (c *CachedProductReader) lookup(ctx context.Context, key string) (_ *domain.Product, hit bool, err error) {
	ctx, end := database.TraceRedis(ctx, "GET", key)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		end(nil)
		return nil, false, nil
	}
	end(err)
	if err != nil {
		c.logger.WarnContext(ctx, "product cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false, nil
	}

	if string(data) == notFoundMarker {
		return nil, true, apperrors.NotFound("product", key[len(keyPrefix):])
	}
	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.WarnContext(ctx, "discarding corrupt cached product",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *CachedProductReader) set(ctx context.Context, key string, value any, ttl time.Duration) {
	ctx, end := database.TraceRedis(ctx, "SET", key)
	err := c.client.Set(ctx, key, value, ttl).Err()
	end(err)
	if err != nil {
		c.logger.WarnContext(ctx, "product cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
