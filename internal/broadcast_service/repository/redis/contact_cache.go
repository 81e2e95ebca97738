package redis

import (
	"context"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

const keyPrefix = "broadcast:contact_mobile:"

// CachedContactDirectory is a read-through cache in front of another
// ContactDirectory. Only resolved numbers are cached; a redis failure falls
// back to the wrapped directory.
type CachedContactDirectory struct {
	client goredis.Cmdable
	next   domain.ContactDirectory
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedContactDirectory(client goredis.Cmdable, next domain.ContactDirectory, ttl time.Duration, logger *slog.Logger) *CachedContactDirectory {
	return &CachedContactDirectory{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger.With("component", "contact_cache_redis"),
	}
}

func (c *CachedContactDirectory) MobileNumbers(ctx context.Context, names []string) (map[string]string, error) {
	result := make(map[string]string, len(names))
	if len(names) == 0 {
		return result, nil
	}

	misses := names
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = keyPrefix + name
	}
	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "Contact cache read failed, using directory", "error", err)
	} else {
		misses = make([]string, 0, len(names))
		for i, v := range cached {
			if s, ok := v.(string); ok && s != "" {
				result[names[i]] = s
				continue
			}
			misses = append(misses, names[i])
		}
	}
	if len(misses) == 0 {
		return result, nil
	}

	found, err := c.next.MobileNumbers(ctx, misses)
	if err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	for name, mobile := range found {
		result[name] = mobile
		pipe.Set(ctx, keyPrefix+name, mobile, c.ttl)
	}
	if len(found) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.WarnContext(ctx, "Contact cache write failed", "error", err)
		}
	}
	c.logger.DebugContext(ctx, "Contact lookup", "requested", len(names), "cache_hits", len(names)-len(misses))
	return result, nil
}
