package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

// DirectoryCache is a read-through cache in front of a usecase.Directory.
// Cache failures fall back to the source; not-found results are not cached.
type DirectoryCache struct {
	source usecase.Directory
	cache  usecase.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewDirectoryCache creates a new DirectoryCache.
func NewDirectoryCache(source usecase.Directory, cache usecase.Cache, ttl time.Duration, logger zerolog.Logger) *DirectoryCache {
	return &DirectoryCache{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "directory_cache").Logger(),
	}
}

// GetTeller returns a teller, from cache when possible.
func (d *DirectoryCache) GetTeller(ctx context.Context, id string) (*domain.Teller, error) {
	var t domain.Teller
	err := d.readThrough(ctx, "teller:"+id, &t, func() (any, error) {
		return d.source.GetTeller(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetBranch returns a branch, from cache when possible.
func (d *DirectoryCache) GetBranch(ctx context.Context, id string) (*domain.Branch, error) {
	var b domain.Branch
	err := d.readThrough(ctx, "branch:"+id, &b, func() (any, error) {
		return d.source.GetBranch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetCustomer returns a customer, from cache when possible.
func (d *DirectoryCache) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := d.readThrough(ctx, "customer:"+id, &c, func() (any, error) {
		return d.source.GetCustomer(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Invalidate drops a cached teller, e.g. after its ceiling changed.
func (d *DirectoryCache) Invalidate(ctx context.Context, kind, id string) error {
	return d.cache.Delete(ctx, kind+":"+id)
}

func (d *DirectoryCache) readThrough(ctx context.Context, key string, dest any, load func() (any, error)) error {
	raw, err := d.cache.Get(ctx, key)
	if err == nil {
		if err := json.Unmarshal([]byte(raw), dest); err == nil {
			return nil
		}
		d.logger.Warn().Str("key", key).Msg("discarding undecodable directory entry")
	} else if !errors.Is(err, redis.Nil) {
		d.logger.Warn().Err(err).Str("key", key).Msg("directory cache read failed")
	}

	value, err := load()
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(encoded, dest); err != nil {
		return err
	}

	if err := d.cache.Set(ctx, key, string(encoded), d.ttl); err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("directory cache write failed")
	}
	return nil
}
