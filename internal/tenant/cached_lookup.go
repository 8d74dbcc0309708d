package tenant

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/atlasgrowth23/atlashvac/internal/domain"
	"github.com/atlasgrowth23/atlashvac/internal/repository"
	"github.com/atlasgrowth23/atlashvac/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Lookup the single store read the resolver performs.
type Lookup interface {
	LookupByHostOrSubdomain(ctx context.Context, host, subdomain string) (*domain.TenantRecord, error)
}

// CachedLookup fronts a Lookup with the in-process HostCache and an optional shared KV tier.
// Entries are keyed by host alone: the subdomain part is derived from the host and a fixed base domain.
// Store errors are returned and never cached. Concurrent misses for one host share a single store read.
type CachedLookup struct {
	next        Lookup
	local       *HostCache
	shared      store.KV
	keyPrefix   string
	ttl         time.Duration
	negativeTTL time.Duration
	group       singleflight.Group
	logger      *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

type CachedLookupOptions struct {
	Size        int
	TTL         time.Duration
	NegativeTTL time.Duration
	Shared      store.KV // nil disables the shared tier
	KeyPrefix   string
}

func NewCachedLookup(next Lookup, opts CachedLookupOptions, logger *zap.Logger) *CachedLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedLookup{
		next:        next,
		local:       NewHostCache(opts.Size, opts.TTL, opts.NegativeTTL),
		shared:      opts.Shared,
		keyPrefix:   opts.KeyPrefix,
		ttl:         opts.TTL,
		negativeTTL: opts.NegativeTTL,
		logger:      logger,
	}
}

var _ Lookup = (*CachedLookup)(nil)

func (c *CachedLookup) LookupByHostOrSubdomain(ctx context.Context, host, subdomain string) (*domain.TenantRecord, error) {
	if slug, ok := c.local.Get(host); ok {
		c.hits.Add(1)
		return recordOrNotFound(slug)
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(host, func() (any, error) {
		if slug, ok := c.sharedGet(ctx, host); ok {
			c.local.Put(host, slug)
			return slug, nil
		}

		rec, err := c.next.LookupByHostOrSubdomain(ctx, host, subdomain)
		switch {
		case errors.Is(err, repository.ErrNotFound), err == nil && (rec == nil || rec.Slug == ""):
			c.store(ctx, host, "")
			return "", nil
		case err != nil:
			return "", err
		}
		c.store(ctx, host, rec.Slug)
		return rec.Slug, nil
	})
	if err != nil {
		return nil, err
	}
	return recordOrNotFound(v.(string))
}

// Stats cumulative local cache hits and misses.
func (c *CachedLookup) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func recordOrNotFound(slug string) (*domain.TenantRecord, error) {
	if slug == "" {
		return nil, repository.ErrNotFound
	}
	return &domain.TenantRecord{Slug: slug}, nil
}

func (c *CachedLookup) store(ctx context.Context, host, slug string) {
	c.local.Put(host, slug)
	if c.shared == nil {
		return
	}
	ttl := c.ttl
	if slug == "" {
		ttl = c.negativeTTL
	}
	if ttl <= 0 {
		return
	}
	if err := c.shared.Set(ctx, c.keyPrefix+host, slug, ttl); err != nil {
		c.logger.Warn("Failed to write shared tenant cache", zap.String("host", host), zap.Error(err))
	}
}

func (c *CachedLookup) sharedGet(ctx context.Context, host string) (string, bool) {
	if c.shared == nil {
		return "", false
	}
	slug, err := c.shared.Get(ctx, c.keyPrefix+host)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			c.logger.Warn("Failed to read shared tenant cache", zap.String("host", host), zap.Error(err))
		}
		return "", false
	}
	return slug, true
}
