package tenant

import (
	"container/list"
	"sync"
	"time"
)

// HostCache bounded LRU of host -> slug with per-entry expiry.
// Misses are cached as negative entries with their own (usually shorter) TTL.
// A zero size or zero TTL disables the cache.
type HostCache struct {
	mu          sync.Mutex
	ll          *list.List
	items       map[string]*list.Element
	size        int
	ttl         time.Duration
	negativeTTL time.Duration
	now         func() time.Time
}

type cacheEntry struct {
	host    string
	slug    string // "" for a negative entry
	expires time.Time
}

func NewHostCache(size int, ttl, negativeTTL time.Duration) *HostCache {
	return &HostCache{
		ll:          list.New(),
		items:       make(map[string]*list.Element),
		size:        size,
		ttl:         ttl,
		negativeTTL: negativeTTL,
		now:         time.Now,
	}
}

func (c *HostCache) enabled() bool {
	return c != nil && c.size > 0 && c.ttl > 0
}

// Get ok=false on a miss or an expired entry; slug=="" with ok=true is a cached "no tenant".
func (c *HostCache) Get(host string) (slug string, ok bool) {
	if !c.enabled() {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, hit := c.items[host]
	if !hit {
		return "", false
	}
	e := el.Value.(*cacheEntry)
	if !c.now().Before(e.expires) {
		c.removeElement(el)
		return "", false
	}
	c.ll.MoveToFront(el)
	return e.slug, true
}

// Put stores slug for host; an empty slug records a negative entry.
func (c *HostCache) Put(host, slug string) {
	if !c.enabled() {
		return
	}
	ttl := c.ttl
	if slug == "" {
		if c.negativeTTL <= 0 {
			return
		}
		ttl = c.negativeTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(ttl)
	if el, hit := c.items[host]; hit {
		e := el.Value.(*cacheEntry)
		e.slug = slug
		e.expires = expires
		c.ll.MoveToFront(el)
		return
	}
	c.items[host] = c.ll.PushFront(&cacheEntry{host: host, slug: slug, expires: expires})
	for c.ll.Len() > c.size {
		c.removeElement(c.ll.Back())
	}
}

func (c *HostCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *HostCache) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*cacheEntry).host)
}
