package cache

import (
    "context"
    "sync"
    "time"

    "golang.org/x/sync/singleflight"

    "marketprice/internal/lookup"
    "marketprice/internal/quote"
    "marketprice/internal/resolver"
)

// entry stores one cached quote with expiry.
type entry struct {
    expiresAt time.Time
    q         quote.Quote
}

// Service memoizes successful lookups per normalized symbol for a TTL.
// Failures are never stored: a failed symbol is retried on every
// request. Concurrent misses for the same key are collapsed so the
// upstream sees one call.
type Service struct {
    next     lookup.Service
    ttl      time.Duration
    maxItems int

    group singleflight.Group
    now   func() time.Time

    mu    sync.RWMutex
    items map[string]entry // key: normalized symbol
}

func New(next lookup.Service, ttl time.Duration, maxItems int) *Service {
    return &Service{
        next:     next,
        ttl:      ttl,
        maxItems: maxItems,
        now:      time.Now,
        items:    make(map[string]entry),
    }
}

func (c *Service) Lookup(ctx context.Context, symbol string) (quote.Quote, error) {
    if c.ttl <= 0 {
        return c.next.Lookup(ctx, symbol)
    }

    key := resolver.Normalize(symbol)

    if q, ok := c.get(key); ok {
        return q, nil
    }

    v, err, _ := c.group.Do(key, func() (any, error) {
        // A racing request may have populated the key while this one
        // queued on the group.
        if q, ok := c.get(key); ok {
            return q, nil
        }
        // The collapsed call serves every waiter, not just the caller
        // that started it, so it must not die with that caller's
        // context. The outbound HTTP client's own timeout still bounds
        // the call.
        q, err := c.next.Lookup(context.WithoutCancel(ctx), symbol)
        if err != nil {
            return quote.Quote{}, err
        }
        c.put(key, q)
        return q, nil
    })
    c.group.Forget(key)
    if err != nil {
        return quote.Quote{}, err
    }
    return v.(quote.Quote), nil
}

func (c *Service) get(key string) (quote.Quote, bool) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    e, ok := c.items[key]
    if !ok || !c.now().Before(e.expiresAt) {
        return quote.Quote{}, false
    }
    return e.q, true
}

func (c *Service) put(key string, q quote.Quote) {
    now := c.now()
    c.mu.Lock()
    defer c.mu.Unlock()
    c.items[key] = entry{expiresAt: now.Add(c.ttl), q: q}

    // best-effort cap: drop expired entries first, then arbitrary ones
    if c.maxItems > 0 && len(c.items) > c.maxItems {
        for k, e := range c.items {
            if k != key && now.After(e.expiresAt) {
                delete(c.items, k)
            }
            if len(c.items) <= c.maxItems {
                return
            }
        }
        for k := range c.items {
            if len(c.items) <= c.maxItems {
                return
            }
            if k != key {
                delete(c.items, k)
            }
        }
    }
}
