package cache

import (
    "context"
    "fmt"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "marketprice/internal/quote"
)

type countingService struct {
    calls int
    err   error
}

func (s *countingService) Lookup(_ context.Context, symbol string) (quote.Quote, error) {
    s.calls++
    if s.err != nil {
        return quote.Quote{}, s.err
    }
    return quote.Quote{Symbol: symbol, Price: float64(s.calls), Currency: "USD"}, nil
}

func TestLookup_HitWithinTTL(t *testing.T) {
    t.Parallel()

    next := &countingService{}
    c := New(next, 30*time.Second, 0)

    first, err := c.Lookup(t.Context(), "BTC")
    require.NoError(t, err)

    second, err := c.Lookup(t.Context(), "BTC")
    require.NoError(t, err)
    require.Equal(t, first, second, "cached quote must be returned verbatim")
    require.Equal(t, 1, next.calls)
}

func TestLookup_KeyIsNormalized(t *testing.T) {
    t.Parallel()

    next := &countingService{}
    c := New(next, 30*time.Second, 0)

    _, err := c.Lookup(t.Context(), "BTC")
    require.NoError(t, err)
    _, err = c.Lookup(t.Context(), " btc ")
    require.NoError(t, err)
    require.Equal(t, 1, next.calls)
}

func TestLookup_ExpiryTriggersRefetch(t *testing.T) {
    t.Parallel()

    next := &countingService{}
    c := New(next, 30*time.Second, 0)

    now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
    c.now = func() time.Time { return now }

    _, err := c.Lookup(t.Context(), "BTC")
    require.NoError(t, err)

    now = now.Add(29 * time.Second)
    _, err = c.Lookup(t.Context(), "BTC")
    require.NoError(t, err)
    require.Equal(t, 1, next.calls)

    now = now.Add(2 * time.Second)
    q, err := c.Lookup(t.Context(), "BTC")
    require.NoError(t, err)
    require.Equal(t, 2, next.calls, "expired entry must trigger exactly one refresh")
    require.Equal(t, 2.0, q.Price)
}

// canceledAwareService fails whenever the context it receives has
// already been canceled.
type canceledAwareService struct{ calls int }

func (s *canceledAwareService) Lookup(ctx context.Context, symbol string) (quote.Quote, error) {
    s.calls++
    if err := ctx.Err(); err != nil {
        return quote.Quote{}, err
    }
    return quote.Quote{Symbol: symbol, Price: 1, Currency: "USD"}, nil
}

func TestLookup_MissSurvivesCallerCancellation(t *testing.T) {
    t.Parallel()

    next := &canceledAwareService{}
    c := New(next, 30*time.Second, 0)

    ctx, cancel := context.WithCancel(t.Context())
    cancel()

    // The initiating caller is already gone; the collapsed call must
    // still run to completion so other waiters can be served.
    q, err := c.Lookup(ctx, "BTC")
    require.NoError(t, err)
    require.Equal(t, "BTC", q.Symbol)
    require.Equal(t, 1, next.calls)
}

func TestLookup_FailuresAreNotCached(t *testing.T) {
    t.Parallel()

    next := &countingService{err: quote.NewError(quote.KindNotFound, "no such symbol")}
    c := New(next, 30*time.Second, 0)

    _, err := c.Lookup(t.Context(), "GHOST")
    require.Error(t, err)
    _, err = c.Lookup(t.Context(), "GHOST")
    require.Error(t, err)
    require.Equal(t, 2, next.calls, "failures must be retried on every request")
}

func TestLookup_ZeroTTL_Passthrough(t *testing.T) {
    t.Parallel()

    next := &countingService{}
    c := New(next, 0, 0)

    _, err := c.Lookup(t.Context(), "BTC")
    require.NoError(t, err)
    _, err = c.Lookup(t.Context(), "BTC")
    require.NoError(t, err)
    require.Equal(t, 2, next.calls)
}

func TestPut_EvictsOverCap(t *testing.T) {
    t.Parallel()

    next := &countingService{}
    c := New(next, time.Minute, 3)

    for i := 0; i < 5; i++ {
        _, err := c.Lookup(t.Context(), fmt.Sprintf("SYM%d", i))
        require.NoError(t, err)
    }

    c.mu.RLock()
    defer c.mu.RUnlock()
    require.LessOrEqual(t, len(c.items), 3)
    _, ok := c.items["SYM4"]
    require.True(t, ok, "most recent insert must survive eviction")
}
