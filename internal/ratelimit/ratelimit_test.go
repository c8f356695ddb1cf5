package ratelimit

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "marketprice/internal/quote"
)

type countingFetcher struct{ calls int }

func (c *countingFetcher) Name() string { return "counting" }
func (c *countingFetcher) Fetch(_ context.Context, cand quote.Candidate) (quote.Quote, error) {
    c.calls++
    return quote.Quote{Symbol: cand.ProviderSymbol, Price: 1}, nil
}

func TestTokenBucket_AdmitsBurstThenBlocks(t *testing.T) {
    t.Parallel()

    tb := NewTokenBucket(0.0001, 2) // effectively no refill within the test

    require.NoError(t, tb.wait(t.Context()))
    require.NoError(t, tb.wait(t.Context()))

    ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
    defer cancel()
    require.ErrorIs(t, tb.wait(ctx), context.DeadlineExceeded)
}

func TestFetcher_CanceledWait_IsUpstreamUnavailable(t *testing.T) {
    t.Parallel()

    next := &countingFetcher{}
    f := &Fetcher{F: next, TB: NewTokenBucket(0.0001, 1)}

    // drain the bucket
    _, err := f.Fetch(t.Context(), quote.Candidate{ProviderSymbol: "IBM"})
    require.NoError(t, err)

    ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
    defer cancel()
    _, err = f.Fetch(ctx, quote.Candidate{ProviderSymbol: "IBM"})
    require.Error(t, err)
    require.Equal(t, quote.KindUpstreamUnavailable, quote.KindOf(err))
    require.Equal(t, 1, next.calls, "gated call must not reach the fetcher")
}

func TestFetcher_NilBucket_PassesThrough(t *testing.T) {
    t.Parallel()

    next := &countingFetcher{}
    f := &Fetcher{F: next}
    _, err := f.Fetch(t.Context(), quote.Candidate{ProviderSymbol: "IBM"})
    require.NoError(t, err)
    require.Equal(t, 1, next.calls)
}
