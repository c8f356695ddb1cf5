package lookup

import (
    "context"

    "github.com/sirupsen/logrus"

    "marketprice/internal/quote"
    "marketprice/internal/resolver"
)

// Service resolves a user-supplied symbol to a quote.
type Service interface {
    Lookup(ctx context.Context, symbol string) (quote.Quote, error)
}

// Controller drives the resolver's candidate list through the fetcher
// and returns the first success.
//
// Error precedence: when every candidate fails, the failure of the
// first (primary) candidate is returned, not the last one tried — a
// stock-not-found message beats a crypto-fallback-not-found message.
// Untyped errors abort the chain immediately.
type Controller struct {
    Tables  resolver.Tables
    Fetcher quote.Fetcher
}

func New(tables resolver.Tables, fetcher quote.Fetcher) *Controller {
    return &Controller{Tables: tables, Fetcher: fetcher}
}

func (c *Controller) Lookup(ctx context.Context, symbol string) (quote.Quote, error) {
    cands := c.Tables.Resolve(symbol)

    var primary error
    for i, cand := range cands {
        q, err := c.Fetcher.Fetch(ctx, cand)
        if err == nil {
            return q, nil
        }
        if !quote.IsFetchFailure(err) {
            return quote.Quote{}, quote.WrapError(quote.KindInternal, err,
                "An unexpected error occurred: %s", err)
        }
        if i == 0 {
            primary = err
        }
        if i < len(cands)-1 {
            logrus.Debugf("lookup %s: %s candidate %q failed (%v), trying next",
                symbol, cand.Class, cand.ProviderSymbol, err)
        }
    }
    return quote.Quote{}, primary
}
