package alphavantage

import (
    "context"
    "io"
    "net/http"
    "time"

    "github.com/buger/jsonparser"
    "github.com/pkg/errors"
    "github.com/shopspring/decimal"
    "github.com/sirupsen/logrus"

    "marketprice/internal/quote"
)

// Alpha Vantage reports stock timestamps as a bare trading day and
// crypto timestamps as a datetime, both without a zone.
const lastRefreshedLayout = "2006-01-02 15:04:05"

const maxBodyBytes = 1 << 20

// Fetch performs exactly one outbound request for the candidate and
// normalizes the class-specific payload into a Quote.
func (c *Client) Fetch(ctx context.Context, cand quote.Candidate) (quote.Quote, error) {
    switch cand.Class {
    case quote.Stock, quote.Index:
        return c.fetchGlobalQuote(ctx, cand.ProviderSymbol)
    case quote.Crypto:
        return c.fetchExchangeRate(ctx, cand.ProviderSymbol)
    }
    return quote.Quote{}, quote.NewError(quote.KindInternal, "unsupported asset class %q", cand.Class)
}

// fetchGlobalQuote resolves stock and index symbols via GLOBAL_QUOTE.
func (c *Client) fetchGlobalQuote(ctx context.Context, symbol string) (quote.Quote, error) {
    body, err := c.get(ctx, map[string]string{
        "function": "GLOBAL_QUOTE",
        "symbol":   symbol,
    })
    if err != nil {
        return quote.Quote{}, err
    }
    if err := checkErrorPayload(body); err != nil {
        return quote.Quote{}, err
    }

    priceRaw, err := jsonparser.GetString(body, "Global Quote", "05. price")
    if err != nil {
        return quote.Quote{}, quote.NewError(quote.KindInvalidResponse,
            "Could not retrieve price for stock symbol: %s", symbol)
    }
    price, err := parsePrice(priceRaw)
    if err != nil {
        return quote.Quote{}, quote.WrapError(quote.KindInvalidResponse, err,
            "Could not retrieve price for stock symbol: %s", symbol)
    }

    quotedSymbol, err := jsonparser.GetString(body, "Global Quote", "01. symbol")
    if err != nil || quotedSymbol == "" {
        quotedSymbol = symbol
    }
    day, _ := jsonparser.GetString(body, "Global Quote", "07. latest trading day")

    return quote.Quote{
        Symbol:        quotedSymbol,
        Price:         price,
        Currency:      "USD", // GLOBAL_QUOTE prices are quoted in USD
        LastRefreshed: parseRefreshed(day),
        Source:        SourceLabel,
    }, nil
}

// fetchExchangeRate resolves crypto symbols via CURRENCY_EXCHANGE_RATE,
// pairing the symbol against the configured quote currency.
func (c *Client) fetchExchangeRate(ctx context.Context, symbol string) (quote.Quote, error) {
    body, err := c.get(ctx, map[string]string{
        "function":      "CURRENCY_EXCHANGE_RATE",
        "from_currency": symbol,
        "to_currency":   c.quoteCurrency,
    })
    if err != nil {
        return quote.Quote{}, err
    }
    if err := checkErrorPayload(body); err != nil {
        return quote.Quote{}, err
    }

    rateRaw, err := jsonparser.GetString(body, "Realtime Currency Exchange Rate", "5. Exchange Rate")
    if err != nil {
        return quote.Quote{}, quote.NewError(quote.KindInvalidResponse,
            "Could not retrieve price for crypto symbol: %s", symbol)
    }
    rate, err := parsePrice(rateRaw)
    if err != nil {
        return quote.Quote{}, quote.WrapError(quote.KindInvalidResponse, err,
            "Could not retrieve price for crypto symbol: %s", symbol)
    }

    refreshed, _ := jsonparser.GetString(body, "Realtime Currency Exchange Rate", "6. Last Refreshed")

    return quote.Quote{
        Symbol:        symbol,
        Price:         rate,
        Currency:      c.quoteCurrency,
        LastRefreshed: parseRefreshed(refreshed),
        Source:        SourceLabel,
    }, nil
}

// get issues the request and returns the raw body. Transport-level and
// status-level failures come back as KindUpstreamUnavailable.
func (c *Client) get(ctx context.Context, params map[string]string) ([]byte, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL(params), http.NoBody)
    if err != nil {
        return nil, quote.WrapError(quote.KindInternal, err, "building upstream request")
    }
    for key, values := range c.header {
        for _, value := range values {
            req.Header.Add(key, value)
        }
    }

    resp, err := c.httpClient.Do(req)
    if err != nil {
        return nil, quote.WrapError(quote.KindUpstreamUnavailable, err, "quote provider unreachable")
    }
    defer resp.Body.Close()

    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return nil, quote.NewError(quote.KindUpstreamUnavailable,
            "quote provider returned HTTP %d", resp.StatusCode)
    }

    body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
    if err != nil {
        return nil, quote.WrapError(quote.KindUpstreamUnavailable, err, "reading provider response")
    }
    return body, nil
}

// checkErrorPayload recognizes the provider's in-band failure shapes on
// an otherwise successful response: "Error Message" marks an unknown
// symbol, "Note"/"Information" are rate-limit notices.
func checkErrorPayload(body []byte) error {
    if msg, err := jsonparser.GetString(body, "Error Message"); err == nil {
        return quote.NewError(quote.KindNotFound, "Symbol not found or API error: %s", msg)
    }
    for _, key := range []string{"Note", "Information"} {
        if msg, err := jsonparser.GetString(body, key); err == nil {
            logrus.Warnf("alphavantage: provider notice: %s", msg)
            return quote.NewError(quote.KindUpstreamUnavailable, "quote provider throttled the request")
        }
    }
    return nil
}

// parsePrice validates the provider's price string. A quote only counts
// when the price is a finite positive number.
func parsePrice(raw string) (float64, error) {
    d, err := decimal.NewFromString(raw)
    if err != nil {
        return 0, err
    }
    if !d.IsPositive() {
        return 0, errZeroPrice
    }
    f, _ := d.Float64()
    return f, nil
}

var errZeroPrice = errors.New("price field is zero or negative")

// parseRefreshed accepts both upstream timestamp shapes; an unparseable
// value falls back to receipt time so a priced quote is never rejected
// over its timestamp.
func parseRefreshed(raw string) time.Time {
    for _, layout := range []string{time.DateOnly, lastRefreshedLayout, time.RFC3339} {
        if ts, err := time.Parse(layout, raw); err == nil {
            return ts.UTC()
        }
    }
    return time.Now().UTC()
}
