package quote

import (
    "context"
    "time"
)

// AssetClass selects which upstream endpoint and response shape a
// candidate is fetched through.
type AssetClass int

const (
    Stock AssetClass = iota
    Index
    Crypto
)

func (c AssetClass) String() string {
    switch c {
    case Stock:
        return "stock"
    case Index:
        return "index"
    case Crypto:
        return "crypto"
    }
    return "unknown"
}

// Candidate is one (provider symbol, asset class) interpretation of a
// user-supplied symbol. Candidates are ephemeral and ordered: the first
// is the primary interpretation, the rest are fallbacks.
type Candidate struct {
    ProviderSymbol string
    Class          AssetClass
}

// Quote is the normalized shape returned for every asset class.
type Quote struct {
    Symbol        string    `json:"symbol"`
    Price         float64   `json:"price"`
    Currency      string    `json:"currency"`
    LastRefreshed time.Time `json:"last_refreshed"`
    Source        string    `json:"source"`
}

// Fetcher performs exactly one outbound request for one candidate.
// Retry and fallback belong to the caller, never to implementations.
type Fetcher interface {
    Name() string
    Fetch(ctx context.Context, c Candidate) (Quote, error)
}
