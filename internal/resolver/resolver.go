package resolver

import (
    "strings"

    "marketprice/internal/quote"
)

// Tables holds the static symbol tables consulted on every request.
// Built once at startup and shared read-only; Resolve never mutates.
type Tables struct {
    // IndexAliases maps a logical index name to the provider's symbol.
    IndexAliases map[string]string
    // CryptoTickers is the fixed allowlist of known crypto symbols.
    CryptoTickers map[string]struct{}
    // ShortTickerMax is the crypto-first length heuristic: unknown
    // symbols this short also get a crypto fallback. The cutoff is a
    // blunt proxy (it matches plenty of real stock tickers) but it is
    // the documented behavior.
    ShortTickerMax int
}

// Default returns the built-in tables.
func Default() Tables {
    return Tables{
        IndexAliases: map[string]string{
            "NASDAQ": "^IXIC",
            "SP500":  "^GSPC",
            "TA35":   "TA35.TA",
        },
        CryptoTickers: map[string]struct{}{
            "BTC": {}, "ETH": {}, "XRP": {}, "LTC": {},
            "ADA": {}, "SOL": {}, "DOGE": {},
        },
        ShortTickerMax: 4,
    }
}

// Normalize canonicalizes a raw user symbol. The result is also the
// cache key, so every layer must agree on it.
func Normalize(raw string) string {
    return strings.ToUpper(strings.TrimSpace(raw))
}

// Resolve maps a raw symbol to its ordered candidate list:
//   - index aliases get exactly one INDEX candidate, no fallback;
//   - allowlisted crypto tickers get CRYPTO first, STOCK as fallback;
//   - anything else is STOCK first, with a CRYPTO fallback only when
//     the symbol is short enough to plausibly be a crypto ticker.
func (t Tables) Resolve(raw string) []quote.Candidate {
    sym := Normalize(raw)

    if mapped, ok := t.IndexAliases[sym]; ok {
        return []quote.Candidate{{ProviderSymbol: mapped, Class: quote.Index}}
    }

    if _, ok := t.CryptoTickers[sym]; ok {
        return []quote.Candidate{
            {ProviderSymbol: sym, Class: quote.Crypto},
            {ProviderSymbol: sym, Class: quote.Stock},
        }
    }

    cands := []quote.Candidate{{ProviderSymbol: sym, Class: quote.Stock}}
    if len(sym) <= t.ShortTickerMax {
        cands = append(cands, quote.Candidate{ProviderSymbol: sym, Class: quote.Crypto})
    }
    return cands
}
