package alphavantage

import (
    "net/http"
    "net/url"

    "marketprice/internal/quote"
)

const defaultBaseURL = "https://www.alphavantage.co/query"

// SourceLabel tags every quote returned by this client.
const SourceLabel = "Alpha Vantage via Custom API"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
    Do(req *http.Request) (*http.Response, error)
}

// Client fetches quotes from the Alpha Vantage query API. Stock and
// index candidates go through GLOBAL_QUOTE, crypto candidates through
// CURRENCY_EXCHANGE_RATE paired against a fixed quote currency.
type Client struct {
    // baseURL is the query endpoint.
    baseURL string
    // apiKey is the credential sent with every request.
    apiKey string
    // quoteCurrency is the fixed pairing currency for crypto lookups.
    quoteCurrency string
    // httpClient performs the requests.
    httpClient HTTPClient
    // header contains additional headers to be sent with each request.
    header http.Header
}

// Option is a configuration option for the client.
type Option func(*Client)

// WithBaseURL overrides the query endpoint.
func WithBaseURL(baseURL string) Option {
    return func(c *Client) {
        c.baseURL = baseURL
    }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient HTTPClient) Option {
    return func(c *Client) {
        c.httpClient = httpClient
    }
}

// WithQuoteCurrency sets the currency crypto symbols are paired against.
func WithQuoteCurrency(currency string) Option {
    return func(c *Client) {
        c.quoteCurrency = currency
    }
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
    return func(c *Client) {
        for key, values := range header {
            for _, value := range values {
                c.header.Add(key, value)
            }
        }
    }
}

// New creates an Alpha Vantage client with the given API key.
func New(apiKey string, options ...Option) *Client {
    c := &Client{
        baseURL:       defaultBaseURL,
        apiKey:        apiKey,
        quoteCurrency: "USD",
        httpClient:    http.DefaultClient,
        header:        http.Header{},
    }
    for _, option := range options {
        option(c)
    }
    return c
}

func (c *Client) Name() string { return "AlphaVantage" }

// queryURL builds the request URL for the given function parameters.
func (c *Client) queryURL(params map[string]string) string {
    query := url.Values{}
    for k, v := range params {
        query.Set(k, v)
    }
    query.Set("apikey", c.apiKey)
    return c.baseURL + "?" + query.Encode()
}

var _ quote.Fetcher = (*Client)(nil)
