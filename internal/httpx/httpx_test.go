package httpx_test

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "marketprice/internal/httpx"
)

func TestDo_AppliesDefaultHeaders(t *testing.T) {
    t.Parallel()

    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        require.Equal(t, "marketprice/1.0", r.Header.Get("User-Agent"))
        require.Equal(t, "bar", r.Header.Get("foo"))
        w.WriteHeader(http.StatusOK)
    }))
    defer srv.Close()

    client := httpx.New(5 * time.Second)
    client.Headers = map[string]string{"foo": "bar"}

    req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL, http.NoBody)
    require.NoError(t, err)

    resp, err := client.Do(req)
    require.NoError(t, err)
    defer resp.Body.Close()
    require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDo_KeepsExplicitHeaders(t *testing.T) {
    t.Parallel()

    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        require.Equal(t, "custom/2.0", r.Header.Get("User-Agent"))
        w.WriteHeader(http.StatusOK)
    }))
    defer srv.Close()

    client := httpx.New(5 * time.Second)

    req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL, http.NoBody)
    require.NoError(t, err)
    req.Header.Set("User-Agent", "custom/2.0")

    resp, err := client.Do(req)
    require.NoError(t, err)
    defer resp.Body.Close()
    require.Equal(t, http.StatusOK, resp.StatusCode)
}
