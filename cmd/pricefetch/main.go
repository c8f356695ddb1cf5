package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "strconv"
    "syscall"
    "time"

    "github.com/fatih/color"
    "github.com/gosuri/uilive"
    "github.com/mattn/go-colorable"
    "github.com/olekukonko/tablewriter"
    "github.com/sirupsen/logrus"
    "github.com/spf13/pflag"

    "marketprice/internal/httpx"
    "marketprice/internal/lookup"
    "marketprice/internal/quote"
    "marketprice/internal/resolver"
    "marketprice/internal/upstream/alphavantage"
)

var faint = color.New(color.Faint).SprintFunc()

func main() {
    apiKey := pflag.String("api-key", os.Getenv("ALPHA_VANTAGE_API_KEY"), "Alpha Vantage API key")
    baseURL := pflag.String("base-url", "", "Override the upstream query URL")
    currency := pflag.String("currency", "USD", "Quote currency for crypto symbols")
    timeout := pflag.IntP("timeout", "t", 20, "HTTP request timeout in seconds")
    refresh := pflag.IntP("refresh", "r", 0, "Auto refresh on every specified seconds, "+
        "note the upstream API has a rate limit,\ntoo frequent refresh may exhaust your quota")
    debug := pflag.BoolP("debug", "d", false, "Enable debug mode")
    pflag.Usage = showUsageAndExit
    pflag.Parse()

    logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
    logrus.SetOutput(colorable.NewColorableStderr()) // For Windows
    if *debug {
        logrus.SetLevel(logrus.DebugLevel)
    }

    symbols := pflag.Args()
    if len(symbols) == 0 {
        showUsageAndExit()
    }
    if *apiKey == "" {
        logrus.Warn("no --api-key given, falling back to the 'demo' key")
        *apiKey = "demo"
    }

    opts := []alphavantage.Option{
        alphavantage.WithHTTPClient(httpx.New(time.Duration(*timeout) * time.Second)),
        alphavantage.WithQuoteCurrency(*currency),
    }
    if *baseURL != "" {
        opts = append(opts, alphavantage.WithBaseURL(*baseURL))
    }
    svc := lookup.New(resolver.Default(), alphavantage.New(*apiKey, opts...))

    writer := uilive.New()
    writer.Out = colorable.NewColorableStdout()
    writer.Start()
    defer writer.Stop()

    renderTable(fetchAll(svc, symbols, time.Duration(*timeout)*time.Second), writer)
    if *refresh <= 0 {
        return
    }

    sig := make(chan os.Signal, 1)
    signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
    ticker := time.NewTicker(time.Duration(*refresh) * time.Second)
    defer ticker.Stop()
    for {
        select {
        case <-ticker.C:
            renderTable(fetchAll(svc, symbols, time.Duration(*timeout)*time.Second), writer)
        case <-sig:
            return
        }
    }
}

// fetchAll looks up every symbol concurrently, preserving request order.
func fetchAll(svc lookup.Service, symbols []string, timeout time.Duration) []*quote.Quote {
    ctx, cancel := context.WithTimeout(context.Background(), timeout)
    defer cancel()

    waiting := make([]chan *quote.Quote, len(symbols))
    for i, symbol := range symbols {
        done := make(chan *quote.Quote, 1)
        waiting[i] = done
        go func(symbol string) {
            q, err := svc.Lookup(ctx, symbol)
            if err != nil {
                logrus.Warnf("Failed to get price for %s: %s", symbol, err)
                close(done)
                return
            }
            done <- &q
        }(symbol)
    }

    quotes := make([]*quote.Quote, 0, len(symbols))
    for _, done := range waiting {
        if q := <-done; q != nil {
            quotes = append(quotes, q)
        }
    }
    return quotes
}

func renderTable(quotes []*quote.Quote, writer *uilive.Writer) {
    table := tablewriter.NewWriter(writer)
    table.SetAutoFormatHeaders(false)
    table.SetAutoWrapText(false)
    table.SetHeader([]string{
        color.YellowString("Symbol"),
        color.YellowString("Price"),
        color.YellowString("Currency"),
        color.YellowString("Updated"),
        color.YellowString("Source"),
    })
    table.SetRowLine(true)
    table.SetCenterSeparator(faint("-"))
    table.SetColumnSeparator(faint("|"))
    table.SetRowSeparator(faint("-"))

    for _, q := range quotes {
        table.Append([]string{
            q.Symbol,
            color.GreenString(strconv.FormatFloat(q.Price, 'f', -1, 64)),
            q.Currency,
            q.LastRefreshed.Local().Format("2006-01-02 15:04"),
            faint(q.Source),
        })
    }

    table.Render()
    writer.Flush()
}

func showUsageAndExit() {
    fmt.Fprintf(os.Stderr, "\nUsage: %s [Options] SYMBOL [SYMBOL ...]\n", os.Args[0])
    fmt.Fprintln(os.Stderr, "\nFetch stock, index and crypto prices in the terminal")
    fmt.Fprintln(os.Stderr, "\nOptions:")
    pflag.PrintDefaults()
    fmt.Fprintln(os.Stderr, "\nSymbols:")
    fmt.Fprintln(os.Stderr, "  Stock tickers (IBM), index aliases (NASDAQ, SP500, TA35) or crypto tickers (BTC, ETH).")
    os.Exit(0)
}
