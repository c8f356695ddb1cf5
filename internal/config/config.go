package config

import (
    "github.com/pkg/errors"
    "github.com/spf13/viper"
)

type Server struct {
    Port              string `mapstructure:"port"`
    RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
    Debug             bool   `mapstructure:"debug"`
}

type Upstream struct {
    APIKey        string `mapstructure:"api_key"`
    BaseURL       string `mapstructure:"base_url"`
    QuoteCurrency string `mapstructure:"quote_currency"`
    // MaxRequestsPerMinute gates outbound calls; 0 disables the gate.
    MaxRequestsPerMinute int `mapstructure:"max_rpm"`
    Burst                int `mapstructure:"burst"`
}

type Cache struct {
    TTLSeconds int `mapstructure:"ttl_sec"`
    MaxItems   int `mapstructure:"max_items"`
}

type Config struct {
    Server   Server   `mapstructure:"server"`
    Upstream Upstream `mapstructure:"upstream"`
    Cache    Cache    `mapstructure:"cache"`
}

// Load reads configuration from an optional marketprice.{yml,json}
// file and the environment. Env always wins over the file; defaults
// fill the rest. An empty path means "search the working directory".
func Load(path string) (Config, error) {
    v := viper.New()

    v.SetDefault("server.port", "8080")
    v.SetDefault("server.request_timeout_sec", 10)
    v.SetDefault("server.debug", false)
    v.SetDefault("upstream.api_key", "demo") // 'demo' is for testing only
    v.SetDefault("upstream.base_url", "https://www.alphavantage.co/query")
    v.SetDefault("upstream.quote_currency", "USD")
    v.SetDefault("upstream.max_rpm", 0)
    v.SetDefault("upstream.burst", 1)
    v.SetDefault("cache.ttl_sec", 30)
    v.SetDefault("cache.max_items", 10000)

    // Environment names follow the original deployment contract.
    for key, env := range map[string]string{
        "server.port":                "PORT",
        "server.request_timeout_sec": "REQUEST_TIMEOUT_SEC",
        "server.debug":               "DEBUG",
        "upstream.api_key":           "ALPHA_VANTAGE_API_KEY",
        "upstream.base_url":          "ALPHA_VANTAGE_BASE_URL",
        "upstream.quote_currency":    "QUOTE_CURRENCY",
        "upstream.max_rpm":           "UPSTREAM_MAX_RPM",
        "upstream.burst":             "UPSTREAM_BURST",
        "cache.ttl_sec":              "CACHE_TTL_SEC",
        "cache.max_items":            "CACHE_MAX_ITEMS",
    } {
        if err := v.BindEnv(key, env); err != nil {
            return Config{}, errors.Wrapf(err, "binding %s", env)
        }
    }

    if path != "" {
        v.SetConfigFile(path)
    } else {
        v.SetConfigName("marketprice")
        v.AddConfigPath(".")
    }
    if err := v.ReadInConfig(); err != nil {
        var notFound viper.ConfigFileNotFoundError
        if path != "" || !errors.As(err, &notFound) {
            return Config{}, errors.Wrap(err, "reading config file")
        }
    }

    var cfg Config
    if err := v.Unmarshal(&cfg); err != nil {
        return Config{}, errors.Wrap(err, "parsing config")
    }
    if cfg.Cache.TTLSeconds < 0 {
        cfg.Cache.TTLSeconds = 0
    }
    return cfg, nil
}
