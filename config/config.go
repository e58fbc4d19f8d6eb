package config

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type Config struct {
	Port                  int
	RPCURLs               []string
	CORSOrigins           []string
	MaxRequestSize        int64
	RequestTimeout        time.Duration
	MaxConcurrentRequests int
	EnableCache           bool
	CacheTTL              time.Duration
	MaxRetryAttempts      int
	ChainID               uint64
	Environment           string
	LogLevel              string
}

func Load() (*Config, error) {
	viper.SetDefault("PORT", 3000)
	viper.SetDefault("RPC_URLS", "")
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("MAX_REQUEST_SIZE", 1048576)
	viper.SetDefault("REQUEST_TIMEOUT", 6000)
	viper.SetDefault("MAX_CONCURRENT_REQUESTS", 200)
	viper.SetDefault("ENABLE_CACHE", false)
	viper.SetDefault("CACHE_TTL", 1000)
	viper.SetDefault("MAX_RETRY_ATTEMPTS", 2)
	viper.SetDefault("CHAIN_ID", 42161)
	viper.SetDefault("ENVIRONMENT", EnvDev)
	viper.SetDefault("LOG_LEVEL", LogLevelInfo)

	viper.AutomaticEnv()

	cfg := &Config{
		Port:                  viper.GetInt("PORT"),
		RPCURLs:               splitCSV(viper.GetString("RPC_URLS")),
		CORSOrigins:           splitCSV(viper.GetString("CORS_ORIGINS")),
		MaxRequestSize:        viper.GetInt64("MAX_REQUEST_SIZE"),
		RequestTimeout:        time.Duration(viper.GetInt64("REQUEST_TIMEOUT")) * time.Millisecond,
		MaxConcurrentRequests: viper.GetInt("MAX_CONCURRENT_REQUESTS"),
		EnableCache:           viper.GetBool("ENABLE_CACHE"),
		CacheTTL:              time.Duration(viper.GetInt64("CACHE_TTL")) * time.Millisecond,
		MaxRetryAttempts:      viper.GetInt("MAX_RETRY_ATTEMPTS"),
		ChainID:               viper.GetUint64("CHAIN_ID"),
		Environment:           viper.GetString("ENVIRONMENT"),
		LogLevel:              viper.GetString("LOG_LEVEL"),
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port,
			validation.Required,
			validation.Min(1),
			validation.Max(65535),
		),
		validation.Field(&c.RPCURLs,
			validation.Each(validation.By(validateRPCURL)),
		),
		validation.Field(&c.MaxRequestSize,
			validation.Required,
			validation.Min(1),
		),
		validation.Field(&c.RequestTimeout,
			validation.Required,
			validation.Min(time.Millisecond),
		),
		validation.Field(&c.MaxConcurrentRequests,
			validation.Required,
			validation.Min(1),
		),
		validation.Field(&c.MaxRetryAttempts,
			validation.Min(0),
		),
		validation.Field(&c.ChainID,
			validation.Required,
		),
		validation.Field(&c.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&c.LogLevel,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func validateRPCURL(value interface{}) error {
	rpcURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if rpcURL == "" {
		return validation.NewError("validation_empty_url", "RPC URL cannot be empty")
	}

	parsedURL, err := url.Parse(rpcURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
