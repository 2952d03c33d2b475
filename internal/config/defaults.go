package config

import (
	"strings"
	"time"
)

// GetDefaultConfig returns a fully populated Config suitable for local
// development, with no file or environment overrides applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in any zero-valued fields with sane defaults. It is
// called after unmarshalling file/env config so that partially specified
// configuration still produces a runnable server.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyDatabaseDefaults(&cfg.Database)
	applyKVDefaults(&cfg.KV)
	applyContentDefaults(&cfg.Content)
	applyHTTPDefaults(&cfg.HTTP)
	applyMetricsDefaults(&cfg.Metrics)
	applyAuthDefaults(&cfg.Auth)
	applyRateLimitDefaults(&cfg.RateLimit)
	applyQuotaDefaults(&cfg.Quota)
	applyWebhookDefaults(&cfg.Webhooks)
	applyOrchestrationDefaults(&cfg.Orchestration)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.DSN == "" {
		cfg.DSN = "mdplane.db"
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
}

func applyKVDefaults(cfg *KVConfig) {
	if cfg.Path == "" {
		cfg.Path = "./data/kv"
	}
	if cfg.GCIntervalSeconds == 0 {
		cfg.GCIntervalSeconds = 300
	}
}

func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "inline"
	}
}

func applyHTTPDefaults(cfg *HTTPConfig) {
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Address == "" {
		cfg.Address = ":9090"
	}
}

func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
}

func applyRateLimitDefaults(cfg *RateLimitConfig) {
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst == 0 {
		cfg.Burst = 20
	}
}

func applyQuotaDefaults(cfg *QuotaConfig) {
	if cfg.DefaultBytes == 0 {
		cfg.DefaultBytes = 5 << 30 // 5 GiB
	}
}

func applyWebhookDefaults(cfg *WebhookConfig) {
	if cfg.MaxPerWorkspace == 0 {
		cfg.MaxPerWorkspace = 20
	}
	if cfg.DeliveryTimeout == 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
}

func applyOrchestrationDefaults(cfg *OrchestrationConfig) {
	if cfg.DefaultClaimTTL == 0 {
		cfg.DefaultClaimTTL = 5 * time.Minute
	}
	if cfg.MaxClaimTTL == 0 {
		cfg.MaxClaimTTL = 1 * time.Hour
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = 90 * time.Second
	}
}
