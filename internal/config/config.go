package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ProviderFile           string        // path to providers.yaml
	ProviderReloadInterval time.Duration // interval to reload providers.yaml (default: 10m)
	DatasetReloadInterval  time.Duration // interval to rescan static dataset dirs (default: 5m)
	SessionRefreshInterval time.Duration // interval between session refresh sweeps (default: 1m)
	SessionRefreshLead     time.Duration // refresh tickets this long before expiry (default: 2m)

	CacheTTL         time.Duration // result cache TTL (default: 5m)
	QueryDeadline    time.Duration // overall wall-clock bound per resolution (default: 10s)
	RateLimitMaxWait time.Duration // bounded wait for a rate-limit token (default: 250ms)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("COVERAGE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("COVERAGE_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("COVERAGE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("COVERAGE_PRETTY_LOG", false),

		// Providers and datasets
		ProviderFile:           getenv("COVERAGE_PROVIDER_FILE", "/app/providers.yaml"),
		ProviderReloadInterval: mustDuration("COVERAGE_PROVIDER_RELOAD_INTERVAL", 10*time.Minute),
		DatasetReloadInterval:  mustDuration("COVERAGE_DATASET_RELOAD_INTERVAL", 5*time.Minute),
		SessionRefreshInterval: mustDuration("COVERAGE_SESSION_REFRESH_INTERVAL", time.Minute),
		SessionRefreshLead:     mustDuration("COVERAGE_SESSION_REFRESH_LEAD", 2*time.Minute),

		// Resolution
		CacheTTL:         mustDuration("COVERAGE_CACHE_TTL", 5*time.Minute),
		QueryDeadline:    mustDuration("COVERAGE_QUERY_DEADLINE", 10*time.Second),
		RateLimitMaxWait: mustDuration("COVERAGE_RATE_LIMIT_MAX_WAIT", 250*time.Millisecond),

		// Redis settings
		RedisAddr:             requireEnv("COVERAGE_REDIS_ADDR"),
		RedisUser:             getenv("COVERAGE_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("COVERAGE_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("COVERAGE_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("COVERAGE_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("COVERAGE_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("COVERAGE_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("COVERAGE_TRUST_PROXY", true),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: COVERAGE_REDIS_PASSWORD is required when COVERAGE_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
