package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL         string
	ServerAddr          string
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool
	SwapRequestTTL      time.Duration
	SweepInterval       time.Duration
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "slotswapper")
		pass := getenv("POSTGRES_PASSWORD", "slotswapper_pass")
		db := getenv("POSTGRES_DB", "slotswapper")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}
	addr := getenv("SERVER_ADDR", "0.0.0.0:8080")
	ttl := parseDuration(getenv("SESSION_TTL", "24h"), 24*time.Hour)
	cookieName := getenv("SESSION_COOKIE_NAME", "slotswapper_session")
	cookieSecure := parseBool(getenv("SESSION_COOKIE_SECURE", "false"), false)
	swapTTL := parseDuration(getenv("SWAP_REQUEST_TTL", "168h"), 168*time.Hour)
	sweep := parseDuration(getenv("SWEEP_INTERVAL", "1m"), time.Minute)

	return &Config{
		DatabaseURL:         dsn,
		ServerAddr:          addr,
		SessionTTL:          ttl,
		SessionCookieName:   cookieName,
		SessionCookieSecure: cookieSecure,
		SwapRequestTTL:      swapTTL,
		SweepInterval:       sweep,
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
