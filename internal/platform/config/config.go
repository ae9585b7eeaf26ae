// Package config builds the service configuration from environment variables
// so main stays lean. Rate-limit bucket and tier tables live in
// internal/ratelimit/config; everything else is here.
package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	Token    Token
	Audit    Audit
	Redis    Redis
	Database Database

	// AdminKeyHash is the bcrypt hash of the operator key guarding
	// audit admin endpoints. Empty disables the admin surface.
	AdminKeyHash string
}

// Token configures the token lifecycle manager.
type Token struct {
	SigningKey string
	Issuer     string
	Audience   string
	Lifetime   time.Duration
}

// Audit configures the audit log service.
type Audit struct {
	RetentionDays int
	StoreTimeout  time.Duration
}

// Redis configures the shared counter store connection.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Database configures the audit persistence connection.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:         envString("HEALTHGATE_ADDR", ":8080"),
		AdminKeyHash: os.Getenv("ADMIN_KEY_HASH"),
		Token: Token{
			// Default for development - must be overridden in production.
			SigningKey: envString("TOKEN_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     envString("TOKEN_ISSUER", "healthgate"),
			Audience:   envString("TOKEN_AUDIENCE", "healthgate-api"),
			Lifetime:   envDuration("TOKEN_LIFETIME", 7*24*time.Hour),
		},
		Audit: Audit{
			RetentionDays: envInt("AUDIT_RETENTION_DAYS", 365),
			StoreTimeout:  envDuration("AUDIT_STORE_TIMEOUT", 3*time.Second),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Database: Database{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
