// Package config builds explicit configuration structs from the environment
// so main stays lean and no package carries ambient global state.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	Server  Server
	Auth    Auth
	Notify  Notify
	Storage Storage
	Logging Logging
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Auth configures the token service for donor and hospital callers.
type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration
}

// Notify configures donor discovery radii and fanout behaviour.
type Notify struct {
	// NearbyRadiusKm bounds a donor's hospital-request browse.
	NearbyRadiusKm float64
	// FanoutRadiusKm bounds hospital-to-donor notification fanout.
	FanoutRadiusKm float64
	// FanoutWorkers caps concurrent deliveries.
	FanoutWorkers int
	// DeliveriesPerSecond throttles the external notifier.
	DeliveriesPerSecond float64
}

// Storage selects backing stores. Empty values fall back to in-memory.
type Storage struct {
	PostgresDSN  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string
}

// Logging controls structured logging settings.
type Logging struct {
	Level  string
	Format string // text|json
}

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultTokenTTL        = 24 * time.Hour
	defaultNearbyRadiusKm  = 5
	defaultFanoutRadiusKm  = 5
	defaultFanoutWorkers   = 8
	defaultDeliveryRate    = 20
	defaultKafkaTopic      = "bloodlink.request-events"
)

// FromEnv reads configuration from environment variables, applying defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("BLOODLINK_ADDR", defaultAddr),
			ShutdownTimeout: envDuration("BLOODLINK_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Auth: Auth{
			JWTSigningKey: envString("BLOODLINK_JWT_SIGNING_KEY", "dev-secret-change-in-production"),
			JWTIssuer:     envString("BLOODLINK_JWT_ISSUER", "bloodlink"),
			TokenTTL:      envDuration("BLOODLINK_TOKEN_TTL", defaultTokenTTL),
		},
		Notify: Notify{
			NearbyRadiusKm:      envFloat("BLOODLINK_NEARBY_RADIUS_KM", defaultNearbyRadiusKm),
			FanoutRadiusKm:      envFloat("BLOODLINK_FANOUT_RADIUS_KM", defaultFanoutRadiusKm),
			FanoutWorkers:       envInt("BLOODLINK_FANOUT_WORKERS", defaultFanoutWorkers),
			DeliveriesPerSecond: envFloat("BLOODLINK_DELIVERY_RATE", defaultDeliveryRate),
		},
		Storage: Storage{
			PostgresDSN:  os.Getenv("BLOODLINK_POSTGRES_DSN"),
			RedisURL:     os.Getenv("BLOODLINK_REDIS_URL"),
			KafkaBrokers: splitNonEmpty(os.Getenv("BLOODLINK_KAFKA_BROKERS")),
			KafkaTopic:   envString("BLOODLINK_KAFKA_TOPIC", defaultKafkaTopic),
		},
		Logging: Logging{
			Level:  envString("BLOODLINK_LOG_LEVEL", "info"),
			Format: envString("BLOODLINK_LOG_FORMAT", "text"),
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if part := csv[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
