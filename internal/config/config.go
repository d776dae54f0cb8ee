package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	Port       int
	DBURL      string
	DBMaxConns int

	JWTSecret    string
	JWTExpiresIn string
	JWTTTL       time.Duration

	// bootstrap admin, skipped when email or password is empty
	AdminEmail    string
	AdminPassword string
	AdminName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	CORSAllowedOrigins []string
	AuthRateLimit      int
	AuthRateWindow     time.Duration
	MaxBodyBytes       int64

	HashCost        int
	HashConcurrency int

	TracingEnabled   bool
	OTLPEndpoint     string
	TraceSampleRatio float64
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	// .env is a dev convenience; absence is normal in containers
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	expiresIn := getEnv("JWT_EXPIRES_IN", "1h")

	// a bad TTL stays zero so Validate refuses to start
	ttl, err := auth.ParseTTL(expiresIn)
	if err != nil {
		slog.Warn("invalid JWT_EXPIRES_IN", "value", expiresIn, "err", err)
		ttl = 0
	}

	return Config{
		Env:        env,
		Port:       getEnvInt("PORT", 8080),
		DBURL:      buildDBURL(),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 10),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiresIn: expiresIn,
		JWTTTL:       ttl,

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPoolSize: getEnvInt("REDIS_POOL_SIZE", 10),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		AuthRateLimit:      getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindow:     getEnvDuration("AUTH_RATE_WINDOW", time.Minute),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		HashCost:        getEnvInt("BCRYPT_COST", 10),
		HashConcurrency: getEnvInt("HASH_CONCURRENCY", 0),

		TracingEnabled:   getEnvBool("OTEL_ENABLED", false),
		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TraceSampleRatio: getEnvRatio("OTEL_SAMPLE_RATIO", 1),
	}
}

// Validate rejects configurations the server must not start with.
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		if c.Env == "prod" {
			errs = append(errs, errors.New("JWT_SECRET is required in prod"))
		}
	} else if c.Env == "prod" && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in prod"))
	}

	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_EXPIRES_IN %q is not a positive duration", c.JWTExpiresIn))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	if c.DBURL == "" {
		errs = append(errs, errors.New("database url is empty"))
	}

	return errors.Join(errs...)
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "authhub")
	pass := getEnv("DB_PASSWORD", "authhub")
	name := getEnv("DB_NAME", "authhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env, using fallback", "key", key, "value", v, "fallback", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

// getEnvRatio reads a sampling ratio in [0, 1].
func getEnvRatio(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fallback
		}
		return d
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
