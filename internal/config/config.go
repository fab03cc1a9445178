package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"

	GatewayModeRazorpay = "razorpay"
	GatewayModeSandbox  = "sandbox"
)

// Config holds everything the api process reads from the environment.
type Config struct {
	Port        string // 8080
	GoEnv       string // dev/prod
	ServiceName string
	LogFile     string // optional extra zap output

	// DATABASE_URL wins over the POSTGRES_* parts
	DatabaseURL      string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	// where carts and orders live; users, addresses, products and audit logs stay in postgres
	StoreDriver string
	MongoURI    string
	MongoDB     string

	RedisAddr     string
	RedisPassword string

	JWTSecret string

	PaymentSigningSecret string
	PaymentProofTTL      time.Duration

	GatewayMode      string
	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
	GatewayTimeout   time.Duration

	StoreTimeout         time.Duration
	CartCacheTTL         time.Duration
	SettlementAttemptTTL time.Duration
}

// Load reads the environment. Missing optional values fall back to defaults.
func Load() (Config, error) {
	pgPort, err := atoiOr("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:        getenv("PORT", "8080"),
		GoEnv:       getenv("GO_ENV", "dev"),
		ServiceName: getenv("SERVICE_NAME", "foodcart"),
		LogFile:     os.Getenv("LOG_FILE"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		StoreDriver: getenv("STORE_DRIVER", StoreDriverPostgres),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     getenv("MONGO_DB", "foodcart"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		PaymentSigningSecret: os.Getenv("PAYMENT_SIGNING_SECRET"),

		GatewayMode:      getenv("GATEWAY_MODE", GatewayModeSandbox),
		GatewayBaseURL:   getenv("GATEWAY_BASE_URL", "https://api.razorpay.com"),
		GatewayKeyID:     os.Getenv("GATEWAY_KEY_ID"),
		GatewayKeySecret: os.Getenv("GATEWAY_KEY_SECRET"),
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"PAYMENT_PROOF_TTL", 15 * time.Minute, &cfg.PaymentProofTTL},
		{"GATEWAY_TIMEOUT", 10 * time.Second, &cfg.GatewayTimeout},
		{"STORE_TIMEOUT", 5 * time.Second, &cfg.StoreTimeout},
		{"CART_CACHE_TTL", 15 * time.Minute, &cfg.CartCacheTTL},
		{"SETTLEMENT_ATTEMPT_TTL", 7 * 24 * time.Hour, &cfg.SettlementAttemptTTL},
	}
	for _, d := range durations {
		v, err := durationOr(d.key, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
		if c.PostgresPassword == "" {
			return fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.PaymentSigningSecret == "" {
		return fmt.Errorf("PAYMENT_SIGNING_SECRET is required")
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMongo)
	}

	switch c.GatewayMode {
	case GatewayModeSandbox:
	case GatewayModeRazorpay:
		if c.GatewayKeyID == "" || c.GatewayKeySecret == "" {
			return fmt.Errorf("GATEWAY_KEY_ID and GATEWAY_KEY_SECRET are required when GATEWAY_MODE=razorpay")
		}
	default:
		return fmt.Errorf("GATEWAY_MODE must be %q or %q", GatewayModeRazorpay, GatewayModeSandbox)
	}
	return nil
}

// Addr is the listen address for echo.
func (c Config) Addr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// PostgresDSN returns DATABASE_URL or a DSN built from the POSTGRES_* parts.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
