package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/govalues/decimal"
	"github.com/joho/godotenv"

	"github.com/danyeu/fx"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Rates    RatesConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
}

// AppConfig holds the trading parameters.
// The fields without a validate tag are filled in by Validate.
type AppConfig struct {
	Environment string        `validate:"required,oneof=development production test"`
	Base        string        `validate:"required,len=3"`
	FX          []string      `validate:"required,min=1,dive,len=3"`
	Start       string        `validate:"required"`
	QuoteTTL    time.Duration `validate:"gt=0"`

	BaseCurrency fx.Currency   `validate:"-"`
	FXCurrencies []fx.Currency `validate:"-"`
	StartBalance fx.Amount     `validate:"-"`
}

// RatesConfig holds the exchange rate supplier configuration
type RatesConfig struct {
	Source              string            `validate:"oneof=beacon static"`
	APIKey              string            `validate:"required_if=Source beacon"`
	URL                 string            `validate:"required,url"`
	Timeout             time.Duration     `validate:"gt=0"`
	Static              map[string]string `validate:"required_if=Source static"`
	CacheTTL            time.Duration     `validate:"gte=0"`
	BreakerMaxFailures  uint32            `validate:"gte=1"`
	BreakerOpenDuration time.Duration     `validate:"gt=0"`

	StaticRates map[fx.Currency]decimal.Decimal `validate:"-"`
}

// StoreConfig selects the portfolio store
type StoreConfig struct {
	Kind    string `validate:"oneof=memory csv postgres"`
	DataDir string `validate:"required_if=Kind csv"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int    `validate:"gte=1"`
	MinConns int    `validate:"gte=0,ltefield=MaxConns"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string `validate:"required_if=Enabled true"`
	Port     string `validate:"required_if=Enabled true"`
	Password string
	DB       int `validate:"gte=0"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string   `validate:"required,numeric"`
	ReadTimeout  int      `validate:"gt=0"`
	WriteTimeout int      `validate:"gt=0"`
	CORSOrigins  []string `validate:"dive,required"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("ENVIRONMENT", "development"),
			Base:        getEnv("BASE_CURRENCY", "USD"),
			FX:          getEnvAsList("FX_CURRENCIES", []string{"EUR", "GBP", "JPY", "CNY"}),
			Start:       getEnv("START_BALANCE", "10000.00"),
			QuoteTTL:    getEnvAsDuration("QUOTE_TTL", 10*time.Second),
		},
		Rates: RatesConfig{
			Source:              getEnv("RATES_SOURCE", "static"),
			APIKey:              getEnv("RATES_API_KEY", ""),
			URL:                 getEnv("RATES_URL", "https://api.currencybeacon.com"),
			Timeout:             getEnvAsDuration("RATES_TIMEOUT", 5*time.Second),
			Static:              getEnvAsMap("STATIC_RATES", "EUR:0.92157,GBP:0.79231,JPY:149.87654,CNY:7.23456"),
			CacheTTL:            getEnvAsDuration("RATES_CACHE_TTL", 30*time.Second),
			BreakerMaxFailures:  uint32(getEnvAsInt("RATES_BREAKER_MAX_FAILURES", 3)), //nolint:gosec
			BreakerOpenDuration: getEnvAsDuration("RATES_BREAKER_OPEN_DURATION", 30*time.Second),
		},
		Store: StoreConfig{
			Kind:    getEnv("STORE_KIND", "csv"),
			DataDir: getEnv("DATA_DIR", "data"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "fx"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 1),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags, then parses currencies, the starting
// balance and the static rates into their fx types.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	base, err := fx.ParseCurr(c.App.Base)
	if err != nil {
		return fmt.Errorf("invalid BASE_CURRENCY: %w", err)
	}
	seen := map[fx.Currency]bool{base: true}
	currs := make([]fx.Currency, 0, len(c.App.FX))
	for _, code := range c.App.FX {
		curr, err := fx.ParseCurr(code)
		if err != nil {
			return fmt.Errorf("invalid FX_CURRENCIES: %w", err)
		}
		if seen[curr] {
			return fmt.Errorf("invalid FX_CURRENCIES: %v is listed twice or is the base currency", curr)
		}
		seen[curr] = true
		currs = append(currs, curr)
	}

	start, err := fx.ParseAmount(c.App.Start)
	if err != nil {
		return fmt.Errorf("invalid START_BALANCE: %w", err)
	}
	if !start.IsPos() {
		return fmt.Errorf("invalid START_BALANCE: %v is not positive", start)
	}

	static := make(map[fx.Currency]decimal.Decimal, len(c.Rates.Static))
	for code, text := range c.Rates.Static {
		curr, err := fx.ParseCurr(code)
		if err != nil {
			return fmt.Errorf("invalid STATIC_RATES: %w", err)
		}
		d, err := decimal.Parse(text)
		if err != nil {
			return fmt.Errorf("invalid STATIC_RATES for %v: %w", curr, err)
		}
		if !d.IsPos() {
			return fmt.Errorf("invalid STATIC_RATES for %v: %v is not positive", curr, d)
		}
		static[curr] = d
	}
	if c.Rates.Source == "static" {
		for _, curr := range currs {
			if _, ok := static[curr]; !ok {
				return fmt.Errorf("invalid STATIC_RATES: no rate for %v", curr)
			}
		}
	}

	c.App.BaseCurrency = base
	c.App.FXCurrencies = currs
	c.App.StartBalance = start
	c.Rates.StaticRates = static
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// getEnvAsMap parses "KEY:value,KEY:value"; malformed items are skipped
func getEnvAsMap(key, defaultValue string) map[string]string {
	m := make(map[string]string)
	for _, item := range getEnvAsList(key, strings.Split(defaultValue, ",")) {
		k, v, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		m[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return m
}
