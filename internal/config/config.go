// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Storage   StorageConfig   `koanf:"storage"`
	Events    EventsConfig    `koanf:"events"`
	TwoFactor TwoFactorConfig `koanf:"two_factor"`
	Loyalty   LoyaltyConfig   `koanf:"loyalty"`
	Catalog   CatalogConfig   `koanf:"catalog"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrationsPath  string        `koanf:"migrations_path"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath string `koanf:"private_key_path"`
	PublicKeyPath  string `koanf:"public_key_path"`
	// PreviousPublicKeyPath keeps tokens signed before a key rotation valid
	// until they expire.
	PreviousPublicKeyPath string        `koanf:"previous_public_key_path"`
	AccessTokenExpire     time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire    time.Duration `koanf:"refresh_token_expire"`
	Issuer                string        `koanf:"issuer"`
	Audience              string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// StorageConfig points at any S3-compatible bucket. Uploads are disabled
// when Bucket is empty.
type StorageConfig struct {
	Endpoint       string `koanf:"endpoint"`
	Region         string `koanf:"region"`
	Bucket         string `koanf:"bucket"`
	AccessKey      string `koanf:"access_key"`
	SecretKey      string `koanf:"secret_key"`
	UsePathStyle   bool   `koanf:"use_path_style"`
	PublicBaseURL  string `koanf:"public_base_url"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes"`
}

func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// EventsConfig configures the AMQP broker. With an empty URL events are
// dispatched in-process.
type EventsConfig struct {
	AMQPURL  string `koanf:"amqp_url"`
	Exchange string `koanf:"exchange"`
	Queue    string `koanf:"queue"`
}

type TwoFactorConfig struct {
	Issuer          string        `koanf:"issuer"`
	ChallengeTTL    time.Duration `koanf:"challenge_ttl"`
	MaxAttempts     int           `koanf:"max_attempts"`
	BackupCodeCount int           `koanf:"backup_code_count"`
}

type LoyaltyConfig struct {
	EarnRate         string `koanf:"earn_rate"`
	PointValue       string `koanf:"point_value"`
	DeliveryFee      string `koanf:"delivery_fee"`
	FreeDeliveryOver string `koanf:"free_delivery_over"`
}

func (l LoyaltyConfig) EarnRateDecimal() decimal.Decimal {
	return decimal.RequireFromString(l.EarnRate)
}

func (l LoyaltyConfig) PointValueDecimal() decimal.Decimal {
	return decimal.RequireFromString(l.PointValue)
}

func (l LoyaltyConfig) DeliveryFeeDecimal() decimal.Decimal {
	return decimal.RequireFromString(l.DeliveryFee)
}

// FreeDeliveryOverDecimal returns zero when free delivery is disabled.
func (l LoyaltyConfig) FreeDeliveryOverDecimal() decimal.Decimal {
	if l.FreeDeliveryOver == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(l.FreeDeliveryOver)
}

type CatalogConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "RepuestosPro API",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             5000,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.migrations_path":    "migrations",
		"database.auto_migrate":       false,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire":  "15m",
		"jwt.refresh_token_expire": "168h",
		"jwt.issuer":               "repuestospro",
		"jwt.audience":             "repuestospro-api",
		"jwt.private_key_path":     "keys/private.pem",
		"jwt.public_key_path":      "keys/public.pem",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:5173"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "repuestospro-api",

		"storage.region":           "us-east-1",
		"storage.use_path_style":   true,
		"storage.max_upload_bytes": 5 << 20,

		"events.exchange": "repuestos.events",
		"events.queue":    "repuestos.notifications",

		"two_factor.issuer":            "RepuestosPro",
		"two_factor.challenge_ttl":     "5m",
		"two_factor.max_attempts":      5,
		"two_factor.backup_code_count": 10,

		"loyalty.earn_rate":          "1",
		"loyalty.point_value":        "0.01",
		"loyalty.delivery_fee":       "3.50",
		"loyalty.free_delivery_over": "",

		"catalog.cache_ttl": "10m",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                 "database.url",
	"AUTO_MIGRATE":                 "database.auto_migrate",
	"MIGRATIONS_PATH":              "database.migrations_path",
	"REDIS_URL":                    "redis.url",
	"ENVIRONMENT":                  "app.environment",
	"NODE_ENV":                     "app.environment",
	"HOST":                         "server.host",
	"PORT":                         "server.port",
	"LOG_LEVEL":                    "log.level",
	"LOG_FORMAT":                   "log.format",
	"JWT_PRIVATE_KEY_PATH":         "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":          "jwt.public_key_path",
	"JWT_PREVIOUS_PUBLIC_KEY_PATH": "jwt.previous_public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":      "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE":     "jwt.refresh_token_expire",
	"JWT_ISSUER":                   "jwt.issuer",
	"JWT_AUDIENCE":                 "jwt.audience",
	"RATE_LIMIT_REQUESTS":          "rate_limit.requests",
	"RATE_LIMIT_WINDOW":            "rate_limit.window",
	"RATE_LIMIT_BURST":             "rate_limit.burst",
	"OTEL_ENDPOINT":                "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT":  "otel.endpoint",
	"OTEL_SERVICE_NAME":            "otel.service_name",
	"OTEL_ENABLED":                 "otel.enabled",
	"OTEL_INSECURE":                "otel.insecure",
	"OTEL_SAMPLE_RATE":             "otel.sample_rate",
	"STORAGE_ENDPOINT":             "storage.endpoint",
	"STORAGE_REGION":               "storage.region",
	"STORAGE_BUCKET":               "storage.bucket",
	"STORAGE_ACCESS_KEY":           "storage.access_key",
	"STORAGE_SECRET_KEY":           "storage.secret_key",
	"STORAGE_PUBLIC_BASE_URL":      "storage.public_base_url",
	"STORAGE_MAX_UPLOAD_BYTES":     "storage.max_upload_bytes",
	"AMQP_URL":                     "events.amqp_url",
	"EVENTS_EXCHANGE":              "events.exchange",
	"EVENTS_QUEUE":                 "events.queue",
	"TWO_FACTOR_ISSUER":            "two_factor.issuer",
	"LOYALTY_EARN_RATE":            "loyalty.earn_rate",
	"LOYALTY_POINT_VALUE":          "loyalty.point_value",
	"DELIVERY_FEE":                 "loyalty.delivery_fee",
	"FREE_DELIVERY_OVER":           "loyalty.free_delivery_over",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.TwoFactor.Issuer == "" {
		return fmt.Errorf("two_factor.issuer is required")
	}

	if c.TwoFactor.MaxAttempts < 1 {
		return fmt.Errorf("two_factor.max_attempts must be at least 1")
	}

	loyalty := map[string]string{
		"loyalty.earn_rate":    c.Loyalty.EarnRate,
		"loyalty.point_value":  c.Loyalty.PointValue,
		"loyalty.delivery_fee": c.Loyalty.DeliveryFee,
	}
	if c.Loyalty.FreeDeliveryOver != "" {
		loyalty["loyalty.free_delivery_over"] = c.Loyalty.FreeDeliveryOver
	}
	for key, raw := range loyalty {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s must be a decimal: %w", key, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
