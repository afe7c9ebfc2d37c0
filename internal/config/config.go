// Package config loads application configuration from the environment,
// an optional .env file and an optional config.yaml.
package config

import (
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// DefaultFiles are the YAML files Load consults, in order.
var DefaultFiles = []string{"config.yaml", "/etc/cinema/config.yaml"}

// Config holds all runtime configuration values. Each field maps to one
// environment variable.
type Config struct {
	Env             string        `env:"APP_ENV" yaml:"app_env" default:"dev"`
	Port            string        `env:"APP_PORT" yaml:"app_port" default:"8080"`
	CORSOrigins     string        `env:"CORS_ORIGINS" yaml:"cors_origins" default:"*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" default:"15s"`
	DisplayTZ       string        `env:"DISPLAY_TZ" yaml:"display_tz" default:"Asia/Bangkok"`
	OrderLogPath    string        `env:"ORDER_LOG_PATH" yaml:"order_log_path" default:"logs/orders.log"`

	DBUser    string `env:"DB_USER" yaml:"db_user"`
	DBPass    string `env:"DB_PASS" yaml:"db_pass"`
	DBHost    string `env:"DB_HOST" yaml:"db_host"`
	DBPort    string `env:"DB_PORT" yaml:"db_port" default:"3306"`
	DBName    string `env:"DB_NAME" yaml:"db_name"`
	DBMigrate bool   `env:"DB_MIGRATE" yaml:"db_migrate" default:"true"`

	JWTSecret      string `env:"JWT_SECRET" yaml:"jwt_secret"`
	AccessTTLMin   int    `env:"ACCESS_TOKEN_TTL_MIN" yaml:"access_token_ttl_min" default:"10080"`
	RefreshTTLDays int    `env:"REFRESH_TOKEN_TTL_DAYS" yaml:"refresh_token_ttl_days" default:"30"`
	BcryptCost     int    `env:"BCRYPT_COST" yaml:"bcrypt_cost" default:"10"`

	SMTPHost string `env:"SMTP_HOST" yaml:"smtp_host"`
	SMTPPort int    `env:"SMTP_PORT" yaml:"smtp_port" default:"465"`
	SMTPUser string `env:"SMTP_USER" yaml:"smtp_user"`
	SMTPPass string `env:"SMTP_PASS" yaml:"smtp_pass"`
	SMTPFrom string `env:"SMTP_FROM" yaml:"smtp_from"`

	RabbitURL string `env:"RABBITMQ_URL" yaml:"rabbitmq_url"`

	RedisAddr     string `env:"REDIS_ADDR" yaml:"redis_addr"`
	RedisHost     string `env:"REDIS_HOST" yaml:"redis_host"`
	RedisPort     string `env:"REDIS_PORT" yaml:"redis_port"`
	RedisPassword string `env:"REDIS_PASSWORD" yaml:"redis_password"`
	RedisDB       int    `env:"REDIS_DB" yaml:"redis_db"`
	RedisTLS      bool   `env:"REDIS_TLS" yaml:"redis_tls"`

	CacheEnabled      bool          `env:"CACHE_ENABLED" yaml:"cache_enabled" default:"true"`
	CacheMethods      string        `env:"CACHE_METHODS" yaml:"cache_methods" default:"GET"`
	CacheTTL          time.Duration `env:"CACHE_TTL" yaml:"cache_ttl" default:"30s"`
	CacheKeyStrategy  string        `env:"CACHE_KEY_STRATEGY" yaml:"cache_key_strategy" default:"route_query"`
	CachePrefix       string        `env:"CACHE_PREFIX" yaml:"cache_prefix" default:"cache"`
	CacheMaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" yaml:"cache_max_body_bytes" default:"1048576"`

	RateLimitEnabled        bool          `env:"RATE_LIMIT_ENABLED" yaml:"rate_limit_enabled" default:"true"`
	RateLimitCapacity       int           `env:"RATE_LIMIT_CAPACITY" yaml:"rate_limit_capacity" default:"60"`
	RateLimitRefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" yaml:"rate_limit_refill_tokens" default:"1"`
	RateLimitRefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" yaml:"rate_limit_refill_interval" default:"1s"`
	RateLimitTTL            time.Duration `env:"RATE_LIMIT_TTL" yaml:"rate_limit_ttl" default:"10m"`
	RateLimitKeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY" yaml:"rate_limit_key_strategy" default:"ip_user_route"`
	RateLimitPrefix         string        `env:"RATE_LIMIT_PREFIX" yaml:"rate_limit_prefix" default:"rl"`
}

// Load reads .env (when present) and then the environment and files.
func Load(files ...string) (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:          true,
		AllowUnknownEnvs:   true,
		AllowUnknownFields: true,
		Files:              files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	required := []struct{ key, val string }{
		{"DB_USER", c.DBUser},
		{"DB_HOST", c.DBHost},
		{"DB_NAME", c.DBName},
		{"JWT_SECRET", c.JWTSecret},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.AccessTTLMin <= 0 || c.RefreshTTLDays <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool { return strings.EqualFold(c.Env, "dev") }

// Origins splits CORSOrigins on commas.
func (c Config) Origins() []string { return splitList(c.CORSOrigins, false) }

// Location resolves DisplayTZ, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(s string, upper bool) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if upper {
			p = strings.ToUpper(p)
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
