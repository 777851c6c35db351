package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Primary    PrimaryConfig    `yaml:"primary"`
	Fallback   FallbackConfig   `yaml:"fallback"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Notifications are disabled when the keys are empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// Primary backend drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	// DriverNone serves everything from the fallback file.
	DriverNone = "none"
)

// PrimaryConfig holds the primary database connection configuration.
type PrimaryConfig struct {
	Driver                 string        `yaml:"driver"`
	DSN                    string        `yaml:"dsn"`
	Database               string        `yaml:"database"` // mongo only
	MaxOpenConns           int           `yaml:"max_open_conns"`
	MaxIdleConns           int           `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int           `yaml:"conn_max_lifetime_minutes"`
	OpTimeoutMillis        int           `yaml:"op_timeout_ms"`
	OpTimeout              time.Duration `yaml:"-"`
}

// FallbackConfig holds the local JSON file store configuration.
type FallbackConfig struct {
	Path     string `yaml:"path"`
	SeedDemo bool   `yaml:"seed_demo"`
}

// AuthConfig holds identity and token settings.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTLHours   int           `yaml:"token_ttl_hours"`
	TokenTTL        time.Duration `yaml:"-"`
	AdminPassword   string        `yaml:"admin_password"`
	TeamPassword    string        `yaml:"team_password"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
	RequireIdentity bool          `yaml:"require_identity"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Load reads the configuration from the given path, then applies .env and
// environment overrides. A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		log.Printf("config file %s not found; using defaults", path)
	default:
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not load .env: %v", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("GEARGUARD_PRIMARY_DRIVER"); ok {
		cfg.Primary.Driver = v
	}
	if v, ok := os.LookupEnv("GEARGUARD_PRIMARY_DSN"); ok {
		cfg.Primary.DSN = v
	}
	if v, ok := os.LookupEnv("GEARGUARD_FALLBACK_PATH"); ok {
		cfg.Fallback.Path = v
	}
	if v, ok := os.LookupEnv("GEARGUARD_JWT_SECRET"); ok {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := os.LookupEnv("GEARGUARD_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("ignoring invalid GEARGUARD_PORT %q", v)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds < 0 {
		cfg.Server.CacheTTLSeconds = 0
	}

	if cfg.Primary.Driver == "" {
		cfg.Primary.Driver = DriverPostgres
	}
	if cfg.Primary.Database == "" {
		cfg.Primary.Database = "gearguard"
	}
	if cfg.Primary.MaxOpenConns <= 0 {
		cfg.Primary.MaxOpenConns = 10
	}
	if cfg.Primary.MaxIdleConns <= 0 {
		cfg.Primary.MaxIdleConns = 5
	}
	if cfg.Primary.ConnMaxLifetimeMinutes <= 0 {
		cfg.Primary.ConnMaxLifetimeMinutes = 30
	}
	if cfg.Primary.OpTimeoutMillis <= 0 {
		cfg.Primary.OpTimeoutMillis = 3000
	}
	cfg.Primary.OpTimeout = time.Duration(cfg.Primary.OpTimeoutMillis) * time.Millisecond

	if cfg.Fallback.Path == "" {
		cfg.Fallback.Path = "gearguard-data.json"
	}

	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 24 * 7
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
	if cfg.Auth.AdminPassword == "" {
		cfg.Auth.AdminPassword = "admin123"
	}
	if cfg.Auth.TeamPassword == "" {
		cfg.Auth.TeamPassword = "pass"
	}
	if cfg.Auth.JWTSecret == "" {
		log.Printf("auth.jwt_secret is not set; using an insecure development secret")
		cfg.Auth.JWTSecret = "gearguard-dev-secret"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Encoding == "" {
		cfg.Log.Encoding = "console"
	}
}
