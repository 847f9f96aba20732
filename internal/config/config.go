package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName      string
	Environment  string
	HTTP         HTTPConfig
	Storage      StorageConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	NATS         NATSConfig
	JWT          JWTConfig
	Buffer       BufferConfig
	Context      ContextConfig
	Logger       LoggerConfig
	Migrations   MigrationsConfig
	Gamification GamificationConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxConn       int
	EnablePprof   bool
	EnableMetrics bool
}

// StorageConfig selects the repository backend. The memory driver needs no
// external services and loses everything on restart.
type StorageConfig struct {
	Driver string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Password string
	DB       int
}

type NATSConfig struct {
	URL     string
	Subject string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type BufferConfig struct {
	Enabled        bool
	Path           string
	MaxSize        int
	RetentionHours int
	SyncInterval   time.Duration
	MaxRetry       int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level      string
	Encoding   string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

type GamificationConfig struct {
	LeaderboardTopN     int
	LeaderboardCacheTTL time.Duration
}

// fileConfig is the optional YAML document named by CONFIG_FILE. Environment
// variables take precedence over anything it sets.
type fileConfig struct {
	AppName string `yaml:"app_name"`
	Storage struct {
		Driver string `yaml:"driver"`
	} `yaml:"storage"`
	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`
	Logger struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
		File     string `yaml:"file"`
	} `yaml:"logger"`
	Gamification struct {
		LeaderboardTopN     int    `yaml:"leaderboard_top_n"`
		LeaderboardCacheTTL string `yaml:"leaderboard_cache_ttl"`
	} `yaml:"gamification"`
}

// Load reads configuration from an optional YAML file, then from environment
// variables (optionally .env), and applies sane defaults so the service can boot
// in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	cacheTTL := 30 * time.Second
	if file.Gamification.LeaderboardCacheTTL != "" {
		parsed, err := time.ParseDuration(file.Gamification.LeaderboardCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("config: gamification.leaderboard_cache_ttl: %w", err)
		}
		cacheTTL = parsed
	}

	cfg := &Config{
		AppName:     getString("APP_NAME", or(file.AppName, "lifequest")),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:          getString("SERVER_HOST", "0.0.0.0"),
			Port:          getString("SERVER_PORT", "8080"),
			ReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:       getInt("SERVER_MAX_CONN", 0),
			EnablePprof:   getBool("SERVER_ENABLE_PPROF", false),
			EnableMetrics: getBool("SERVER_ENABLE_METRICS", true),
		},
		Storage: StorageConfig{
			Driver: getString("STORAGE_DRIVER", or(file.Storage.Driver, StoragePostgres)),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "lifequest"),
			User:            getString("DB_USER", "lifequest"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", true),
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:     getString("NATS_URL", file.NATS.URL),
			Subject: getString("NATS_SUBJECT", or(file.NATS.Subject, "lifequest.task.completed")),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "lifequest"),
		},
		Buffer: BufferConfig{
			Enabled:        getBool("BUFFER_ENABLED", true),
			Path:           getString("BOLTDB_PATH", "./data/buffer.db"),
			MaxSize:        getInt("BUFFER_MAX_SIZE", 1_000_000),
			RetentionHours: getInt("BUFFER_RETENTION_HOURS", 24),
			SyncInterval:   getDuration("SYNC_INTERVAL_SECONDS", 30*time.Second),
			MaxRetry:       getInt("MAX_RETRY_ATTEMPTS", 3),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:      getString("LOG_LEVEL", or(file.Logger.Level, "info")),
			Encoding:   getString("LOG_ENCODING", or(file.Logger.Encoding, "json")),
			File:       getString("LOG_FILE", file.Logger.File),
			MaxSizeMB:  getInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getInt("LOG_MAX_AGE_DAYS", 14),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
		Gamification: GamificationConfig{
			LeaderboardTopN:     getInt("LEADERBOARD_TOP_N", orInt(file.Gamification.LeaderboardTopN, 50)),
			LeaderboardCacheTTL: getDuration("LEADERBOARD_CACHE_TTL", cacheTTL),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Gamification.LeaderboardTopN <= 0 {
		return fmt.Errorf("config: leaderboard top n must be positive, got %d", c.Gamification.LeaderboardTopN)
	}
	return nil
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fc, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fc, nil
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func or(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}

func orInt(val, fallback int) int {
	if val != 0 {
		return val
	}
	return fallback
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
