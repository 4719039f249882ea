package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// upload.getFile serves at most 1 MiB per call, in 4 KiB steps that divide 1 MiB.
const (
	maxBlockSize  = 1 << 20
	blockSizeStep = 4 << 10
)

type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	BaseURL string `mapstructure:"BASE_URL"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBScheme   string `mapstructure:"DB_SCHEME"`
	DBMaxConns int32  `mapstructure:"DB_MAX_CONNS"`

	// --- Redis ---
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisDB          int           `mapstructure:"REDIS_DB"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RecordCacheTTL   time.Duration `mapstructure:"RECORD_CACHE_TTL"`
	FilePathCacheTTL time.Duration `mapstructure:"FILE_PATH_CACHE_TTL"`

	// --- Bot API ---
	BotToken            string        `mapstructure:"BOT_TOKEN"`
	BotAPIBaseURL       string        `mapstructure:"BOTAPI_BASE_URL"`
	BotAPIRetryAttempts int           `mapstructure:"BOTAPI_RETRY_ATTEMPTS"`
	BotAPIRetryBackoff  time.Duration `mapstructure:"BOTAPI_RETRY_BACKOFF"`
	ResolveTimeout      time.Duration `mapstructure:"RESOLVE_TIMEOUT"`

	// --- MTProto ---
	APIID                   int           `mapstructure:"API_ID"`
	APIHash                 string        `mapstructure:"API_HASH"`
	MTProtoBlockSize        int64         `mapstructure:"MTPROTO_BLOCK_SIZE"`
	MTProtoWorkers          int           `mapstructure:"MTPROTO_WORKERS"`
	MTProtoFloodWaitPad     time.Duration `mapstructure:"MTPROTO_FLOOD_WAIT_PAD"`
	MTProtoFloodWaitDefault time.Duration `mapstructure:"MTPROTO_FLOOD_WAIT_DEFAULT"`

	// --- Streaming ---
	WriteStallTimeout time.Duration `mapstructure:"WRITE_STALL_TIMEOUT"`
	CounterTimeout    time.Duration `mapstructure:"COUNTER_TIMEOUT"`
}

var defaults = map[string]any{
	"APP_PORT":                   ":8080",
	"DB_PORT":                    5432,
	"DB_SCHEME":                  "public",
	"DB_MAX_CONNS":               10,
	"REDIS_ADDR":                 "localhost:6379",
	"RECORD_CACHE_TTL":           "60s",
	"FILE_PATH_CACHE_TTL":        "50m",
	"BOTAPI_BASE_URL":            "https://api.telegram.org",
	"BOTAPI_RETRY_ATTEMPTS":      3,
	"BOTAPI_RETRY_BACKOFF":       "500ms",
	"RESOLVE_TIMEOUT":            "15s",
	"MTPROTO_BLOCK_SIZE":         maxBlockSize,
	"MTPROTO_WORKERS":            16,
	"MTPROTO_FLOOD_WAIT_PAD":     "10s",
	"MTPROTO_FLOOD_WAIT_DEFAULT": "300s",
	"WRITE_STALL_TIMEOUT":        "2m",
	"COUNTER_TIMEOUT":            "5s",
}

// String prints the configuration with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  AppPort: %s\n", c.AppPort))
	sb.WriteString(fmt.Sprintf("  BaseURL: %s\n", c.BaseURL))
	sb.WriteString(fmt.Sprintf("  DBHost: %s\n", c.DBHost))
	sb.WriteString(fmt.Sprintf("  DBPort: %d\n", c.DBPort))
	sb.WriteString(fmt.Sprintf("  DBUser: %s\n", c.DBUser))
	sb.WriteString(fmt.Sprintf("  DBName: %s\n", c.DBName))
	sb.WriteString(fmt.Sprintf("  DBScheme: %s\n", c.DBScheme))
	sb.WriteString(fmt.Sprintf("  DBMaxConns: %d\n", c.DBMaxConns))
	sb.WriteString(fmt.Sprintf("  DBPassword: %s\n", mask(c.DBPassword)))

	sb.WriteString(fmt.Sprintf("  RedisAddr: %s\n", c.RedisAddr))
	sb.WriteString(fmt.Sprintf("  RedisDB: %d\n", c.RedisDB))
	sb.WriteString(fmt.Sprintf("  RedisPassword: %s\n", mask(c.RedisPassword)))
	sb.WriteString(fmt.Sprintf("  RecordCacheTTL: %s\n", c.RecordCacheTTL))
	sb.WriteString(fmt.Sprintf("  FilePathCacheTTL: %s\n", c.FilePathCacheTTL))

	sb.WriteString(fmt.Sprintf("  BotToken: %s\n", mask(c.BotToken)))
	sb.WriteString(fmt.Sprintf("  BotAPIBaseURL: %s\n", c.BotAPIBaseURL))
	sb.WriteString(fmt.Sprintf("  BotAPIRetryAttempts: %d\n", c.BotAPIRetryAttempts))
	sb.WriteString(fmt.Sprintf("  BotAPIRetryBackoff: %s\n", c.BotAPIRetryBackoff))
	sb.WriteString(fmt.Sprintf("  ResolveTimeout: %s\n", c.ResolveTimeout))

	sb.WriteString(fmt.Sprintf("  APIID: %d\n", c.APIID))
	sb.WriteString(fmt.Sprintf("  APIHash: %s\n", mask(c.APIHash)))
	sb.WriteString(fmt.Sprintf("  MTProtoBlockSize: %d\n", c.MTProtoBlockSize))
	sb.WriteString(fmt.Sprintf("  MTProtoWorkers: %d\n", c.MTProtoWorkers))
	sb.WriteString(fmt.Sprintf("  MTProtoFloodWaitPad: %s\n", c.MTProtoFloodWaitPad))
	sb.WriteString(fmt.Sprintf("  MTProtoFloodWaitDefault: %s\n", c.MTProtoFloodWaitDefault))

	sb.WriteString(fmt.Sprintf("  WriteStallTimeout: %s\n", c.WriteStallTimeout))
	sb.WriteString(fmt.Sprintf("  CounterTimeout: %s\n", c.CounterTimeout))
	return sb.String()
}

func mask(secret string) string {
	if secret == "" {
		return "(empty)"
	}
	return "********"
}

// LoadFromEnv reads the configuration from the environment.
func LoadFromEnv() (*Config, error) {
	// .env is only for local runs
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.New("failed to load .env")
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	keys := []string{
		"APP_PORT", "BASE_URL",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SCHEME", "DB_MAX_CONNS",
		"REDIS_ADDR", "REDIS_DB", "REDIS_PASSWORD", "RECORD_CACHE_TTL", "FILE_PATH_CACHE_TTL",
		"BOT_TOKEN", "BOTAPI_BASE_URL", "BOTAPI_RETRY_ATTEMPTS", "BOTAPI_RETRY_BACKOFF", "RESOLVE_TIMEOUT",
		"API_ID", "API_HASH", "MTPROTO_BLOCK_SIZE", "MTPROTO_WORKERS",
		"MTPROTO_FLOOD_WAIT_PAD", "MTPROTO_FLOOD_WAIT_DEFAULT",
		"WRITE_STALL_TIMEOUT", "COUNTER_TIMEOUT",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DBHost == "" || c.DBName == "" || c.DBUser == "" {
		errs = append(errs, errors.New("DB_HOST, DB_NAME and DB_USER are required"))
	}
	if c.DBMaxConns < 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must not be negative, got %d", c.DBMaxConns))
	}
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.MTProtoBlockSize <= 0 || c.MTProtoBlockSize > maxBlockSize ||
		c.MTProtoBlockSize%blockSizeStep != 0 || maxBlockSize%c.MTProtoBlockSize != 0 {
		errs = append(errs, fmt.Errorf("MTPROTO_BLOCK_SIZE %d must be a multiple of %d dividing %d",
			c.MTProtoBlockSize, blockSizeStep, maxBlockSize))
	}
	if c.MTProtoWorkers < 1 {
		errs = append(errs, fmt.Errorf("MTPROTO_WORKERS must be positive, got %d", c.MTProtoWorkers))
	}
	if c.ResolveTimeout <= 0 {
		errs = append(errs, errors.New("RESOLVE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// MTProtoEnabled reports whether bulk transfer can be configured at all.
func (c *Config) MTProtoEnabled() bool {
	return c.APIID != 0 && c.APIHash != "" && c.BotToken != ""
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
