package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig selects the key-value backend holding users, tokens and
// sessions: memory, redis or postgres.
type StoreConfig struct {
	Driver    string
	KeyPrefix string
}

type PostgresConfig struct {
	DSN              string
	MaxOpen          int
	MaxIdle          int
	ConnMaxLifetime  time.Duration
	StatementTimeout time.Duration
	ApplicationName  string
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type NotificationsConfig struct {
	Enabled  bool
	Stream   string
	Group    string
	Consumer string
	MaxLen   int64
}

type StorageConfig struct {
	Enabled        bool
	Endpoint       string
	AccessKey      string
	SecretKey      string
	BucketSnapshot string
	UseSSL         bool
	Region         string
}

type SecurityConfig struct {
	SessionSecret     string
	SessionTTL        time.Duration
	ResetTokenTTL     time.Duration
	HashPasswords     bool
	MinPasswordLength int
	AdminEmailPattern []string
	StaffEmailPattern []string
}

type JobsConfig struct {
	PurgeTokensSpec string
	BackupSpec      string
}

type SeedConfig struct {
	OnStart bool
}

type WorkerConfig struct {
	ClaimInterval time.Duration
	ResetURL      string
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Store            StoreConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Notifications    NotificationsConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Jobs             JobsConfig
	Seed             SeedConfig
	Worker           WorkerConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

const devSessionSecret = "dev-session-secret"

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CAMPUSBUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Store.Driver {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("store.driver must be memory, redis or postgres, got %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn required for the postgres store driver")
	}
	if c.IsProduction() && (c.Security.SessionSecret == "" || c.Security.SessionSecret == devSessionSecret) {
		return fmt.Errorf("security.sessionsecret required in production")
	}
	if c.Security.SessionTTL <= 0 || c.Security.ResetTokenTTL <= 0 {
		return fmt.Errorf("security ttl values must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.keyprefix", "campusbus")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 10)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.statementtimeout", "5s")
	v.SetDefault("postgres.applicationname", "campusbus-identity")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolsize", 10)
	v.SetDefault("redis.dialtimeout", "3s")
	v.SetDefault("redis.readtimeout", "2s")
	v.SetDefault("redis.writetimeout", "2s")

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.stream", "identity:notifications")
	v.SetDefault("notifications.group", "identity-notifiers")
	v.SetDefault("notifications.consumer", "worker-1")
	v.SetDefault("notifications.maxlen", 10000)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketsnapshot", "campusbus-identity-snapshots")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.sessionsecret", devSessionSecret)
	v.SetDefault("security.sessionttl", "12h")
	v.SetDefault("security.resettokenttl", "24h")
	v.SetDefault("security.hashpasswords", false)
	v.SetDefault("security.minpasswordlength", 6)
	v.SetDefault("security.adminemailpattern", []string{})
	v.SetDefault("security.staffemailpattern", []string{})

	v.SetDefault("jobs.purgetokensspec", "0 0 * * * *") // hourly
	v.SetDefault("jobs.backupspec", "0 30 2 * * *")

	v.SetDefault("seed.onstart", true)

	v.SetDefault("worker.claiminterval", "10s")
	v.SetDefault("worker.reseturl", "http://localhost:5173/reset-password")

	v.SetDefault("logging.level", "info")
	v.SetDefault("allowcorsorigins", []string{})
}
