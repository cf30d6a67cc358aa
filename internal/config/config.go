package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // time zones on hosts without zoneinfo

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// local store
	StorageBackend string `toml:"storage_backend"`
	DataDir        string `toml:"data_dir"`
	SQLitePath     string `toml:"sqlite_path"`
	CacheSizeMB    int    `toml:"cache_size_mb"`
	RedisHost      string `toml:"redis_host"`
	RedisPort      string `toml:"redis_port"`
	RedisPrefix    string `toml:"redis_prefix"`
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`
	LogID          string `toml:"log_id"`

	// record log
	TimeZone        string   `toml:"time_zone"`
	BaseUnit        string   `toml:"base_unit"`
	RoutinesSeed    string   `toml:"routines_seed"`
	PhasesCacheTTL  Duration `toml:"phases_cache_ttl"`
	GitHubAPIURL    string   `toml:"github_api_url"`
	SyncDebounce    Duration `toml:"sync_debounce"`
	SyncedDisplay   Duration `toml:"synced_display"`
	FailedDisplay   Duration `toml:"failed_display"`
	SyncPushTimeout Duration `toml:"sync_push_timeout"`

	// http
	AllowedOrigins    []string `toml:"allowed_origins"`
	RateLimitPerMin   int      `toml:"rate_limit_per_min"`
	MaxRequestBodyKiB int64    `toml:"max_request_body_kib"`

	// backup
	BackupInterval  Duration `toml:"backup_interval"`
	BackupFolder    string   `toml:"backup_folder"`
	BackupShareWith string   `toml:"backup_share_with"`
}

// Duration is a time.Duration written as "5s" or "1h30m" in the config file.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env %s missing", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env with defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg.Environment == "" {
		cfg.Environment = strings.ToLower(env)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", env, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
	if c.StorageBackend == "" {
		c.StorageBackend = "sqlite"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.TimeZone == "" {
		c.TimeZone = "Local"
	}
	if c.BaseUnit == "" {
		c.BaseUnit = "kg"
	}
	if c.PhasesCacheTTL.Duration == 0 {
		c.PhasesCacheTTL.Duration = 10 * time.Minute
	}
	if c.SyncDebounce.Duration == 0 {
		c.SyncDebounce.Duration = 5 * time.Second
	}
	if c.SyncedDisplay.Duration == 0 {
		c.SyncedDisplay.Duration = 2 * time.Second
	}
	if c.FailedDisplay.Duration == 0 {
		c.FailedDisplay.Duration = 3 * time.Second
	}
	if c.SyncPushTimeout.Duration == 0 {
		c.SyncPushTimeout.Duration = 30 * time.Second
	}
	if c.RateLimitPerMin == 0 {
		c.RateLimitPerMin = 120
	}
	if c.MaxRequestBodyKiB == 0 {
		c.MaxRequestBodyKiB = 512
	}
	if c.BackupFolder == "" {
		c.BackupFolder = "gymlog-backups"
	}
	if c.LogID == "" {
		c.LogID = "default"
	}
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "memory", "disk", "sqlite":
	case "redis":
		if c.RedisHost == "" || c.RedisPort == "" {
			return fmt.Errorf("redis backend needs redis_host and redis_port")
		}
	case "postgres":
		if c.PostgresHost == "" || c.PostgresPort == "" || c.PostgresDBName == "" {
			return fmt.Errorf("postgres backend needs postgres_host, postgres_port and postgres_db_name")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.StorageBackend)
	}

	switch c.BaseUnit {
	case "kg", "lb":
	default:
		return fmt.Errorf("unknown base unit: %s", c.BaseUnit)
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("time zone %s: %w", c.TimeZone, err)
	}
	return nil
}

// Location returns the time zone calendar days are computed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) RedisEnabled() bool {
	return c.RedisHost != "" && c.RedisPort != ""
}
