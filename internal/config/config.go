package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	City       CityConfig       `yaml:"city" mapstructure:"city"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Snapshot   SnapshotConfig   `yaml:"snapshot" mapstructure:"snapshot"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Overpass   OverpassConfig   `yaml:"overpass" mapstructure:"overpass"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CityConfig selects the municipality served.
type CityConfig struct {
	Code int    `yaml:"code" mapstructure:"code"`
	Name string `yaml:"name" mapstructure:"name"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	RateLimitRPS       float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst     int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// SearchConfig bounds radius searches and sizes the spatial grid.
type SearchConfig struct {
	GridCellDegrees     float64 `yaml:"grid_cell_degrees" mapstructure:"grid_cell_degrees"`
	DefaultRadiusMeters float64 `yaml:"default_radius_meters" mapstructure:"default_radius_meters"`
	MaxRadiusMeters     float64 `yaml:"max_radius_meters" mapstructure:"max_radius_meters"`
	MaxResults          int     `yaml:"max_results" mapstructure:"max_results"`
}

// SnapshotConfig configures background snapshot reloads. Zero disables them.
type SnapshotConfig struct {
	RefreshIntervalSecs int `yaml:"refresh_interval_secs" mapstructure:"refresh_interval_secs"`
}

// CacheConfig configures the Redis response cache. An empty address
// disables caching.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	TTLSecs       int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// OverpassConfig configures the OSM facility fetcher.
type OverpassConfig struct {
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxParallel int    `yaml:"max_parallel" mapstructure:"max_parallel"`
}

// MonitoringConfig configures the background health checker. An empty
// webhook URL still evaluates alerts but only logs them.
type MonitoringConfig struct {
	WebhookURL             string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs      int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	MaxSnapshotAgeSecs     int     `yaml:"max_snapshot_age_secs" mapstructure:"max_snapshot_age_secs"`
	InconsistencyThreshold float64 `yaml:"inconsistency_threshold" mapstructure:"inconsistency_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env files, config.yaml and the environment.
func Load() (*Config, error) {
	// .env files only fill variables that are not already set.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CITYSTRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("store.database_url", "CITYSTRATA_STORE_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, eris.Wrap(err, "config: bind database url")
	}

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("city.code", 2600)
	v.SetDefault("city.name", "Eilat")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.request_timeout_secs", 15)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("search.grid_cell_degrees", 0.01)
	v.SetDefault("search.default_radius_meters", 1000)
	v.SetDefault("search.max_radius_meters", 10000)
	v.SetDefault("search.max_results", 100)
	v.SetDefault("snapshot.refresh_interval_secs", 300)
	v.SetDefault("cache.ttl_secs", 600)
	v.SetDefault("overpass.endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout_secs", 60)
	v.SetDefault("overpass.max_parallel", 1)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.max_snapshot_age_secs", 3600)
	v.SetDefault("monitoring.inconsistency_threshold", 0.05)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.City.Code < 0 {
		return eris.Errorf("config: city code %d is negative", c.City.Code)
	}
	if c.Search.MaxRadiusMeters <= 0 {
		return eris.New("config: search.max_radius_meters must be positive")
	}
	if c.Search.DefaultRadiusMeters <= 0 || c.Search.DefaultRadiusMeters > c.Search.MaxRadiusMeters {
		return eris.Errorf("config: search.default_radius_meters must be in (0, %g]", c.Search.MaxRadiusMeters)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
