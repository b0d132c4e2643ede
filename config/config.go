package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Planner  PlannerConfig  `mapstructure:"planner"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

type CatalogConfig struct {
	DataPath       string        `mapstructure:"data_path"`        // directory holding servants.json / soundtracks.json
	ReloadInterval time.Duration `mapstructure:"reload_interval"` // 0 disables hot reload
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	StatsTTL        time.Duration `mapstructure:"stats_ttl"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// PlannerConfig holds the filter defaults used when an account has no saved preferences.
type PlannerConfig struct {
	IncludeUnsummonedServants bool `mapstructure:"include_unsummoned_servants"`
	IncludeAppendSkills       bool `mapstructure:"include_append_skills"`
	IncludeLores              bool `mapstructure:"include_lores"`
	IncludeCostumes           bool `mapstructure:"include_costumes"`
	IncludeSoundtracks        bool `mapstructure:"include_soundtracks"`
}

// Load reads config from the given YAML file path. Any key can be
// overridden by an environment variable, e.g. PLANNER_SERVER_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("planner")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("catalog.data_path", "./data/catalog")
	v.SetDefault("catalog.reload_interval", "0s")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/planner.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.stats_ttl", "10m")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("planner.include_unsummoned_servants", false)
	v.SetDefault("planner.include_append_skills", false)
	v.SetDefault("planner.include_lores", false)
	v.SetDefault("planner.include_costumes", false)
	v.SetDefault("planner.include_soundtracks", false)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
