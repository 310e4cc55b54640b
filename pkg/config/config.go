package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Optimizer OptimizerConfig
	Timetable TimetableConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the timetable solver.
type SchedulerConfig struct {
	Days             int
	HoursPerDay      int
	WeightVariance   float64
	WeightGaps       float64
	WeightUnassigned float64
	WeightSpread     float64
	MaxBlockHours    int
	Workers          int
	CoResourceCount  int
	SharedLocation   bool
	Timeout          time.Duration
}

// OptimizerConfig tunes the gap optimizer.
type OptimizerConfig struct {
	MaxPasses int
	Timeout   time.Duration
	LockTTL   time.Duration
}

// TimetableConfig governs saved timetable caching.
type TimetableConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Days:             v.GetInt("SCHEDULER_DAYS"),
		HoursPerDay:      v.GetInt("SCHEDULER_HOURS_PER_DAY"),
		WeightVariance:   v.GetFloat64("SCHEDULER_WEIGHT_VARIANCE"),
		WeightGaps:       v.GetFloat64("SCHEDULER_WEIGHT_GAPS"),
		WeightUnassigned: v.GetFloat64("SCHEDULER_WEIGHT_UNASSIGNED"),
		WeightSpread:     v.GetFloat64("SCHEDULER_WEIGHT_SPREAD"),
		MaxBlockHours:    v.GetInt("SCHEDULER_MAX_BLOCK_HOURS"),
		Workers:          v.GetInt("SCHEDULER_WORKERS"),
		CoResourceCount:  v.GetInt("SCHEDULER_CO_RESOURCE_COUNT"),
		SharedLocation:   v.GetBool("SCHEDULER_SHARED_LOCATION"),
		Timeout:          parseDuration(v.GetString("SCHEDULER_TIMEOUT"), 30*time.Second),
	}

	cfg.Optimizer = OptimizerConfig{
		MaxPasses: v.GetInt("OPTIMIZER_MAX_PASSES"),
		Timeout:   parseDuration(v.GetString("OPTIMIZER_TIMEOUT"), 15*time.Second),
		LockTTL:   parseDuration(v.GetString("OPTIMIZER_LOCK_TTL"), time.Minute),
	}

	cfg.Timetable = TimetableConfig{
		CacheEnabled: v.GetBool("TIMETABLE_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_DAYS", 5)
	v.SetDefault("SCHEDULER_HOURS_PER_DAY", 10)
	v.SetDefault("SCHEDULER_WEIGHT_VARIANCE", 1.0)
	v.SetDefault("SCHEDULER_WEIGHT_GAPS", 2.0)
	v.SetDefault("SCHEDULER_WEIGHT_UNASSIGNED", 10.0)
	v.SetDefault("SCHEDULER_WEIGHT_SPREAD", 0.5)
	v.SetDefault("SCHEDULER_MAX_BLOCK_HOURS", 2)
	v.SetDefault("SCHEDULER_WORKERS", 0)
	v.SetDefault("SCHEDULER_CO_RESOURCE_COUNT", 2)
	v.SetDefault("SCHEDULER_SHARED_LOCATION", false)
	v.SetDefault("SCHEDULER_TIMEOUT", "30s")

	v.SetDefault("OPTIMIZER_MAX_PASSES", 50)
	v.SetDefault("OPTIMIZER_TIMEOUT", "15s")
	v.SetDefault("OPTIMIZER_LOCK_TTL", "1m")

	v.SetDefault("TIMETABLE_CACHE_ENABLED", true)
	v.SetDefault("TIMETABLE_CACHE_TTL", "10m")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
