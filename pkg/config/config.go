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

	// Timezone is the single calendar zone for all date arithmetic. It is
	// part of the deployed configuration; every instance of a deployment
	// must agree on it.
	Timezone string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Scheduler  SchedulerConfig
	Attendance AttendanceConfig
	Sweep      SweepConfig
	Export     ExportConfig
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
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the timetable regeneration search.
type SchedulerConfig struct {
	Deadline time.Duration
}

// AttendanceConfig tunes the capture engine's cache behaviour. The token
// lifetime and grace period are contract constants and deliberately not
// configurable here.
type AttendanceConfig struct {
	InstanceCacheTTL time.Duration
}

// SweepConfig governs the background absence sweep worker.
type SweepConfig struct {
	Enabled    bool
	Workers    int
	Interval   time.Duration
	MaxRetries int
}

// ExportConfig controls timetable export output.
type ExportConfig struct {
	Enabled    bool
	StorageDir string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = v.GetString("TIMEZONE")

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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Deadline: parseDuration(v.GetString("SCHEDULER_DEADLINE"), 10*time.Second),
	}

	cfg.Attendance = AttendanceConfig{
		InstanceCacheTTL: parseDuration(v.GetString("INSTANCE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Sweep = SweepConfig{
		Enabled:    v.GetBool("ENABLE_ABSENCE_SWEEP"),
		Workers:    v.GetInt("SWEEP_WORKERS"),
		Interval:   parseDuration(v.GetString("SWEEP_INTERVAL"), 5*time.Minute),
		MaxRetries: v.GetInt("SWEEP_MAX_RETRIES"),
	}

	cfg.Export = ExportConfig{
		Enabled:    v.GetBool("ENABLE_EXPORTS"),
		StorageDir: v.GetString("EXPORT_STORAGE_DIR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TIMEZONE", "UTC")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable_api")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "timetable-api")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_DEADLINE", "10s")
	v.SetDefault("INSTANCE_CACHE_TTL", "10m")

	v.SetDefault("ENABLE_ABSENCE_SWEEP", false)
	v.SetDefault("SWEEP_WORKERS", 1)
	v.SetDefault("SWEEP_INTERVAL", "5m")
	v.SetDefault("SWEEP_MAX_RETRIES", 3)

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORT_STORAGE_DIR", "./exports")
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
