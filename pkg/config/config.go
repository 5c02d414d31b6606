package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultStandardPeriods is the bell schedule used when SCHEDULER_STANDARD_PERIODS is unset.
const DefaultStandardPeriods = "07:00-07:45,07:45-08:30,08:30-09:15,09:30-10:15,10:15-11:00,11:00-11:45,12:30-13:15,13:15-14:00"

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	CORS      CORSConfig
	Scheduler SchedulerConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
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

// SchedulerConfig tunes the timetable validation engine.
type SchedulerConfig struct {
	TeacherCeilingMinutes int
	ClassConflicts        bool
	StandardPeriods       string
	Rooms                 []string
	AuditCacheEnabled     bool
	AuditCacheTTL         time.Duration
	AuditWorkers          int
	AuditRetries          int
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	ceiling := v.GetInt("SCHEDULER_TEACHER_CEILING_MINUTES")
	if ceiling <= 0 {
		ceiling = 2400
	}
	periods := strings.TrimSpace(v.GetString("SCHEDULER_STANDARD_PERIODS"))
	if periods == "" {
		periods = DefaultStandardPeriods
	}
	cfg.Scheduler = SchedulerConfig{
		TeacherCeilingMinutes: ceiling,
		ClassConflicts:        v.GetBool("SCHEDULER_CLASS_CONFLICTS"),
		StandardPeriods:       periods,
		Rooms:                 splitAndTrim(v.GetString("SCHEDULER_ROOMS")),
		AuditCacheEnabled:     v.GetBool("ENABLE_AUDIT_CACHE"),
		AuditCacheTTL:         parseDuration(v.GetString("SCHEDULER_AUDIT_CACHE_TTL"), 10*time.Minute),
		AuditWorkers:          v.GetInt("SCHEDULER_AUDIT_WORKERS"),
		AuditRetries:          v.GetInt("SCHEDULER_AUDIT_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("SCHEDULER_TEACHER_CEILING_MINUTES", 2400)
	v.SetDefault("SCHEDULER_CLASS_CONFLICTS", false)
	v.SetDefault("SCHEDULER_STANDARD_PERIODS", DefaultStandardPeriods)
	v.SetDefault("SCHEDULER_ROOMS", "")
	v.SetDefault("ENABLE_AUDIT_CACHE", false)
	v.SetDefault("SCHEDULER_AUDIT_CACHE_TTL", "10m")
	v.SetDefault("SCHEDULER_AUDIT_WORKERS", 1)
	v.SetDefault("SCHEDULER_AUDIT_RETRIES", 2)
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
