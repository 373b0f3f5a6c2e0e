// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides settings for the reference-entity cache.
type RedisConfig interface {
	GetRedisURL() string
	GetReferenceCacheTTL() time.Duration
	IsRedisEnabled() bool
}

// MinIOConfig provides settings for CV object storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketCVs() string
	IsMinIOEnabled() bool
}

// OnboardingConfig provides the default reference names used when onboarding
// candidates and applications.
type OnboardingConfig interface {
	GetDefaultLocation() string
	GetDefaultInstitution() string
	GetDefaultPortal() string
	GetInitialApplicationStatus() string
	GetPhoneRegion() string
}

// ScheduleConfig provides settings for deadline urgency classification.
type ScheduleConfig interface {
	GetDueSoonHorizonDays() int
	GetTimezone() *time.Location
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	DatabaseURL              string
	MigrationsEnabled        bool
	RedisURL                 string
	ReferenceCacheTTL        time.Duration
	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinIOMaxFileSize         int64
	MinioBucketCVs           string
	DefaultLocation          string
	DefaultInstitution       string
	DefaultPortal            string
	InitialApplicationStatus string
	PhoneRegion              string
	DueSoonHorizonDays       int
	Timezone                 *time.Location
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// RedisConfig implementation
func (c *Config) GetRedisURL() string                 { return c.RedisURL }
func (c *Config) GetReferenceCacheTTL() time.Duration { return c.ReferenceCacheTTL }
func (c *Config) IsRedisEnabled() bool                { return c.RedisURL != "" }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketCVs() string  { return c.MinioBucketCVs }
func (c *Config) IsMinIOEnabled() bool       { return c.MinIOEndpoint != "" }

// OnboardingConfig implementation
func (c *Config) GetDefaultLocation() string          { return c.DefaultLocation }
func (c *Config) GetDefaultInstitution() string       { return c.DefaultInstitution }
func (c *Config) GetDefaultPortal() string            { return c.DefaultPortal }
func (c *Config) GetInitialApplicationStatus() string { return c.InitialApplicationStatus }
func (c *Config) GetPhoneRegion() string              { return c.PhoneRegion }

// ScheduleConfig implementation
func (c *Config) GetDueSoonHorizonDays() int  { return c.DueSoonHorizonDays }
func (c *Config) GetTimezone() *time.Location { return c.Timezone }

// Defaults holds the reference names the onboarding pipeline falls back to.
// Tests construct it directly; production code derives it from Config.
type Defaults struct {
	Location          string
	Institution       string
	Portal            string
	ApplicationStatus string
	PhoneRegion       string
}

// DefaultNames are the values used when nothing is configured.
var DefaultNames = Defaults{
	Location:          "Santiago",
	Institution:       "Sin Institución",
	Portal:            "Directo",
	ApplicationStatus: "Postulado",
	PhoneRegion:       "CL",
}

// OnboardingDefaults extracts the onboarding defaults from any OnboardingConfig.
func OnboardingDefaults(c OnboardingConfig) Defaults {
	return Defaults{
		Location:          c.GetDefaultLocation(),
		Institution:       c.GetDefaultInstitution(),
		Portal:            c.GetDefaultPortal(),
		ApplicationStatus: c.GetInitialApplicationStatus(),
		PhoneRegion:       c.GetPhoneRegion(),
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	tzName := getEnv("APP_TIMEZONE", "America/Santiago")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", tzName, err)
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		MigrationsEnabled:        strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "true"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		ReferenceCacheTTL:        mustDuration(getEnv("REFERENCE_CACHE_TTL", "24h")),
		MinIOEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:              strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:         mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "10485760")),
		MinioBucketCVs:           getEnv("MINIO_BUCKET_CVS", "candidate-cvs"),
		DefaultLocation:          getEnv("DEFAULT_LOCATION", DefaultNames.Location),
		DefaultInstitution:       getEnv("DEFAULT_INSTITUTION", DefaultNames.Institution),
		DefaultPortal:            getEnv("DEFAULT_PORTAL", DefaultNames.Portal),
		InitialApplicationStatus: getEnv("INITIAL_APPLICATION_STATUS", DefaultNames.ApplicationStatus),
		PhoneRegion:              strings.ToUpper(getEnv("PHONE_REGION", DefaultNames.PhoneRegion)),
		DueSoonHorizonDays:       int(mustInt64(getEnv("DUE_SOON_HORIZON_DAYS", "7"))),
		Timezone:                 tz,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DueSoonHorizonDays <= 0 {
		return nil, fmt.Errorf("DUE_SOON_HORIZON_DAYS must be positive")
	}
	if cfg.IsMinIOEnabled() && (cfg.MinIOAccessKey == "" || cfg.MinIOSecretKey == "") {
		return nil, fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}
