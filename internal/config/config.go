package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/validator"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Database      DatabaseConfig
	JWT           JWTConfig
	App           AppConfig
	Analytics     AnalyticsConfig
	Recalculation RecalculationConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
}

// AnalyticsConfig holds the attendance rules shared by the formula library
// and the day metrics calculator.
type AnalyticsConfig struct {
	Timezone                string
	StandardStart           string // HH:MM
	GracePeriod             time.Duration
	GraceViolationThreshold time.Duration
	StandardEnd             string // HH:MM
	StandardShiftHours      float64
	BonusThresholdHours     float64
	LookbackDays            int
	FallbackTotalEmployees  int
	AbsentProductivityScore float64
	DeriveHours             bool
}

// RecalculationConfig holds settings for the unified metrics batch job
type RecalculationConfig struct {
	CheckpointBackend   string // postgres or sqlite
	SQLitePath          string
	CheckpointEveryDays int
	Schedule            string
	ScheduleEnabled     bool
	ScheduleLookback    int
	DefaultMonth        string // YYYY-MM, empty means previous month
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-hris"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Analytics configuration
	analytics, err := loadAnalytics()
	if err != nil {
		return nil, err
	}
	config.Analytics = analytics

	// Recalculation configuration
	checkpointEvery, err := strconv.Atoi(getEnv("RECALC_CHECKPOINT_EVERY_DAYS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECALC_CHECKPOINT_EVERY_DAYS: %w", err)
	}
	scheduleLookback, err := strconv.Atoi(getEnv("RECALC_SCHEDULE_LOOKBACK_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECALC_SCHEDULE_LOOKBACK_DAYS: %w", err)
	}
	scheduleEnabled, err := strconv.ParseBool(getEnv("RECALC_SCHEDULE_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECALC_SCHEDULE_ENABLED: %w", err)
	}

	config.Recalculation = RecalculationConfig{
		CheckpointBackend:   getEnv("RECALC_CHECKPOINT_BACKEND", "postgres"),
		SQLitePath:          getEnv("RECALC_SQLITE_PATH", "recalculation_progress.db"),
		CheckpointEveryDays: checkpointEvery,
		Schedule:            getEnv("RECALC_SCHEDULE", "30 0 * * *"),
		ScheduleEnabled:     scheduleEnabled,
		ScheduleLookback:    scheduleLookback,
		DefaultMonth:        getEnv("RECALC_DEFAULT_MONTH", ""),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadAnalytics() (AnalyticsConfig, error) {
	grace, err := time.ParseDuration(getEnv("ATTENDANCE_GRACE_PERIOD", "30m"))
	if err != nil {
		return AnalyticsConfig{}, fmt.Errorf("invalid ATTENDANCE_GRACE_PERIOD: %w", err)
	}
	// Grace violations share the lateness cutoff unless configured otherwise
	graceViolation, err := time.ParseDuration(getEnv("ATTENDANCE_GRACE_VIOLATION_THRESHOLD", grace.String()))
	if err != nil {
		return AnalyticsConfig{}, fmt.Errorf("invalid ATTENDANCE_GRACE_VIOLATION_THRESHOLD: %w", err)
	}
	shiftHours, err := strconv.ParseFloat(getEnv("ATTENDANCE_STANDARD_SHIFT_HOURS", "8"), 64)
	if err != nil {
		return AnalyticsConfig{}, fmt.Errorf("invalid ATTENDANCE_STANDARD_SHIFT_HOURS: %w", err)
	}
	bonusHours, err := strconv.ParseFloat(getEnv("ATTENDANCE_BONUS_THRESHOLD_HOURS", "9"), 64)
	if err != nil {
		return AnalyticsConfig{}, fmt.Errorf("invalid ATTENDANCE_BONUS_THRESHOLD_HOURS: %w", err)
	}
	lookback, err := strconv.Atoi(getEnv("TEE_LOOKBACK_DAYS", "30"))
	if err != nil {
		return AnalyticsConfig{}, fmt.Errorf("invalid TEE_LOOKBACK_DAYS: %w", err)
	}
	fallback, err := strconv.Atoi(getEnv("TEE_FALLBACK_TOTAL_EMPLOYEES", "350"))
	if err != nil {
		return AnalyticsConfig{}, fmt.Errorf("invalid TEE_FALLBACK_TOTAL_EMPLOYEES: %w", err)
	}
	absentScore, err := strconv.ParseFloat(getEnv("ABSENT_PRODUCTIVITY_SCORE", "1.0"), 64)
	if err != nil {
		return AnalyticsConfig{}, fmt.Errorf("invalid ABSENT_PRODUCTIVITY_SCORE: %w", err)
	}
	deriveHours, err := strconv.ParseBool(getEnv("DERIVE_HOURS_FROM_TIMESTAMPS", "true"))
	if err != nil {
		return AnalyticsConfig{}, fmt.Errorf("invalid DERIVE_HOURS_FROM_TIMESTAMPS: %w", err)
	}

	return AnalyticsConfig{
		Timezone:                getEnv("ATTENDANCE_TIMEZONE", "Asia/Karachi"),
		StandardStart:           getEnv("ATTENDANCE_STANDARD_START", "09:00"),
		GracePeriod:             grace,
		GraceViolationThreshold: graceViolation,
		StandardEnd:             getEnv("ATTENDANCE_STANDARD_END", "18:00"),
		StandardShiftHours:      shiftHours,
		BonusThresholdHours:     bonusHours,
		LookbackDays:            lookback,
		FallbackTotalEmployees:  fallback,
		AbsentProductivityScore: absentScore,
		DeriveHours:             deriveHours,
	}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if err := c.Analytics.Validate(); err != nil {
		return err
	}

	switch c.Recalculation.CheckpointBackend {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("RECALC_CHECKPOINT_BACKEND must be postgres or sqlite, got %q", c.Recalculation.CheckpointBackend)
	}
	if c.Recalculation.CheckpointEveryDays < 1 {
		return fmt.Errorf("RECALC_CHECKPOINT_EVERY_DAYS must be at least 1")
	}
	if c.Recalculation.ScheduleLookback < 1 {
		return fmt.Errorf("RECALC_SCHEDULE_LOOKBACK_DAYS must be at least 1")
	}
	if _, err := cron.ParseStandard(c.Recalculation.Schedule); err != nil {
		return fmt.Errorf("invalid RECALC_SCHEDULE: %w", err)
	}
	if c.Recalculation.DefaultMonth != "" {
		if !validator.IsValidMonth(c.Recalculation.DefaultMonth) {
			return fmt.Errorf("RECALC_DEFAULT_MONTH must be in YYYY-MM format")
		}
	}
	return nil
}

// Validate checks the attendance rules
func (a AnalyticsConfig) Validate() error {
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return fmt.Errorf("invalid ATTENDANCE_TIMEZONE %q: %w", a.Timezone, err)
	}
	if !validator.IsValidClock(a.StandardStart) {
		return fmt.Errorf("ATTENDANCE_STANDARD_START must be in HH:MM format")
	}
	if !validator.IsValidClock(a.StandardEnd) {
		return fmt.Errorf("ATTENDANCE_STANDARD_END must be in HH:MM format")
	}
	if a.GracePeriod < 0 || a.GraceViolationThreshold < 0 {
		return fmt.Errorf("grace periods must not be negative")
	}
	if a.StandardShiftHours <= 0 {
		return fmt.Errorf("ATTENDANCE_STANDARD_SHIFT_HOURS must be positive")
	}
	if a.LookbackDays < 1 {
		return fmt.Errorf("TEE_LOOKBACK_DAYS must be at least 1")
	}
	if a.FallbackTotalEmployees < 0 {
		return fmt.Errorf("TEE_FALLBACK_TOTAL_EMPLOYEES must not be negative")
	}
	return nil
}

// Rules converts the analytics settings into attendance rules bound to the
// operating timezone
func (a AnalyticsConfig) Rules() (attendance.Rules, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return attendance.Rules{}, fmt.Errorf("invalid ATTENDANCE_TIMEZONE %q: %w", a.Timezone, err)
	}
	start, err := attendance.ParseClock(a.StandardStart)
	if err != nil {
		return attendance.Rules{}, fmt.Errorf("invalid ATTENDANCE_STANDARD_START: %w", err)
	}
	end, err := attendance.ParseClock(a.StandardEnd)
	if err != nil {
		return attendance.Rules{}, fmt.Errorf("invalid ATTENDANCE_STANDARD_END: %w", err)
	}

	return attendance.Rules{
		Location:                loc,
		StandardStart:           start,
		GracePeriod:             a.GracePeriod,
		GraceViolationThreshold: a.GraceViolationThreshold,
		StandardEnd:             end,
		StandardShiftHours:      a.StandardShiftHours,
		BonusThresholdHours:     a.BonusThresholdHours,
		LookbackDays:            a.LookbackDays,
		FallbackTotalEmployees:  a.FallbackTotalEmployees,
		AbsentProductivityScore: a.AbsentProductivityScore,
		DeriveHours:             a.DeriveHours,
	}, nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string, fallback string) []string {
	value := getEnv(env, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
