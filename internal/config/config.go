package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Access AccessConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit; production must set it.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// StationTokenTTL bounds kiosk/receptionist sessions.
	StationTokenTTL time.Duration
	// PanelTokenTTL bounds hardware panel credentials, which are rotated
	// far less often than station sessions.
	PanelTokenTTL time.Duration
}

// AccessConfig carries the business knobs of the access-decision engine.
type AccessConfig struct {
	// EntryTolerance is the ± window around a visit's scheduled entry time
	// inside which an entry scan is accepted.
	EntryTolerance time.Duration
	// ExitTolerance extends a visit's scheduled exit time before the
	// registration is considered concluded.
	ExitTolerance time.Duration
	// CancelLapse is the extra grace period after exit tolerance before a
	// stale registration stops admitting entries.
	CancelLapse time.Duration

	// ValidateSchedule enables advisory schedule checks for employees.
	ValidateSchedule bool
	// RequireCheckAuthorization requires a receptionist authorization for
	// manual employee checks flagged by the schedule evaluator.
	RequireCheckAuthorization bool

	// VisitorCodeOffset maps panel numeric codes to visitor sequence ids:
	// visitor_code = numeric_code - offset.
	VisitorCodeOffset int64

	// BiometricTimeout bounds a single matcher call.
	BiometricTimeout time.Duration
	// BiometricMinSimilarity is the acceptance threshold in [0,1].
	BiometricMinSimilarity float64

	// NotifyChannel is the pub/sub channel for new-event notifications.
	NotifyChannel string
	// NotifyBuffer is the capacity of the outbound notification queue.
	NotifyBuffer int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.StationTokenTTL = mustDuration("JWT_STATION_TTL")
	c.Auth.PanelTokenTTL = mustDuration("JWT_PANEL_TTL")

	c.Access.EntryTolerance = mustDuration("ACCESS_ENTRY_TOLERANCE")
	c.Access.ExitTolerance = mustDuration("ACCESS_EXIT_TOLERANCE")
	c.Access.CancelLapse = mustDuration("ACCESS_CANCEL_LAPSE")
	c.Access.ValidateSchedule = mustBool("ACCESS_VALIDATE_SCHEDULE")
	c.Access.RequireCheckAuthorization = mustBool("ACCESS_REQUIRE_CHECK_AUTHORIZATION")
	c.Access.VisitorCodeOffset = int64(optInt("ACCESS_VISITOR_CODE_OFFSET", 990000))
	c.Access.BiometricTimeout = mustDuration("BIOMETRIC_TIMEOUT")
	c.Access.BiometricMinSimilarity = mustFloat("BIOMETRIC_MIN_SIMILARITY")
	c.Access.NotifyChannel = strings.TrimSpace(os.Getenv("NOTIFY_CHANNEL"))
	c.Access.NotifyBuffer = optInt("NOTIFY_BUFFER", 256)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}

	if c.Auth.StationTokenTTL <= 0 {
		c.Auth.StationTokenTTL = 12 * time.Hour
	}
	if c.Auth.PanelTokenTTL <= 0 {
		c.Auth.PanelTokenTTL = 30 * 24 * time.Hour
	}

	if c.Access.EntryTolerance <= 0 {
		c.Access.EntryTolerance = 15 * time.Minute
	}
	if c.Access.ExitTolerance <= 0 {
		c.Access.ExitTolerance = 15 * time.Minute
	}
	if c.Access.CancelLapse <= 0 {
		c.Access.CancelLapse = time.Hour
	}
	if c.Access.VisitorCodeOffset <= 0 {
		errs = append(errs, fmt.Errorf("ACCESS_VISITOR_CODE_OFFSET must be positive, got %d", c.Access.VisitorCodeOffset))
	}
	if c.Access.BiometricTimeout <= 0 {
		c.Access.BiometricTimeout = 5 * time.Second
	}
	if c.Access.BiometricMinSimilarity <= 0 || c.Access.BiometricMinSimilarity > 1 {
		c.Access.BiometricMinSimilarity = 0.6
	}
	if c.Access.NotifyChannel == "" {
		c.Access.NotifyChannel = "events:new"
	}
	if c.Access.NotifyBuffer <= 0 {
		c.Access.NotifyBuffer = 256
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func mustBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func mustFloat(key string) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
