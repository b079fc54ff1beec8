package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "access", Name: "access", SSLMode: "disable"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth: AuthConfig{
			JWTSecret:       "secret",
			StationTokenTTL: 12 * time.Hour,
			PanelTokenTTL:   30 * 24 * time.Hour,
		},
		Access: AccessConfig{VisitorCodeOffset: 990000},
	}
}

func TestValidate_OK(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_AppliesAccessDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Access.EntryTolerance != 15*time.Minute {
		t.Fatalf("entry tolerance default not applied: %v", c.Access.EntryTolerance)
	}
	if c.Access.BiometricTimeout != 5*time.Second {
		t.Fatalf("biometric timeout default not applied: %v", c.Access.BiometricTimeout)
	}
	if c.Access.NotifyChannel != "events:new" {
		t.Fatalf("notify channel default not applied: %q", c.Access.NotifyChannel)
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.DB.SSLMode = ""
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_SSLMODE") {
		t.Fatalf("expected DB_SSLMODE error, got %v", err)
	}
}

func TestValidate_RejectsNonPositiveOffset(t *testing.T) {
	c := validConfig()
	c.Access.VisitorCodeOffset = 0
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "ACCESS_VISITOR_CODE_OFFSET") {
		t.Fatalf("expected offset error, got %v", err)
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	c := validConfig()
	c.DB.Host = ""
	c.Redis.Host = ""
	err := c.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "DB_HOST") || !strings.Contains(msg, "REDIS_HOST") {
		t.Fatalf("expected joined errors, got %q", msg)
	}
}
