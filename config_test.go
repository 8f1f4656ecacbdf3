package catalogAuth

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "test defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "leeway within bounds",
			mutate: func(c *Config) {
				c.Token.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "leeway too large",
			mutate: func(c *Config) {
				c.Token.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "short hs256 key",
			mutate: func(c *Config) {
				c.Token.PrivateKey = []byte("too-short")
			},
			wantValid: false,
		},
		{
			name: "unknown signing method",
			mutate: func(c *Config) {
				c.Token.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "iterations below minimum",
			mutate: func(c *Config) {
				c.Password.Iterations = 1000
			},
			wantValid: false,
		},
		{
			name: "max length below min length",
			mutate: func(c *Config) {
				c.Password.MinLength = 10
				c.Password.MaxLength = 8
			},
			wantValid: false,
		},
		{
			name: "zero lifetime",
			mutate: func(c *Config) {
				c.Session.Lifetime = 0
			},
			wantValid: false,
		},
		{
			name: "idle longer than lifetime",
			mutate: func(c *Config) {
				c.Session.Lifetime = time.Hour
				c.Session.IdleTimeout = 2 * time.Hour
			},
			wantValid: false,
		},
		{
			name: "sliding idle window",
			mutate: func(c *Config) {
				c.Session.IdleTimeout = 30 * time.Minute
			},
			wantValid: true,
		},
		{
			name: "empty redis prefix",
			mutate: func(c *Config) {
				c.Session.RedisPrefix = ""
			},
			wantValid: false,
		},
		{
			name: "throttle without cooldown",
			mutate: func(c *Config) {
				c.Security.LoginCooldownDuration = 0
			},
			wantValid: false,
		},
		{
			name: "throttle disabled without cooldown",
			mutate: func(c *Config) {
				c.Security.MaxLoginAttempts = 0
				c.Security.LoginCooldownDuration = 0
			},
			wantValid: true,
		},
		{
			name: "async audit needs buffer",
			mutate: func(c *Config) {
				c.Audit.Async = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestDefaultConfigNeedsKey(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("default config without a key must be invalid, got %v", err)
	}
}

func TestBuildConfigImmutableAgainstExternalMutation(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := testConfig()
	a, err := New().WithConfig(cfg).WithRedis(rdb).WithDirectory(newFakeDirectory()).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	cfg.Token.PrivateKey[0] = 'X'
	cfg.Session.Lifetime = time.Minute

	if a.config.Token.PrivateKey[0] == 'X' {
		t.Fatal("authority config must not alias caller memory")
	}
	if a.config.Session.Lifetime != 24*time.Hour {
		t.Fatalf("unexpected lifetime %v", a.config.Session.Lifetime)
	}
}
