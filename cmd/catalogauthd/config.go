package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	catalogAuth "github.com/MrEthical07/catalogAuth"
	"gopkg.in/yaml.v3"
)

// daemonConfig is the on-disk configuration of catalogauthd. Durations are
// written as Go duration strings ("15m", "24h").
type daemonConfig struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CookieSecure    bool          `yaml:"cookie_secure"`

	Log struct {
		Debug bool `yaml:"debug"`
	} `yaml:"log"`

	Database struct {
		DSN     string `yaml:"dsn"`
		Migrate bool   `yaml:"migrate"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Embedded bool   `yaml:"embedded"`
	} `yaml:"redis"`

	Session struct {
		Prefix      string        `yaml:"prefix"`
		Lifetime    time.Duration `yaml:"lifetime"`
		IdleTimeout time.Duration `yaml:"idle_timeout"`
	} `yaml:"session"`

	Token struct {
		Secret   string        `yaml:"secret"`
		Issuer   string        `yaml:"issuer"`
		Audience string        `yaml:"audience"`
		Leeway   time.Duration `yaml:"leeway"`
	} `yaml:"token"`

	Password struct {
		Iterations int `yaml:"iterations"`
		MinLength  int `yaml:"min_length"`
		MaxLength  int `yaml:"max_length"`
	} `yaml:"password"`

	Security struct {
		IPThrottle       bool          `yaml:"ip_throttle"`
		MaxLoginAttempts int           `yaml:"max_login_attempts"`
		LoginCooldown    time.Duration `yaml:"login_cooldown"`
	} `yaml:"security"`

	Audit struct {
		Enabled    bool `yaml:"enabled"`
		Async      bool `yaml:"async"`
		BufferSize int  `yaml:"buffer_size"`
	} `yaml:"audit"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Bootstrap struct {
		AdminUsername string `yaml:"admin_username"`
		AdminEmail    string `yaml:"admin_email"`
		// AdminPassword is read from CATALOGAUTH_BOOTSTRAP_ADMIN_PASSWORD only.
		AdminPassword string `yaml:"-"`
	} `yaml:"bootstrap"`
}

// defaultDaemonConfig mirrors catalogAuth.DefaultConfig and adds the daemon
// settings. It has no token secret.
func defaultDaemonConfig() daemonConfig {
	def := catalogAuth.DefaultConfig()

	var c daemonConfig
	c.Listen = ":8080"
	c.ShutdownTimeout = 10 * time.Second
	c.CookieSecure = true
	c.Database.Migrate = true
	c.Redis.Addr = "127.0.0.1:6379"

	c.Session.Prefix = def.Session.RedisPrefix
	c.Session.Lifetime = def.Session.Lifetime
	c.Session.IdleTimeout = def.Session.IdleTimeout

	c.Token.Issuer = def.Token.Issuer
	c.Token.Audience = def.Token.Audience
	c.Token.Leeway = def.Token.Leeway

	c.Password.Iterations = def.Password.Iterations
	c.Password.MinLength = def.Password.MinLength
	c.Password.MaxLength = def.Password.MaxLength

	c.Security.IPThrottle = def.Security.EnableIPThrottle
	c.Security.MaxLoginAttempts = def.Security.MaxLoginAttempts
	c.Security.LoginCooldown = def.Security.LoginCooldownDuration

	c.Audit.Enabled = def.Audit.Enabled
	c.Audit.Async = def.Audit.Async
	c.Audit.BufferSize = def.Audit.BufferSize

	c.Metrics.Enabled = def.Metrics.Enabled
	return c
}

// loadConfig applies the YAML file at path (if any) over the defaults and
// then the CATALOGAUTH_* environment variables found through lookup.
func loadConfig(path string, lookup func(string) (string, bool)) (daemonConfig, error) {
	cfg := defaultDaemonConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return daemonConfig{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return daemonConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return daemonConfig{}, err
	}

	if cfg.Listen == "" {
		return daemonConfig{}, errors.New("listen address must be set")
	}
	if !cfg.Redis.Embedded && cfg.Redis.Addr == "" {
		return daemonConfig{}, errors.New("redis.addr must be set unless redis.embedded is true")
	}
	if cfg.Bootstrap.AdminPassword != "" && cfg.Bootstrap.AdminUsername == "" {
		return daemonConfig{}, errors.New("bootstrap admin password given without bootstrap.admin_username")
	}
	return cfg, nil
}

func applyEnv(cfg *daemonConfig, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"CATALOGAUTH_LISTEN":                   &cfg.Listen,
		"CATALOGAUTH_DATABASE_DSN":             &cfg.Database.DSN,
		"CATALOGAUTH_REDIS_ADDR":               &cfg.Redis.Addr,
		"CATALOGAUTH_REDIS_PASSWORD":           &cfg.Redis.Password,
		"CATALOGAUTH_TOKEN_SECRET":             &cfg.Token.Secret,
		"CATALOGAUTH_BOOTSTRAP_ADMIN_USERNAME": &cfg.Bootstrap.AdminUsername,
		"CATALOGAUTH_BOOTSTRAP_ADMIN_EMAIL":    &cfg.Bootstrap.AdminEmail,
		"CATALOGAUTH_BOOTSTRAP_ADMIN_PASSWORD": &cfg.Bootstrap.AdminPassword,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	flags := map[string]*bool{
		"CATALOGAUTH_REDIS_EMBEDDED": &cfg.Redis.Embedded,
		"CATALOGAUTH_COOKIE_SECURE":  &cfg.CookieSecure,
		"CATALOGAUTH_LOG_DEBUG":      &cfg.Log.Debug,
	}
	for key, dst := range flags {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

// authorityConfig maps the daemon configuration onto the library's.
func (c daemonConfig) authorityConfig() catalogAuth.Config {
	cfg := catalogAuth.DefaultConfig()

	cfg.Session.RedisPrefix = c.Session.Prefix
	cfg.Session.Lifetime = c.Session.Lifetime
	cfg.Session.IdleTimeout = c.Session.IdleTimeout

	cfg.Token.SigningMethod = "hs256"
	cfg.Token.PrivateKey = []byte(c.Token.Secret)
	cfg.Token.Issuer = c.Token.Issuer
	cfg.Token.Audience = c.Token.Audience
	cfg.Token.Leeway = c.Token.Leeway

	cfg.Password.Iterations = c.Password.Iterations
	cfg.Password.MinLength = c.Password.MinLength
	cfg.Password.MaxLength = c.Password.MaxLength

	cfg.Security.EnableIPThrottle = c.Security.IPThrottle
	cfg.Security.MaxLoginAttempts = c.Security.MaxLoginAttempts
	cfg.Security.LoginCooldownDuration = c.Security.LoginCooldown

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.Async = c.Audit.Async
	cfg.Audit.BufferSize = c.Audit.BufferSize

	cfg.Metrics.Enabled = c.Metrics.Enabled
	return cfg
}
