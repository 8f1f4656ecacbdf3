package catalogAuth

import (
	"errors"

	"github.com/MrEthical07/catalogAuth/internal/audit"
	"github.com/MrEthical07/catalogAuth/internal/rate"
	"github.com/MrEthical07/catalogAuth/jwt"
	"github.com/MrEthical07/catalogAuth/password"
	"github.com/MrEthical07/catalogAuth/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Authority. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory    UserDirectory
	sessionStore SessionStore
	auditSink    AuditSink
	logger       *zap.Logger

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the default session store
// and the login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore overrides the Redis session store. Without WithRedis,
// login throttling is disabled.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessionStore = store
	return b
}

func (b *Builder) WithDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithAuditSink sets the audit destination. The default writes audit
// entries through the Authority's zap logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and dependencies and returns a ready
// Authority. Build hashes one throwaway password to prepare the record used
// for unknown-username logins, so it costs one KDF run.
func (b *Builder) Build() (*Authority, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	store := b.sessionStore
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or session store required")
		}
		store = session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.IdleTimeout)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hasher, err := password.NewHasher(password.Config{Iterations: cfg.Password.Iterations})
	if err != nil {
		return nil, err
	}
	dummy, err := hasher.Hash("catalogauth-unknown-user")
	if err != nil {
		return nil, err
	}

	sink := b.auditSink
	if sink == nil {
		sink = audit.NewZapSink(logger)
	}

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Session.Lifetime,
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	authority := &Authority{
		config:      cfg,
		directory:   b.directory,
		sessions:    store,
		tokens:      tokens,
		hasher:      hasher,
		dummyRecord: dummy,
		logger:      logger.Named("catalogauth"),
		metrics:     NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			Async:      cfg.Audit.Async,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink),
	}

	if b.redis != nil {
		authority.limiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Session.RedisPrefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	b.built = true

	return authority, nil
}
