package catalogAuth

import "time"

// SecurityReport summarizes the security posture of a built Authority. It
// holds no key material and is safe to log.
type SecurityReport struct {
	SigningAlgorithm   string
	SessionLifetime    time.Duration
	IdleTimeout        time.Duration
	SlidingSessions    bool
	KDF                string
	KDFIterations      int
	MinPasswordLength  int
	RateLimitingActive bool
	IPThrottleActive   bool
	AuditEnabled       bool
	AuditAsync         bool
}

func (a *Authority) SecurityReport() SecurityReport {
	if a == nil {
		return SecurityReport{}
	}

	rateLimiting := a.limiter != nil &&
		a.config.Security.MaxLoginAttempts > 0 &&
		a.config.Security.LoginCooldownDuration > 0

	return SecurityReport{
		SigningAlgorithm:   a.config.Token.SigningMethod,
		SessionLifetime:    a.config.Session.Lifetime,
		IdleTimeout:        a.config.Session.IdleTimeout,
		SlidingSessions:    a.config.Session.IdleTimeout > 0,
		KDF:                "pbkdf2-sha512",
		KDFIterations:      a.config.Password.Iterations,
		MinPasswordLength:  a.config.Password.MinLength,
		RateLimitingActive: rateLimiting,
		IPThrottleActive:   rateLimiting && a.config.Security.EnableIPThrottle,
		AuditEnabled:       a.config.Audit.Enabled,
		AuditAsync:         a.config.Audit.Enabled && a.config.Audit.Async,
	}
}
