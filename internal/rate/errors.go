package rate

import "errors"

var (
	// ErrRateLimited is returned by CheckLogin once a budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis failure other than a missing key.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
