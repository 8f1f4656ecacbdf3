package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when a Redis command fails for any reason
// other than a missing key.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned by Get when no live binding exists for the id.
var ErrNotFound = errors.New("session not found")

const minSlidingTTL = time.Second

const deleteBindingScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

var deleteBindingLua = redis.NewScript(deleteBindingScript)

// Store is a Redis-backed session binding store with absolute expiry and
// optional idle (sliding) expiry.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	idleTTL time.Duration
}

// NewStore creates a [Store]. prefix namespaces every key; idleTTL > 0
// enables sliding expiry: a binding not read within idleTTL expires even if
// its absolute lifetime has not elapsed.
func NewStore(client redis.UniversalClient, prefix string, idleTTL time.Duration) *Store {
	if prefix == "" {
		prefix = "cs"
	}
	return &Store{
		redis:   client,
		prefix:  prefix,
		idleTTL: idleTTL,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// keyTTL is the Redis expiry to apply to a binding at now.
func (s *Store) keyTTL(b *Binding, now time.Time) time.Duration {
	remaining := time.Unix(b.ExpiresAt, 0).Sub(now)
	if s.idleTTL > 0 && s.idleTTL < remaining {
		remaining = s.idleTTL
	}
	if remaining < minSlidingTTL {
		remaining = minSlidingTTL
	}
	return remaining
}

// Save persists b and indexes it under its user.
//
//	Performance: 1 MULTI/EXEC round trip (SET + SADD + EXPIRE).
func (s *Store) Save(ctx context.Context, b *Binding) error {
	if b == nil || b.SessionID == "" {
		return errors.New("session id required")
	}
	data, err := Encode(b)
	if err != nil {
		return err
	}

	now := time.Now()
	if b.Expired(now) {
		return errors.New("binding already expired")
	}
	ttl := s.keyTTL(b, now)
	userKey := s.userKey(b.UserID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(b.SessionID), data, ttl)
		pipe.SAdd(ctx, userKey, b.SessionID)
		// Every binding shares the configured lifetime, so the newest one
		// outlives the rest and the index can follow it.
		pipe.Expire(ctx, userKey, time.Unix(b.ExpiresAt, 0).Sub(now))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get resolves sessionID to its binding. A missing, undecodable or expired
// binding yields ErrNotFound. With sliding expiry enabled, a successful Get
// renews the idle window.
//
//	Performance: 1 Redis GET (+1 EXPIRE when sliding).
func (s *Store) Get(ctx context.Context, sessionID string) (*Binding, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	b, err := Decode(data)
	if err != nil {
		// A corrupt blob can never authenticate anyone; drop it.
		if delErr := s.redis.Del(ctx, key).Err(); delErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, delErr)
		}
		return nil, ErrNotFound
	}
	b.SessionID = sessionID

	now := time.Now()
	if b.Expired(now) {
		if err := s.Delete(ctx, b.UserID, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	if s.idleTTL > 0 {
		if err := s.redis.Expire(ctx, key, s.keyTTL(b, now)).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return b, nil
}

// Delete removes the binding and its index entry. Deleting a binding that
// does not exist is not an error. userID may be empty when unknown; the
// index entry then ages out with the index key.
//
//	Performance: 1 EVALSHA.
func (s *Store) Delete(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if userID == "" {
		data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if b, decErr := Decode(data); decErr == nil {
			userID = b.UserID
		}
	}

	keys := []string{s.key(sessionID), s.userKey(userID)}
	if err := deleteBindingLua.Run(ctx, s.redis, keys, sessionID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// DeleteAllForUser removes every binding of userID except keepSessionID
// (which may be empty). It returns the number of bindings removed.
//
// The read of the user index and the delete are separate round trips; a
// binding created in between survives and is caught by the next call.
func (s *Store) DeleteAllForUser(ctx context.Context, userID, keepSessionID string) (int, error) {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	victims := make([]string, 0, len(sessionIDs))
	for _, sid := range sessionIDs {
		if sid != keepSessionID {
			victims = append(victims, sid)
		}
	}
	if len(victims) == 0 {
		return 0, nil
	}

	sessionKeys := make([]string, len(victims))
	members := make([]interface{}, len(victims))
	for i, sid := range victims {
		sessionKeys[i] = s.key(sid)
		members[i] = sid
	}

	var delCmd *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, sessionKeys...)
		pipe.SRem(ctx, userKey, members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return int(delCmd.Val()), nil
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
