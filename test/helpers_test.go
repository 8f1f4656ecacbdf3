package test

import (
	"context"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	catalogAuth "github.com/MrEthical07/catalogAuth"
	"github.com/MrEthical07/catalogAuth/directory"
	"github.com/MrEthical07/catalogAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode is one Redis backend the scenario suite runs against.
type redisMode struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

// redisModes always includes miniredis. A real server is added when
// REDIS_ADDR is set. Cluster mode is not covered: a binding and its user
// index live in different hash slots.
func redisModes() []redisMode {
	modes := []redisMode{{
		name: "miniredis",
		setup: func(t *testing.T) redis.UniversalClient {
			t.Helper()
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return rdb
		},
	}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				t.Cleanup(func() { rdb.FlushDB(context.Background()); _ = rdb.Close() })
				return rdb
			},
		})
	}

	return modes
}

// forEachRedis runs fn once per available Redis backend.
func forEachRedis(t *testing.T, fn func(t *testing.T, rdb redis.UniversalClient)) {
	for _, mode := range redisModes() {
		t.Run(mode.name, func(t *testing.T) {
			fn(t, mode.setup(t))
		})
	}
}

type fixture struct {
	auth *catalogAuth.Authority
	dir  *directory.Memory
}

func newFixture(t *testing.T, rdb redis.UniversalClient) *fixture {
	t.Helper()

	cfg := catalogAuth.DefaultConfig()
	cfg.Token.PrivateKey = []byte("scenario-signing-key-0123456789abcdef")
	cfg.Password.Iterations = password.MinIterations
	// Each run gets its own prefix so shared servers do not collide.
	cfg.Session.RedisPrefix = "sc" + strings.ReplaceAll(t.Name(), "/", ":")

	dir := directory.NewMemory()
	auth, err := catalogAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(dir).
		WithAuditSink(catalogAuth.NoOpSink{}).
		Build()
	if err != nil {
		t.Fatalf("build authority: %v", err)
	}
	t.Cleanup(auth.Close)

	return &fixture{auth: auth, dir: dir}
}

// cmdCounter counts Redis commands, including those sent in pipelines.
type cmdCounter struct {
	commands atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset()          { h.commands.Store(0) }
func (h *cmdCounter) Commands() int64 { return h.commands.Load() }
