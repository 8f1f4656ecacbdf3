// Command catalogauth-loadtest measures Authority throughput against Redis.
//
// It seeds users in the in-memory directory, opens one session per user and
// then runs two phases: Authenticate on random sessions, and Login+Logout
// churn. Redis is REDIS_ADDR, -redis-addr, or an embedded miniredis.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	catalogAuth "github.com/MrEthical07/catalogAuth"
	"github.com/MrEthical07/catalogAuth/directory"
	"github.com/MrEthical07/catalogAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "load-test-password"

func main() {
	var (
		users       = flag.Int("users", 1000, "number of users (and sessions) to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "authenticate operations")
		logins      = flag.Int("logins", 2000, "login+logout operations")
		iterations  = flag.Int("iterations", password.MinIterations, "PBKDF2 iterations")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "cs-load", "session key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *logins <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, ops and logins must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := catalogAuth.DefaultConfig()
	cfg.Token.PrivateKey = []byte("catalogauth-loadtest-signing-key-000")
	cfg.Password.Iterations = *iterations
	cfg.Session.RedisPrefix = *prefix
	cfg.Security.MaxLoginAttempts = 0
	cfg.Audit.Enabled = false

	auth, err := catalogAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithDirectory(directory.NewMemory()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer auth.Close()

	fmt.Printf("seeding %d users and sessions...\n", *users)
	startSeed := time.Now()
	tokens := make([]string, *users)
	for i := range tokens {
		res, err := auth.Register(ctx, catalogAuth.RegisterRequest{
			Username: userName(i),
			Password: loadPassword,
			Email:    userName(i) + "@load.test",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = res.Token
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := auth.Authenticate(ctx, tokens[r.Intn(len(tokens))])
		return err
	})
	loginStats := runPhase(*logins, *concurrency, func(r *rand.Rand) error {
		res, err := auth.Login(ctx, catalogAuth.LoginRequest{
			Username: userName(r.Intn(*users)),
			Password: loadPassword,
		})
		if err != nil {
			return err
		}
		return auth.Logout(ctx, res.Token)
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("login+logout", loginStats)

	snap := auth.MetricsSnapshot()
	fmt.Printf("sessions created=%d invalidated=%d\n",
		snap.Counters[catalogAuth.MetricSessionCreated],
		snap.Counters[catalogAuth.MetricSessionInvalidated])
}

func userName(i int) string {
	return fmt.Sprintf("load-user-%d", i)
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
