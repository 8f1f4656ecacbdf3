package catalogAuth

import (
	"context"
	"testing"

	"github.com/MrEthical07/catalogAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func BenchmarkAuthenticate(b *testing.B) {
	a, cleanup := newBenchmarkAuthority(b)
	defer cleanup()

	res, err := a.Login(context.Background(), LoginRequest{Username: "alice", Password: "correct-password-123"})
	if err != nil {
		b.Fatalf("login failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.Authenticate(context.Background(), res.Token); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkAuthenticateParallel(b *testing.B) {
	a, cleanup := newBenchmarkAuthority(b)
	defer cleanup()

	res, err := a.Login(context.Background(), LoginRequest{Username: "alice", Password: "correct-password-123"})
	if err != nil {
		b.Fatalf("login failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := a.Authenticate(context.Background(), res.Token); err != nil {
				b.Errorf("authenticate failed: %v", err)
				return
			}
		}
	})
}

// BenchmarkLogin is dominated by the KDF; it runs at the minimum iteration
// count so the session path stays visible.
func BenchmarkLogin(b *testing.B) {
	a, cleanup := newBenchmarkAuthority(b)
	defer cleanup()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := a.Login(context.Background(), LoginRequest{Username: "alice", Password: "correct-password-123"})
		if err != nil {
			b.Fatalf("login failed: %v", err)
		}
		_ = a.Logout(context.Background(), res.Token)
	}
}

func newBenchmarkAuthority(tb testing.TB) (*Authority, func()) {
	tb.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		tb.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	cfg.Metrics.Enabled = false
	cfg.Audit.Enabled = false
	cfg.Security.MaxLoginAttempts = 0

	hasher, err := password.NewHasher(password.Config{Iterations: password.MinIterations})
	if err != nil {
		tb.Fatalf("hasher init failed: %v", err)
	}
	hash, err := hasher.Hash("correct-password-123")
	if err != nil {
		tb.Fatalf("hash failed: %v", err)
	}

	dir := newFakeDirectory()
	if _, err := dir.CreateUser(context.Background(), NewUser{
		Username:     "alice",
		PasswordHash: hash,
		Email:        "alice@example.org",
		Role:         RoleUser,
		IsActive:     true,
	}); err != nil {
		tb.Fatalf("seed failed: %v", err)
	}

	a, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(dir).
		Build()
	if err != nil {
		tb.Fatalf("Build failed: %v", err)
	}

	return a, func() {
		a.Close()
		_ = rdb.Close()
		mr.Close()
	}
}
