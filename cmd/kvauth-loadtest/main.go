package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/kvauth"
	"github.com/MrEthical07/kvauth/kvstore"
	"github.com/MrEthical07/kvauth/metrics/export/prometheus"
)

type seededUser struct {
	id        string
	accountID string
	token     string
}

func main() {
	var (
		users       = flag.Int("users", 10000, "number of users to seed, each with one account and one session")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per lookup phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		verbose     = flag.Bool("v", false, "log adapter warnings to stderr")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	cfg, err := kvauth.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

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
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	logLevel := slog.LevelError
	if *verbose {
		logLevel = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	store := kvstore.NewRedisStore(client)
	adapter, err := kvauth.New().
		WithConfig(cfg).
		WithStore(store).
		WithLogger(logger).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build adapter: %v\n", err)
		os.Exit(1)
	}
	defer adapter.Close()

	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	seeded, err := seed(ctx, adapter, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	sessionStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		u := seeded[r.Intn(len(seeded))]
		su, err := adapter.GetSessionAndUser(ctx, u.token)
		if err == nil && su == nil {
			return fmt.Errorf("session of user %s missing", u.id)
		}
		return err
	})
	accountStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		u := seeded[r.Intn(len(seeded))]
		_, err := adapter.GetUserByAccount(ctx, kvauth.AccountRef{Provider: "loadtest", ProviderAccountID: u.accountID})
		return err
	})
	tokenStats := runPhase(*ops, *concurrency, func(_ *rand.Rand, i int) error {
		identifier := "vt-" + strconv.Itoa(i) + "@example.com"
		if _, err := adapter.CreateVerificationToken(ctx, kvauth.VerificationToken{
			Identifier: identifier,
			Token:      "t",
			Expires:    time.Now().Add(time.Hour),
		}); err != nil {
			return err
		}
		vt, err := adapter.UseVerificationToken(ctx, identifier, "t")
		if err == nil && vt == nil {
			return fmt.Errorf("token %s missing", identifier)
		}
		return err
	})
	deleteStats := runPhase(len(seeded), *concurrency, func(_ *rand.Rand, i int) error {
		return adapter.DeleteUser(ctx, seeded[i].id)
	})

	leftover, err := store.Keys(ctx, cfg.KeyPrefixes.BaseKeyPrefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "key scan failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("---- results ----")
	printStats("get_session_and_user", sessionStats)
	printStats("get_user_by_account", accountStats)
	printStats("verification_token", tokenStats)
	printStats("delete_user", deleteStats)
	fmt.Printf("keys left after cascade: %d\n", len(leftover))
	fmt.Println("---- metrics ----")
	fmt.Print(prometheus.NewPrometheusExporter(adapter).Render())
}

func seed(ctx context.Context, adapter *kvauth.Adapter, n int) ([]seededUser, error) {
	out := make([]seededUser, 0, n)
	for i := 0; i < n; i++ {
		u, err := adapter.CreateUser(ctx, kvauth.User{
			Name:  "user " + strconv.Itoa(i),
			Email: "user" + strconv.Itoa(i) + "@example.com",
		})
		if err != nil {
			return nil, err
		}
		accountID := strconv.Itoa(i)
		if _, err := adapter.LinkAccount(ctx, kvauth.Account{
			UserID:            u.ID,
			Type:              kvauth.AccountTypeOAuth,
			Provider:          "loadtest",
			ProviderAccountID: accountID,
		}); err != nil {
			return nil, err
		}
		token := "sess-" + strconv.Itoa(i)
		if _, err := adapter.CreateSession(ctx, kvauth.Session{
			SessionToken: token,
			UserID:       u.ID,
			Expires:      time.Now().Add(24 * time.Hour),
		}); err != nil {
			return nil, err
		}
		out = append(out, seededUser{id: u.ID, accountID: accountID, token: token})
	}
	return out, nil
}

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
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
				err := op(r, i)
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
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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
