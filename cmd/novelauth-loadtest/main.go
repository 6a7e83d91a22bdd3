// Command novelauth-loadtest drives concurrent credential attempts and
// session resumes against an Engine and checks that no trial was lost.
//
// With no -redis-addr (or REDIS_ADDR) it runs against miniredis and an
// in-memory SQLite store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	novelAuth "github.com/MrEthical07/novelAuth"
	"github.com/MrEthical07/novelAuth/account"
	"github.com/MrEthical07/novelAuth/password"
	"github.com/MrEthical07/novelAuth/store/sqlstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const secret = "violet-anchor-meadow-42"

func main() {
	var (
		accounts    = flag.Int("accounts", 200, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 5000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		dsn         = flag.String("sqlite", ":memory:", "sqlite DSN for the credential store")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}
	if err := run(*accounts, *concurrency, *ops, *redisAddr, *dsn); err != nil {
		fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
		os.Exit(1)
	}
}

func run(accounts, concurrency, ops int, redisAddr, dsn string) error {
	ctx := context.Background()

	addr := redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()

	db, err := sqlstore.Open(sqlstore.SQLite, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqlstore.Migrate(ctx, db, sqlstore.SQLite); err != nil {
		return err
	}
	store := sqlstore.New(db, sqlstore.SQLite)

	cfg := novelAuth.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Security.CASRetries = 16
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := novelAuth.New().WithConfig(cfg).WithRedis(client).WithAccountStore(store).Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	emails, err := seed(ctx, store, accounts)
	if err != nil {
		return err
	}

	attempt, rejected := runAttemptPhase(ctx, engine, emails, ops, concurrency)
	resume := runResumePhase(ctx, engine, ops, concurrency)

	var trials int64
	for _, email := range emails {
		a, err := store.LookupByEmail(ctx, email)
		if err != nil {
			return err
		}
		trials += int64(a.TrialCount)
	}

	fmt.Println("---- results ----")
	printStats("attempt", attempt)
	printStats("resume", resume)
	fmt.Printf("rejected=%d stored_trials=%d\n", rejected, trials)
	if trials != rejected {
		return fmt.Errorf("lost trials: %d rejected attempts but %d stored", rejected, trials)
	}
	return nil
}

func seed(ctx context.Context, store *sqlstore.Store, n int) ([]string, error) {
	h, err := password.NewHasher(password.Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		return nil, err
	}
	digest, err := h.Hash(secret)
	if err != nil {
		return nil, err
	}

	fmt.Printf("seeding %d accounts...\n", n)
	start := time.Now()
	emails := make([]string, n)
	now := time.Now()
	for i := range emails {
		emails[i] = fmt.Sprintf("load-%d@example.com", i)
		a := account.Account{
			Email:             emails[i],
			Username:          fmt.Sprintf("load%d", i),
			Role:              account.RoleUser,
			Verified:          true,
			PasswordHash:      digest,
			PasswordChangedAt: &now,
		}
		if err := store.Create(ctx, &a); err != nil {
			return nil, err
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(start).Round(time.Millisecond))
	return emails, nil
}

// runAttemptPhase fires wrong-password attempts at random accounts. Locked
// outcomes count nothing; every rejection must land in the store.
func runAttemptPhase(ctx context.Context, engine *novelAuth.Engine, emails []string, ops, concurrency int) (phaseStats, int64) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		rejected  int64
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
				email := emails[r.Intn(len(emails))]
				t0 := time.Now()
				res, err := engine.AttemptCredential(ctx, email, "wrong-password")
				d := time.Since(t0)
				switch {
				case res.Outcome == novelAuth.OutcomeRejected:
					atomic.AddInt64(&rejected, 1)
				case res.Outcome == novelAuth.OutcomeLocked:
				case err != nil && !errors.Is(err, novelAuth.ErrInvalidCredentials):
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures), rejected
}

func runResumePhase(ctx context.Context, engine *novelAuth.Engine, ops, concurrency int) phaseStats {
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
		go func() {
			defer wg.Done()
			var sid string
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				sess, err := engine.Resume(ctx, sid)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					sid = sess.SessionID
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
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
