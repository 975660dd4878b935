// Package ratelimit throttles pipeline admissions per identity and globally.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/supportdesk/triage-service/internal/config"
	"github.com/supportdesk/triage-service/internal/domain"
)

// Scope names which bucket refused a request.
type Scope string

const (
	ScopeIdentity Scope = "identity"
	ScopeGlobal   Scope = "global"
)

// Limits is the capacity of one bucket.
type Limits struct {
	PerMinute int
	PerHour   int
	Burst     int
}

var tierLimits = map[domain.Tier]Limits{
	domain.TierPlatinum: {PerMinute: 100, PerHour: 5000, Burst: 20},
	domain.TierGold:     {PerMinute: 60, PerHour: 2000, Burst: 15},
	domain.TierSilver:   {PerMinute: 30, PerHour: 1000, Burst: 10},
	domain.TierStandard: {PerMinute: 10, PerHour: 300, Burst: 5},
}

// LimitsFor returns the fixed capacity for a tier; unknown tiers get standard.
func LimitsFor(tier domain.Tier) Limits {
	if l, ok := tierLimits[tier]; ok {
		return l
	}
	return tierLimits[domain.TierStandard]
}

// Decision is the outcome of an admission check. Remaining counts the whole
// tokens left in the identity bucket after this call.
type Decision struct {
	Allowed    bool
	Scope      Scope
	RetryAfter time.Duration
	Remaining  int
}

// bucket pairs a minute window and an hour window. mu makes the
// check-then-take sequence across both windows atomic.
type bucket struct {
	mu     sync.Mutex
	minute *rate.Limiter
	hour   *rate.Limiter
}

func newBucket(l Limits) *bucket {
	return &bucket{
		minute: rate.NewLimiter(rate.Limit(float64(l.PerMinute)/60), l.Burst),
		hour:   rate.NewLimiter(rate.Limit(float64(l.PerHour)/3600), l.PerHour),
	}
}

// wait reports how long until both windows hold a whole token. Zero means a
// token is available now. Caller holds mu.
func (b *bucket) wait(now time.Time) time.Duration {
	return max(deficit(b.minute, now), deficit(b.hour, now))
}

// remaining reports the whole tokens both windows can still grant. Caller
// holds mu.
func (b *bucket) remaining(now time.Time) int {
	tokens := math.Min(b.minute.TokensAt(now), b.hour.TokensAt(now))
	if tokens < 1 {
		return 0
	}
	return int(math.Floor(tokens))
}

// take consumes one token from each window. Caller holds mu and has seen
// wait return zero at the same instant.
func (b *bucket) take(now time.Time) {
	b.minute.AllowN(now, 1)
	b.hour.AllowN(now, 1)
}

func deficit(l *rate.Limiter, now time.Time) time.Duration {
	tokens := l.TokensAt(now)
	if tokens >= 1 {
		return 0
	}
	if l.Limit() <= 0 {
		return time.Hour
	}
	secs := (1 - tokens) / float64(l.Limit())
	return time.Duration(secs * float64(time.Second))
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// Limiter admits requests against a per-identity bucket and a shared global
// bucket. Identity buckets are created on first sight and never evicted; a
// bucket's tier is fixed when it is created. Identities never contend on each
// other's locks. Lock order is identity then global.
type Limiter struct {
	buckets sync.Map // identity -> *bucket
	global  *bucket
	now     func() time.Time
}

// New builds a limiter with the configured global ceiling.
func New(cfg config.RateLimitConfig, opts ...Option) *Limiter {
	l := &Limiter{now: time.Now}
	if cfg.GlobalEnabled {
		l.global = newBucket(Limits{
			PerMinute: cfg.GlobalPerMinute,
			PerHour:   cfg.GlobalPerHour,
			Burst:     cfg.GlobalPerMinute,
		})
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow consumes one token from the identity bucket and one from the global
// bucket, or from neither.
func (l *Limiter) Allow(identity string, tier domain.Tier) Decision {
	b := l.bucketFor(identity, tier)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	if wait := b.wait(now); wait > 0 {
		return Decision{Scope: ScopeIdentity, RetryAfter: wait}
	}

	if l.global != nil {
		l.global.mu.Lock()
		if wait := l.global.wait(now); wait > 0 {
			l.global.mu.Unlock()
			return Decision{Scope: ScopeGlobal, RetryAfter: wait, Remaining: b.remaining(now)}
		}
		l.global.take(now)
		l.global.mu.Unlock()
	}

	b.take(now)
	return Decision{Allowed: true, Remaining: b.remaining(now)}
}

func (l *Limiter) bucketFor(identity string, tier domain.Tier) *bucket {
	if existing, ok := l.buckets.Load(identity); ok {
		return existing.(*bucket)
	}
	actual, _ := l.buckets.LoadOrStore(identity, newBucket(LimitsFor(tier)))
	return actual.(*bucket)
}
