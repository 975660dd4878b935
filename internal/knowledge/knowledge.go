// Package knowledge resolves ticket fingerprints to known issues.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/repository"
)

const (
	keyPrefix = "kb:fp:"
	// missSentinel is cached for fingerprints with no known issue.
	missSentinel = "null"
)

// Base looks up known issues by fingerprint. Reads go through an optional
// Redis cache; concurrent misses for one fingerprint share a single
// repository query.
type Base struct {
	repo   repository.KnownIssueRepository
	cache  redis.Cmdable
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// New builds a knowledge base. cache may be nil and a zero ttl disables caching.
func New(repo repository.KnownIssueRepository, cache redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Base {
	if ttl <= 0 {
		cache = nil
	}
	return &Base{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Lookup returns the best known issue for fp, or nil when none matches.
// Cache faults are logged and bypassed; repository faults are returned.
func (b *Base) Lookup(ctx context.Context, fp domain.Fingerprint) (*domain.KnownIssue, error) {
	key := cacheKey(fp)

	if issue, hit := b.fromCache(ctx, key); hit {
		return issue, nil
	}

	v, err, _ := b.group.Do(key, func() (any, error) {
		if issue, hit := b.fromCache(ctx, key); hit {
			return issue, nil
		}

		issue, err := b.repo.FindByFingerprint(ctx, fp)
		if errors.Is(err, pgx.ErrNoRows) {
			issue, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
		b.store(ctx, key, issue)
		return issue, nil
	})
	if err != nil {
		return nil, err
	}
	issue, _ := v.(*domain.KnownIssue)
	return issue, nil
}

func (b *Base) fromCache(ctx context.Context, key string) (*domain.KnownIssue, bool) {
	if b.cache == nil {
		return nil, false
	}
	raw, err := b.cache.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		b.logger.Warn("known issue cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if raw == missSentinel {
		return nil, true
	}
	var issue domain.KnownIssue
	if err := json.Unmarshal([]byte(raw), &issue); err != nil {
		b.logger.Warn("known issue cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &issue, true
}

func (b *Base) store(ctx context.Context, key string, issue *domain.KnownIssue) {
	if b.cache == nil {
		return
	}
	payload := missSentinel
	if issue != nil {
		raw, err := json.Marshal(issue)
		if err != nil {
			return
		}
		payload = string(raw)
	}
	if err := b.cache.Set(ctx, key, payload, b.ttl).Err(); err != nil {
		b.logger.Warn("known issue cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(fp domain.Fingerprint) string {
	customer := "*"
	if fp.CustomerID != nil {
		customer = *fp.CustomerID
	}
	return keyPrefix + strings.Join([]string{fp.Category, fp.Intent, customer}, "|")
}
