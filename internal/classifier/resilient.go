package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/supportdesk/triage-service/internal/config"
)

// ResilientOption customizes a Resilient wrapper.
type ResilientOption func(*Resilient)

// WithRetryHook is called once per failed attempt that will be retried.
func WithRetryHook(hook func(op string)) ResilientOption {
	return func(r *Resilient) { r.onRetry = hook }
}

// Resilient bounds each call with a per-attempt timeout and retries failures
// with exponential backoff. After the last attempt it logs at error level and
// returns ErrUnavailable.
type Resilient struct {
	classifier     Classifier
	diagnoser      Diagnoser
	timeout        time.Duration
	maxAttempts    uint
	initialBackoff time.Duration
	logger         *zap.Logger
	onRetry        func(op string)
}

// NewResilient wraps c and d. d may be nil.
func NewResilient(c Classifier, d Diagnoser, cfg config.ClassifierConfig, logger *zap.Logger, opts ...ResilientOption) *Resilient {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	r := &Resilient{
		classifier:     c,
		diagnoser:      d,
		timeout:        cfg.Timeout(),
		maxAttempts:    uint(attempts),
		initialBackoff: cfg.InitialBackoff(),
		logger:         logger,
		onRetry:        func(string) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resilient) Classify(ctx context.Context, text string) (Classification, error) {
	return withRetry(ctx, r, "classify", func(ctx context.Context) (Classification, error) {
		return r.classifier.Classify(ctx, text)
	})
}

func (r *Resilient) Diagnose(ctx context.Context, in DiagnosisContext) (string, error) {
	if r.diagnoser == nil {
		return "", fmt.Errorf("%w: no diagnoser configured", ErrUnavailable)
	}
	return withRetry(ctx, r, "diagnose", func(ctx context.Context) (string, error) {
		return r.diagnoser.Diagnose(ctx, in)
	})
}

func withRetry[T any](ctx context.Context, r *Resilient, op string, fn func(context.Context) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	if r.initialBackoff > 0 {
		policy.InitialInterval = r.initialBackoff
	}

	attempt := 0
	result, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		out, err := fn(attemptCtx)
		if err != nil && ctx.Err() != nil {
			return out, backoff.Permanent(ctx.Err())
		}
		return out, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(r.maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.onRetry(op)
			r.logger.Warn("classifier attempt failed, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		r.logger.Error("classifier unavailable",
			zap.String("op", op),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		var zero T
		return zero, fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	return result, nil
}
