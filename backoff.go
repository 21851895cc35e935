package surveilans

import (
	"context"
	"math"
	"math/rand"
	"time"
)

type randomWrapper interface {
	Int63n(n int64) int64
}

type defaultRandom struct{}

func (r *defaultRandom) Int63n(n int64) int64 {
	return rand.Int63n(n)
}

type backoff interface {
	Reset()
	Next() time.Duration
	GetMaxAttempt() uint8
	GetCurrentAttempt() uint8
}

type exponentialBackoff struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitter     float64
	attempt    uint8
	maxAttempt uint8

	random  randomWrapper
	backoff delayFunc
}

var (
	DefaultMinDelay   = 5 * time.Second
	DefaultMaxDelay   = 5 * time.Minute
	DefaultMultiplier = 2.0
	DefaultMaxAttempt = uint8(3)
	DefaultRandom     = &defaultRandom{}
)

type optionFunc[T any] func(T) error

type exponentialBackoffOptionFunc optionFunc[*exponentialBackoff]

func newExponentialBackoff(optFns ...exponentialBackoffOptionFunc) (*exponentialBackoff, error) {
	eb := &exponentialBackoff{
		minDelay:   DefaultMinDelay,
		maxDelay:   DefaultMaxDelay,
		multiplier: DefaultMultiplier,
		attempt:    0,
		maxAttempt: DefaultMaxAttempt,
		random:     DefaultRandom,
	}

	for _, optFn := range optFns {
		if err := optFn(eb); err != nil {
			return nil, err
		}
	}

	eb.backoff = exponentialBuilder(eb.minDelay, eb.maxDelay, eb.multiplier, eb.jitter, eb.random)
	eb.Reset()

	return eb, nil
}

func withMinDelay(d time.Duration) exponentialBackoffOptionFunc {
	return func(eb *exponentialBackoff) error {
		if d < 0 {
			return errInvalidDelay
		}
		eb.minDelay = d
		return nil
	}
}

func withMaxDelay(d time.Duration) exponentialBackoffOptionFunc {
	return func(eb *exponentialBackoff) error {
		if d <= 0 {
			return errInvalidDelay
		}
		eb.maxDelay = d
		return nil
	}
}

func withMultiplier(m float64) exponentialBackoffOptionFunc {
	return func(eb *exponentialBackoff) error {
		if m < 1 {
			return errInvalidDelay
		}
		eb.multiplier = m
		return nil
	}
}

// withJitter adds up to fraction*delay of random extra wait to each step.
func withJitter(fraction float64) exponentialBackoffOptionFunc {
	return func(eb *exponentialBackoff) error {
		if fraction < 0 || fraction > 1 {
			return errInvalidDelay
		}
		eb.jitter = fraction
		return nil
	}
}

func withRandomImp(r randomWrapper) exponentialBackoffOptionFunc {
	return func(eb *exponentialBackoff) error {
		eb.random = r
		return nil
	}
}

func withMaxAttempt(a uint8) exponentialBackoffOptionFunc {
	return func(eb *exponentialBackoff) error {
		if a < 1 {
			return errInvalidAttempts
		}
		eb.maxAttempt = a
		return nil
	}
}

func (eb *exponentialBackoff) Reset() {
	eb.attempt = 0
}

func (eb *exponentialBackoff) Next() time.Duration {
	eb.attempt++
	return eb.backoff(eb.attempt)
}

func (eb *exponentialBackoff) GetMaxAttempt() uint8 {
	return eb.maxAttempt
}

func (eb *exponentialBackoff) GetCurrentAttempt() uint8 {
	return eb.attempt
}

type delayFunc func(attempt uint8) time.Duration

// exponentialBuilder returns minDelay * multiplier^(attempt-1), capped at
// capacity, plus optional jitter.
func exponentialBuilder(minDelay time.Duration, capacity time.Duration, multiplier float64, jitter float64, random randomWrapper) delayFunc {
	return func(attempt uint8) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		base := float64(minDelay) * math.Pow(multiplier, float64(attempt-1))
		delay := int64(math.Min(float64(capacity), base))

		if jitter > 0 {
			spread := int64(float64(delay) * jitter)
			if spread > 0 {
				delay += random.Int63n(spread)
			}
		}

		return time.Duration(delay)
	}
}

type retryableFunc func() error

// retryNotify is called before each wait with the attempt that just failed.
type retryNotify func(attempt uint8, delay time.Duration, err error)

// retry runs op until it succeeds, returns a non-retryable error, or the
// backoff runs out of attempts. It reports how many attempts were made. No
// wait follows the last attempt.
func retry(ctx context.Context, clock Clock, op retryableFunc, eb backoff, notify retryNotify) (uint8, error) {
	var lastErr error
	maxAttempts := eb.GetMaxAttempt()
	attempts := uint8(0)

	for attempts < maxAttempts {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		attempts++
		lastErr = op()
		if lastErr == nil || !isRetryable(lastErr) {
			return attempts, lastErr
		}
		if attempts >= maxAttempts {
			break
		}

		delay := eb.Next()
		if notify != nil {
			notify(attempts, delay, lastErr)
		}
		if err := sleep(ctx, clock, delay); err != nil {
			return attempts, err
		}
	}

	return attempts, lastErr
}
