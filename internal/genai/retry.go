package genai

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxAttempts = 3

	standardInitialWait = 1 * time.Second
	standardMultiplier  = 2

	// Quota failures wait longer and grow faster between attempts.
	quotaInitialWait = 5 * time.Second
	quotaMultiplier  = 3
)

func newSchedule(initial time.Duration, multiplier float64) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = 5 * time.Minute
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// withRetry runs fn up to maxAttempts times. Credential failures
// propagate immediately, quota failures wait on the slower schedule,
// and everything else retries with standard exponential backoff. When
// attempts run out the last error is returned unchanged.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	standard := newSchedule(standardInitialWait, standardMultiplier)
	quota := newSchedule(quotaInitialWait, quotaMultiplier)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		kind := Classify(err)
		if kind == KindCredential {
			return err
		}
		if attempt == c.maxAttempts {
			break
		}

		wait := standard.NextBackOff()
		if kind == KindQuota {
			wait = quota.NextBackOff()
		}
		if wait == backoff.Stop {
			break
		}

		logrus.WithFields(logrus.Fields{
			"operation": op,
			"attempt":   attempt,
			"wait":      wait,
		}).Warnf("generation call failed, retrying: %v", err)
		c.recordRetry(op)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return lastErr
}
