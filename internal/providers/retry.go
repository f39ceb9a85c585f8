package providers

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// statusError carries an HTTP status code so isRetryableStatus can decide
// whether withRetry should keep trying.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return e.Body
}

func isRetryableStatus(code int) bool {
	switch code {
	case 429, 502, 503, 504:
		return true
	default:
		return false
	}
}

// permanent marks err as non-retryable, matching the façade's contract that
// only network errors and 429/502/503/504 responses are retried.
func permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// withRetry retries op with an exponential backoff capped at three retries,
// bounded by deadline. A statusError whose code is not retryable, or any
// error wrapped with permanent, stops retrying immediately.
func withRetry(ctx context.Context, deadline time.Duration, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = deadline
	bounded := backoff.WithMaxRetries(policy, 3)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}

		var se *statusError
		if errors.As(err, &se) && !isRetryableStatus(se.Code) {
			return backoff.Permanent(err)
		}

		var netErr net.Error
		if errors.As(err, &netErr) {
			return err
		}
		if errors.As(err, &se) {
			return err
		}

		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return err
		}

		return backoff.Permanent(err)
	}, backoff.WithContext(bounded, ctx))
}
