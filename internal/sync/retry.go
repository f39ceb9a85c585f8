package sync

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// statusError carries an HTTP status code so withRetry can tell a transient
// failure from a permanent one, matching internal/providers's retry shape.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return e.Body
}

func asStatusError(err error, target **statusError) bool {
	return errors.As(err, target)
}

func isRetryableStatus(code int) bool {
	switch code {
	case 429, 502, 503, 504:
		return true
	default:
		return false
	}
}

// withRetry retries op with an exponential backoff capped at three retries,
// matching internal/providers's retry policy: only network errors and
// 429/502/503/504 responses are retried, everything else is permanent.
func withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = 50 * time.Second
	bounded := backoff.WithMaxRetries(policy, 3)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}

		var se *statusError
		if errors.As(err, &se) {
			if isRetryableStatus(se.Code) {
				return err
			}
			return backoff.Permanent(err)
		}

		var netErr net.Error
		if errors.As(err, &netErr) {
			return err
		}

		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return err
		}

		return backoff.Permanent(err)
	}, backoff.WithContext(bounded, ctx))
}
