package runutil

import "errors"

// DefaultLimit is the number of attempts used when none is given
const DefaultLimit = 3

// ErrNoAttempts is returned when Retry exits without calling fn
var ErrNoAttempts = errors.New("retry: no attempts made")

// Retryable reports whether an error may be retried
type Retryable func(error) bool

// Always treats every error as retryable
func Always(error) bool { return true }

// Retry calls fn up to maxAttempts times, passing the 1-based attempt number.
// It stops at the first success or at the first error retryable rejects and
// returns the last error. maxAttempts <= 0 means DefaultLimit; a nil
// retryable means Always.
func Retry(fn func(attempt int) error, maxAttempts int, retryable Retryable) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultLimit
	}
	if retryable == nil {
		retryable = Always
	}

	lastErr := ErrNoAttempts
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		lastErr = err
		if !retryable(err) {
			break
		}
	}

	return lastErr
}
