// Package runutil holds the explicit wrappers composed around pipeline
// operations: timing and bounded retry.
package runutil

import (
	"log"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Timed runs fn and logs when it started, finished and how long it took.
// The error from fn is returned unchanged.
func Timed(logger *log.Logger, name string, fn func() error) error {
	start := time.Now()
	logger.Printf("[TIMER] Starting '%s' at %s", name, start.Format(timeLayout))

	err := fn()

	end := time.Now()
	logger.Printf("[TIMER] Finished '%s' at %s", name, end.Format(timeLayout))
	logger.Printf("[TIMER] Elapsed time for '%s': %.4f seconds", name, end.Sub(start).Seconds())

	return err
}

// TimedValue is Timed for operations that produce a value
func TimedValue[T any](logger *log.Logger, name string, fn func() (T, error)) (T, error) {
	var v T
	err := Timed(logger, name, func() error {
		var err error
		v, err = fn()
		return err
	})
	return v, err
}
