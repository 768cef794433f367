package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type RetryPolicy struct {
	MaxRetries  int
	InitialWait time.Duration
	// ExhaustedDelay is the pause before giving up for this run.
	ExhaustedDelay time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     6,
		InitialWait:    120 * time.Second,
		ExhaustedDelay: 3 * time.Second,
	}
}

// Backoff is the wait after the given zero-based failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.InitialWait * time.Duration(attempt+1)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Operation func(ctx context.Context) (bool, error)

type Retrier struct {
	Policy RetryPolicy
	Log    *log.Logger
	Sleep  Sleeper
}

func NewRetrier(policy RetryPolicy, logger *log.Logger) *Retrier {
	return &Retrier{Policy: policy, Log: logger, Sleep: contextSleep}
}

// Do runs op until it succeeds or fails for a reason retrying cannot fix.
// Permission and not-found failures end in (false, nil) without another
// attempt. Fatal errors are returned unchanged, and running out of attempts
// returns ErrRetriesExhausted.
func (r *Retrier) Do(ctx context.Context, op Operation) (bool, error) {
	var lastErr error

	for attempt := 0; attempt < r.Policy.MaxRetries; attempt++ {
		ok, err := op(ctx)
		if err == nil {
			return ok, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}

		switch ClassifyError(err) {
		case ClassTransient:
			wait := r.Policy.Backoff(attempt)
			r.Log.WithField("attempt", attempt+1).Warn(fmt.Sprintf(
				"Connection issue: %s. Attempt %d/%d. Waiting %d seconds before retrying...",
				err, attempt+1, r.Policy.MaxRetries, int(wait.Seconds())))
			if sleepErr := r.Sleep(ctx, wait); sleepErr != nil {
				return false, sleepErr
			}
		case ClassPermission:
			r.Log.WithError(err).Error("Permission denied. Please check your permissions and try again.")
			return false, nil
		case ClassNotFound:
			r.Log.WithError(err).Error("File or directory not found during the backup process.")
			return false, nil
		case ClassFatal:
			return false, err
		default:
			r.Log.WithError(err).Error("Backup operation failed.")
			return false, nil
		}
	}

	r.Log.Error("Unable to connect, exceeded max attempts.")
	r.Log.Error("Will retry in the next execution cycle.")
	if sleepErr := r.Sleep(ctx, r.Policy.ExhaustedDelay); sleepErr != nil {
		return false, sleepErr
	}

	return false, fmt.Errorf("%w (%d): %w", ErrRetriesExhausted, r.Policy.MaxRetries, lastErr)
}
