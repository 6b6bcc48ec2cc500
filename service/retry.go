package service

import (
	"time"

	"github.com/cenkalti/backoff"
)

// maxRetryDelay caps the spacing of headless connect attempts.
const maxRetryDelay = time.Minute

// retryPolicy spaces headless start attempts. Repeated failures back off
// exponentially and only a changed error is reported loudly.
type retryPolicy struct {
	bo   *backoff.ExponentialBackOff
	last string
}

func newRetryPolicy(initial, max time.Duration) *retryPolicy {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initial
	bo.MaxInterval = max
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()
	return &retryPolicy{bo: bo}
}

// failed records a failed attempt and returns the wait before the next one.
// first is false while the same error keeps repeating.
func (r *retryPolicy) failed(err error) (wait time.Duration, first bool) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	first = msg != r.last
	r.last = msg
	return r.bo.NextBackOff(), first
}

// succeeded restarts the schedule from the initial delay.
func (r *retryPolicy) succeeded() {
	r.last = ""
	r.bo.Reset()
}
