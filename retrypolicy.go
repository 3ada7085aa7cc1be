package jus

// RetryPolicy tracks the per-attempt timeout and remaining retry budget
// for a single request's lifetime. It is mutated in place by the network
// façade between attempts; callers normally construct one with
// NewDefaultRetryPolicy and attach it to a request.
type RetryPolicy struct {
	CurrentTimeoutMs  int64
	CurrentRetryCount int
	BackoffMultiplier float64
	MaxNumRetries     int
}

// NewDefaultRetryPolicy returns a policy with conservative defaults: a
// 2.5s first-attempt timeout, one retry, and a backoff multiplier of 1.0,
// which doubles the timeout for the retry.
func NewDefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		CurrentTimeoutMs:  2500,
		CurrentRetryCount: 0,
		BackoffMultiplier: 1.0,
		MaxNumRetries:     1,
	}
}

// NewRetryPolicy builds a policy with explicit parameters.
func NewRetryPolicy(timeoutMs int64, maxNumRetries int, backoffMultiplier float64) *RetryPolicy {
	return &RetryPolicy{
		CurrentTimeoutMs:  timeoutMs,
		MaxNumRetries:     maxNumRetries,
		BackoffMultiplier: backoffMultiplier,
	}
}

// Retry accounts for one failed attempt. If the retry budget is
// exhausted it returns err unchanged so the caller can give up; otherwise
// it grows the timeout, increments the attempt count, and returns nil to
// signal "try again".
func (p *RetryPolicy) Retry(err error) error {
	if p.CurrentRetryCount+1 > p.MaxNumRetries {
		return err
	}
	p.CurrentRetryCount++
	p.CurrentTimeoutMs += int64(float64(p.CurrentTimeoutMs) * p.BackoffMultiplier)
	return nil
}

// Clone returns an independent copy so the same policy template can seed
// many requests.
func (p *RetryPolicy) Clone() *RetryPolicy {
	c := *p
	return &c
}
