package jus

import "testing"

func TestRetryPolicyExhaustsAfterMaxPlusOneAttempts(t *testing.T) {
	p := NewRetryPolicy(1000, 2, 1.0)
	attempts := 0
	sentinel := NewTimeoutError(nil, 0)

	for {
		attempts++
		if err := p.Retry(sentinel); err != nil {
			break
		}
		if attempts > 10 {
			t.Fatalf("retry policy never exhausted")
		}
	}

	if attempts != 3 {
		t.Fatalf("expected exactly MaxNumRetries+1=3 attempts, got %d", attempts)
	}
}

func TestRetryPolicyGrowsTimeout(t *testing.T) {
	p := NewRetryPolicy(1000, 3, 0.5)
	if err := p.Retry(NewTimeoutError(nil, 0)); err != nil {
		t.Fatalf("expected retry to be permitted")
	}
	if p.CurrentTimeoutMs != 1500 {
		t.Fatalf("expected timeout to grow to 1500, got %d", p.CurrentTimeoutMs)
	}
}

func TestRetryPolicyClone(t *testing.T) {
	p := NewDefaultRetryPolicy()
	c := p.Clone()
	c.CurrentRetryCount = 99
	if p.CurrentRetryCount == 99 {
		t.Fatalf("expected clone to be independent")
	}
}
