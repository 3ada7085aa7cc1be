package jus

import "testing"

func TestByteArrayPoolReusesBuffer(t *testing.T) {
	p := NewByteArrayPool(1024)
	b := p.Get(64)
	if len(b) != 64 {
		t.Fatalf("expected length 64, got %d", len(b))
	}
	p.Put(b)
	if got := p.CurrentSize(); got != cap(b) {
		t.Fatalf("expected pool size %d, got %d", cap(b), got)
	}

	b2 := p.Get(32)
	if cap(b2) != cap(b) {
		t.Fatalf("expected reused buffer of cap %d, got %d", cap(b), cap(b2))
	}
	if p.CurrentSize() != 0 {
		t.Fatalf("expected pool drained after Get, got %d", p.CurrentSize())
	}
}

func TestByteArrayPoolEvictsOverBudget(t *testing.T) {
	p := NewByteArrayPool(100)
	p.Put(make([]byte, 60))
	p.Put(make([]byte, 60))
	if p.CurrentSize() > 100 {
		t.Fatalf("expected pool to respect budget, got %d", p.CurrentSize())
	}
}

func TestByteArrayPoolRejectsOversizedBuffer(t *testing.T) {
	p := NewByteArrayPool(100)
	p.Put(make([]byte, 200))
	if p.CurrentSize() != 0 {
		t.Fatalf("expected oversized buffer to be rejected, got size %d", p.CurrentSize())
	}
}

func TestByteArrayPoolIgnoresNil(t *testing.T) {
	p := NewByteArrayPool(100)
	p.Put(nil)
	if p.CurrentSize() != 0 {
		t.Fatalf("expected nil put to be a no-op")
	}
}
