package jus

import "io"

// PoolingOutputStream is a growable byte sink backed by a ByteArrayPool.
// It grows by renting a larger buffer (the next power of two above what
// is required), copying the live bytes across, and returning the old
// buffer to the pool. Close returns the final buffer to the pool and
// Bytes always yields an independent copy so callers may keep using the
// stream after reading it.
type PoolingOutputStream struct {
	pool *ByteArrayPool
	buf  []byte
	n    int
}

// NewPoolingOutputStream creates a stream with an initial capacity hint.
func NewPoolingOutputStream(pool *ByteArrayPool, sizeHint int) *PoolingOutputStream {
	if sizeHint <= 0 {
		sizeHint = 256
	}
	return &PoolingOutputStream{
		pool: pool,
		buf:  pool.Get(nextPowerOfTwo(sizeHint)),
	}
}

var _ io.Writer = (*PoolingOutputStream)(nil)

func (s *PoolingOutputStream) Write(p []byte) (int, error) {
	s.ensure(len(p))
	copy(s.buf[s.n:], p)
	s.n += len(p)
	return len(p), nil
}

func (s *PoolingOutputStream) ensure(extra int) {
	need := s.n + extra
	if need <= cap(s.buf) {
		s.buf = s.buf[:cap(s.buf)]
		return
	}
	newCap := nextPowerOfTwo(need)
	newBuf := s.pool.Get(newCap)
	copy(newBuf, s.buf[:s.n])
	s.pool.Put(s.buf)
	s.buf = newBuf
}

// Len reports the number of bytes written so far.
func (s *PoolingOutputStream) Len() int { return s.n }

// Bytes returns an independent copy of the bytes written so far.
func (s *PoolingOutputStream) Bytes() []byte {
	out := make([]byte, s.n)
	copy(out, s.buf[:s.n])
	return out
}

// Close returns the live buffer to the pool. The stream must not be
// written to after Close.
func (s *PoolingOutputStream) Close() error {
	if s.buf != nil {
		s.pool.Put(s.buf)
		s.buf = nil
	}
	return nil
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
