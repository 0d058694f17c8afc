package engine

import "context"

// tokenLimiter bounds how many interpreter subprocesses run at once.
type tokenLimiter struct {
	tokens chan struct{}
}

func newTokenLimiter(size int) *tokenLimiter {
	if size <= 0 {
		size = 1
	}
	tokens := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		tokens <- struct{}{}
	}
	return &tokenLimiter{tokens: tokens}
}

// acquire blocks until a slot is available or ctx is canceled.
func (l *tokenLimiter) acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.tokens:
		return nil
	}
}

func (l *tokenLimiter) release() {
	select {
	case l.tokens <- struct{}{}:
	default:
	}
}
