package portfolios

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// CapturerFactory creates one Capturer. The pool calls it lazily.
type CapturerFactory func() (Capturer, error)

// CapturerPool manages a bounded set of Capturer instances.
// Each capturer owns its own browser, so at most Size browsers are alive and
// at most Size captures run at once. Capturers are created lazily on first
// acquire to avoid startup delay.
type CapturerPool struct {
	size      int
	factory   CapturerFactory
	capturers []Capturer
	sem       chan Capturer
	mu        sync.Mutex
	created   int
	closed    bool
}

// NewCapturerPool creates a pool with capacity for n capturers built by factory.
func NewCapturerPool(n int, factory CapturerFactory) *CapturerPool {
	if n < 1 {
		n = 1
	}

	return &CapturerPool{
		size:      n,
		factory:   factory,
		capturers: make([]Capturer, 0, n),
		sem:       make(chan Capturer, n),
	}
}

// Acquire gets a capturer from the pool, creating one if capacity allows.
// Blocks while all capturers are in use, until one is released or ctx is done.
func (p *CapturerPool) Acquire(ctx context.Context) (Capturer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Try to get an existing capturer (non-blocking)
	select {
	case c, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return c, nil
	default:
	}

	// Check if we can create a new capturer
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		// Create new capturer outside the lock
		c, err := p.factory()
		if err != nil {
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			return nil, err
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = c.Close()
			return nil, ErrPoolClosed
		}
		p.capturers = append(p.capturers, c)
		p.mu.Unlock()

		return c, nil
	}
	p.mu.Unlock()

	// All capturers created, wait for one to be released
	select {
	case c, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a capturer to the pool.
// Holding the lock while sending is safe: the channel has room for every
// capturer the pool created, so the send never blocks.
func (p *CapturerPool) Release(c Capturer) {
	if c == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sem <- c
}

// Close releases all browser resources.
// Returns an aggregated error if multiple capturers fail to close.
func (p *CapturerPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	capturers := p.capturers
	p.mu.Unlock()

	var errs []error
	for _, c := range capturers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *CapturerPool) Size() int {
	return p.size
}

// Created returns how many capturers the pool has built so far.
func (p *CapturerPool) Created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

// ResolvePoolSize determines the optimal pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	// Explicit value takes priority
	if workers > 0 {
		return workers
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
