/*
Package loop marshals work onto the goroutine that owns the game's update loop.

Network completions arrive on arbitrary goroutines. They Post a closure here, and the
owner runs the queued closures in posting order, either once per frame with Drain or
continuously with Run. Session mutations and UI notifications therefore happen on a
single goroutine.
*/
package loop

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"mmoclient/internal/pkg/logx"
)

// ErrClosed is returned by Post after Close.
var ErrClosed = errors.New("loop: closed")

// Loop is a FIFO of pending completions.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	logger zerolog.Logger
}

// New returns an open Loop.
func New() *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: logx.Component("loop"),
	}
}

// Post queues fn to run on the owner. It is safe to call from any goroutine and
// never blocks.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued closures.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Drain runs every closure queued before the call and returns how many ran.
// Closures posted while draining wait for the next Drain.
func (l *Loop) Drain() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range batch {
		l.run(fn)
	}
	return len(batch)
}

// Run drains continuously until ctx is done, then drains once more and returns
// ctx's error.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()

		select {
		case <-ctx.Done():
			l.Drain()
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Close rejects further posts. Already queued closures still run on the next Drain.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("Completion panicked")
		}
	}()

	fn()
}
