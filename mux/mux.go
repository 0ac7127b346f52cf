/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mux

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the multiplexer lifecycle phase.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Factory recreates the producer sequence. It is invoked at most once, when
// the multiplexer starts; cancelling ctx must stop the producer.
type Factory[T any] func(ctx context.Context) <-chan T

// Option configures a Multiplexer.
type Option[T any] func(*Multiplexer[T])

// WithTerminal installs a classifier for in-band terminal items. When it
// returns a non-nil error the item is withheld, the error is recorded on the
// controller, and consumers observe only end-of-sequence.
func WithTerminal[T any](f func(T) error) Option[T] {
	return func(m *Multiplexer[T]) {
		m.terminal = f
	}
}

// Consumer is one fan-out handle. All consumers of a multiplexer observe the
// same items in the same order, in lockstep: no consumer runs more than one
// item ahead of the slowest active consumer.
type Consumer[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

// C returns the consumer's item channel. It closes at end-of-sequence.
func (c *Consumer[T]) C() <-chan T {
	return c.ch
}

// Close withdraws this consumer from the delivery barrier. The remaining
// consumers keep receiving; closing the last consumer ends the run.
func (c *Consumer[T]) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Multiplexer fans one producer sequence out to a fixed set of lockstep
// consumers without rescanning or buffering the sequence.
type Multiplexer[T any] struct {
	factory  Factory[T]
	terminal func(T) error

	consumers []*Consumer[T]

	mu      sync.Mutex
	started bool
	closed  bool
	err     error
	cancel  context.CancelFunc
	quit    chan struct{}
	state   atomic.Int32
}

// New builds a multiplexer fanning the factory's sequence out to k consumers.
// It panics if k < 1.
func New[T any](k int, factory Factory[T], opts ...Option[T]) *Multiplexer[T] {
	if k < 1 {
		panic("mux: consumer count must be positive")
	}
	m := &Multiplexer[T]{
		factory: factory,
		quit:    make(chan struct{}),
	}
	for i := 0; i < k; i++ {
		m.consumers = append(m.consumers, &Consumer[T]{
			ch:   make(chan T),
			done: make(chan struct{}),
		})
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Consumers returns the fan-out handles. The slice is fixed at construction.
func (m *Multiplexer[T]) Consumers() []*Consumer[T] {
	return m.consumers
}

// State returns the current lifecycle phase.
func (m *Multiplexer[T]) State() State {
	return State(m.state.Load())
}

// Err returns the producer's terminal error, if any. Valid once the
// multiplexer is closed.
func (m *Multiplexer[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Start launches the broadcast loop. Calling it more than once has no
// further effect; the producer is created exactly once.
func (m *Multiplexer[T]) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.closed {
		return
	}
	m.started = true
	m.state.Store(int32(StateRunning))

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.broadcast(ctx)
}

// Close forces immediate termination: the producer context is cancelled and
// every blocked consumer is released with end-of-sequence. Safe to call at
// any point, started or not.
func (m *Multiplexer[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.quit)
	started := m.started
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	if !started {
		// No broadcast loop will ever run; release waiters here.
		m.finish(nil)
	}
}

// finish transitions Draining -> Closed, recording the terminal error,
// stopping the producer, and releasing all consumer pulls with
// end-of-sequence.
func (m *Multiplexer[T]) finish(err error) {
	m.state.Store(int32(StateDraining))
	m.mu.Lock()
	if m.err == nil {
		m.err = err
	}
	cancel := m.cancel
	m.mu.Unlock()
	// A run can end with the producer still live, e.g. when every consumer
	// withdrew mid-sequence. Cancel so it never blocks on an orphaned send.
	if cancel != nil {
		cancel()
	}
	for _, c := range m.consumers {
		close(c.ch)
	}
	m.state.Store(int32(StateClosed))
}

// broadcast pulls one item at a time and delivers it to every active
// consumer before pulling the next. Delivery over unbuffered channels is the
// barrier: the pull for item i+1 cannot happen until every active consumer
// accepted item i.
func (m *Multiplexer[T]) broadcast(ctx context.Context) {
	src := m.factory(ctx)

	for {
		var item T
		var ok bool
		select {
		case <-m.quit:
			m.finish(nil)
			return
		case item, ok = <-src:
		}

		if !ok {
			m.finish(nil)
			return
		}

		if m.terminal != nil {
			if err := m.terminal(item); err != nil {
				m.finish(err)
				return
			}
		}

		delivered := false
		for _, c := range m.consumers {
			select {
			case c.ch <- item:
				delivered = true
			case <-c.done:
				// Consumer withdrew; drop it from the barrier.
			case <-m.quit:
				m.finish(nil)
				return
			}
		}
		if !delivered {
			// Every consumer has withdrawn; nobody is left to feed.
			m.finish(nil)
			return
		}
	}
}
