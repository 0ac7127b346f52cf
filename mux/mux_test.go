/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mux

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceFactory produces the given items and counts invocations and pulls.
type sliceFactory struct {
	items   []int
	invoked atomic.Int32
	pulled  atomic.Int32
}

func (f *sliceFactory) factory(ctx context.Context) <-chan int {
	f.invoked.Add(1)
	ch := make(chan int)
	go func() {
		defer close(ch)
		for _, v := range f.items {
			select {
			case ch <- v:
				f.pulled.Add(1)
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func collect(c *Consumer[int]) []int {
	var out []int
	for v := range c.C() {
		out = append(out, v)
	}
	return out
}

func TestAllConsumersSeeSameSequence(t *testing.T) {
	src := &sliceFactory{items: []int{1, 2, 3}}
	m := New(3, src.factory)
	consumers := m.Consumers()
	m.Start()

	var wg sync.WaitGroup
	results := make([][]int, len(consumers))
	for i, c := range consumers {
		wg.Add(1)
		go func(i int, c *Consumer[int]) {
			defer wg.Done()
			results[i] = collect(c)
		}(i, c)
	}
	wg.Wait()

	for i, got := range results {
		require.Equal(t, []int{1, 2, 3}, got, "consumer %d", i)
	}
	require.NoError(t, m.Err())
	require.Equal(t, StateClosed, m.State())
}

func TestStartIsIdempotent(t *testing.T) {
	src := &sliceFactory{items: []int{1}}
	m := New(1, src.factory)
	m.Start()
	m.Start()
	m.Start()

	require.Equal(t, []int{1}, collect(m.Consumers()[0]))
	require.Equal(t, int32(1), src.invoked.Load(), "producer must be created exactly once")
}

func TestSlowConsumerGatesProducer(t *testing.T) {
	src := &sliceFactory{items: []int{1, 2, 3, 4, 5}}
	m := New(2, src.factory)
	consumers := m.Consumers()
	m.Start()

	// Fast consumer drains eagerly; the other accepts one item and stalls.
	fastCount := atomic.Int32{}
	go func() {
		for range consumers[0].C() {
			fastCount.Add(1)
		}
	}()
	<-consumers[1].C() // item 1 only

	time.Sleep(100 * time.Millisecond)

	// Item 1 reached both; item 2 may be pulled and delivered to the fast
	// consumer, but the pull of item 3 must be blocked on the stalled one.
	require.LessOrEqual(t, src.pulled.Load(), int32(2), "producer ran ahead of the slowest consumer")
	require.LessOrEqual(t, fastCount.Load(), int32(2))

	m.Close()
}

func TestConsumerCloseDoesNotStallOthers(t *testing.T) {
	src := &sliceFactory{items: []int{1, 2, 3, 4}}
	m := New(2, src.factory)
	consumers := m.Consumers()
	m.Start()

	// Second consumer takes one item and withdraws.
	go func() {
		<-consumers[1].C()
		consumers[1].Close()
	}()

	got := collect(consumers[0])
	require.Equal(t, []int{1, 2, 3, 4}, got, "remaining consumer must see the full sequence")
	require.NoError(t, m.Err())
}

func TestAllConsumersWithdrawnStopsProducer(t *testing.T) {
	// An endless producer that only stops when its context is cancelled.
	stopped := make(chan struct{})
	endless := func(ctx context.Context) <-chan int {
		ch := make(chan int)
		go func() {
			defer close(stopped)
			defer close(ch)
			for i := 0; ; i++ {
				select {
				case ch <- i:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch
	}

	m := New(2, endless)
	consumers := m.Consumers()
	m.Start()

	<-consumers[0].C()
	<-consumers[1].C()
	consumers[0].Close()
	consumers[1].Close()

	// With nobody left in the barrier the run ends, and the producer must be
	// cancelled rather than left blocked on an orphaned send.
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("producer still running after every consumer withdrew")
	}
	require.Eventually(t, func() bool { return m.State() == StateClosed }, time.Second, 10*time.Millisecond)
	require.NoError(t, m.Err())
}

func TestProducerErrorVisibleOnControllerOnly(t *testing.T) {
	boom := errors.New("segment failed")
	factory := func(ctx context.Context) <-chan int {
		ch := make(chan int)
		go func() {
			defer close(ch)
			ch <- 1
			ch <- -1 // terminal marker
		}()
		return ch
	}

	m := New(2, factory, WithTerminal(func(v int) error {
		if v < 0 {
			return boom
		}
		return nil
	}))
	consumers := m.Consumers()
	m.Start()

	var wg sync.WaitGroup
	results := make([][]int, 2)
	for i, c := range consumers {
		wg.Add(1)
		go func(i int, c *Consumer[int]) {
			defer wg.Done()
			results[i] = collect(c)
		}(i, c)
	}
	wg.Wait()

	// Consumers saw only the good item and a clean end-of-sequence.
	require.Equal(t, []int{1}, results[0])
	require.Equal(t, []int{1}, results[1])
	require.ErrorIs(t, m.Err(), boom)
}

func TestCloseReleasesWaiters(t *testing.T) {
	blocked := func(ctx context.Context) <-chan int {
		ch := make(chan int)
		go func() {
			<-ctx.Done()
			close(ch)
		}()
		return ch
	}

	m := New(2, blocked)
	consumers := m.Consumers()
	m.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		collect(consumers[0])
		collect(consumers[1])
	}()

	m.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not release blocked consumers")
	}
	require.Equal(t, StateClosed, m.State())
}

func TestCloseBeforeStart(t *testing.T) {
	src := &sliceFactory{items: []int{1}}
	m := New(1, src.factory)
	m.Close()

	require.Equal(t, []int(nil), collect(m.Consumers()[0]))
	require.Equal(t, int32(0), src.invoked.Load())
	require.Equal(t, StateClosed, m.State())
}

func TestLockstepBound(t *testing.T) {
	const n = 50
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	src := &sliceFactory{items: items}
	m := New(2, src.factory)
	consumers := m.Consumers()
	m.Start()

	var c0, c1 atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range consumers[0].C() {
			c0.Add(1)
			// The pull counter may run one item ahead of the slowest
			// consumer, never more.
			assert.LessOrEqual(t, src.pulled.Load()-c1.Load(), int32(2))
		}
	}()
	go func() {
		defer wg.Done()
		for range consumers[1].C() {
			c1.Add(1)
			time.Sleep(time.Millisecond)
		}
	}()
	wg.Wait()

	require.Equal(t, int32(n), c0.Load())
	require.Equal(t, int32(n), c1.Load())
}
