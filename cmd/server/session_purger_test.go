package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls atomic.Int64
}

func (c *countingPurger) PurgeExpired() error {
	c.calls.Add(1)
	return nil
}

type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time {
	return m.ch
}

func (m *manualTicker) Stop() {
	m.stopped.Store(true)
}

func TestSessionPurgeWorkerRunsOnTicks(t *testing.T) {
	purger := &countingPurger{}
	ticker := &manualTicker{ch: make(chan time.Time)}

	stop := startSessionPurgeWorkerWithTicker(context.Background(), nil, purger, time.Minute, func(time.Duration) purgeTicker {
		return ticker
	})

	ticker.ch <- time.Now()
	ticker.ch <- time.Now()
	stop()

	if got := purger.calls.Load(); got != 2 {
		t.Fatalf("expected 2 purge calls, got %d", got)
	}
	if !ticker.stopped.Load() {
		t.Fatalf("expected ticker to be stopped")
	}
}

func TestSessionPurgeWorkerStopIsIdempotent(t *testing.T) {
	purger := &countingPurger{}
	ticker := &manualTicker{ch: make(chan time.Time)}

	stop := startSessionPurgeWorkerWithTicker(context.Background(), nil, purger, time.Minute, func(time.Duration) purgeTicker {
		return ticker
	})
	stop()
	stop()
}

func TestSessionPurgeWorkerDisabled(t *testing.T) {
	stop := startSessionPurgeWorkerWithTicker(context.Background(), nil, nil, time.Minute, nil)
	stop()

	stop = startSessionPurgeWorkerWithTicker(context.Background(), nil, &countingPurger{}, 0, nil)
	stop()
}
