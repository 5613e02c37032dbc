package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock simula passagem de tempo sem dormir de verdade
type fakeClock struct {
	current time.Time
	slept   []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.current = c.current.Add(d)
	return nil
}

func newTestGovernor(interval time.Duration) (*Governor, *fakeClock) {
	clock := newFakeClock()
	g := NewGovernorWithInterval(interval)
	g.now = clock.now
	g.sleep = clock.sleep
	return g, clock
}

func TestNewGovernor_IntervalFromQuota(t *testing.T) {
	assert.Equal(t, 6*time.Second, NewGovernor(600).Interval())
	assert.Equal(t, time.Hour/100, NewGovernor(100).Interval())

	// Cota inválida cai no padrão de 600 req/h
	assert.Equal(t, 6*time.Second, NewGovernor(0).Interval())
	assert.Equal(t, 6*time.Second, NewGovernor(-1).Interval())
}

func TestGovernor_FirstCallDoesNotWait(t *testing.T) {
	g, clock := newTestGovernor(6 * time.Second)

	waited, err := g.Wait(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, time.Duration(0), waited)
	assert.Empty(t, clock.slept)
}

func TestGovernor_SecondCallWaitsRemainder(t *testing.T) {
	g, clock := newTestGovernor(6 * time.Second)

	_, err := g.Wait(context.Background())
	assert.NoError(t, err)

	// Dois segundos se passam entre as chamadas
	clock.current = clock.current.Add(2 * time.Second)

	waited, err := g.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 4*time.Second, waited)
	assert.Equal(t, []time.Duration{4 * time.Second}, clock.slept)
}

func TestGovernor_NoWaitAfterIntervalElapsed(t *testing.T) {
	g, clock := newTestGovernor(6 * time.Second)

	_, err := g.Wait(context.Background())
	assert.NoError(t, err)

	clock.current = clock.current.Add(10 * time.Second)

	waited, err := g.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, time.Duration(0), waited)
	assert.Empty(t, clock.slept)
}

func TestGovernor_ConsecutiveCallsAreSpaced(t *testing.T) {
	g, clock := newTestGovernor(6 * time.Second)

	var stamps []time.Time
	for i := 0; i < 4; i++ {
		_, err := g.Wait(context.Background())
		assert.NoError(t, err)
		stamps = append(stamps, clock.current)
	}

	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 6*time.Second)
	}
}

func TestGovernor_ContextCancelledDuringWait(t *testing.T) {
	g := NewGovernorWithInterval(1 * time.Hour)

	_, err := g.Wait(context.Background())
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
