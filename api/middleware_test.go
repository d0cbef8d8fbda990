package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestClientLimiter_EvictsIdleClients(t *testing.T) {
	// GIVEN: A limiter with a controllable clock and two clients
	clock := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	l := NewClientLimiter(rate.Limit(1), 1)
	l.now = func() time.Time { return clock }
	l.lastSweep = clock

	first := l.Get("10.0.0.1")
	l.Get("10.0.0.2")
	assert.Equal(t, 2, l.Len())

	// WHEN: Only one client keeps calling past the idle period
	clock = clock.Add(DefaultLimiterIdle / 2)
	assert.Same(t, first, l.Get("10.0.0.1"))
	clock = clock.Add(DefaultLimiterIdle / 2)
	l.Get("10.0.0.1")

	// THEN: The silent client is dropped, the active one keeps its bucket
	assert.Equal(t, 1, l.Len())
	assert.Same(t, first, l.Get("10.0.0.1"))
}

func TestClientLimiter_SameKeySameBucket(t *testing.T) {
	l := NewClientLimiter(rate.Limit(1), 1)

	assert.True(t, l.Get("10.0.0.1").Allow())
	assert.False(t, l.Get("10.0.0.1").Allow())
	assert.True(t, l.Get("10.0.0.2").Allow())
}
