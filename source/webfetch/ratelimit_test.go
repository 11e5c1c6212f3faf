package webfetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	clock := NewManualClock(testEpoch)
	l := NewRateLimiter(clock)

	for i := 0; i < DefaultRateLimit; i++ {
		require.NoError(t, l.Check("example.com"), "request %d", i+1)
		l.Record("example.com")
	}

	err := l.Check("example.com")
	require.Error(t, err)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "example.com", rlErr.Host)
	assert.Equal(t, testEpoch.Add(DefaultRateWindow), rlErr.ResetAt)

	assert.NoError(t, l.Check("example.org"), "hosts are limited independently")

	clock.Advance(DefaultRateWindow - time.Millisecond)
	assert.Error(t, l.Check("example.com"))

	clock.Advance(time.Millisecond)
	assert.NoError(t, l.Check("example.com"), "window reset")
}

func TestRateLimiter_CheckDoesNotConsume(t *testing.T) {
	l := NewRateLimiter(NewManualClock(testEpoch))
	for i := 0; i < 3*DefaultRateLimit; i++ {
		require.NoError(t, l.Check("example.com"))
	}
}

func TestRateLimiter_RecordWithoutCheck(t *testing.T) {
	clock := NewManualClock(testEpoch)
	l := NewRateLimiter(clock)
	for i := 0; i < DefaultRateLimit; i++ {
		l.Record("example.com")
	}
	assert.Error(t, l.Check("example.com"))
}

func TestRateLimiter_Prune(t *testing.T) {
	clock := NewManualClock(testEpoch)
	l := NewRateLimiter(clock)
	require.NoError(t, l.Check("a.example"))
	clock.Advance(30 * time.Second)
	require.NoError(t, l.Check("b.example"))

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, l.Prune())
	assert.Equal(t, 1, l.Len())
}
