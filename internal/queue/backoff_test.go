package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{60, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(time.Second, 10*time.Second, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoff_NonDecreasing(t *testing.T) {
	configs := []struct{ base, max time.Duration }{
		{time.Millisecond, time.Second},
		{3 * time.Second, 7 * time.Second},
		{time.Minute, time.Minute},
		{5 * time.Second, time.Second},
	}
	for _, c := range configs {
		prev := time.Duration(0)
		for attempt := 1; attempt <= 80; attempt++ {
			d := Backoff(c.base, c.max, attempt)
			assert.GreaterOrEqual(t, d, prev, "base=%s max=%s attempt=%d", c.base, c.max, attempt)
			assert.LessOrEqual(t, d, max(c.base, c.max))
			prev = d
		}
	}
}

func TestBackoff_ZeroBase(t *testing.T) {
	assert.Equal(t, time.Duration(0), Backoff(0, time.Second, 3))
}
