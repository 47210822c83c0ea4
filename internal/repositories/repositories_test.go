package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextTimestampIsStrictlyIncreasing(t *testing.T) {
	last := time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC)

	got := NextTimestamp(last.Add(-time.Second), last)
	assert.True(t, got.After(last))
	assert.Equal(t, 0, got.Nanosecond()%1000)

	later := last.Add(time.Second)
	assert.Equal(t, later.Truncate(time.Microsecond), NextTimestamp(later, last))
}
