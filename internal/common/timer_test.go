package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	timer := NewNamedTimer("gradient")
	assert.Equal(t, "gradient", timer.Name())

	time.Sleep(5 * time.Millisecond)

	d := timer.Stop()
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
	assert.Equal(t, d, timer.Duration())
	assert.Contains(t, timer.String(), "gradient: ")
}

func TestTimer_Unnamed(t *testing.T) {
	timer := NewTimer()
	assert.Empty(t, timer.Name())
	assert.Zero(t, timer.Duration())

	ns := timer.StopNs()
	assert.GreaterOrEqual(t, ns, int64(0))
	assert.Equal(t, timer.Duration().String(), timer.String())
}
