// Package common holds small helpers shared by the processing packages.
package common

import (
	"fmt"
	"time"
)

// Timer measures one pipeline stage.
type Timer struct {
	name     string
	start    time.Time
	duration time.Duration
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer starts a timer labelled with the stage name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records and returns the elapsed time. Calling Stop again extends the
// measurement to the new call.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// StopNs is Stop expressed in nanoseconds, the unit of the result timings.
func (t *Timer) StopNs() int64 {
	return t.Stop().Nanoseconds()
}

// Duration returns the time recorded by the last Stop.
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the stage name, empty for unnamed timers.
func (t *Timer) Name() string {
	return t.name
}

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}
