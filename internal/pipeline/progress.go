package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives progress events from ProcessImagesParallel.
// Calls are serialized by the caller.
type ProgressCallback interface {
	OnStart(total int)
	// OnProgress is called after every finished image, successful or not.
	OnProgress(current, total int)
	OnComplete()
	OnError(current int, err error)
}

// NoOpProgressCallback discards all events.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()         {}
func (NoOpProgressCallback) OnError(int, error)  {}

// ConsoleProgressCallback redraws a single-line progress bar.
type ConsoleProgressCallback struct {
	mu       sync.Mutex
	w        io.Writer
	prefix   string
	width    int
	interval time.Duration
	started  time.Time
	drawn    time.Time
}

// NewConsoleProgressCallback writes to w, or stderr when w is nil.
func NewConsoleProgressCallback(w io.Writer, prefix string) *ConsoleProgressCallback {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgressCallback{w: w, prefix: prefix, width: 40, interval: 100 * time.Millisecond}
}

// WithWidth sets the bar width in characters.
func (c *ConsoleProgressCallback) WithWidth(width int) *ConsoleProgressCallback {
	if width > 0 {
		c.width = width
	}
	return c
}

// WithUpdateInterval sets the minimum time between redraws. The last image
// always redraws.
func (c *ConsoleProgressCallback) WithUpdateInterval(interval time.Duration) *ConsoleProgressCallback {
	c.interval = interval
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = time.Now()
	c.drawn = time.Time{}
	_, _ = fmt.Fprintf(c.w, "%s0/%d (0.0%%)\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if total <= 0 || (current < total && now.Sub(c.drawn) < c.interval) {
		return
	}
	c.drawn = now
	_, _ = io.WriteString(c.w, "\r"+c.line(current, total, now.Sub(c.started)))
}

func (c *ConsoleProgressCallback) line(current, total int, elapsed time.Duration) string {
	done := min(c.width*current/total, c.width)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%s%s] %d/%d (%.1f%%)", c.prefix,
		strings.Repeat("#", done), strings.Repeat(".", c.width-done),
		current, total, 100*float64(current)/float64(total))
	if current > 0 && elapsed > 0 {
		fmt.Fprintf(&sb, " %.1f/s", float64(current)/elapsed.Seconds())
	}
	return sb.String()
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sCompleted in %v\n", c.prefix, time.Since(c.started).Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(current int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sError at item %d: %v\n", c.prefix, current, err)
}

// LogProgressCallback reports progress through slog at a fixed level.
// Errors are always logged at error level.
type LogProgressCallback struct {
	mu       sync.Mutex
	logger   *slog.Logger
	level    slog.Level
	interval int
	logged   int
	started  time.Time
}

// NewLogProgressCallback logs every interval images and on the last one.
// A nil logger means slog.Default and a non-positive interval means 10.
func NewLogProgressCallback(logger *slog.Logger, level slog.Level, interval int) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10
	}
	return &LogProgressCallback{logger: logger, level: level, interval: interval}
}

func (l *LogProgressCallback) OnStart(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = time.Now()
	l.logged = 0
	l.logger.Log(context.Background(), l.level, "Starting processing", "total", total)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current != total && current-l.logged < l.interval {
		return
	}
	l.logged = current
	l.logger.Log(context.Background(), l.level, "Progress update",
		"current", current, "total", total, "elapsed", time.Since(l.started).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnComplete() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Log(context.Background(), l.level, "Processing completed",
		"elapsed", time.Since(l.started).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(current int, err error) {
	l.logger.Error("Processing error", "current", current, "error", err)
}
