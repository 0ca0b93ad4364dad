package internal

import (
	"fmt"
	"time"
)

// Timer measures elapsed wall time for reporting
type Timer struct {
	now   func() time.Time
	start time.Time
	end   time.Time
}

// NewTimer creates a timer reading the given clock (time.Now when nil)
func NewTimer(now func() time.Time) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{now: now}
}

// Start (re)starts the timer
func (t *Timer) Start() {
	t.start = t.now()
	t.end = time.Time{}
}

// Stop freezes the elapsed time
func (t *Timer) Stop() {
	t.end = t.now()
}

// Elapsed returns the time since Start, up to Stop if the timer was stopped
func (t *Timer) Elapsed() time.Duration {
	if t.start.IsZero() {
		return 0
	}
	end := t.end
	if end.IsZero() {
		end = t.now()
	}
	return end.Sub(t.start)
}

// String formats the elapsed time
func (t *Timer) String() string {
	return FormatElapsed(t.Elapsed())
}

// FormatElapsed renders durations as 12.3s, 4m 5s or 1h 2m 3s
func FormatElapsed(d time.Duration) string {
	secs := d.Seconds()
	switch {
	case secs < 60:
		return fmt.Sprintf("%.1fs", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds", int(secs)/60, int(secs)%60)
	default:
		total := int(secs)
		return fmt.Sprintf("%dh %dm %ds", total/3600, total%3600/60, total%60)
	}
}

// FormatUntil renders the time left before a fire time
func FormatUntil(d time.Duration) string {
	secs := int(d.Seconds())
	switch {
	case d < 0:
		return "Now"
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%dh %dm", secs/3600, secs%3600/60)
	default:
		return fmt.Sprintf("%dd %dh", secs/86400, secs%86400/3600)
	}
}
