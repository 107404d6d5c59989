package speed

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	// SampleInterval is the minimum wall time between two recorded samples.
	SampleInterval = 200 * time.Millisecond
	// WindowSize is how many instantaneous rates the moving average keeps.
	WindowSize = 10

	kib = 1024
	mib = 1024 * 1024
)

// Tracker turns cumulative byte counts into a moving-average throughput.
// It is safe for concurrent use.
type Tracker struct {
	mu  sync.Mutex
	now func() time.Time

	total int64

	started    bool
	lastAt     time.Time
	lastBytes  int64
	downloaded int64

	rates [WindowSize]float64
	count int
	next  int
}

// NewTracker creates a tracker for an artifact of total bytes.
// A total of zero or less means the size is unknown.
func NewTracker(total int64) *Tracker {
	return &Tracker{total: total, now: time.Now}
}

// NewTrackerWithClock is NewTracker with an injected clock.
func NewTrackerWithClock(total int64, now func() time.Time) *Tracker {
	return &Tracker{total: total, now: now}
}

// SetTotal updates the expected size once it becomes known.
func (t *Tracker) SetTotal(total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
}

// OnBytes records the cumulative downloaded count. It returns true when a
// new sample was taken, which happens at most once per SampleInterval.
func (t *Tracker) OnBytes(cumulative int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.downloaded = cumulative

	if !t.started {
		t.started = true
		t.lastAt = now
		t.lastBytes = cumulative

		return false
	}

	elapsed := now.Sub(t.lastAt)
	if elapsed < SampleInterval {
		return false
	}

	rate := float64(cumulative-t.lastBytes) / float64(elapsed.Milliseconds()) * 1000
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = 0
	}

	t.rates[t.next] = rate
	t.next = (t.next + 1) % WindowSize

	if t.count < WindowSize {
		t.count++
	}

	t.lastAt = now
	t.lastBytes = cumulative

	return true
}

// CurrentSpeed returns the mean of the recent samples in bytes per second.
func (t *Tracker) CurrentSpeed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.currentSpeed()
}

func (t *Tracker) currentSpeed() float64 {
	if t.count == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < t.count; i++ {
		sum += t.rates[i]
	}

	return sum / float64(t.count)
}

// ETA returns the remaining time. ok is false when the speed is not positive
// or the total size is unknown.
func (t *Tracker) ETA() (eta time.Duration, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.currentSpeed()
	if s <= 0 || t.total <= 0 {
		return 0, false
	}

	remaining := t.total - t.downloaded
	if remaining < 0 {
		remaining = 0
	}

	return time.Duration(float64(remaining) / s * float64(time.Second)), true
}

// Reset drops all samples, keeping the total.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.started = false
	t.count = 0
	t.next = 0
	t.downloaded = 0
}

// FormatSpeed renders bytes per second with one decimal.
func FormatSpeed(bps float64) string {
	switch {
	case bps < kib:
		return fmt.Sprintf("%.1f B/s", bps)
	case bps < mib:
		return fmt.Sprintf("%.1f KB/s", bps/kib)
	default:
		return fmt.Sprintf("%.1f MB/s", bps/mib)
	}
}

// FormatETA renders a remaining duration, or "unknown" when ok is false.
func FormatETA(eta time.Duration, ok bool) string {
	if !ok {
		return "unknown"
	}

	secs := math.Ceil(eta.Seconds())

	switch {
	case secs < 60:
		return fmt.Sprintf("%d 秒", int(secs))
	case secs < 3600:
		return fmt.Sprintf("%d 分钟", int(math.Ceil(secs/60)))
	default:
		return fmt.Sprintf("%.1f 小时", secs/3600)
	}
}
