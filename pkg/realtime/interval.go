package realtime

import "time"

// Interval is a fixed-period schedule anchored at Start. Fired counts the
// periods already consumed, so late wakeups catch up instead of drifting.
type Interval struct {
	Start time.Time
	Every time.Duration
	Fired int
}

// NewInterval starts a schedule at now.
func NewInterval(now time.Time, every time.Duration) *Interval {
	return &Interval{Start: now, Every: every}
}

// NextWake is when the next period completes.
func (iv *Interval) NextWake() time.Time {
	return iv.Start.Add(time.Duration(iv.Fired+1) * iv.Every)
}

// Due consumes and returns the number of periods completed by now.
func (iv *Interval) Due(now time.Time) int {
	if iv.Every <= 0 || now.Before(iv.Start) {
		return 0
	}
	n := int(now.Sub(iv.Start)/iv.Every) - iv.Fired
	if n <= 0 {
		return 0
	}
	iv.Fired += n
	return n
}
