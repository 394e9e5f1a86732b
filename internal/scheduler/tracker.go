package scheduler

import "sync"

type counters struct {
	errorCount      int
	alertSuppressed bool
}

// Tracker holds the consecutive failure count and alert suppression flag of
// every monitor it has seen.
type Tracker struct {
	mu       sync.Mutex
	counters map[uint]*counters
}

func NewTracker() *Tracker {
	return &Tracker{counters: make(map[uint]*counters)}
}

func (t *Tracker) get(id uint) *counters {
	c, ok := t.counters[id]
	if !ok {
		c = &counters{}
		t.counters[id] = c
	}
	return c
}

// Failure records a failing tick and reports whether an alert should fire.
// It fires once the count exceeds threshold, then stays quiet until Success.
// A threshold of zero never fires.
func (t *Tracker) Failure(id uint, threshold int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.get(id)
	c.errorCount++

	if threshold <= 0 || c.errorCount <= threshold {
		return false
	}

	c.errorCount = 0

	if c.alertSuppressed {
		return false
	}

	c.alertSuppressed = true
	return true
}

// Success resets the counters of id. It reports whether an alert had fired
// since the last success.
func (t *Tracker) Success(id uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.counters[id]
	if !ok {
		return false
	}

	recovered := c.alertSuppressed
	c.errorCount = 0
	c.alertSuppressed = false

	return recovered
}

func (t *Tracker) Forget(id uint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.counters, id)
}

// ErrorCount returns the current consecutive failure count of id.
func (t *Tracker) ErrorCount(id uint) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.counters[id]; ok {
		return c.errorCount
	}
	return 0
}
