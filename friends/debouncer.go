package friends

import (
	"sync"
	"time"
	"unicode/utf8"
)

const (
	DefaultSearchDelay     = time.Second
	DefaultSearchMinLength = 3
)

// Debouncer fires a search once the query has been quiet for delay.
// Every Update cancels the search scheduled by the previous one.
type Debouncer struct {
	delay     time.Duration
	minLength int
	fire      func(query string)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	stopped bool
}

func NewDebouncer(delay time.Duration, minLength int, fire func(query string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	if minLength <= 0 {
		minLength = DefaultSearchMinLength
	}
	return &Debouncer{
		delay:     delay,
		minLength: minLength,
		fire:      fire,
	}
}

// Update records a new query and reports whether a search was scheduled.
// Queries shorter than the minimum length (in runes) only cancel.
func (d *Debouncer) Update(query string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	if !d.acceptsLocked(query) {
		return false
	}

	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// a timer that lost the race with Stop still sees a newer seq
		current := seq == d.seq && !d.stopped
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			d.fire(query)
		}
	})
	return true
}

// Accepts reports whether Update(query) would schedule a search.
func (d *Debouncer) Accepts(query string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acceptsLocked(query)
}

func (d *Debouncer) acceptsLocked(query string) bool {
	return !d.stopped && utf8.RuneCountInString(query) >= d.minLength
}

// Cancel drops the scheduled search, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.cancelLocked()
	d.mu.Unlock()
}

// Pending reports whether a search is scheduled and has not fired.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels and disables the debouncer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.cancelLocked()
	d.stopped = true
	d.mu.Unlock()
}

func (d *Debouncer) cancelLocked() {
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
