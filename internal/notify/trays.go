package notify

import (
	"sync"
	"time"
)

type trayEntry struct {
	toast Toast
	timer *time.Timer
}

// Trays keeps the visible toasts of each audience. A toast leaves its tray
// when its duration elapses or it is dismissed.
type Trays struct {
	mu    sync.Mutex
	trays map[string][]*trayEntry
}

func NewTrays() *Trays {
	return &Trays{trays: make(map[string][]*trayEntry)}
}

// Add is a Handler; subscribe it to a Registry.
func (t *Trays) Add(toast Toast) {
	e := &trayEntry{toast: toast}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.trays[toast.Audience] = append(t.trays[toast.Audience], e)
	e.timer = time.AfterFunc(toast.Duration, func() {
		t.remove(toast.Audience, toast.ID)
	})
}

// Visible returns the toasts currently shown to audience, oldest first.
func (t *Trays) Visible(audience string) []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries := t.trays[audience]
	out := make([]Toast, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.toast)
	}
	return out
}

// Dismiss removes a toast early. It reports whether the toast was visible.
func (t *Trays) Dismiss(audience, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.take(audience, id)
	if e == nil {
		return false
	}
	e.timer.Stop()
	return true
}

// Close stops all pending expiry timers.
func (t *Trays) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for audience, entries := range t.trays {
		for _, e := range entries {
			e.timer.Stop()
		}
		delete(t.trays, audience)
	}
}

func (t *Trays) remove(audience, id string) {
	t.mu.Lock()
	t.take(audience, id)
	t.mu.Unlock()
}

// take unlinks a toast. Callers hold t.mu.
func (t *Trays) take(audience, id string) *trayEntry {
	entries := t.trays[audience]
	for i, e := range entries {
		if e.toast.ID != id {
			continue
		}
		entries = append(entries[:i:i], entries[i+1:]...)
		if len(entries) == 0 {
			delete(t.trays, audience)
		} else {
			t.trays[audience] = entries
		}
		return e
	}
	return nil
}
