package services

import (
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

// noteDebouncer coalesces journal note edits. Only the last entry scheduled
// within the quiet period is saved.
type noteDebouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending *domain.JournalEntry
	save    func(entry domain.JournalEntry)
	work    *workTracker
}

func newNoteDebouncer(delay time.Duration, work *workTracker, save func(entry domain.JournalEntry)) *noteDebouncer {
	return &noteDebouncer{delay: delay, work: work, save: save}
}

// Schedule restarts the quiet period with entry. A pending entry of another
// day is handed to save first.
func (n *noteDebouncer) Schedule(entry domain.JournalEntry) {
	n.mu.Lock()
	var other *domain.JournalEntry
	if n.pending != nil && n.pending.Date != entry.Date {
		other = n.pending
		n.pending = nil
	}
	if n.pending == nil {
		n.work.add()
	}
	snapshot := entry.Clone()
	n.pending = &snapshot

	if n.timer == nil {
		n.timer = time.AfterFunc(n.delay, n.fire)
	} else {
		n.timer.Reset(n.delay)
	}
	n.mu.Unlock()

	if other != nil {
		n.save(*other)
		n.work.done()
	}
}

func (n *noteDebouncer) fire() {
	n.mu.Lock()
	entry := n.pending
	n.pending = nil
	n.mu.Unlock()

	if entry == nil {
		return
	}
	n.save(*entry)
	n.work.done()
}

// Flush hands a pending note to save right away.
func (n *noteDebouncer) Flush() {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	entry := n.pending
	n.pending = nil
	n.mu.Unlock()

	if entry == nil {
		return
	}
	n.save(*entry)
	n.work.done()
}
