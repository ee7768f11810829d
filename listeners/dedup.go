// Package listeners provides concrete core.TriggerListener/JobListener/
// SchedulerListener implementations: structured logging, failure
// notification over webhook and email, and notification deduplication.
package listeners

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/cronforge/quartzcore/core"
)

// NotificationDedup suppresses repeat failure notifications for the same
// trigger/error pair within a cooldown window, so a trigger that fails on
// every tick doesn't spam a webhook or mailbox.
type NotificationDedup struct {
	cooldown time.Duration
	mu       sync.Mutex
	entries  map[string]time.Time
}

// NewNotificationDedup returns a deduplicator with the given cooldown. A
// zero cooldown disables deduplication: ShouldNotify always returns true.
func NewNotificationDedup(cooldown time.Duration) *NotificationDedup {
	return &NotificationDedup{cooldown: cooldown, entries: make(map[string]time.Time)}
}

// ShouldNotify reports whether a notification for this firing should be
// sent. Successful firings are never deduplicated; only failures are
// tracked, keyed on trigger key and error text.
func (d *NotificationDedup) ShouldNotify(fctx *core.FireContext, err error) bool {
	if d.cooldown == 0 || err == nil {
		return true
	}

	key := d.key(fctx, err)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	last, ok := d.entries[key]
	if !ok || now.Sub(last) >= d.cooldown {
		d.entries[key] = now
		return true
	}
	return false
}

func (d *NotificationDedup) key(fctx *core.FireContext, err error) string {
	h := sha256.New()
	h.Write([]byte(fctx.TriggerKey.String()))
	if fctx.JobDetail != nil {
		h.Write([]byte(fctx.JobDetail.Key.String()))
	}
	h.Write([]byte(err.Error()))
	return hex.EncodeToString(h.Sum(nil))
}

// Cleanup drops entries older than the cooldown. Call it periodically
// from a background goroutine to bound the map's growth for
// long-running schedulers with many distinct failing triggers.
func (d *NotificationDedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	for key, last := range d.entries {
		if now.Sub(last) >= d.cooldown {
			delete(d.entries, key)
		}
	}
}

// Len reports the number of tracked keys, useful in tests.
func (d *NotificationDedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
