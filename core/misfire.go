package core

import (
	"context"
	"time"
)

// DefaultMisfireThreshold is how far behind its NextFireTime a trigger may
// fall before it is considered misfired (spec.md §4.3: "default 60s").
const DefaultMisfireThreshold = 60 * time.Second

// misfireHandler periodically scans the registry for triggers whose
// NextFireTime has slipped past now-threshold and applies each one's
// UpdateAfterMisfire, mirroring Quartz's MisfireHandler background thread
// (spec.md §7). The firing loop applies no misfire check of its own: a
// late trigger it acquires before a scan reaches it simply fires late.
// This handler catches triggers that were never acquired at all, e.g.
// because the scheduler was paused or briefly down.
type misfireHandler struct {
	registry  *Registry
	clock     Clock
	threshold time.Duration
	interval  time.Duration
	logger    Logger
	listeners *ListenerManager

	stop chan struct{}
	done chan struct{}
}

// newMisfireHandler builds a handler scanning every interval for triggers
// more than threshold late. A zero threshold defaults to
// DefaultMisfireThreshold; a zero interval defaults to the threshold
// itself (spec.md §4.6 "default equal to misfire threshold").
func newMisfireHandler(registry *Registry, clock Clock, listeners *ListenerManager, logger Logger, threshold, interval time.Duration) *misfireHandler {
	if threshold <= 0 {
		threshold = DefaultMisfireThreshold
	}
	if interval <= 0 {
		interval = threshold
	}
	return &misfireHandler{
		registry:  registry,
		clock:     clock,
		threshold: threshold,
		interval:  interval,
		logger:    logger,
		listeners: listeners,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (h *misfireHandler) start(ctx context.Context) {
	ticker := h.clock.NewTicker(h.interval)
	go func() {
		defer close(h.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stop:
				return
			case <-ticker.C():
				h.scan()
			}
		}
	}()
}

func (h *misfireHandler) Stop() {
	close(h.stop)
	<-h.done
}

// scan applies UpdateAfterMisfire to every NORMAL trigger whose
// NextFireTime is more than threshold in the past.
func (h *misfireHandler) scan() {
	now := h.clock.Now()

	h.registry.mu.Lock()
	type pending struct {
		trig Trigger
		cal  Calendar
	}
	var misfired []pending
	for _, e := range h.registry.triggers {
		if e.state != TriggerNormal {
			continue
		}
		nf, ok := e.trigger.NextFireTime()
		if !ok {
			continue
		}
		if now.Sub(nf) <= h.threshold {
			continue
		}
		var cal Calendar
		if e.trigger.CalendarName() != "" {
			cal = h.registry.calendars[e.trigger.CalendarName()]
		}
		misfired = append(misfired, pending{trig: e.trigger, cal: cal})
	}
	h.registry.mu.Unlock()

	for _, p := range misfired {
		p.trig.UpdateAfterMisfire(p.cal)
		if h.listeners != nil {
			h.listeners.fireTriggerMisfired(p.trig)
		}
		if h.logger != nil {
			h.logger.Warningf("misfired trigger %s, applied %v", p.trig.Key(), p.trig.MisfireInstruction())
		}
	}
}
