package listeners

import (
	"errors"
	"testing"
	"time"

	"github.com/cronforge/quartzcore/core"
)

func TestNotificationDedupSuppressesWithinCooldown(t *testing.T) {
	d := NewNotificationDedup(time.Hour)
	fctx := &core.FireContext{TriggerKey: core.NewTriggerKey("trig1", "")}
	err := errors.New("boom")

	if !d.ShouldNotify(fctx, err) {
		t.Fatal("expected the first notification to be allowed")
	}
	if d.ShouldNotify(fctx, err) {
		t.Fatal("expected the second notification within cooldown to be suppressed")
	}
}

func TestNotificationDedupAlwaysAllowsSuccess(t *testing.T) {
	d := NewNotificationDedup(time.Hour)
	fctx := &core.FireContext{TriggerKey: core.NewTriggerKey("trig1", "")}
	if !d.ShouldNotify(fctx, nil) {
		t.Fatal("expected success to never be deduplicated")
	}
	if !d.ShouldNotify(fctx, nil) {
		t.Fatal("expected success to never be deduplicated")
	}
}

func TestNotificationDedupDisabledWithZeroCooldown(t *testing.T) {
	d := NewNotificationDedup(0)
	fctx := &core.FireContext{TriggerKey: core.NewTriggerKey("trig1", "")}
	err := errors.New("boom")
	if !d.ShouldNotify(fctx, err) || !d.ShouldNotify(fctx, err) {
		t.Fatal("expected a zero cooldown to disable deduplication entirely")
	}
}
