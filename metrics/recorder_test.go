package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cronforge/quartzcore/core"
)

func TestRecorderCountsJobOutcomes(t *testing.T) {
	r := NewRecorder()

	fctx := &core.FireContext{
		TriggerKey:        core.NewTriggerKey("trig1", ""),
		ScheduledFireTime: time.Now().Add(-time.Second),
		FireTime:          time.Now(),
	}
	r.JobToBeExecuted(fctx)
	r.JobWasExecuted(fctx, core.JobResult{})

	r.JobToBeExecuted(fctx)
	r.JobWasExecuted(fctx, core.JobResult{Err: errors.New("boom")})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `quartzcore_jobs_completed_total{outcome="success"} 1`) {
		t.Fatalf("expected a success counter of 1, got:\n%s", body)
	}
	if !strings.Contains(body, `quartzcore_jobs_completed_total{outcome="failure"} 1`) {
		t.Fatalf("expected a failure counter of 1, got:\n%s", body)
	}
}

func TestRecorderTracksTriggerMisfires(t *testing.T) {
	r := NewRecorder()

	trig := core.NewSimpleTrigger(core.NewTriggerKey("trig1", ""), core.NewJobKey("job1", ""), time.Now())
	r.TriggerMisfired(trig)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `quartzcore_misfires_handled_total{kind="simple"} 1`) {
		t.Fatalf("expected a simple-trigger misfire counter of 1, got:\n%s", body)
	}
}

func TestRecorderIsolatedAcrossInstances(t *testing.T) {
	if NewRecorder() == nil || NewRecorder() == nil {
		t.Fatal("expected independent Recorders to construct without panicking")
	}
}
