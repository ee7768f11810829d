package listeners

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cronforge/quartzcore/core"
)

func TestWebhookListenerSendsOnFailure(t *testing.T) {
	received := make(chan webhookPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	l, err := NewWebhookListener(WebhookConfig{URL: srv.URL, Policy: NotifyOnFailureOnly}, nil)
	if err != nil {
		t.Fatalf("NewWebhookListener: %v", err)
	}

	fctx := &core.FireContext{
		TriggerKey: core.NewTriggerKey("trig1", ""),
		JobDetail:  &core.JobDetail{Key: core.NewJobKey("job1", "")},
	}
	l.JobWasExecuted(fctx, core.JobResult{Err: errors.New("boom")})

	select {
	case p := <-received:
		if !p.Failed || p.Error != "boom" {
			t.Fatalf("unexpected payload: %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered in time")
	}
}

func TestWebhookListenerSkipsSuccessWhenFailureOnlyPolicy(t *testing.T) {
	called := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called <- struct{}{}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	l, err := NewWebhookListener(WebhookConfig{URL: srv.URL, Policy: NotifyOnFailureOnly}, nil)
	if err != nil {
		t.Fatalf("NewWebhookListener: %v", err)
	}
	fctx := &core.FireContext{TriggerKey: core.NewTriggerKey("trig1", ""), JobDetail: &core.JobDetail{Key: core.NewJobKey("job1", "")}}
	l.JobWasExecuted(fctx, core.JobResult{})

	select {
	case <-called:
		t.Fatal("expected no webhook delivery for a successful firing under NotifyOnFailureOnly")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewWebhookListenerRejectsInternalHost(t *testing.T) {
	if _, err := NewWebhookListener(WebhookConfig{URL: "http://169.254.169.254/latest/meta-data"}, nil); err == nil {
		t.Fatal("expected the metadata endpoint to be rejected")
	}
}

func TestNewWebhookListenerRejectsNonHTTPScheme(t *testing.T) {
	if _, err := NewWebhookListener(WebhookConfig{URL: "ftp://example.com"}, nil); err == nil {
		t.Fatal("expected a non-http(s) scheme to be rejected")
	}
}
