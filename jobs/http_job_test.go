package jobs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cronforge/quartzcore/core"
)

func TestHTTPJobSucceedsOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	job, err := NewHTTPJobFromDetail(&core.JobDetail{
		Key:      core.NewJobKey("job1", ""),
		JobClass: "http",
		DataMap:  core.JobDataMap{"url": srv.URL, "method": "GET"},
	})
	if err != nil {
		t.Fatalf("NewHTTPJobFromDetail: %v", err)
	}
	result := job.Execute(fireContext(t))
	if result.Err != nil {
		t.Fatalf("Execute: %v", result.Err)
	}
}

func TestHTTPJobFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	job, err := NewHTTPJobFromDetail(&core.JobDetail{
		Key:      core.NewJobKey("job1", ""),
		JobClass: "http",
		DataMap:  core.JobDataMap{"url": srv.URL},
	})
	if err != nil {
		t.Fatalf("NewHTTPJobFromDetail: %v", err)
	}
	result := job.Execute(fireContext(t))
	if result.Err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestHTTPJobRejectsMissingURL(t *testing.T) {
	_, err := NewHTTPJobFromDetail(&core.JobDetail{
		Key:      core.NewJobKey("job1", ""),
		JobClass: "http",
	})
	if err == nil {
		t.Fatal("expected an error for a missing url")
	}
}
