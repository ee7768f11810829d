package jobs

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cronforge/quartzcore/core"
)

// defaultHTTPJobTimeout bounds a single firing when the job data map does
// not specify "timeoutSeconds".
const defaultHTTPJobTimeout = 30 * time.Second

var sharedHTTPClient = &http.Client{
	Timeout: 5 * time.Minute,
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
	CheckRedirect: func(_ *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return fmt.Errorf("stopped after 10 redirects")
		}
		return nil
	},
}

// HTTPJob fires an HTTP request (spec.md job-data keys: "url", "method",
// "body", "headers", "timeoutSeconds"). A non-2xx response is treated as a
// job failure.
type HTTPJob struct {
	Method  string
	URL     string
	Body    string
	Headers map[string]string
	Timeout time.Duration
}

// NewHTTPJobFromDetail builds an HTTPJob from a JobDetail's data map.
func NewHTTPJobFromDetail(detail *core.JobDetail) (core.Job, error) {
	url, ok := detail.DataMap.String("url")
	if !ok || url == "" {
		return nil, fmt.Errorf("%w: http job %s missing \"url\"", core.ErrInvalidConfiguration, detail.Key)
	}
	method, ok := detail.DataMap.String("method")
	if !ok || method == "" {
		method = http.MethodGet
	}
	body, _ := detail.DataMap.String("body")

	timeout := defaultHTTPJobTimeout
	if raw, ok := detail.DataMap["timeoutSeconds"]; ok {
		switch v := raw.(type) {
		case int:
			timeout = time.Duration(v) * time.Second
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				timeout = time.Duration(n) * time.Second
			}
		}
	}

	headers := map[string]string{}
	if raw, ok := detail.DataMap["headers"]; ok {
		if m, ok := raw.(map[string]string); ok {
			headers = m
		}
	}

	return &HTTPJob{Method: strings.ToUpper(method), URL: url, Body: body, Headers: headers, Timeout: timeout}, nil
}

// Execute implements core.Job.
func (j *HTTPJob) Execute(fctx *core.FireContext) core.JobResult {
	parent := fctx.RuntimeContext
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, j.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if j.Body != "" {
		bodyReader = strings.NewReader(j.Body)
	}

	req, err := http.NewRequestWithContext(ctx, j.Method, j.URL, bodyReader)
	if err != nil {
		return core.JobResult{Instruction: core.NoopInstruction, Err: fmt.Errorf("build request: %w", err)}
	}
	for k, v := range j.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("X-Trigger-Key", fctx.TriggerKey.String())
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return core.JobResult{Instruction: core.NoopInstruction, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return core.JobResult{Instruction: core.NoopInstruction, Err: fmt.Errorf("http job %s: status %d", fctx.TriggerKey, resp.StatusCode)}
	}
	return core.JobResult{Instruction: core.NoopInstruction}
}

var _ core.Job = (*HTTPJob)(nil)
