package listeners

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cronforge/quartzcore/core"
)

// NotifyPolicy controls which firing outcomes a WebhookListener reports.
type NotifyPolicy int

const (
	NotifyOnFailureOnly NotifyPolicy = iota
	NotifyAlways
)

// WebhookConfig configures a WebhookListener.
type WebhookConfig struct {
	URL        string
	Method     string
	Headers    map[string]string
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
	Policy     NotifyPolicy
	Dedup      *NotificationDedup
}

func (c *WebhookConfig) applyDefaults() {
	if c.Method == "" {
		c.Method = http.MethodPost
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
}

// WebhookListener posts a JSON payload describing a firing's outcome to an
// HTTP endpoint, with SSRF-hardened URL validation and retries spaced by a
// fixed RetryDelay (spec.md JobListener dispatch).
type WebhookListener struct {
	core.BaseJobListener
	cfg    WebhookConfig
	client *http.Client
	logger core.Logger
}

// NewWebhookListener validates cfg.URL up front and returns a listener
// ready to register with a ListenerManager.
func NewWebhookListener(cfg WebhookConfig, logger core.Logger) (*WebhookListener, error) {
	cfg.applyDefaults()
	if err := validateWebhookURL(cfg.URL); err != nil {
		return nil, fmt.Errorf("webhook listener: %w", err)
	}
	if logger == nil {
		logger = core.NewLogrusAdapter(nil)
	}
	return &WebhookListener{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: newSafeTransport()},
		logger: logger,
	}, nil
}

type webhookPayload struct {
	TriggerKey string    `json:"trigger_key"`
	JobKey     string    `json:"job_key,omitempty"`
	Failed     bool      `json:"failed"`
	Error      string    `json:"error,omitempty"`
	FireTime   time.Time `json:"fire_time"`
}

// JobWasExecuted implements core.JobListener. Unlike TriggerListener's
// TriggerComplete, JobWasExecuted carries the JobResult and thus the
// actual execution error, which is what a failure notification needs.
func (w *WebhookListener) JobWasExecuted(fctx *core.FireContext, result core.JobResult) {
	w.notify(fctx, result.Err)
}

func (w *WebhookListener) notify(fctx *core.FireContext, jobErr error) {
	if fctx == nil {
		return
	}
	if w.cfg.Policy == NotifyOnFailureOnly && jobErr == nil {
		return
	}
	if w.cfg.Dedup != nil && jobErr != nil && !w.cfg.Dedup.ShouldNotify(fctx, jobErr) {
		w.logger.Debugf("webhook: notification for %s suppressed (duplicate within cooldown)", fctx.TriggerKey)
		return
	}

	payload := webhookPayload{
		TriggerKey: fctx.TriggerKey.String(),
		Failed:     jobErr != nil,
		FireTime:   fctx.FireTime,
	}
	if fctx.JobDetail != nil {
		payload.JobKey = fctx.JobDetail.Key.String()
	}
	if jobErr != nil {
		payload.Error = jobErr.Error()
	}

	if err := w.sendWithRetry(payload); err != nil {
		w.logger.Errorf("webhook: delivery to %s failed: %v", w.cfg.URL, err)
	}
}

func (w *WebhookListener) sendWithRetry(payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(w.cfg.RetryDelay)
		}
		if err := w.send(body); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("all %d attempts failed, last error: %w", w.cfg.RetryCount+1, lastErr)
}

func (w *WebhookListener) send(body []byte) error {
	req, err := http.NewRequest(w.cfg.Method, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

var _ core.JobListener = (*WebhookListener)(nil)
