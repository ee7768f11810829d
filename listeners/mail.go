package listeners

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"os"
	"strings"

	mail "github.com/go-mail/mail/v2"

	"github.com/cronforge/quartzcore/core"
)

// MailConfig configures a MailListener.
type MailConfig struct {
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	SMTPTLSSkipVerify bool
	EmailTo           string
	EmailFrom         string
	OnlyOnFailure     bool
	Dedup             *NotificationDedup
}

// MailListener emails the outcome of a firing (spec.md JobListener
// dispatch), grounded on the same "send after execution" idiom as
// WebhookListener but targeting SMTP instead of HTTP.
type MailListener struct {
	core.BaseJobListener
	cfg    MailConfig
	logger core.Logger
}

// NewMailListener returns a listener ready to register with a
// ListenerManager.
func NewMailListener(cfg MailConfig, logger core.Logger) *MailListener {
	if logger == nil {
		logger = core.NewLogrusAdapter(nil)
	}
	return &MailListener{cfg: cfg, logger: logger}
}

// JobWasExecuted implements core.JobListener.
func (m *MailListener) JobWasExecuted(fctx *core.FireContext, result core.JobResult) {
	if fctx == nil {
		return
	}
	if m.cfg.OnlyOnFailure && result.Err == nil {
		return
	}
	if m.cfg.Dedup != nil && result.Err != nil && !m.cfg.Dedup.ShouldNotify(fctx, result.Err) {
		m.logger.Debugf("mail: notification for %s suppressed (duplicate within cooldown)", fctx.TriggerKey)
		return
	}
	if err := m.send(fctx, result); err != nil {
		m.logger.Errorf("mail: delivery failed: %v", err)
	}
}

func (m *MailListener) send(fctx *core.FireContext, result core.JobResult) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from())
	msg.SetHeader("To", strings.Split(m.cfg.EmailTo, ",")...)
	msg.SetHeader("Subject", m.subject(fctx, result))
	msg.SetBody("text/html", m.body(fctx, result))

	d := mail.NewDialer(m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.SMTPUser, m.cfg.SMTPPassword)
	if m.cfg.SMTPTLSSkipVerify {
		// #nosec G402 -- explicit opt-in for development/legacy SMTP servers.
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("dial and send mail: %w", err)
	}
	return nil
}

func (m *MailListener) from() string {
	if !strings.Contains(m.cfg.EmailFrom, "%") {
		return m.cfg.EmailFrom
	}
	hostname, _ := os.Hostname()
	return fmt.Sprintf(m.cfg.EmailFrom, hostname)
}

func (m *MailListener) subject(fctx *core.FireContext, result core.JobResult) string {
	buf := bytes.NewBuffer(nil)
	_ = mailSubjectTemplate.Execute(buf, mailTemplateData{FireContext: fctx, Result: result})
	return buf.String()
}

func (m *MailListener) body(fctx *core.FireContext, result core.JobResult) string {
	buf := bytes.NewBuffer(nil)
	_ = mailBodyTemplate.Execute(buf, mailTemplateData{FireContext: fctx, Result: result})
	return buf.String()
}

type mailTemplateData struct {
	FireContext *core.FireContext
	Result      core.JobResult
}

func (d mailTemplateData) Status() string {
	if d.Result.Err != nil {
		return "failed"
	}
	return "successful"
}

var mailBodyTemplate, mailSubjectTemplate *template.Template

func init() {
	mailBodyTemplate = template.Must(template.New("mail-body").Parse(`
		<p>
			Trigger <b>{{.FireContext.TriggerKey}}</b>,
			execution <b>{{.Status}}</b>
			{{if .Result.Err}}<pre>{{.Result.Err}}</pre>{{end}}
		</p>
	`))
	mailSubjectTemplate = template.Must(template.New("mail-subject").Parse(
		"[{{.Status}}] trigger {{.FireContext.TriggerKey}}",
	))
}

var _ core.JobListener = (*MailListener)(nil)
