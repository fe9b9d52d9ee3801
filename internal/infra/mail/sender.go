package mail

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/leadsync/internal/entity"
)

var syncReportTemplate = template.Must(template.New("sync_report").Parse(`Campaign: {{.Report.CampaignName}} ({{.Report.CampaignID}})
Run: {{.Report.RunID}}
Mode: {{.Report.Mode}}
Duration: {{.Duration}}
{{if .Failed}}
Result: FAILED
{{.Report.Error}}
{{end}}
Activities fetched: {{.Report.Fetched}}
Leads seen: {{.Report.Leads}}
Inserted: {{.Report.Inserted}}
Already cached: {{.Report.Ignored}}
Rejected: {{.Report.Rejected}}
{{with .Report.Details}}
Lead details: {{.Succeeded}} resolved, {{.Failed}} failed, {{.Processed}} looked up
{{end}}Leads classified: {{.Report.Classified}}
{{with .Report.CRM}}
CRM push: {{.Succeeded}} updated, {{.Failed}} failed, {{.Skipped}} skipped of {{.Processed}}
{{range .BatchErrors}}  - {{.}}
{{end}}{{end}}`))

func NewEmailSender(host string, port int, user, password, from string, to []string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
		Dialer:   gomail.NewDialer(host, port, user, password),
	}
}

func RenderSyncReport(report entity.SyncReport) (subject, body string, err error) {
	data := SyncReportData{
		Report:   report,
		Duration: report.Duration().Round(time.Second).String(),
		Failed:   report.Error != "",
	}

	var buf bytes.Buffer
	if err := syncReportTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("mail: render sync report: %w", err)
	}

	name := report.CampaignName
	if name == "" {
		name = report.CampaignID
	}
	subject = fmt.Sprintf("✅ Lemlist sync finished: %s", name)
	if data.Failed {
		subject = fmt.Sprintf("❌ Lemlist sync failed: %s", name)
	}
	return subject, buf.String(), nil
}

func (s *EmailSender) SendSyncReport(report entity.SyncReport) error {
	if len(s.To) == 0 {
		return nil
	}

	subject, body, err := RenderSyncReport(report)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.Dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("mail: send sync report: %w", err)
	}
	return nil
}
