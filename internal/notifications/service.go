package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/deepfake-detector/detector-console/internal/config"
	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/deepfake-detector/detector-console/internal/render"
	"github.com/deepfake-detector/detector-console/internal/report"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service shares forensic reports via Teams and email
type Service struct {
	config *config.Config
	client *resty.Client
	dialer *gomail.Dialer
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	if cfg.NotificationEmail != "" {
		s.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return s
}

// SendReport shares a forensic report via every configured channel
func (s *Service) SendReport(report *models.ForensicReport) error {
	if report == nil {
		return fmt.Errorf("no report to send")
	}

	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.postToTeams(s.buildReportCard(report)); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully shared report to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendReportEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully shared report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// SendDigest shares a summary of the recent analyses
func (s *Service) SendDigest(digest *models.HistoryDigest) error {
	if digest == nil || len(digest.Entries) == 0 {
		logrus.Debug("History is empty, skipping digest")
		return nil
	}

	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.postToTeams(s.buildDigestCard(digest)); err != nil {
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		}
	}

	if s.config.NotificationEmail != "" {
		m := s.newMessage(fmt.Sprintf("Deepfake Detection Digest (%d analyses)", len(digest.Entries)))
		m.SetBody("text/plain", buildDigestText(digest))
		if err := s.dialer.DialAndSend(m); err != nil {
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("digest errors: %s", strings.Join(errors, "; "))
	}

	logrus.Infof("Sent digest of %d analyses", len(digest.Entries))
	return nil
}

func (s *Service) postToTeams(message *TeamsMessage) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildReportCard(forensic *models.ForensicReport) *TeamsMessage {
	theme := "22C55E"
	if report.IsAIVerdict(forensic.Verdict) {
		theme = "EF4444"
	}

	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: theme,
		Title:      fmt.Sprintf("Deepfake Forensic Report - %s", titleCase(string(forensic.Type))),
		Text:       fmt.Sprintf("**%s** analyzed as **%s**", forensic.Name, forensic.Verdict),
		Sections: []TeamsSection{{
			ActivityTitle: "Summary",
			Facts: []TeamsFact{
				{Name: "Verdict", Value: forensic.Verdict},
				{Name: "Confidence", Value: render.Percent(forensic.Confidence)},
				{Name: "Content", Value: forensic.Name},
				{Name: "Generated", Value: forensic.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
			},
			Markdown: true,
		}},
	}

	if len(forensic.Reasons) > 0 {
		var lines []string
		limit := 5
		if len(forensic.Reasons) < limit {
			limit = len(forensic.Reasons)
		}
		for _, reason := range forensic.Reasons[:limit] {
			lines = append(lines, fmt.Sprintf("**%s** (%s impact) - %s",
				reason.Title, render.Percent(reason.Score), reason.Description))
		}

		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Forensic Details",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) buildDigestCard(digest *models.HistoryDigest) *TeamsMessage {
	var facts []TeamsFact
	for _, ct := range sortedTypes(digest.ByType) {
		facts = append(facts, TeamsFact{
			Name:  titleCase(string(ct)),
			Value: fmt.Sprintf("%d", digest.ByType[ct]),
		})
	}

	var lines []string
	for i, entry := range digest.Entries {
		if i >= 10 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s **%s** - %s (%s)",
			entry.Icon, entry.Name, entry.Verdict, render.Percent(entry.Confidence)))
	}

	return &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   "Deepfake Detection Digest",
		Text:    fmt.Sprintf("%d analyses since the console started", len(digest.Entries)),
		Sections: []TeamsSection{
			{ActivityTitle: "By content type", Facts: facts, Markdown: true},
			{ActivityTitle: "Recent analyses", ActivityText: strings.Join(lines, "\n\n"), Markdown: true},
		},
	}
}

func (s *Service) newMessage(subject string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	return m
}

func (s *Service) sendReportEmail(report *models.ForensicReport) error {
	htmlBody, err := buildReportHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := s.newMessage(fmt.Sprintf("Deepfake Forensic Report - %s (%s)", report.Name, report.Verdict))
	m.SetBody("text/plain", buildReportText(report))
	m.AddAlternative("text/html", htmlBody)

	if len(report.PDF) > 0 {
		pdf := report.PDF
		m.Attach(report.Filename,
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(pdf)
				return err
			}))
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

const reportEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Deepfake Forensic Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0f172a; color: white; padding: 20px; border-radius: 5px; }
        .verdict { color: white; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .alert { background-color: #ef4444; }
        .safe { background-color: #22c55e; }
        .reason { border-left: 4px solid #334155; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .reason-title { font-weight: bold; margin-bottom: 5px; }
        .reason-score { color: #64748b; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Deepfake Forensic Report</h1>
        <p>{{.Name}} ({{.Type}}) analyzed on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="verdict {{if isAI .Verdict}}alert{{else}}safe{{end}}">
        <h2>Verdict: {{.Verdict}}</h2>
        <p>Confidence: {{percent .Confidence}}</p>
    </div>

    <h2>Forensic Details</h2>
    {{range .Reasons}}
    <div class="reason">
        <div class="reason-title">{{.Title}}</div>
        <div class="reason-score">{{percent .Score}} Impact</div>
        <p>{{.Description}}</p>
    </div>
    {{else}}
    <p><em>No specific forensic anomalies detected.</em></p>
    {{end}}

    <hr>
    <p><small>The full report is attached as {{.Filename}}.</small></p>
</body>
</html>
`

var reportEmail = template.Must(template.New("report").Funcs(template.FuncMap{
	"percent": render.Percent,
	"isAI":    report.IsAIVerdict,
}).Parse(reportEmailTemplate))

func buildReportHTML(report *models.ForensicReport) (string, error) {
	var buf bytes.Buffer
	if err := reportEmail.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildReportText(report *models.ForensicReport) string {
	var text strings.Builder

	text.WriteString("DEEPFAKE FORENSIC REPORT\n")
	text.WriteString("========================\n")
	text.WriteString(fmt.Sprintf("Content: %s (%s)\n", report.Name, report.Type))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(fmt.Sprintf("Verdict: %s\n", report.Verdict))
	text.WriteString(fmt.Sprintf("Confidence: %s\n", render.Percent(report.Confidence)))

	text.WriteString("\nFORENSIC DETAILS\n")
	text.WriteString("================\n")
	if len(report.Reasons) == 0 {
		text.WriteString("No specific forensic anomalies detected.\n")
	}
	for i, reason := range report.Reasons {
		text.WriteString(fmt.Sprintf("\n%d. %s (%s Impact)\n", i+1, reason.Title, render.Percent(reason.Score)))
		if reason.Description != "" {
			text.WriteString(fmt.Sprintf("   %s\n", reason.Description))
		}
	}

	return text.String()
}

func buildDigestText(digest *models.HistoryDigest) string {
	var text strings.Builder

	text.WriteString("DEEPFAKE DETECTION DIGEST\n")
	text.WriteString("=========================\n")
	text.WriteString(fmt.Sprintf("Generated: %s\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(fmt.Sprintf("Analyses: %d\n", len(digest.Entries)))
	for _, ct := range sortedTypes(digest.ByType) {
		text.WriteString(fmt.Sprintf("  %s: %d\n", titleCase(string(ct)), digest.ByType[ct]))
	}

	text.WriteString("\nRECENT ANALYSES\n")
	text.WriteString("===============\n")
	for i, entry := range digest.Entries {
		text.WriteString(fmt.Sprintf("%d. [%s] %s - %s (%s) at %s\n", i+1, entry.Type, entry.Name,
			entry.Verdict, render.Percent(entry.Confidence), entry.Time.Format("15:04:05")))
	}

	return text.String()
}

func sortedTypes(counts map[models.ContentType]int) []models.ContentType {
	types := make([]models.ContentType, 0, len(counts))
	for ct := range counts {
		types = append(types, ct)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
