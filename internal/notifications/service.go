package notifications

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/azure/reddit-mentions-listener/internal/config"
	"github.com/azure/reddit-mentions-listener/internal/models"
)

const (
	teamsMentionLimit = 5
	emailMentionLimit = 10
	excerptLength     = 200
)

// Service delivers reports to every configured channel. With no channel
// configured it only logs.
type Service struct {
	config *config.Config
	client *resty.Client
	send   func(*gomail.Message) error
}

var _ NotificationInterface = (*Service)(nil)

// TeamsMessage is a Microsoft Teams MessageCard
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a notification service from the channel settings in cfg
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		return d.DialAndSend(m)
	}
	return s
}

// Enabled reports whether at least one channel is configured
func (s *Service) Enabled() bool {
	return s.config.TeamsWebhookURL != "" || s.config.NotificationEmail != ""
}

// SendReport sends a watch report via every configured channel
func (s *Service) SendReport(report *models.Report) error {
	if !s.Enabled() {
		logrus.WithField("report_id", report.ID).Debug("No notification channel configured, skipping report")
		return nil
	}

	var errs []error

	if s.config.TeamsWebhookURL != "" {
		if err := s.postToTeams(s.buildTeamsMessage(report)); err != nil {
			logrus.WithError(err).WithField("report_id", report.ID).Error("Failed to send Teams report")
			errs = append(errs, fmt.Errorf("teams: %w", err))
		} else {
			logrus.WithField("report_id", report.ID).Info("Sent report to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendReportEmail(report); err != nil {
			logrus.WithError(err).WithField("report_id", report.ID).Error("Failed to send email report")
			errs = append(errs, fmt.Errorf("email: %w", err))
		} else {
			logrus.WithField("report_id", report.ID).Info("Sent report via email")
		}
	}

	return errors.Join(errs...)
}

// SendAlert sends a low-sentiment alert via every configured channel
func (s *Service) SendAlert(alert *models.Alert) error {
	if !s.Enabled() {
		logrus.WithFields(logrus.Fields{
			"watch":   alert.Watch,
			"average": alert.AverageSentiment,
		}).Warn("Sentiment alert raised but no notification channel configured")
		return nil
	}

	var errs []error
	subject := alertTitle(alert)

	if s.config.TeamsWebhookURL != "" {
		if err := s.postToTeams(s.buildAlertMessage(alert)); err != nil {
			errs = append(errs, fmt.Errorf("teams: %w", err))
		}
	}

	if s.config.NotificationEmail != "" {
		m := s.newMessage(subject)
		m.SetBody("text/plain", buildAlertText(alert))
		if err := s.send(m); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		logrus.WithError(err).WithField("watch", alert.Watch).Error("Failed to deliver sentiment alert")
		return err
	}

	logrus.WithField("watch", alert.Watch).Info("Sent sentiment alert")
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

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func reportTitle(report *models.Report) string {
	name := report.Watch
	if name == "" {
		name = fmt.Sprintf("%q", report.Criteria.Phrase)
	}
	return fmt.Sprintf("Reddit Mentions Report - %s", name)
}

func alertTitle(alert *models.Alert) string {
	return fmt.Sprintf("Sentiment Alert - %s", alert.Watch)
}

func windowText(c models.SearchCriteria) string {
	return fmt.Sprintf("%s to %s", c.WindowStart.Format("2006-01-02"), c.WindowEnd.Format("2006-01-02"))
}

func averageText(summary models.Summary) string {
	if !summary.HasData {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", summary.AverageSentiment)
}

func subredditText(c models.SearchCriteria) string {
	if c.Subreddit == "" {
		return "all"
	}
	return "r/" + c.Subreddit
}

func (s *Service) buildTeamsMessage(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: "FF4500",
		Title:      reportTitle(report),
		Text: fmt.Sprintf("Found %d mentions of \"%s\" in %s between %s",
			report.Summary.MentionCount, report.Criteria.Phrase, subredditText(report.Criteria), windowText(report.Criteria)),
	}

	facts := []TeamsFact{
		{Name: "Mentions", Value: fmt.Sprintf("%d", report.Summary.MentionCount)},
		{Name: "Items Scanned", Value: fmt.Sprintf("%d", report.ItemsScanned)},
		{Name: "Average Sentiment", Value: averageText(report.Summary)},
		{Name: "Scorer", Value: report.Scorer},
		{Name: "Generated", Value: report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
	}
	for _, label := range []models.Label{models.LabelPositive, models.LabelNeutral, models.LabelNegative} {
		if count, ok := report.Summary.Labels[label]; ok {
			facts = append(facts, TeamsFact{Name: fmt.Sprintf("%s Mentions", titleCase(string(label))), Value: fmt.Sprintf("%d", count)})
		}
	}
	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(report.TopWords) > 0 {
		words := make([]string, 0, len(report.TopWords))
		for _, wc := range report.TopWords {
			words = append(words, fmt.Sprintf("%s (%d)", wc.Word, wc.Count))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Top Words",
			ActivityText:  strings.Join(words, ", "),
			Markdown:      true,
		})
	}

	if len(report.Mentions) > 0 {
		limit := min(teamsMentionLimit, len(report.Mentions))
		lines := make([]string, 0, limit)
		for _, mention := range report.Mentions[:limit] {
			lines = append(lines, fmt.Sprintf("**[%s](%s)** - %s in r/%s (%.2f)",
				mention.SourceType, mention.URL, mention.CreatedAt.Format("Jan 2"), mention.Subreddit, mention.SentimentScore))
			lines = append(lines, "> "+excerpt(mention.Text))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Recent Mentions",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) buildAlertMessage(alert *models.Alert) *TeamsMessage {
	return &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: "D13438",
		Title:      alertTitle(alert),
		Text:       buildAlertText(alert),
	}
}

func buildAlertText(alert *models.Alert) string {
	return fmt.Sprintf("Average sentiment for \"%s\" dropped to %.4f across %d mentions (threshold %.4f). Report: %s",
		alert.Phrase, alert.AverageSentiment, alert.MentionCount, alert.Threshold, alert.ReportID)
}

func (s *Service) newMessage(subject string) *gomail.Message {
	m := gomail.NewMessage()
	from := s.config.SMTPFrom
	if from == "" {
		from = s.config.SMTPUsername
	}
	m.SetHeader("From", from)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	return m
}

func (s *Service) sendReportEmail(report *models.Report) error {
	htmlBody, err := buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	subject := fmt.Sprintf("%s (%d mentions)", reportTitle(report), report.Summary.MentionCount)
	m := s.newMessage(subject)
	m.SetBody("text/plain", buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	if len(report.CSV) > 0 && report.CSVName != "" {
		data := report.CSV
		m.Attach(report.CSVName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"title":   titleCase,
	"excerpt": excerpt,
	"average": averageText,
	"window":  windowText,
	"sub":     subredditText,
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Reddit Mentions Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #ff4500; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .mention { border-left: 4px solid #605e5c; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .mention-meta { color: #666; font-size: 0.9em; }
        .words span { display: inline-block; margin: 2px 6px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Mentions of "{{.Criteria.Phrase}}"</h1>
        <p>{{sub .Criteria}}, {{window .Criteria}}. Generated {{.GeneratedAt.UTC.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Mentions:</strong> {{.Summary.MentionCount}} in {{.ItemsScanned}} items</p>
        <p><strong>Average Sentiment ({{.Scorer}}):</strong> {{average .Summary}}</p>
        {{range $label, $count := .Summary.Labels}}
            <p><strong>{{title (print $label)}} Mentions:</strong> {{$count}}</p>
        {{end}}
    </div>

    {{if .TopWords}}
    <h2>Top Words</h2>
    <div class="words">
        {{range .TopWords}}<span>{{.Word}} ({{.Count}})</span>{{end}}
    </div>
    {{end}}

    {{if .Mentions}}
    <h2>Mentions</h2>
    {{range $index, $mention := .Mentions}}
        {{if lt $index 10}}
        <div class="mention">
            <div class="mention-meta">
                <a href="{{$mention.URL}}" target="_blank">{{$mention.SourceType}}</a>
                in r/{{$mention.Subreddit}} | {{$mention.CreatedAt.Format "Jan 2, 2006"}} | Sentiment: {{printf "%.4f" $mention.SentimentScore}}
            </div>
            <p>{{excerpt $mention.Text}}</p>
        </div>
        {{end}}
    {{end}}
    {{else}}
    <p>No mentions found for this period.</p>
    {{end}}

    <hr>
    <p><small>The full mention table is attached as CSV.</small></p>
</body>
</html>
`))

func buildEmailHTML(report *models.Report) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailText(report *models.Report) string {
	var text strings.Builder

	fmt.Fprintf(&text, "%s\n", reportTitle(report))
	fmt.Fprintf(&text, "Phrase: %s | Subreddit: %s | Window: %s\n", report.Criteria.Phrase, subredditText(report.Criteria), windowText(report.Criteria))
	fmt.Fprintf(&text, "Generated: %s\n\n", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	fmt.Fprintf(&text, "Mentions: %d\n", report.Summary.MentionCount)
	fmt.Fprintf(&text, "Items Scanned: %d\n", report.ItemsScanned)
	fmt.Fprintf(&text, "Average Sentiment (%s): %s\n", report.Scorer, averageText(report.Summary))
	for _, label := range []models.Label{models.LabelPositive, models.LabelNeutral, models.LabelNegative} {
		if count, ok := report.Summary.Labels[label]; ok {
			fmt.Fprintf(&text, "%s Mentions: %d\n", titleCase(string(label)), count)
		}
	}

	if len(report.TopWords) > 0 {
		text.WriteString("\nTOP WORDS\n")
		text.WriteString("=========\n")
		for _, wc := range report.TopWords {
			fmt.Fprintf(&text, "%s: %d\n", wc.Word, wc.Count)
		}
	}

	if len(report.Mentions) > 0 {
		text.WriteString("\nMENTIONS\n")
		text.WriteString("========\n")

		limit := min(emailMentionLimit, len(report.Mentions))
		for i, mention := range report.Mentions[:limit] {
			fmt.Fprintf(&text, "\n%d. [%s] r/%s | %s | %.4f\n", i+1, mention.SourceType, mention.Subreddit,
				mention.CreatedAt.Format("Jan 2, 2006"), mention.SentimentScore)
			fmt.Fprintf(&text, "   %s\n", excerpt(mention.Text))
			fmt.Fprintf(&text, "   URL: %s\n", mention.URL)
		}
	} else {
		text.WriteString("\nNo mentions found for this period.\n")
	}

	text.WriteString("\n---\nThe full mention table is attached as CSV.\n")
	return text.String()
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= excerptLength {
		return s
	}
	return string(runes[:excerptLength]) + "..."
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
