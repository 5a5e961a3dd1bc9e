// Package render builds channel-specific notification content from an event
// and its optional impact analysis.
package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/abhonsle123/ripplefx/internal/model"
)

const (
	// smsDescriptionLimit caps the description carried in an SMS body.
	smsDescriptionLimit = 100
	// emailPredictionLimit caps the predictions shown per direction in email.
	emailPredictionLimit = 5
	// smsSymbolLimit caps the symbols shown per direction in SMS.
	smsSymbolLimit = 3
)

var emailTemplate = template.Must(template.New("email").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #1f2933;">
  <h2>[{{.Severity}}] {{.Title}}</h2>
  <p><strong>Type:</strong> {{.EventType}}{{if .Location}} &mdash; {{.Location}}{{end}}</p>
  <p>{{.Description}}</p>
  {{if .Summary}}<p><em>{{.Summary}}</em></p>{{end}}
  {{if .Positive}}<h3>Potential gainers</h3>
  <ul>{{range .Positive}}<li><strong>{{.Symbol}}</strong>{{if .Rationale}} &ndash; {{.Rationale}}{{end}}</li>{{end}}</ul>{{end}}
  {{if .Negative}}<h3>Potential losers</h3>
  <ul>{{range .Negative}}<li><strong>{{.Symbol}}</strong>{{if .Rationale}} &ndash; {{.Rationale}}{{end}}</li>{{end}}</ul>{{end}}
  {{if .Organizations}}<p><strong>Affected organizations:</strong> {{.OrganizationsJoined}}</p>{{end}}
  <p><a href="{{.DashboardURL}}">View on your dashboard</a></p>
</body>
</html>`))

type emailData struct {
	Title               string
	Severity            model.Severity
	EventType           model.EventType
	Location            string
	Description         string
	Summary             string
	Positive            []model.StockPrediction
	Negative            []model.StockPrediction
	Organizations       []string
	OrganizationsJoined string
	DashboardURL        string
}

// EmailSubject builds the subject line for an event notification.
func EmailSubject(event model.Event) string {
	return fmt.Sprintf("[%s] Market Alert: %s", event.Severity, event.Title)
}

// Email renders the full HTML body for the email channel.
func Email(event model.Event, dashboardURL string) (string, error) {
	ia := model.ParseImpactAnalysis(event.ImpactAnalysis)
	positive, negative := splitPredictions(ia.StockPredictions, emailPredictionLimit)

	data := emailData{
		Title:               event.Title,
		Severity:            event.Severity,
		EventType:           event.EventType,
		Location:            ia.Location,
		Description:         event.Description,
		Summary:             ia.Summary,
		Positive:            positive,
		Negative:            negative,
		Organizations:       ia.AffectedOrganizations,
		OrganizationsJoined: strings.Join(ia.AffectedOrganizations, ", "),
		DashboardURL:        dashboardURL,
	}

	var sb strings.Builder
	if err := emailTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}

	return sb.String(), nil
}

// SMS renders the plain-text body for the SMS channel.
func SMS(event model.Event, dashboardURL string) string {
	ia := model.ParseImpactAnalysis(event.ImpactAnalysis)
	positive, negative := splitPredictions(ia.StockPredictions, smsSymbolLimit)

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", event.Severity, event.EventType))
	if ia.Location != "" {
		sb.WriteString(" - " + ia.Location)
	}
	sb.WriteString("\n")

	sb.WriteString(truncate(event.Description, smsDescriptionLimit))
	sb.WriteString("\n")

	if len(positive) > 0 {
		sb.WriteString("Up: " + joinSymbols(positive) + "\n")
	}
	if len(negative) > 0 {
		sb.WriteString("Down: " + joinSymbols(negative) + "\n")
	}

	sb.WriteString(dashboardURL)

	return sb.String()
}

func splitPredictions(predictions []model.StockPrediction, limit int) (positive, negative []model.StockPrediction) {
	for _, p := range predictions {
		switch p.Direction {
		case "positive":
			if len(positive) < limit {
				positive = append(positive, p)
			}
		case "negative":
			if len(negative) < limit {
				negative = append(negative, p)
			}
		}
	}
	return positive, negative
}

func joinSymbols(predictions []model.StockPrediction) string {
	symbols := make([]string, 0, len(predictions))
	for _, p := range predictions {
		symbols = append(symbols, p.Symbol)
	}
	return strings.Join(symbols, ", ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
