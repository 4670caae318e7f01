package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"text/template"

	alertapp "facility-cloud/internal/alerts/application"
)

const defaultTemplate = `[Alert {{.EventLabel}}]
Title: {{.Title}}
Asset: {{.AssetID}}
Severity: {{.Severity}}
Status: {{.Status}}
Triggered: {{.TriggeredAt}}
{{- if .Value }}
Value: {{.Value}}
{{- end }}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	EventLabel  string
	Title       string
	AssetID     string
	Severity    string
	Status      string
	TriggeredAt string
	Value       string
}

// ChannelNotifier renders alert events and delivers them over a channel.
// Delivery is best effort: failures are logged, never propagated.
type ChannelNotifier struct {
	channel Channel
	tpl     *template.Template
	logger  *log.Logger
}

// NewChannelNotifier constructs a notifier over a delivery channel.
func NewChannelNotifier(channel Channel, tpl string, logger *log.Logger) (*ChannelNotifier, error) {
	if channel == nil {
		return nil, errors.New("notify: nil channel")
	}
	if tpl == "" {
		tpl = defaultTemplate
	}
	parsed, err := template.New("alert-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &ChannelNotifier{channel: channel, tpl: parsed, logger: logger}, nil
}

// Notify renders and sends one alert event.
func (n *ChannelNotifier) Notify(ctx context.Context, event alertapp.Event) {
	if n == nil || n.channel == nil {
		return
	}
	data := TemplateData{
		EventLabel:  eventLabel(event.Type),
		Title:       event.Alert.Title,
		AssetID:     event.Alert.AssetID,
		Severity:    event.Alert.Severity,
		Status:      event.Alert.Status,
		TriggeredAt: event.Alert.TriggeredAt.Format("2006-01-02 15:04:05 MST"),
	}
	if event.Alert.TriggeredValue != nil {
		data.Value = fmt.Sprintf("%.2f", *event.Alert.TriggeredValue)
	}
	var buf bytes.Buffer
	if err := n.tpl.Execute(&buf, data); err != nil {
		n.logf("notify: render failed: %v", err)
		return
	}
	if err := n.channel.Send(ctx, buf.String()); err != nil {
		n.logf("notify: send failed: %v", err)
	}
}

func (n *ChannelNotifier) logf(format string, args ...any) {
	if n.logger != nil {
		n.logger.Printf(format, args...)
	}
}

func eventLabel(eventType string) string {
	switch eventType {
	case alertapp.EventNewAlert:
		return "Raised"
	case alertapp.EventAlertUpdate:
		return "Updated"
	default:
		return eventType
	}
}

// MultiNotifier dispatches alert events to multiple notifiers.
type MultiNotifier struct {
	notifiers []alertapp.Notifier
}

// NewMultiNotifier constructs a MultiNotifier.
func NewMultiNotifier(notifiers ...alertapp.Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Notify forwards events to all notifiers.
func (m *MultiNotifier) Notify(ctx context.Context, event alertapp.Event) {
	if m == nil {
		return
	}
	for _, notifier := range m.notifiers {
		if notifier != nil {
			notifier.Notify(ctx, event)
		}
	}
}
