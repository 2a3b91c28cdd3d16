// Package alerts posts throttled operational alerts to Slack.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Type classifies an alert.
type Type string

const (
	TypeDeadLetterBacklog Type = "dead_letter_backlog"
	TypeBackendOffline    Type = "backend_offline"
)

// Severity of an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityColors = map[Severity]string{
	SeverityLow:      "#36a64f",
	SeverityMedium:   "#ffa500",
	SeverityHigh:     "#ff6b6b",
	SeverityCritical: "#ff0000",
}

// Alert is one notification.
type Alert struct {
	Type     Type
	Severity Severity
	Message  string
	Details  map[string]any
	// Group replaces the message prefix in Key. Set it when the message carries live values.
	Group string
}

// Key identifies alerts that throttle each other.
func (a Alert) Key() string {
	if a.Group != "" {
		return fmt.Sprintf("%s_%s_%s", a.Type, a.Severity, a.Group)
	}
	msg := a.Message
	if len(msg) > 50 {
		msg = msg[:50]
	}
	return fmt.Sprintf("%s_%s_%s", a.Type, a.Severity, msg)
}

// Notifier delivers an alert.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// SlackNotifier posts alerts to an incoming webhook as a colored attachment.
type SlackNotifier struct {
	WebhookURL string
	Channel    string
	now        func() time.Time
}

func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{WebhookURL: strings.TrimSpace(webhookURL), Channel: strings.TrimSpace(channel), now: time.Now}
}

func (s *SlackNotifier) Enabled() bool {
	return s != nil && s.WebhookURL != ""
}

func (s *SlackNotifier) Notify(ctx context.Context, a Alert) error {
	if !s.Enabled() {
		return nil
	}
	return slack.PostWebhookContext(ctx, s.WebhookURL, BuildWebhookMessage(a, s.Channel, s.now()))
}

// BuildWebhookMessage renders an alert as a Slack webhook payload.
func BuildWebhookMessage(a Alert, channel string, now time.Time) *slack.WebhookMessage {
	color, ok := severityColors[a.Severity]
	if !ok {
		color = severityColors[SeverityLow]
	}
	fields := []slack.AttachmentField{
		{Title: "Severity", Value: strings.ToUpper(string(a.Severity)), Short: true},
		{Title: "Type", Value: string(a.Type), Short: true},
	}
	if len(a.Details) > 0 {
		keys := make([]string, 0, len(a.Details))
		for k := range a.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]any, len(keys))
		for _, k := range keys {
			ordered[k] = a.Details[k]
		}
		blob, _ := json.MarshalIndent(ordered, "", "  ")
		fields = append(fields, slack.AttachmentField{Title: "Details", Value: string(blob), Short: false})
	}
	return &slack.WebhookMessage{
		Channel: channel,
		Attachments: []slack.Attachment{{
			Color:  color,
			Title:  titleFor(a.Type),
			Text:   a.Message,
			Fields: fields,
			Footer: "Indexing QA Alert System",
			Ts:     json.Number(fmt.Sprintf("%d", now.Unix())),
		}},
	}
}

func titleFor(t Type) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Manager throttles repeated alerts before handing them to the notifier.
type Manager struct {
	notifier Notifier
	throttle time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

func NewManager(n Notifier, throttle time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{notifier: n, throttle: throttle, logger: logger, now: time.Now, sent: map[string]time.Time{}}
}

// Send delivers a unless an alert with the same key went out within the throttle window.
// It reports whether the alert was delivered. A failed delivery does not start the window.
func (m *Manager) Send(ctx context.Context, a Alert) (bool, error) {
	key := a.Key()
	now := m.now()

	m.mu.Lock()
	last, seen := m.sent[key]
	if seen && now.Sub(last) < m.throttle {
		m.mu.Unlock()
		m.logger.Info("alert throttled", zap.String("key", key))
		return false, nil
	}
	m.sent[key] = now
	m.mu.Unlock()

	if m.notifier == nil {
		return false, nil
	}
	if err := m.notifier.Notify(ctx, a); err != nil {
		m.mu.Lock()
		if m.sent[key].Equal(now) {
			if seen {
				m.sent[key] = last
			} else {
				delete(m.sent, key)
			}
		}
		m.mu.Unlock()
		m.logger.Error("send alert failed", zap.String("type", string(a.Type)), zap.Error(err))
		return false, err
	}
	m.logger.Info("alert sent", zap.String("type", string(a.Type)), zap.String("severity", string(a.Severity)))
	return true, nil
}
