package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/types"
	"go.uber.org/zap"
)

const (
	ColorRed   = 16711680 // #FF0000
	ColorGreen = 65280    // #00FF00

	Username = "Uptimer"
)

// Locals are the values available to notification templates.
type Locals struct {
	AppName   string
	AppLink   string
	AppIcon   string
	Message   string
	Timestamp time.Time
}

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	URL         string                `json:"url,omitempty"`
	Fields      []DiscordWebhookField `json:"fields"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordWebhookRequest struct {
	Username  string         `json:"username"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	TitleLink string       `json:"title_link,omitempty"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

// Dispatcher fans a status notification out to every channel of a
// notification group.
type Dispatcher struct {
	sender Sender
	client *http.Client
	logger *zap.Logger
}

func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Notify sends one email per recipient and then posts to the configured
// webhooks. A failing channel does not stop delivery to the others; all
// failures are returned joined.
func (d *Dispatcher) Notify(ctx context.Context, group *models.NotificationGroup, template string, locals Locals) error {
	if group == nil {
		return nil
	}

	if locals.Timestamp.IsZero() {
		locals.Timestamp = time.Now()
	}

	subject, body, err := renderTemplate(template, locals)
	if err != nil {
		return err
	}

	var errs []error

	for _, to := range group.Emails {
		if err := d.sender.Send(ctx, to, subject, body); err != nil {
			d.logger.Error("failed to send notification email",
				zap.String("to", to),
				zap.String("template", template),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}

	if group.DiscordWebhook != "" {
		if err := d.post(ctx, group.DiscordWebhook, discordPayload(template, locals)); err != nil {
			d.logger.Error("failed to send discord notification", zap.Uint("group_id", group.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("discord: %w", err))
		}
	}

	if group.SlackWebhook != "" {
		if err := d.post(ctx, group.SlackWebhook, slackPayload(template, locals)); err != nil {
			d.logger.Error("failed to send slack notification", zap.Uint("group_id", group.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("slack: %w", err))
		}
	}

	return errors.Join(errs...)
}

func discordPayload(template string, locals Locals) DiscordWebhookRequest {
	title, color := "🚨 **MONITOR DOWN**", ColorRed
	description := fmt.Sprintf("**%s** has encountered an issue and requires attention.", locals.AppName)

	if template == types.TemplateSuccessStatus {
		title, color = "✅ **MONITOR UP**", ColorGreen
		description = fmt.Sprintf("**%s** is back to normal operation.", locals.AppName)
	}

	return DiscordWebhookRequest{
		Username:  Username,
		AvatarURL: locals.AppIcon,
		Embeds: []DiscordEmbed{
			{
				Title:       title,
				Description: description,
				Color:       color,
				URL:         locals.AppLink,
				Fields: []DiscordWebhookField{
					{Name: "📊 Monitor", Value: locals.AppName, Inline: true},
					{Name: "📝 Details", Value: orUnknown(locals.Message), Inline: false},
				},
				Timestamp: locals.Timestamp.Format(time.RFC3339),
			},
		},
	}
}

func slackPayload(template string, locals Locals) SlackWebhookRequest {
	text, color := ":rotating_light: *MONITOR DOWN*", "danger"
	title := fmt.Sprintf("Monitor '%s' has encountered an issue", locals.AppName)

	if template == types.TemplateSuccessStatus {
		text, color = ":white_check_mark: *MONITOR UP*", "good"
		title = fmt.Sprintf("Monitor '%s' is back to normal operation", locals.AppName)
	}

	return SlackWebhookRequest{
		Username: Username,
		Text:     text,
		Attachments: []SlackAttachment{
			{
				Color:     color,
				Title:     title,
				TitleLink: locals.AppLink,
				Text:      orUnknown(locals.Message),
				Fields: []SlackField{
					{Title: "Monitor", Value: locals.AppName, Short: true},
				},
				Timestamp: locals.Timestamp.Unix(),
			},
		},
	}
}

func (d *Dispatcher) post(ctx context.Context, webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func orUnknown(value string) string {
	if value == "" {
		return "Unknown"
	}
	return value
}
