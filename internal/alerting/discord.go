package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// AuthError indicates a destination webhook could not be validated. It is
// fatal at startup: no cycle runs against an unauthenticated channel.
type AuthError struct {
	Channel string
	Status  int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("channel %s failed authentication (status %d); check the webhook URL", e.Channel, e.Status)
}

// WebhookChannel delivers notifications to one Discord webhook.
type WebhookChannel struct {
	webhookURL string
	name       string
	client     *http.Client
	logger     zerolog.Logger
}

// NewWebhookChannel constructs a channel for one webhook URL.
func NewWebhookChannel(webhookURL string, timeout time.Duration, logger zerolog.Logger) *WebhookChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	name := channelLabel(webhookURL)
	return &WebhookChannel{
		webhookURL: strings.TrimSpace(webhookURL),
		name:       name,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "discord_channel").Str("channel", name).Logger(),
	}
}

// channelLabel derives a log-safe identifier from the webhook URL. Webhook
// URLs look like .../webhooks/{id}/{token}; the token must never be logged.
func channelLabel(webhookURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(webhookURL))
	if err != nil {
		return "webhook"
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) >= 2 {
		return "webhook-" + segments[len(segments)-2]
	}
	return "webhook"
}

// Name identifies the channel in logs.
func (c *WebhookChannel) Name() string {
	return c.name
}

// Validate performs the connect step: a GET on the webhook URL succeeds only
// for a valid id/token pair.
func (c *WebhookChannel) Validate(ctx context.Context) error {
	if c.webhookURL == "" {
		return &AuthError{Channel: c.name}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.webhookURL, nil)
	if err != nil {
		return fmt.Errorf("create webhook validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validate webhook %s: %w", c.name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &AuthError{Channel: c.name, Status: resp.StatusCode}
	}

	c.logger.Debug().Msg("webhook validated")
	return nil
}

// Send posts one notification as a rich embed.
func (c *WebhookChannel) Send(ctx context.Context, note Notification) error {
	payload := webhookPayload{
		Username:  note.Username,
		AvatarURL: note.AvatarURL,
		Embeds:    []embed{buildEmbed(note)},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL+"?wait=true", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send to %s: %w", c.name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("channel %s rate limited the send", c.name)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("channel %s rejected the message (status %d)", c.name, resp.StatusCode)
	}

	c.logger.Debug().Str("title", note.Title).Msg("notification delivered")
	return nil
}

type webhookPayload struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []embed `json:"embeds"`
}

type embed struct {
	Title     string       `json:"title,omitempty"`
	URL       string       `json:"url,omitempty"`
	Color     int          `json:"color,omitempty"`
	Timestamp string       `json:"timestamp,omitempty"`
	Author    *embedAuthor `json:"author,omitempty"`
	Thumbnail *embedMedia  `json:"thumbnail,omitempty"`
	Image     *embedMedia  `json:"image,omitempty"`
	Footer    *embedFooter `json:"footer,omitempty"`
	Fields    []embedField `json:"fields,omitempty"`
}

type embedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type embedMedia struct {
	URL string `json:"url"`
}

type embedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

func buildEmbed(note Notification) embed {
	e := embed{
		Title: note.Title,
		URL:   note.URL,
		Color: note.Color,
	}
	if !note.Timestamp.IsZero() {
		e.Timestamp = note.Timestamp.UTC().Format(time.RFC3339)
	}
	if note.Author.Name != "" {
		e.Author = &embedAuthor{Name: note.Author.Name, URL: note.Author.URL, IconURL: note.Author.IconURL}
	}
	if note.Thumbnail != "" {
		e.Thumbnail = &embedMedia{URL: note.Thumbnail}
	}
	if note.Image != "" {
		e.Image = &embedMedia{URL: note.Image}
	}
	if note.Footer.Text != "" {
		e.Footer = &embedFooter{Text: note.Footer.Text, IconURL: note.Footer.IconURL}
	}
	for _, field := range note.Fields {
		e.Fields = append(e.Fields, embedField{Name: field.Name, Value: field.Value, Inline: field.Inline})
	}
	return e
}

var _ Channel = (*WebhookChannel)(nil)
