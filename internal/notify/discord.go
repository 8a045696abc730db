package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kmacleod/hoopsweep/internal/config"
	"github.com/kmacleod/hoopsweep/internal/types"
)

// Discord embed accent colors per severity.
const (
	colorInfo    = 0x2ECC71
	colorWarning = 0xF1C40F
	colorError   = 0xE74C3C
)

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// DiscordSink posts events to a Discord webhook as embeds.
type DiscordSink struct {
	webhookURL string
	client     *resty.Client
	logger     *slog.Logger
}

// NewDiscordSink builds a sink for the configured webhook.
func NewDiscordSink(cfg config.NotifyConfig, logger *slog.Logger) *DiscordSink {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	return &DiscordSink{
		webhookURL: cfg.WebhookURL,
		client:     client,
		logger:     logger.With("component", "discord_notify"),
	}
}

// Notify posts one event. A non-2xx response is an error so the caller
// can log it, but callers are expected to swallow it.
func (s *DiscordSink) Notify(ctx context.Context, event Event) error {
	embed := discordEmbed{
		Title:       event.Title,
		Description: event.Message,
		Color:       severityColor(event.Severity),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if event.Summary != nil {
		embed.Fields = summaryFields(event.Summary)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(discordPayload{Embeds: []discordEmbed{embed}}).
		Post(s.webhookURL)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %s", resp.Status())
	}

	s.logger.Debug("notification delivered", "title", event.Title, "severity", event.Severity.String())
	return nil
}

func severityColor(s Severity) int {
	switch s {
	case SeverityWarning:
		return colorWarning
	case SeverityError:
		return colorError
	default:
		return colorInfo
	}
}

func summaryFields(s *types.RunSummary) []discordEmbedField {
	return []discordEmbedField{
		{Name: "Items processed", Value: fmt.Sprintf("%d", s.ItemsProcessed), Inline: true},
		{Name: "Items skipped", Value: fmt.Sprintf("%d", s.ItemsSkipped), Inline: true},
		{Name: "Games captured", Value: fmt.Sprintf("%d", s.GamesCaptured), Inline: true},
		{Name: "Games skipped", Value: fmt.Sprintf("%d", s.GamesSkipped), Inline: true},
		{Name: "Games failed", Value: fmt.Sprintf("%d", s.GamesFailed), Inline: true},
	}
}
