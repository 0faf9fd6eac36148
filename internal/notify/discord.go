package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"post-sniper/internal/domain"
)

// discordContentLimit is Discord's maximum message length.
const discordContentLimit = 2000

// DiscordSender delivers alerts via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string, timeout time.Duration) *DiscordSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// Send posts a formatted message to the Discord webhook.
func (d *DiscordSender) Send(ctx context.Context, alert domain.Alert) error {
	body, err := json.Marshal(map[string]string{"content": FormatDiscord(alert)})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}
	if err := postJSON(ctx, d.client, d.webhookURL, body); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}

// FormatDiscord renders an alert as Discord markdown.
func FormatDiscord(a domain.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Signal from @%s**\n", a.Author)
	if a.URL != "" {
		fmt.Fprintf(&b, "<%s>\n", a.URL)
	}
	for _, addr := range a.Finding.SolanaAddresses {
		fmt.Fprintf(&b, "SOL `%s`\n", addr)
	}
	for _, addr := range a.Finding.BaseAddresses {
		fmt.Fprintf(&b, "BASE `%s`\n", addr)
	}
	if len(a.Finding.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(a.Finding.Keywords, ", "))
	}
	fmt.Fprintf(&b, "> %s", strings.ReplaceAll(a.Text, "\n", "\n> "))

	s := b.String()
	if len(s) > discordContentLimit {
		s = s[:discordContentLimit-3] + "..."
	}
	return s
}
