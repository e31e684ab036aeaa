// Package notify delivers best-effort outbound notifications (low-stock
// alerts, scheduled digests) over Slack and Discord. Failures are logged,
// never propagated into the ledger's transaction paths.
package notify

import (
	"log"

	"github.com/ostrander/workbench/internal/config"
)

// Notifier sends a plain-text notification to a channel.
type Notifier interface {
	Send(text string) error
}

// Multi fans a notification out to several channels, logging per-channel
// failures and always returning nil.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(text string) error {
	for _, n := range m {
		if err := n.Send(text); err != nil {
			log.Printf("notify: send failed: %v", err)
		}
	}
	return nil
}

// FromConfig builds the configured notifiers. An empty config yields nil,
// meaning notifications are disabled.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	var channels Multi
	if cfg.Slack.BotToken != "" {
		s, err := NewSlack(SlackOpts{BotToken: cfg.Slack.BotToken, ChannelID: cfg.Slack.ChannelID})
		if err != nil {
			return nil, err
		}
		channels = append(channels, s)
	}
	if cfg.Discord.BotToken != "" {
		d, err := NewDiscord(DiscordOpts{BotToken: cfg.Discord.BotToken, ChannelID: cfg.Discord.ChannelID})
		if err != nil {
			return nil, err
		}
		channels = append(channels, d)
	}
	if len(channels) == 0 {
		return nil, nil
	}
	return channels, nil
}
