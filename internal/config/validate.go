package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/vitaliisemenov/alert-router/internal/routing"
)

// Validate checks every Channel against its struct tags and confirms
// the routing table as a whole is loadable (patterns compile, every
// rule has a non-empty send_to, and every send_to entry names a
// channel that actually exists). A failure here aborts process startup.
func (c *Config) Validate() error {
	v := validator.New()

	for id, ch := range c.Channels {
		if err := v.Struct(ch); err != nil {
			return fmt.Errorf("channel %q: %w", id, err)
		}
		if ch.Type == ChannelTypeChat && (ch.BotToken == "" || ch.ChatID == "") {
			return fmt.Errorf("channel %q: chat channels require bot_token and chat_id", id)
		}
		if ch.Type == ChannelTypeWebhook && ch.URL == "" {
			return fmt.Errorf("channel %q: webhook channels require url", id)
		}
	}

	// NewRouter performs pattern compilation and send_to-non-empty
	// checks; reuse it here purely for validation, discarding the
	// router (the real one is built once by the caller at startup).
	if _, err := routing.NewRouter(c.Routing); err != nil {
		return fmt.Errorf("routing: %w", err)
	}

	for i, rule := range c.Routing {
		for _, chID := range rule.SendTo {
			if _, ok := c.Channels[chID]; !ok {
				return fmt.Errorf("routing rule %d: send_to references unknown channel %q", i, chID)
			}
		}
	}

	return nil
}
