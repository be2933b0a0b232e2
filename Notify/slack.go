package Notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"Maintenance/Models"
)

// Slack posts submission notices to one channel.
type Slack struct {
	api     *slack.Client
	channel string
}

// NewSlack needs a bot token with chat:write.
func NewSlack(token, channel string, opts ...slack.Option) *Slack {
	return &Slack{api: slack.New(token, opts...), channel: channel}
}

func (s *Slack) ChecklistSubmitted(ctx context.Context, cl Models.Checklist) error {
	text := fmt.Sprintf("*%s*\n```%s```", Subject(cl), Summary(cl))
	if _, _, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	return nil
}
