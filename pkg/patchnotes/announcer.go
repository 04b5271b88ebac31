package patchnotes

import (
	"context"
	"errors"
	"fmt"

	"patchnotes-bot/pkg/merges"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

var ErrChannelUnusable = errors.New("announcement channel cannot receive messages")

// ChannelRest is the part of disgo's rest.Rest the announcer needs.
type ChannelRest interface {
	GetChannel(channelID snowflake.ID, opts ...rest.RequestOpt) (discord.Channel, error)
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// ChannelAnnouncer posts announcements to one fixed channel.
type ChannelAnnouncer struct {
	client    ChannelRest
	channelID snowflake.ID
	style     EmbedStyle
}

func NewChannelAnnouncer(client ChannelRest, channelID snowflake.ID, style EmbedStyle) *ChannelAnnouncer {
	return &ChannelAnnouncer{
		client:    client,
		channelID: channelID,
		style:     style,
	}
}

func (a *ChannelAnnouncer) Announce(ctx context.Context, event merges.Event) error {
	channel, err := a.client.GetChannel(a.channelID, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("fetch channel %s: %w", a.channelID, err)
	}
	if _, ok := channel.(discord.MessageChannel); !ok {
		return fmt.Errorf("%w: %s", ErrChannelUnusable, a.channelID)
	}
	_, err = a.client.CreateMessage(a.channelID, discord.NewMessageCreate().
		WithEmbeds(BuildEmbed(event, a.style)), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("send message to %s: %w", a.channelID, err)
	}
	return nil
}
