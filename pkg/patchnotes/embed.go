package patchnotes

import (
	"strings"

	"patchnotes-bot/pkg/merges"

	"github.com/disgoorg/disgo/discord"
)

const (
	DefaultTitle        = "New Patch Notes"
	DefaultFooter       = "Patch Notes"
	DefaultThumbnailURL = "https://i.imgur.com/qLL6lnd.gif"
	DefaultColor        = 0x000000

	NoNotesPlaceholder = "_Someone was naughty and didn't write patch notes_"

	descriptionLimit = 4096
	truncatedSuffix  = "\n\n…"
)

type EmbedStyle struct {
	Title        string
	Footer       string
	ThumbnailURL string
	Color        int
}

func DefaultEmbedStyle() EmbedStyle {
	return EmbedStyle{
		Title:        DefaultTitle,
		Footer:       DefaultFooter,
		ThumbnailURL: DefaultThumbnailURL,
		Color:        DefaultColor,
	}
}

// BuildEmbed renders a merge event as a patch notes announcement.
func BuildEmbed(event merges.Event, style EmbedStyle) discord.Embed {
	body := NoNotesPlaceholder
	if event.Body != nil && strings.TrimSpace(*event.Body) != "" {
		body = *event.Body
	}

	embedBuilder := discord.NewEmbedBuilder()
	embedBuilder.SetTitle(style.Title)
	embedBuilder.SetDescription(truncate("**"+event.Title+"**\n\n"+body, descriptionLimit))
	embedBuilder.SetColor(style.Color)
	if style.ThumbnailURL != "" {
		embedBuilder.SetThumbnail(style.ThumbnailURL)
	}
	if event.URL != "" {
		embedBuilder.SetURL(event.URL)
	}
	embedBuilder.SetTimestamp(event.MergedAt)
	embedBuilder.SetFooterText(style.Footer)
	return embedBuilder.Build()
}

// truncate cuts s to at most limit runes, marking the cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	suffix := []rune(truncatedSuffix)
	return string(runes[:limit-len(suffix)]) + truncatedSuffix
}
