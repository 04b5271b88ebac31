package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"patchnotes-bot/pkg/merges"
	"patchnotes-bot/pkg/patchnotes"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/lmittmann/tint"
)

// HandlePatchNotes replies with the latest qualifying merge. It reads GitHub directly and never
// touches the poller's cursor.
func (h *Handler) HandlePatchNotes(data discord.SlashCommandInteractionData, event *handler.CommandEvent) error {
	if err := event.DeferCreateMessage(false); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.Config.RequestTimeout)
	defer cancel()

	if _, err := event.UpdateInteractionResponse(h.patchNotesUpdate(ctx)); err != nil {
		return acknowledgedError{err: err}
	}
	return nil
}

func (h *Handler) patchNotesUpdate(ctx context.Context) discord.MessageUpdate {
	content, embed := h.patchNotesResponse(ctx)
	if embed != nil {
		return discord.NewMessageUpdate().WithEmbeds(*embed)
	}
	return discord.NewMessageUpdate().WithContent(content)
}

func (h *Handler) patchNotesResponse(ctx context.Context) (string, *discord.Embed) {
	mergeEvent, err := h.Bot.Source.LatestQualifyingMerge(ctx)
	if err != nil {
		slog.Error("handlers: error while fetching pull requests", slog.String("repository", h.Config.Repository.String()), tint.Err(err))
		return errorMessage(err, h.Config.Repository), nil
	}
	if mergeEvent == nil {
		return fmt.Sprintf("No recent pull request merged from %s to %s.", h.Config.HeadBranch, h.Config.BaseBranch), nil
	}
	embed := patchnotes.BuildEmbed(*mergeEvent, h.Config.Embed)
	return "", &embed
}

func errorMessage(err error, repo merges.Repository) string {
	switch {
	case errors.Is(err, merges.ErrNotFound):
		return fmt.Sprintf("Repository not found: %s. This could be due to:\n"+
			"• Repository doesn't exist\n"+
			"• You don't have access to the organization\n"+
			"• Token lacks 'repo' scope for private repos\n"+
			"• Token lacks 'read:org' scope for organization access", repo)
	case errors.Is(err, merges.ErrForbidden):
		return fmt.Sprintf("Access denied. Please check your GitHub token permissions:\n"+
			"• Needs 'repo' scope for private repos\n"+
			"• Needs 'read:org' scope for organization access\n"+
			"• You must be a member of the %s organization", repo.Owner)
	case errors.Is(err, merges.ErrUnauthorized):
		return "Unauthorized. Please check your GitHub token is valid."
	}
	return "Failed to fetch pull requests."
}
