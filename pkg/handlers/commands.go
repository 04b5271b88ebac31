package handlers

import (
	"errors"
	"log/slog"

	"patchnotes-bot/pkg"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/lmittmann/tint"
)

func NewHandler(b *pkg.Bot, c *pkg.Config) *Handler {
	mux := handler.New()
	mux.Error(func(e *handler.InteractionEvent, err error) {
		i := e.Interaction.(discord.ApplicationCommandInteraction)
		slog.Error("handlers: error while handling a command", slog.String("command.name", i.Data.CommandName()), tint.Err(err))
		message, followup := errorReply(err)
		if followup {
			if _, err := e.Client().Rest.CreateFollowupMessage(e.ApplicationID(), e.Token(), message); err != nil {
				slog.Error("handlers: error while sending an error followup", slog.String("command.name", i.Data.CommandName()), tint.Err(err))
			}
			return
		}
		_ = e.Respond(discord.InteractionResponseTypeCreateMessage, message)
	})
	handlers := &Handler{
		Bot:    b,
		Config: c,
		Router: mux,
	}
	handlers.Group(func(r handler.Router) {
		r.SlashCommand("/patchnotes", handlers.HandlePatchNotes)
		r.SlashCommand("/commits", handlers.HandlePatchNotes)
	})
	return handlers
}

type Handler struct {
	Bot    *pkg.Bot
	Config *pkg.Config
	handler.Router
}

// acknowledgedError is returned by handlers that already deferred their response.
type acknowledgedError struct {
	err error
}

func (e acknowledgedError) Error() string {
	return e.err.Error()
}

func (e acknowledgedError) Unwrap() error {
	return e.err
}

// errorReply builds the ephemeral error message and reports whether it has to go out as a followup
// because the interaction was already acknowledged.
func errorReply(err error) (discord.MessageCreate, bool) {
	message := discord.NewMessageCreate().
		WithContentf("There was an error while handling the command: %v", err).
		WithEphemeral(true)
	var ackErr acknowledgedError
	return message, errors.As(err, &ackErr)
}
