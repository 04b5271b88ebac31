package commands

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

var Commands = []discord.ApplicationCommandCreate{
	discord.SlashCommandCreate{
		Name:        "patchnotes",
		Description: "Post the latest patch notes manually.",
	},
	discord.SlashCommandCreate{
		Name:        "commits",
		Description: "Post the latest patch notes manually.",
	},
}

// GuildCommands is the part of disgo's rest.Rest used to sync commands.
type GuildCommands interface {
	SetGuildCommands(applicationID snowflake.ID, guildID snowflake.ID, commandCreates []discord.ApplicationCommandCreate, opts ...rest.RequestOpt) ([]discord.ApplicationCommand, error)
}

// Register overwrites the guild's commands with Commands.
func Register(client GuildCommands, applicationID snowflake.ID, guildID snowflake.ID, opts ...rest.RequestOpt) ([]discord.ApplicationCommand, error) {
	return client.SetGuildCommands(applicationID, guildID, Commands, opts...)
}

// Unregister removes every command of the application from the guild.
func Unregister(client GuildCommands, applicationID snowflake.ID, guildID snowflake.ID, opts ...rest.RequestOpt) error {
	_, err := client.SetGuildCommands(applicationID, guildID, []discord.ApplicationCommandCreate{}, opts...)
	return err
}
