package main

import (
	"fmt"

	"patchnotes-bot/pkg/commands"

	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/urfave/cli/v2"
)

var commandFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "token",
		Usage:    "The bot's token",
		EnvVars:  []string{"DISCORD_TOKEN"},
		Required: true,
	},
	&cli.StringFlag{
		Name:     "app-id",
		Usage:    "The bot's application ID",
		EnvVars:  []string{"DISCORD_APPLICATION_ID"},
		Required: true,
	},
	&cli.StringFlag{
		Name:     "guild",
		Usage:    "The guild to synchronize slash commands to",
		EnvVars:  []string{"DISCORD_GUILD_ID"},
		Required: true,
	},
}

var registerCommand = &cli.Command{
	Name:   "register",
	Usage:  "Register the slash commands in the guild",
	Flags:  commandFlags,
	Action: func(c *cli.Context) error {
		client, appID, guildID, err := commandsClient(c)
		if err != nil {
			return err
		}
		created, err := commands.Register(client, appID, guildID, rest.WithCtx(c.Context))
		if err != nil {
			return fmt.Errorf("error while registering commands: %w", err)
		}
		for _, command := range created {
			fmt.Printf("Registered /%s\n", command.Name())
		}
		return nil
	},
}

var unregisterCommand = &cli.Command{
	Name:   "unregister",
	Usage:  "Remove every slash command of the bot from the guild",
	Flags:  commandFlags,
	Action: func(c *cli.Context) error {
		client, appID, guildID, err := commandsClient(c)
		if err != nil {
			return err
		}
		if err := commands.Unregister(client, appID, guildID, rest.WithCtx(c.Context)); err != nil {
			return fmt.Errorf("error while removing commands: %w", err)
		}
		fmt.Println("Removed all guild commands!")
		return nil
	},
}

func commandsClient(c *cli.Context) (rest.Rest, snowflake.ID, snowflake.ID, error) {
	appID, err := snowflake.Parse(c.String("app-id"))
	if err != nil {
		return nil, 0, 0, cli.Exit(fmt.Sprintf("invalid application id: %v", err), 1)
	}
	guildID, err := snowflake.Parse(c.String("guild"))
	if err != nil {
		return nil, 0, 0, cli.Exit(fmt.Sprintf("invalid guild id: %v", err), 1)
	}
	return rest.New(rest.NewClient(c.String("token"))), appID, guildID, nil
}
