package main

import (
	"fmt"
	"os"

	"patchnotes-bot/pkg"

	"github.com/urfave/cli/v2"
)

var app = &cli.App{
	Name:  "patchnotes-bot",
	Usage: "Announces merges from development to main in a Discord channel",

	DefaultCommand: runCommand.Name,
	// runs before the subcommand flags read their EnvVars
	Before: func(*cli.Context) error {
		pkg.LoadDotenv()
		return nil
	},
	Commands: []*cli.Command{
		runCommand,
		registerCommand,
		unregisterCommand,
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
