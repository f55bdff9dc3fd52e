package main

import (
	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  string           `kong:"default='http://localhost:8080',help='Daemon base URL'"`
	NoColor bool             `kong:"name='no-color',help='Disable colored output'"`
	Debug   bool             `kong:"help='Enable debug logging'"`

	Create  CreateCmd  `cmd:"" help:"Create a game and print the room code"`
	Join    JoinCmd    `cmd:"" help:"Join a game as a player"`
	Watch   WatchCmd   `cmd:"" help:"Watch a table live"`
	List    ListCmd    `cmd:"" help:"List games on the daemon"`
	Metrics MetricsCmd `cmd:"" help:"Show game counts per reporting window"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pokerctl"),
		kong.Description("Operator CLI for the poker daemon"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	if cli.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
