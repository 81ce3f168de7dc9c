package main

import (
	"github.com/alecthomas/kong"

	"github.com/lox/fillblanks/internal/server"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version   kong.VersionFlag `short:"v" help:"Show version"`
	Server    ServerCmd        `cmd:"" help:"Run the game server"`
	Bot       BotCmd           `cmd:"" help:"Run random automated players against a server"`
	CheckDeck CheckDeckCmd     `cmd:"check-deck" help:"Lint deck source files"`
}

func options() []kong.Option {
	return []kong.Option{
		kong.Name("fillblanks"),
		kong.Description("Multiplayer fill-in-the-blank party card game server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":     version,
			"config_file": server.DefaultConfigFile,
		},
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, options()...)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
