package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Config   string `short:"c" default:"arena.hcl" help:"Path to the HCL run configuration"`
	LogLevel string `help:"Log level (debug|info|warn|error), overrides the config file"`
	EnvFile  string `help:"Dotenv file to load before reading API keys, overrides the config file"`
}

type CLI struct {
	Globals

	Version   kong.VersionFlag `short:"v" help:"Show version"`
	Play      PlayCmd          `cmd:"" help:"Play a game between LLM agents"`
	Games     GamesCmd         `cmd:"" help:"List available games"`
	Agents    AgentsCmd        `cmd:"" help:"List configured agents"`
	Providers ProvidersCmd     `cmd:"" help:"List configured model providers"`
	History   HistoryCmd       `cmd:"" help:"Browse recorded game ledgers"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("arena"),
		kong.Description("Multi-round games between LLM agents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
