// Command finance runs the stock trading simulator.
//
//	finance [-config finance.toml] serve
//	finance migrate
//	finance quote NFLX
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", "finance.toml", "Path to the TOML config file (optional)")

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&serveCmd{}, "server")
	subcommands.Register(&migrateCmd{}, "server")
	subcommands.Register(&quoteCmd{}, "tools")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
