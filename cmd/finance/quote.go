package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/google/subcommands"

	"finance-sim/internal/model"
	"finance-sim/internal/portfolio"
)

type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "look up the current price of one or more symbols" }
func (*quoteCmd) Usage() string {
	return `quote <symbol>...

  Prints name and price for each symbol using the configured quote source.
`
}

func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (*quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		log.Printf("[quote] %v", err)
		return subcommands.ExitFailure
	}

	provider, closeCache, err := buildProvider(cfg, nil, nil, slog.Default())
	if err != nil {
		log.Printf("[quote] %v", err)
		return subcommands.ExitFailure
	}
	defer closeCache()

	// Quote never touches the ledger.
	engine := portfolio.NewEngine(nil, provider, portfolio.WithQuoteTimeout(cfg.QuoteTimeout()))

	status := subcommands.ExitSuccess
	for _, sym := range f.Args() {
		q, err := engine.Quote(ctx, sym)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", model.NormalizeSymbol(sym), err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("%-8s %-32s %s\n", q.Symbol, q.Name, model.USD(q.Price))
	}
	return status
}
