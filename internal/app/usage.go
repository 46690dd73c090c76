package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/lisan/internal/cli"
)

func runUsage(args []string) int {
	fs := flag.NewFlagSet("usage", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	reset := fs.Bool("reset", false, "Zero every usage counter after printing the report")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rt, err := bootstrap(ctx, envLoader, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer rt.Close()

	if !rt.cfg.UsesDatabase() {
		rt.logger.Warn().Msg("DATABASE_URL is not set; counters only cover this process")
	}

	ledger := rt.orchestrator.Ledger()
	if err := printJSON(ledger.Report()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}

	if *reset {
		if err := ledger.Reset(ctx); err != nil {
			rt.logger.Error().Err(err).Msg("usage reset failed")
			fmt.Fprintf(os.Stderr, "Failed to reset usage: %v\n", err)
			return 1
		}
		rt.logger.Info().Msg("usage counters reset")
	}
	return 0
}
