package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/lisan/internal/cli"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Second, "Database ping timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := bootstrap(ctx, envLoader, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer rt.Close()

	if rt.pool != nil {
		if err := rt.pool.Ping(ctx); err != nil {
			rt.logger.Error().Err(err).Msg("health check failed")
			fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
			return 1
		}
		fmt.Println("ok: database ping successful")
	} else {
		fmt.Println("ok: in-memory storage (DATABASE_URL not set)")
	}

	available := rt.orchestrator.AvailableProviders()
	rt.logger.Info().
		Dur("timeout", *timeout).
		Strs("providers", available).
		Msg("health check passed")
	fmt.Printf("ok: providers ready: %s\n", strings.Join(available, ", "))
	return 0
}
