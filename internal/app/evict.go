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

func runEvictCache(args []string) int {
	fs := flag.NewFlagSet("evict-cache", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rt, err := bootstrap(ctx, envLoader, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer rt.Close()

	cache := rt.orchestrator.Cache()
	if cache == nil {
		fmt.Fprintln(os.Stderr, "cache is disabled (LISAN_CACHE_ENABLED=false)")
		return 0
	}

	removed, err := cache.EvictExpired(ctx)
	if err != nil {
		rt.logger.Error().Err(err).Msg("cache eviction failed")
		fmt.Fprintf(os.Stderr, "Failed to evict cache entries: %v\n", err)
		return 1
	}
	remaining, err := cache.Len(ctx)
	if err != nil {
		rt.logger.Warn().Err(err).Msg("count cache entries")
	}

	rt.logger.Info().Int64("removed", removed).Int64("remaining", remaining).Msg("cache eviction finished")
	if err := printJSON(map[string]int64{"removed": removed, "remaining": remaining}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}
