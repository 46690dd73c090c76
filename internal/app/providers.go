package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/lisan/internal/cli"
	"horse.fit/lisan/internal/translation"
)

type providersOutput struct {
	Active    string                           `json:"active"`
	Available []string                         `json:"available"`
	Providers []translation.ProviderStatus     `json:"providers"`
	Tests     []translation.ProviderTestResult `json:"tests,omitempty"`
}

func runProviders(args []string) int {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	test := fs.Bool("test", false, "Send a test translation through every ready provider")
	timeout := fs.Duration("timeout", 2*time.Minute, "Overall timeout")

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
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer rt.Close()

	out := providersOutput{
		Active:    rt.orchestrator.ActiveProvider(),
		Available: rt.orchestrator.AvailableProviders(),
		Providers: rt.orchestrator.ProviderStatuses(),
	}

	failed := 0
	if *test {
		for _, id := range out.Available {
			result := rt.orchestrator.TestProvider(ctx, id)
			if !result.Success {
				failed++
			}
			out.Tests = append(out.Tests, result)
		}
	}

	if err := printJSON(out); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	if failed > 0 {
		return 1
	}
	return 0
}
