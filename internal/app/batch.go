package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/lisan/internal/cli"
	"horse.fit/lisan/internal/config"
	"horse.fit/lisan/internal/language"
	"horse.fit/lisan/internal/translation"
)

type batchOutput struct {
	Source    language.Lang           `json:"source_lang"`
	Target    language.Lang           `json:"target_lang"`
	Items     []translation.BatchItem `json:"items"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
}

func runBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	file := fs.String("file", "", "File with one text per line (\"-\" for stdin)")
	from := fs.String("from", "auto", "Source language (ar, en or auto)")
	to := fs.String("to", "", "Target language (defaults to the other side of the pair)")
	concurrency := fs.Int("concurrency", 0, "Items translated at once (0 uses LISAN_BATCH_CONCURRENCY)")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*file) == "" && fs.NArg() > 0 {
		*file = fs.Arg(0)
	}
	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "a file is required (--file or first argument)")
		return 2
	}
	if *concurrency < 0 {
		fmt.Fprintln(os.Stderr, "--concurrency must be >= 0")
		return 2
	}

	texts, err := readLines(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *file, err)
		return 1
	}
	if len(texts) == 0 {
		fmt.Fprintln(os.Stderr, "no texts to translate")
		return 2
	}

	source, target, err := parsePair(strings.Join(texts, "\n"), *from, *to)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := bootstrap(ctx, envLoader, func(cfg *config.Config) {
		if *concurrency > 0 {
			cfg.BatchConcurrency = *concurrency
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer rt.Close()

	items := rt.orchestrator.BatchTranslate(ctx, texts, source, target)
	out := batchOutput{Source: source, Target: target, Items: items}
	for _, item := range items {
		if item.Err != nil {
			out.Failed++
			continue
		}
		out.Succeeded++
	}

	rt.logger.Info().
		Int("items", len(items)).
		Int("succeeded", out.Succeeded).
		Int("failed", out.Failed).
		Msg("batch finished")

	if err := printJSON(out); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	if out.Succeeded == 0 {
		return 1
	}
	return 0
}

// readLines returns the non-blank lines of path, or of stdin when path is "-".
func readLines(path string) ([]string, error) {
	input := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		input = f
	}

	var lines []string
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
