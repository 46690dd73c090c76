package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"horse.fit/lisan/internal/cli"
	"horse.fit/lisan/internal/langdetect"
	"horse.fit/lisan/internal/language"
	"horse.fit/lisan/internal/translation"
)

type translateOutput struct {
	Text   string              `json:"text"`
	Source language.Lang       `json:"source_lang"`
	Target language.Lang       `json:"target_lang"`
	Result *translation.Result `json:"result"`
}

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	from := fs.String("from", "auto", "Source language (ar, en or auto)")
	to := fs.String("to", "", "Target language (defaults to the other side of the pair)")
	provider := fs.String("provider", "", "Use only this provider instead of the fallback chain")
	contextFile := fs.String("context-file", "", "JSON file with prior conversation turns ([{\"role\",\"content\"}])")
	timeout := fs.Duration("timeout", 60*time.Second, "Overall timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read stdin: %v\n", err)
			return 1
		}
		text = strings.TrimSpace(string(raw))
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "text is required (as arguments or on stdin)")
		return 2
	}
	if *provider != "" && *contextFile != "" {
		fmt.Fprintln(os.Stderr, "--provider and --context-file cannot be combined")
		return 2
	}

	source, target, err := parsePair(text, *from, *to)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	var history []translation.Message
	if *contextFile != "" {
		history, err = readHistory(*contextFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read context file: %v\n", err)
			return 2
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := bootstrap(ctx, envLoader, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer rt.Close()

	var result *translation.Result
	switch {
	case *contextFile != "":
		result, err = rt.orchestrator.TranslateWithContext(ctx, text, source, target, history)
	case *provider != "":
		result, err = rt.orchestrator.TranslateWithAPI(ctx, *provider, text, source, target)
	default:
		result, err = rt.orchestrator.SmartTranslate(ctx, text, source, target)
	}
	if err != nil {
		rt.logger.Error().Err(err).Str("source", string(source)).Str("target", string(target)).Msg("translate failed")
		fmt.Fprintf(os.Stderr, "Translation failed: %v\n", err)
		return 1
	}

	if err := printJSON(translateOutput{Text: text, Source: source, Target: target, Result: result}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}

// parsePair resolves --from/--to. An "auto" source is detected from sample.
func parsePair(sample, rawSource, rawTarget string) (language.Lang, language.Lang, error) {
	source := language.Auto
	if strings.TrimSpace(rawSource) != "" {
		parsed, err := language.Parse(rawSource)
		if err != nil {
			return "", "", fmt.Errorf("--from: %w", err)
		}
		source = parsed
	}
	if source == language.Auto {
		source = langdetect.DetectArEn(sample)
		if source == "" {
			return "", "", fmt.Errorf("--from: could not detect the source language; pass ar or en")
		}
	}

	if strings.TrimSpace(rawTarget) == "" {
		return source, source.Other(), nil
	}
	target, err := language.Parse(rawTarget)
	if err != nil {
		return "", "", fmt.Errorf("--to: %w", err)
	}
	if target == language.Auto {
		return "", "", fmt.Errorf("--to: target language cannot be auto")
	}
	return source, target, nil
}

func readHistory(path string) ([]translation.Message, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var history []translation.Message
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return history, nil
}
