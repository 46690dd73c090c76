package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "serve":
		return runServe(args[1:])
	case "translate":
		return runTranslate(args[1:])
	case "batch":
		return runBatch(args[1:])
	case "providers":
		return runProviders(args[1:])
	case "usage":
		return runUsage(args[1:])
	case "evict-cache":
		return runEvictCache(args[1:])
	case "health":
		return runHealth(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "lisan CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  lisan <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  serve        Start the translation API server")
	fmt.Fprintln(os.Stderr, "  translate    Translate one text (fallback chain or one provider)")
	fmt.Fprintln(os.Stderr, "  batch        Translate every line of a file")
	fmt.Fprintln(os.Stderr, "  providers    List configured providers and their readiness")
	fmt.Fprintln(os.Stderr, "  usage        Print the usage report")
	fmt.Fprintln(os.Stderr, "  evict-cache  Remove expired cache entries")
	fmt.Fprintln(os.Stderr, "  health       Verify configuration and storage connectivity")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"lisan <command> -h\" for command-specific flags.")
}
