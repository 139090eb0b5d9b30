package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	args := os.Args[1:]

	// Handle help flag first
	if len(args) >= 1 {
		switch args[0] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		if err := runCrew(args); err != nil {
			if !errors.Is(err, errReported) {
				fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			}
			os.Exit(1)
		}
		return
	}

	var err error
	switch args[0] {
	case "run":
		err = runCrew(args[1:])
	case "schedule":
		err = runSchedule(args[1:])
	case "history":
		err = runHistory(args[1:])
	case "mcp":
		err = runMCP(args[1:])
	case "doctor":
		err = runDoctor(args[1:])
	case "version":
		fmt.Println("content-crew " + version)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'crew --help' for usage information.\n", args[0])
		os.Exit(1)
	}
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		}
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`crew - multi-agent content pipeline

USAGE:
    crew [COMMAND] [FLAGS]

COMMANDS:
    run         Run the content crew on a prompt (default)
    schedule    Run the configured scheduler.tasks until interrupted
    history     List recorded runs, or show one with 'history <id>'
    mcp         Serve the content tools over MCP on stdio
    doctor      Run health checks on your setup
    version     Print the version

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file path (default: ./crew.yaml)
    -p, --prompt TEXT  Concept to run (run only)
    --agent NAME       Agent to start with (run only)
    --render           Render the final markdown for the terminal (run only)
    --limit N          Number of runs to list (history only, default 20)

CONFIGURATION:
    Config file: ./crew.yaml (or CREW_CONFIG)
    Environment: OPENAI_API_KEY is required; WAVESPEED_API_KEY enables the
                 image tools; CREW_* variables override config

EXAMPLES:
    crew                                      # Run the default concept
    crew run -p "Launch post for our new app" # Run a custom concept
    crew run --render                         # Pretty-print the final post
    crew history                              # Recent runs
    crew mcp                                  # Expose tools to an MCP client`)
}

// configPath resolves the config file from --config, CREW_CONFIG, or the
// default ./crew.yaml.
func configPath(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("CREW_CONFIG"); p != "" {
		return p
	}
	return "crew.yaml"
}
