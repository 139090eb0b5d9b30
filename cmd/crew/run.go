package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"content-crew/internal/adapter/console"
	"content-crew/internal/infra/config"
)

// renderWidth is the wrap column for --render.
const renderWidth = 100

// errReported marks an error the console already printed.
var errReported = errors.New("run failed")

// runFlags holds the flags of the run command.
type runFlags struct {
	Prompt string
	Agent  string
	Render bool
}

// parseRunFlags extracts -p/--prompt, --agent and --render. --config is
// accepted and left to configPath.
func parseRunFlags(args []string) (runFlags, error) {
	var flags runFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case (arg == "-p" || arg == "--prompt") && i+1 < len(args):
			flags.Prompt = args[i+1]
			i++
		case strings.HasPrefix(arg, "--prompt="):
			flags.Prompt = strings.TrimPrefix(arg, "--prompt=")
		case arg == "--agent" && i+1 < len(args):
			flags.Agent = args[i+1]
			i++
		case strings.HasPrefix(arg, "--agent="):
			flags.Agent = strings.TrimPrefix(arg, "--agent=")
		case arg == "--render":
			flags.Render = true
		case arg == "--config" && i+1 < len(args):
			i++
		case strings.HasPrefix(arg, "--config="):
		default:
			return runFlags{}, fmt.Errorf("unknown argument %q", arg)
		}
	}
	return flags, nil
}

// runCrew runs one prompt through the crew, streaming model text to stdout.
func runCrew(args []string) error {
	flags, err := parseRunFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := bootstrap(ctx, args, false)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if err := requireAPIKey(a.cfg); err != nil {
		return err
	}

	prompt := firstNonEmpty(flags.Prompt, a.cfg.Crew.Prompt, config.DefaultPrompt)
	agent := firstNonEmpty(flags.Agent, a.cfg.Crew.StartAgent)

	printer := console.New(os.Stdout, os.Stderr, console.WithDeltas(true))
	runner, err := a.newRunner(printer)
	if err != nil {
		return err
	}

	runCtx, cancelRun := context.WithTimeout(ctx, a.cfg.Crew.Timeout)
	defer cancelRun()

	res, err := runner.RunStream(runCtx, agent, prompt)
	if err != nil {
		printer.Error("run failed:", err)
		return errReported
	}

	output := res.FinalOutput
	if flags.Render {
		if rendered, err := console.RenderMarkdown(output, renderWidth); err != nil {
			a.log.Warn("markdown render failed", "error", err)
		} else {
			output = rendered
		}
	}

	printer.Section("Final Output")
	fmt.Fprintln(os.Stdout, output)

	a.log.Info("run finished",
		"run_id", res.RunID,
		"last_agent", res.LastAgent,
		"turns", res.Turns,
		"total_tokens", res.Usage.TotalTokens,
	)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
