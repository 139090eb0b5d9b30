package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"content-crew/internal/adapter/store"
	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
)

const defaultHistoryLimit = 20

// historyFlags holds the flags of the history command.
type historyFlags struct {
	ID    string
	Limit int
}

func parseHistoryFlags(args []string) (historyFlags, error) {
	flags := historyFlags{Limit: defaultHistoryLimit}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--limit" && i+1 < len(args):
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n <= 0 {
				return historyFlags{}, fmt.Errorf("--limit must be a positive number, got %q", args[i+1])
			}
			flags.Limit = n
			i++
		case arg == "--config" && i+1 < len(args):
			i++
		case strings.HasPrefix(arg, "--config="):
		case strings.HasPrefix(arg, "-"):
			return historyFlags{}, fmt.Errorf("unknown flag %q", arg)
		case flags.ID == "":
			flags.ID = arg
		default:
			return historyFlags{}, fmt.Errorf("unexpected argument %q", arg)
		}
	}
	return flags, nil
}

// runHistory lists recorded runs or prints one run in full. It opens the
// store directly and needs no API key.
func runHistory(args []string) error {
	flags, err := parseHistoryFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath(args))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !cfg.Store.Enabled {
		return fmt.Errorf("run history is disabled: set store.enabled in the config")
	}

	s, err := store.NewSQLiteRunStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if flags.ID != "" {
		rec, err := s.GetRun(ctx, flags.ID)
		if err != nil {
			return err
		}
		printRun(os.Stdout, *rec)
		return nil
	}

	runs, err := s.ListRuns(ctx, flags.Limit)
	if err != nil {
		return err
	}
	printRuns(os.Stdout, runs)
	return nil
}

func printRuns(w io.Writer, runs []domain.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tLAST AGENT\tTURNS\tTOKENS\tINPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Status,
			r.LastAgent,
			r.Turns,
			r.TotalTokens,
			preview(r.Input, 40),
		)
	}
	tw.Flush()
}

func printRun(w io.Writer, r domain.RunRecord) {
	fmt.Fprintf(w, "Run:         %s\n", r.ID)
	fmt.Fprintf(w, "Status:      %s\n", r.Status)
	fmt.Fprintf(w, "Start agent: %s\n", r.StartAgent)
	fmt.Fprintf(w, "Last agent:  %s\n", r.LastAgent)
	fmt.Fprintf(w, "Started:     %s\n", r.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Duration:    %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "Turns:       %d\n", r.Turns)
	fmt.Fprintf(w, "Tokens:      %d\n", r.TotalTokens)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:       [%s] %s\n", r.ErrorCode, r.Error)
	}
	fmt.Fprintf(w, "\nInput:\n%s\n", r.Input)
	if r.FinalOutput != "" {
		fmt.Fprintf(w, "\nOutput:\n%s\n", r.FinalOutput)
	}
}

// preview flattens s to one line of at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
