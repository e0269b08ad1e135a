package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pithos/internal/cli/output"
	"github.com/leapstack-labs/pithos/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit   int
	Target  string
	Command string
}

// HistoryEntry is the JSON output for one invocation.
type HistoryEntry struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	Target     string `json:"target"`
	Path       string `json:"path,omitempty"`
	Ecosystem  string `json:"ecosystem,omitempty"`
	ExitCode   int    `json:"exit_code"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent build, test and run invocations",
		Long: `List recorded invocations from the history database, newest first.

Recording is controlled by the history setting (default on) and stored at
state_path (default .pithos/state.db under the monorepo root).`,
		Example: `  pithos history
  pithos history --target engine --command test --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", state.DefaultLimit, "Maximum number of invocations to show")
	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "Only show invocations of this target")
	cmd.Flags().StringVarP(&opts.Command, "command", "c", "", "Only show build, test or run invocations")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	var invocations []*state.Invocation
	if _, statErr := os.Stat(cmdCtx.Cfg.StatePath); statErr == nil {
		store, err := cmdCtx.OpenHistory()
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer func() { _ = store.Close() }()

		invocations, err = store.ListInvocations(cmd.Context(), state.Filter{
			Target:  opts.Target,
			Command: opts.Command,
			Limit:   opts.Limit,
		})
		if err != nil {
			return err
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return fmt.Errorf("failed to open history: %w", statErr)
	}

	if r.EffectiveMode() == output.ModeJSON {
		entries := make([]HistoryEntry, 0, len(invocations))
		for _, inv := range invocations {
			entries = append(entries, HistoryEntry{
				ID:         inv.ID,
				Command:    inv.Command,
				Target:     inv.Target,
				Path:       inv.Path,
				Ecosystem:  inv.Ecosystem,
				ExitCode:   inv.ExitCode,
				Error:      inv.Error,
				StartedAt:  inv.StartedAt.Format(time.RFC3339),
				DurationMS: inv.Duration.Milliseconds(),
			})
		}
		return r.JSON(entries)
	}

	if len(invocations) == 0 {
		r.Info("No invocations recorded")
		return nil
	}

	styles := r.Styles()
	rows := make([][]string, 0, len(invocations))
	for _, inv := range invocations {
		status := styles.StatusSuccess.String()
		if !inv.Succeeded() {
			status = styles.StatusFailed.String() + " " + strconv.Itoa(inv.ExitCode)
		}
		if r.EffectiveMode() == output.ModeMarkdown {
			status = strconv.Itoa(inv.ExitCode)
		}
		rows = append(rows, []string{
			inv.StartedAt.Local().Format("2006-01-02 15:04:05"),
			inv.Command,
			inv.Target,
			inv.Ecosystem,
			status,
			inv.Duration.Round(time.Millisecond).String(),
		})
	}

	r.Header(1, "History")
	r.Table([]string{"Started", "Command", "Target", "Ecosystem", "Exit", "Duration"}, rows)
	return nil
}
