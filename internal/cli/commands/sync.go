package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pithos/internal/cli/output"
	"github.com/leapstack-labs/pithos/internal/protosync"
)

// SyncOptions holds options for the sync command.
type SyncOptions struct {
	Force bool
	Watch bool
}

// SyncOutput is the JSON output for one language.
type SyncOutput struct {
	Lang      string `json:"lang"`
	Stale     bool   `json:"stale"`
	Reason    string `json:"reason"`
	Protos    int    `json:"protos"`
	Generated int    `json:"generated"`
	Warning   string `json:"warning,omitempty"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	opts := &SyncOptions{}
	cmd := &cobra.Command{
		Use:   "sync [go|python|all]",
		Short: "Regenerate protobuf bindings when they are stale",
		Long: `Compare the newest .proto under idl/ with the generated output root
(gen/<lang>) and run the generator once per .proto when the sources are
newer. Without an argument, every language is synced.

--watch keeps running and re-syncs whenever a .proto file changes.`,
		Example: `  # Sync both languages
  pithos sync

  # Always regenerate Go bindings
  pithos sync go --force

  # Keep bindings fresh while editing
  pithos sync --watch`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: append(append([]string{}, protosync.Langs...), "all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Regenerate even when bindings are up to date")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Watch idl/ and re-sync on changes")
	cmd.MarkFlagsMutuallyExclusive("force", "watch")

	return cmd
}

// SyncLangs maps the sync argument to the languages it covers.
func SyncLangs(arg string) ([]string, error) {
	switch arg {
	case "", "all":
		return protosync.Langs, nil
	case protosync.LangGo, protosync.LangPython:
		return []string{arg}, nil
	default:
		return nil, fmt.Errorf("unknown language %q (expected go, python or all)", arg)
	}
}

func runSync(cmd *cobra.Command, opts *SyncOptions, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	langs, err := SyncLangs(arg)
	if err != nil {
		return err
	}

	generator := cmdCtx.Cfg.Generator[0]
	if err := cmdCtx.Tools.Require(generator); err != nil {
		return err
	}

	syncer := cmdCtx.Syncer(cmdCtx.Cfg.ProjectRoot)
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	if opts.Watch {
		r.Info(fmt.Sprintf("Watching %s (Ctrl-C to stop)", syncer.IDLRoot()))
		return syncer.Watch(ctx, langs, func(res *protosync.Result, err error) {
			if err != nil {
				r.Error(err.Error())
				return
			}
			if res.Stale {
				printSyncLine(r, res)
			}
		})
	}

	results := make([]SyncOutput, 0, len(langs))
	var warnings int
	for _, lang := range langs {
		var res *protosync.Result
		if opts.Force {
			res, err = syncer.Force(ctx, lang)
		} else {
			res, err = syncer.Sync(ctx, lang)
		}
		if err != nil {
			return err
		}
		if res.Warning != nil {
			warnings++
		}
		results = append(results, newSyncOutput(res))
		if r.EffectiveMode() != output.ModeJSON {
			printSyncLine(r, res)
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(results); err != nil {
			return err
		}
	}
	if warnings > 0 {
		return fmt.Errorf("proto generation failed for %d of %d languages", warnings, len(langs))
	}
	return nil
}

func newSyncOutput(res *protosync.Result) SyncOutput {
	out := SyncOutput{
		Lang:      res.Lang,
		Stale:     res.Stale,
		Reason:    res.Reason,
		Protos:    len(res.Protos),
		Generated: res.Generated,
	}
	if res.Warning != nil {
		out.Warning = res.Warning.Error()
	}
	return out
}

func printSyncLine(r *output.Renderer, res *protosync.Result) {
	switch {
	case res.Warning != nil:
		r.StatusLine(res.Lang, "failed", res.Warning.Error())
	case res.Stale:
		r.StatusLine(res.Lang, "success", fmt.Sprintf("regenerated %d/%d protos (%s)", res.Generated, len(res.Protos), res.Reason))
	default:
		r.StatusLine(res.Lang, "success", res.Reason)
	}
}
