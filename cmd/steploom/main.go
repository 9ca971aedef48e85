package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshharrison/steploom/internal/config"
	"github.com/joshharrison/steploom/internal/reorder"
	"github.com/joshharrison/steploom/internal/reporter"
	"github.com/joshharrison/steploom/internal/scheduler"
	"github.com/joshharrison/steploom/internal/state"
	"github.com/joshharrison/steploom/internal/ui"
	"github.com/joshharrison/steploom/internal/viewer"
	"github.com/joshharrison/steploom/internal/watch"
	"github.com/joshharrison/steploom/internal/worklist"
)

var version = "dev"

var (
	flagConfig       string
	flagDurations    string
	flagDurationPath string
	flagSheet        string
	flagAdvance      string
	flagImagingLabel string
	flagLogLevel     string
	flagVerbose      bool
	flagStateDir     string
	flagJSON         bool
	flagFormat       string
	flagOutput       string

	cfg *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "steploom",
		Short: "Reorder liquid-handler worklists so timed steps start on schedule",
		Long: `Steploom reads a liquid-handler worklist, links its groups into per-destination
lanes, and greedily reorders them so that steps with a required incubation
time run as close to their target as possible. The reordered worklist is
written back with groups renumbered in execution order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(flagConfig, cmd.Flags())
			if err != nil {
				return err
			}
			cfg = c
			logger := cfg.NewLogger(os.Stderr)
			if cfg.FileUsed != "" {
				logger.Debug("config loaded", "file", cfg.FileUsed)
			}
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default steploom.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDurations, "durations", "", "Duration table (csv, xlsx, json or yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDurationPath, "duration-path", "", "gjson path to the entries in a JSON duration table")
	rootCmd.PersistentFlags().StringVar(&flagSheet, "sheet", "", "Sheet name for xlsx files")
	rootCmd.PersistentFlags().StringVar(&flagAdvance, "advance", string(scheduler.AdvanceForward), "Next group after a choice: forward or candidate")
	rootCmd.PersistentFlags().StringVar(&flagImagingLabel, "imaging-label", scheduler.DefaultImagingLabel, "Step label ranked ahead of other timed steps")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging (trace every scheduling decision)")
	rootCmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", config.DefaultStateDir, "Directory for run records")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", config.DefaultFormat, "Output format: table, json or csv")

	rootCmd.AddCommand(reorderCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(viewCmd())
	rootCmd.AddCommand(cleanCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadInputs reads the worklist and the duration table concurrently.
func loadInputs(ctx context.Context, path string) (*worklist.Table, []worklist.DurationEntry, error) {
	if cfg.Durations == "" {
		return nil, nil, fmt.Errorf("no duration table given (use --durations or set durations in steploom.yaml)")
	}

	var (
		table     *worklist.Table
		durations []worklist.DurationEntry
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := worklist.Load(path, cfg.Sheet)
		if err != nil {
			return err
		}
		table = t
		return nil
	})
	g.Go(func() error {
		d, err := worklist.LoadDurations(cfg.Durations, worklist.DurationOptions{
			Sheet:    cfg.Sheet,
			JSONPath: cfg.DurationPath,
		})
		if err != nil {
			return err
		}
		durations = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return table, durations, nil
}

func reorderCmd() *cobra.Command {
	var flagWatch bool

	cmd := &cobra.Command{
		Use:   "reorder <worklist>",
		Short: "Schedule groups and write the reordered worklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := config.GetLogger(ctx)
			source := args[0]
			if flagWatch && cfg.Durations == "" {
				return fmt.Errorf("--watch needs a duration table (use --durations)")
			}

			if err := runReorder(ctx, source); err != nil {
				if !flagWatch {
					return err
				}
				fmt.Fprintf(os.Stderr, "%s %v\n", ui.Red("✗"), err)
			}
			if !flagWatch {
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Printf("\n👀 Watching %s and %s (Ctrl-C to stop)\n", source, cfg.Durations)
			return watch.Files(ctx, []string{source, cfg.Durations}, watch.DefaultDebounce, logger, func(path string) {
				fmt.Printf("\n%s %s changed, reordering\n", ui.Dim("↻"), path)
				if err := runReorder(ctx, source); err != nil {
					fmt.Fprintf(os.Stderr, "%s %v\n", ui.Red("✗"), err)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write the reordered worklist to this file (csv or xlsx)")
	cmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "Re-run whenever the worklist or duration table changes")
	return cmd
}

// runReorder loads, schedules, writes and records one reorder of source.
func runReorder(ctx context.Context, source string) error {
	logger := config.GetLogger(ctx)

	table, durations, err := loadInputs(ctx, source)
	if err != nil {
		return err
	}

	res, err := reorder.ReorderGroups(table.Items, durations, reorder.Options{
		Advance:      scheduler.AdvanceMode(cfg.Advance),
		ImagingLabel: cfg.ImagingLabel,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("reorder %s: %w", source, err)
	}

	out := &worklist.Table{Header: table.Header, Items: res.Items}
	if cfg.Output != "" {
		if err := worklist.Save(cfg.Output, out, cfg.Sheet); err != nil {
			return fmt.Errorf("write %s: %w", cfg.Output, err)
		}
		logger.Info("worklist written", "path", cfg.Output, "rows", len(out.Items))
	}

	store := state.NewStore(cfg.StateDir)
	if err := store.Archive(); err != nil {
		logger.Warn("could not archive previous run", "err", err)
	}
	if err := store.Save(state.NewRecord(res, source, cfg.Output)); err != nil {
		logger.Warn("could not save run record", "err", err)
	}

	rpt := reporter.FromResult(res, source, cfg.Output)
	switch cfg.Format {
	case config.FormatCSV:
		return worklist.WriteCSV(os.Stdout, out)
	case config.FormatJSON:
		return outputJSON(rpt)
	}
	rpt.PrintSchedule(os.Stdout)
	fmt.Println()
	rpt.PrintLanes(os.Stdout)
	rpt.PrintSummary(os.Stdout)
	return nil
}

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <worklist>",
		Short: "Renumber groups 1..K by first appearance without scheduling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := worklist.Load(args[0], cfg.Sheet)
			if err != nil {
				return err
			}
			out := &worklist.Table{Header: table.Header, Items: reorder.ResetGroup(table.Items)}

			if cfg.Output != "" {
				if err := worklist.Save(cfg.Output, out, cfg.Sheet); err != nil {
					return fmt.Errorf("write %s: %w", cfg.Output, err)
				}
				fmt.Printf("%s %s (%d rows)\n", ui.Green("✓"), cfg.Output, len(out.Items))
				return nil
			}
			if cfg.Format == config.FormatJSON {
				return outputJSON(out.Items)
			}
			return worklist.WriteCSV(os.Stdout, out)
		},
	}

	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write the renumbered worklist to this file (csv or xlsx)")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <worklist>",
		Short: "Check durations and dependencies without scheduling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, durations, err := loadInputs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rep, err := reorder.Validate(table.Items, durations)
			if err != nil {
				return fmt.Errorf("validate %s: %w", args[0], err)
			}
			if cfg.Format == config.FormatJSON {
				return outputJSON(rep)
			}
			reporter.PrintValidation(os.Stdout, args[0], rep)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	var flagPrevious bool
	var flagRunID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last recorded reorder run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagPrevious && flagRunID != "" {
				return fmt.Errorf("--previous and --run are mutually exclusive")
			}

			store := state.NewStore(cfg.StateDir)
			var (
				rec *state.RunRecord
				err error
			)
			switch {
			case flagPrevious:
				rec, err = store.LoadPrevious()
				if err != nil {
					return fmt.Errorf("load previous run: %w", err)
				}
			case flagRunID != "":
				rec, err = store.LoadArchived(flagRunID)
				if err != nil {
					return fmt.Errorf("load archived run %s: %w", flagRunID, err)
				}
			default:
				if !store.Exists() {
					return fmt.Errorf("no recorded run (no %s/state.json found)", store.Dir)
				}
				rec, err = store.Load()
				if err != nil {
					return err
				}
			}

			rpt := reporter.New(rec)
			if cfg.Format == config.FormatJSON {
				return outputJSON(rpt)
			}
			rpt.PrintSchedule(os.Stdout)
			rpt.PrintSummary(os.Stdout)

			if ids, err := store.ListHistory(); err == nil && len(ids) > 0 {
				fmt.Printf("\n%s %d archived run(s), latest %s\n", ui.Dim("History:"), len(ids), ui.Dim(ids[0]))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagPrevious, "previous", false, "Show the most recently archived run")
	cmd.Flags().StringVar(&flagRunID, "run", "", "Show a specific archived run by id")
	return cmd
}

func viewCmd() *cobra.Command {
	var (
		flagPort     int
		flagPrevious bool
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Serve the last run's group graph for a browser visualiser",
		Long: `Starts a local HTTP server exposing the recorded run as a node/edge graph
at /graph. If a viewer is already listening on the port, the run is posted
to it instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := config.GetLogger(cmd.Context())
			store := state.NewStore(cfg.StateDir)

			var (
				rec *state.RunRecord
				err error
			)
			if flagPrevious {
				rec, err = store.LoadPrevious()
			} else {
				rec, err = store.Load()
			}
			if err != nil {
				return fmt.Errorf("load run: %w", err)
			}

			if viewer.IsPortOpen(fmt.Sprintf("localhost:%d", flagPort)) {
				addr := fmt.Sprintf("http://localhost:%d", flagPort)
				if err := viewer.PostRecord(addr, rec); err != nil {
					return err
				}
				fmt.Printf("%s posted %s to %s\n", ui.Green("✓"), rec.ID, addr)
				return nil
			}

			addr, err := viewer.Start(flagPort, rec)
			if err != nil {
				return err
			}
			logger.Info("viewer started", "addr", addr, "run", rec.ID)
			fmt.Printf("🌐 Serving %s at %s/graph (Ctrl-C to stop)\n", ui.Dim(rec.ID), addr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().IntVar(&flagPort, "port", 7272, "Viewer HTTP port")
	cmd.Flags().BoolVar(&flagPrevious, "previous", false, "Serve the most recently archived run")
	return cmd
}

func cleanCmd() *cobra.Command {
	var flagAll bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the current run record",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := state.NewStore(cfg.StateDir)
			if flagAll {
				if err := store.Clean(); err != nil {
					return fmt.Errorf("remove %s: %w", store.Dir, err)
				}
				fmt.Printf("%s removed %s\n", ui.Green("✓"), store.Dir)
				return nil
			}
			if err := store.CleanCurrent(); err != nil {
				return err
			}
			fmt.Printf("%s cleared current run (history kept)\n", ui.Green("✓"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagAll, "all", false, "Also remove archived history")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the steploom version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("steploom", version)
			return nil
		},
	}
}

func outputJSON(v interface{}) error {
	if r, ok := v.(*reporter.Reporter); ok {
		data, err := r.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
