package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/citrank/internal/store"
	"github.com/papapumpkin/citrank/internal/ui"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived ranking runs",
	Long: `Lists the runs recorded in the SQLite archive, newest first.
With --run, shows that run's parameters and its highest-scoring nodes.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().String("store", "", "SQLite run archive (default: store_path from config)")
	runsCmd.Flags().String("run", "", "show the top scores of this run")
	runsCmd.Flags().Int("limit", 0, "number of scores to show with --run (default: top from config)")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(cmd, map[string]string{"store": "store_path"}); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StorePath == "" {
		return errors.New("runs: no archive configured; set store_path or pass --store")
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	printer := ui.NewTo(cmd.OutOrStdout(), cfg.Verbose)

	runID, _ := cmd.Flags().GetString("run")
	if runID == "" {
		runs, err := st.Runs(ctx)
		if err != nil {
			return err
		}
		printer.Runs(runs)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = cfg.Top
	}
	run, err := st.Run(ctx, runID)
	if err != nil {
		return fmt.Errorf("runs: %w", err)
	}
	scores, err := st.TopScores(ctx, runID, limit)
	if err != nil {
		return fmt.Errorf("runs: %w", err)
	}
	printer.RunScores(run, scores)
	return nil
}
