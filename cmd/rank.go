package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/citrank/internal/config"
	"github.com/papapumpkin/citrank/internal/pipeline"
	"github.com/papapumpkin/citrank/internal/ui"
)

var rankCmd = &cobra.Command{
	Use:   "rank <edges> <output>",
	Short: "Compute PageRank scores for an edge list",
	Long: `Reads "<source>,<target>" lines from <edges> (gzip if it ends in .gz), runs
the configured number of power-iteration rounds and writes "<id>,<score>" lines
to <output>.

By default a malformed line ends the input and the edges before it are ranked;
use --strict to fail instead.`,
	Args: cobra.ExactArgs(2),
	RunE: runRank,
}

func init() {
	addRankFlags(rankCmd)
	rootCmd.AddCommand(rankCmd)
}

// rankFlags maps flag names to config keys for commands that run the pipeline.
var rankFlags = map[string]string{
	"restart":       "restart",
	"iterations":    "iterations",
	"workers":       "workers",
	"strict":        "strict",
	"out-degrees":   "out_degrees",
	"in-degrees":    "in_degrees",
	"telemetry-dir": "telemetry_dir",
	"store":         "store_path",
	"manifest":      "manifest",
	"top":           "top",
}

func addRankFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64P("restart", "a", 0.15, "restart (teleport) probability")
	f.IntP("iterations", "k", 20, "number of power-iteration rounds")
	f.IntP("workers", "w", 1, "goroutines used to propagate edges")
	f.Bool("strict", false, "fail on the first malformed line instead of stopping there")
	f.String("out-degrees", "", "also write out-degrees to this file")
	f.String("in-degrees", "", "also write in-degrees to this file")
	f.String("telemetry-dir", ".citrank/telemetry", "directory for JSONL run telemetry (empty disables)")
	f.String("store", "", "SQLite run archive (empty disables archiving)")
	f.Bool("manifest", true, "write <output>.run.toml")
	f.Int("top", 10, "number of best nodes to print")
}

// bindFlags binds the command's flags to config keys. Binding happens when
// the command runs so commands that share flag names do not clobber each other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// jobFor builds a pipeline job from the merged configuration.
func jobFor(cfg config.Config, input, output string) pipeline.Job {
	return pipeline.Job{
		Input:        input,
		Output:       output,
		Restart:      cfg.Restart,
		Iterations:   cfg.Iterations,
		Workers:      cfg.Workers,
		Strict:       cfg.Strict,
		OutDegrees:   cfg.OutDegrees,
		InDegrees:    cfg.InDegrees,
		Manifest:     cfg.Manifest,
		StorePath:    cfg.StorePath,
		TelemetryDir: cfg.TelemetryDir,
		Top:          cfg.Top,
	}
}

func runRank(cmd *cobra.Command, args []string) error {
	start := time.Now()
	if err := bindFlags(cmd, rankFlags); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	printer := ui.New(cfg.Verbose)
	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	res, err := pipeline.NewRunner(printer).Run(ctx, jobFor(cfg, args[0], args[1]))
	if err != nil {
		return err
	}

	printer.Top(res.Top)
	printer.Overall(time.Since(start))
	return nil
}
