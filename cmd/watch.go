package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/citrank/internal/pipeline"
	"github.com/papapumpkin/citrank/internal/ui"
	"github.com/papapumpkin/citrank/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <edges> <output>",
	Short: "Re-rank an edge list every time it changes",
	Long: `Runs the same job as "rank", then watches <edges> and runs it again from
scratch each time the file is rewritten. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

func init() {
	addRankFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	w, err := watch.New(args[0])
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	runner := pipeline.NewRunner(printer)
	job := jobFor(cfg, args[0], args[1])
	rerank := func() {
		start := time.Now()
		res, err := runner.Run(ctx, job)
		if err != nil {
			if ctx.Err() == nil {
				printer.Error(err.Error())
			}
			return
		}
		printer.Top(res.Top)
		printer.Overall(time.Since(start))
	}

	rerank()
	printer.Watching(args[0])
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if c.Kind == watch.ChangeRemoved {
				printer.Info(fmt.Sprintf("%s was removed; waiting for it to reappear", c.Path))
				continue
			}
			rerank()
		}
	}
}
