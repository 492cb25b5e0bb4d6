package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/citrank/internal/pipeline"
	"github.com/papapumpkin/citrank/internal/ui"
)

var degreesCmd = &cobra.Command{
	Use:   "degrees <edges>",
	Short: "Write out-degree and in-degree counts without ranking",
	Args:  cobra.ExactArgs(1),
	RunE:  runDegrees,
}

func init() {
	degreesCmd.Flags().String("out", "", "write out-degrees to this file")
	degreesCmd.Flags().String("in", "", "write in-degrees to this file")
	degreesCmd.Flags().Bool("strict", false, "fail on the first malformed line instead of stopping there")
	rootCmd.AddCommand(degreesCmd)
}

func runDegrees(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"out":    "out_degrees",
		"in":     "in_degrees",
		"strict": "strict",
	}); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	job := jobFor(cfg, args[0], "")
	return pipeline.NewRunner(ui.New(cfg.Verbose)).Degrees(job)
}
