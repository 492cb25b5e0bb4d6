package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/citrank/internal/graph"
	"github.com/papapumpkin/citrank/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check <edges>...",
	Short: "Validate edge lists strictly",
	Long:  "Reads each edge list in strict mode and reports its node, edge and dangling-node counts, or the first malformed line.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !checkEdgeLists(ui.New(false), args) {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// checkEdgeLists strictly loads every path, reports each result and returns
// whether all of them are valid.
func checkEdgeLists(printer *ui.Printer, paths []string) bool {
	ok := true
	for _, path := range paths {
		g, err := graph.Load(path, graph.ReadOptions{Strict: true})
		if err != nil {
			printer.CheckResult(path, 0, 0, 0, err)
			ok = false
			continue
		}
		printer.CheckResult(path, g.NodeCount(), g.EdgeCount(), g.Dangling(), nil)
	}
	return ok
}
