// Package ui prints progress and results for a terminal user.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/papapumpkin/citrank/internal/pagerank"
	"github.com/papapumpkin/citrank/internal/store"
)

// ANSI color codes.
const (
	reset   = "\033[0m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	yellow  = "\033[33m"
	green   = "\033[32m"
	red     = "\033[31m"
	cyan    = "\033[36m"
	magenta = "\033[35m"
)

// Printer writes human-oriented progress lines to stderr.
type Printer struct {
	w       io.Writer
	verbose bool
}

// New returns a Printer writing to stderr. Verbose printers also report
// every power-iteration round.
func New(verbose bool) *Printer {
	return &Printer{w: os.Stderr, verbose: verbose}
}

// NewTo returns a Printer writing to w.
func NewTo(w io.Writer, verbose bool) *Printer {
	return &Printer{w: w, verbose: verbose}
}

// Loading announces the edge list about to be read.
func (p *Printer) Loading(path string) {
	fmt.Fprintf(p.w, cyan+"◆ reading edge list"+reset+" %s\n", path)
}

// LoadStopped warns that a malformed record ended ingestion early.
func (p *Printer) LoadStopped(line int, text string) {
	fmt.Fprintf(p.w, yellow+bold+"⚠ stopped at line %d"+reset+dim+" (%q is not a source,target pair)"+reset+"\n", line, text)
}

// Loaded reports the shape of the ingested graph.
func (p *Printer) Loaded(nodes, edges, dangling int, elapsed time.Duration) {
	fmt.Fprintf(p.w, "  nodes:    %s\n", humanize.Comma(int64(nodes)))
	fmt.Fprintf(p.w, "  edges:    %s\n", humanize.Comma(int64(edges)))
	if dangling > 0 {
		fmt.Fprintf(p.w, "  dangling: %s\n", humanize.Comma(int64(dangling)))
	}
	fmt.Fprintf(p.w, dim+"  loaded in %s"+reset+"\n", elapsed.Round(time.Millisecond))
}

// Ranking announces the start of power iteration.
func (p *Printer) Ranking(restart float64, iterations, workers int) {
	fmt.Fprintf(p.w, cyan+"◆ computing pagerank"+reset+dim+" (restart %.2f, %d iterations, %d worker(s))"+reset+"\n",
		restart, iterations, workers)
}

// Round prints one iteration's bookkeeping. It is silent unless verbose.
func (p *Printer) Round(r pagerank.Round) {
	if !p.verbose {
		return
	}
	fmt.Fprintf(p.w, dim+"  round %4d  mass %.12f  residual %+.3e  delta %.3e"+reset+"\n",
		r.Iteration, r.Mass, r.Residual, r.Delta)
}

// Ranked reports a finished computation.
func (p *Printer) Ranked(mass float64, elapsed time.Duration) {
	fmt.Fprintf(p.w, green+"✓ ranked"+reset+dim+" (sum %.12f, %s)"+reset+"\n", mass, elapsed.Round(time.Millisecond))
}

// Wrote reports a file written by the run.
func (p *Printer) Wrote(kind, path string, size int64) {
	fmt.Fprintf(p.w, green+"✓ %s"+reset+" %s "+dim+"(%s)"+reset+"\n", kind, path, humanize.Bytes(uint64(max(size, 0))))
}

// Archived reports that a run was saved to the archive.
func (p *Printer) Archived(runID, path string) {
	fmt.Fprintf(p.w, green+"✓ archived"+reset+" run %s "+dim+"in %s"+reset+"\n", runID, path)
}

// Top prints the highest-ranked nodes.
func (p *Printer) Top(scores []pagerank.Score) {
	if len(scores) == 0 {
		return
	}
	fmt.Fprintln(p.w, bold+"top nodes:"+reset)
	for i, s := range scores {
		fmt.Fprintf(p.w, "  %3d. "+magenta+"%-10d"+reset+" %.12f\n", i+1, s.Node, s.Value)
	}
}

// Overall prints the total wall-clock time as hours, minutes and seconds.
func (p *Printer) Overall(elapsed time.Duration) {
	secs := int64(elapsed.Seconds())
	fmt.Fprintf(p.w, dim+"overall time = %dh%dm%ds"+reset+"\n", secs/3600, (secs%3600)/60, secs%60)
}

// Runs lists archived runs.
func (p *Printer) Runs(runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(p.w, dim+"(no archived runs)"+reset)
		return
	}
	for _, r := range runs {
		fmt.Fprintf(p.w, cyan+"%s"+reset+"  %s  %s nodes  %s edges  restart %.2f  k=%d  "+dim+"%s, %s"+reset+"\n",
			r.ID, r.Input,
			humanize.Comma(int64(r.Nodes)), humanize.Comma(int64(r.Edges)),
			r.Restart, r.Iterations,
			humanize.Time(r.StartedAt), r.Duration.Round(time.Millisecond))
	}
}

// RunScores prints an archived run's best scores.
func (p *Printer) RunScores(run store.Run, scores []store.Score) {
	fmt.Fprintf(p.w, bold+cyan+"run %s"+reset+" — %s\n", run.ID, run.Input)
	fmt.Fprintf(p.w, "  restart %.2f, %d iterations, %s nodes, %s edges\n",
		run.Restart, run.Iterations, humanize.Comma(int64(run.Nodes)), humanize.Comma(int64(run.Edges)))
	for i, s := range scores {
		fmt.Fprintf(p.w, "  %3d. "+magenta+"%-10d"+reset+" %.12f\n", i+1, s.Node, s.Value)
	}
}

// CheckResult reports the outcome of validating an edge list.
func (p *Printer) CheckResult(path string, nodes, edges, dangling int, err error) {
	if err != nil {
		fmt.Fprintf(p.w, red+bold+"✗ %s"+reset+" — %v\n", path, err)
		return
	}
	fmt.Fprintf(p.w, green+bold+"✓ %s"+reset+" — %s nodes, %s edges, %s dangling\n",
		path, humanize.Comma(int64(nodes)), humanize.Comma(int64(edges)), humanize.Comma(int64(dangling)))
}

// Watching announces that a file is being watched for changes.
func (p *Printer) Watching(path string) {
	fmt.Fprintf(p.w, cyan+"◆ watching"+reset+" %s "+dim+"(ctrl-c to stop)"+reset+"\n", path)
}

// Error prints an error line.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, red+bold+"error: "+reset+"%s\n", msg)
}

// Info prints a dimmed informational line.
func (p *Printer) Info(msg string) {
	fmt.Fprintf(p.w, dim+"%s"+reset+"\n", msg)
}
