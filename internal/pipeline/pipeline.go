// Package pipeline runs a complete ranking job: it loads an edge list, runs
// power iteration, writes the scores file and any degree dumps, records a
// manifest, archives the run and streams telemetry about every stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/papapumpkin/citrank/internal/graph"
	"github.com/papapumpkin/citrank/internal/manifest"
	"github.com/papapumpkin/citrank/internal/pagerank"
	"github.com/papapumpkin/citrank/internal/report"
	"github.com/papapumpkin/citrank/internal/store"
	"github.com/papapumpkin/citrank/internal/telemetry"
)

// ErrNoOutput is returned when a job has nowhere to write its results.
var ErrNoOutput = errors.New("no output path")

// Reporter receives progress from a running job. *ui.Printer satisfies it.
type Reporter interface {
	Loading(path string)
	LoadStopped(line int, text string)
	Loaded(nodes, edges, dangling int, elapsed time.Duration)
	Ranking(restart float64, iterations, workers int)
	Round(r pagerank.Round)
	Ranked(mass float64, elapsed time.Duration)
	Wrote(kind, path string, size int64)
	Archived(runID, path string)
}

// Job describes one ranking run.
type Job struct {
	Input  string // edge list; ".gz" is decompressed
	Output string // scores file

	Restart    float64
	Iterations int
	Workers    int
	Strict     bool

	OutDegrees string // optional out-degree dump
	InDegrees  string // optional in-degree dump

	Manifest     bool   // write <Output>.run.toml
	StorePath    string // SQLite archive; empty disables archiving
	TelemetryDir string // JSONL telemetry directory; empty disables telemetry
	Top          int    // number of best nodes returned in Result.Top
}

// Result summarizes a finished job.
type Result struct {
	RunID     string
	Nodes     int
	Edges     int
	Dangling  int
	Stopped   *graph.Stop // non-nil when a lenient load ended early
	Scores    pagerank.Vector
	Mass      float64
	Top       []pagerank.Score
	StartedAt time.Time
	Duration  time.Duration
}

// Runner executes jobs.
type Runner struct {
	rep Reporter
	now func() time.Time
}

// NewRunner returns a Runner reporting to rep. rep may be nil.
func NewRunner(rep Reporter) *Runner {
	if rep == nil {
		rep = nopReporter{}
	}
	return &Runner{rep: rep, now: time.Now}
}

// Run executes job. Telemetry records a run_failed event for any error after
// the run has started.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	if job.Output == "" {
		return nil, fmt.Errorf("pipeline: %w", ErrNoOutput)
	}

	res := &Result{RunID: uuid.NewString(), StartedAt: r.now()}

	var em *telemetry.Emitter
	if job.TelemetryDir != "" {
		var err error
		em, err = telemetry.NewRunEmitter(job.TelemetryDir, res.RunID)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		defer em.Close() //nolint:errcheck // best-effort close of the event log
	}
	emit := func(kind string, data any) {
		_ = em.Emit(telemetry.Event{Timestamp: r.now(), Kind: kind, RunID: res.RunID, Data: data})
	}

	emit(telemetry.KindRunStart, map[string]any{
		"input":      job.Input,
		"output":     job.Output,
		"restart":    job.Restart,
		"iterations": job.Iterations,
		"workers":    job.Workers,
		"strict":     job.Strict,
	})

	if err := r.run(ctx, job, res, emit); err != nil {
		emit(telemetry.KindRunFailed, map[string]any{"error": err.Error()})
		return nil, err
	}

	res.Duration = r.now().Sub(res.StartedAt)
	emit(telemetry.KindRunDone, map[string]any{"duration_ms": res.Duration.Milliseconds()})
	return res, nil
}

func (r *Runner) run(ctx context.Context, job Job, res *Result, emit func(string, any)) error {
	g, err := r.load(job, res, emit)
	if err != nil {
		return err
	}

	r.rep.Ranking(job.Restart, job.Iterations, max(job.Workers, 1))
	rankStart := r.now()
	scores, err := pagerank.Compute(ctx, g, pagerank.Options{
		Restart:    job.Restart,
		Iterations: job.Iterations,
		Workers:    job.Workers,
		OnRound: func(rd pagerank.Round) {
			r.rep.Round(rd)
			emit(telemetry.KindRound, rd)
		},
	})
	if err != nil {
		return fmt.Errorf("pipeline: rank %s: %w", job.Input, err)
	}
	res.Scores = scores
	res.Mass = scores.Sum()
	res.Top = scores.Top(job.Top)
	r.rep.Ranked(res.Mass, r.now().Sub(rankStart))
	emit(telemetry.KindRankDone, map[string]any{"mass": res.Mass})

	if err := r.write("scores", job.Output, func(p string) error { return report.WriteScoresFile(p, scores) }, emit); err != nil {
		return err
	}
	if err := r.writeDegrees(g, job, emit); err != nil {
		return err
	}

	if job.Manifest {
		if err := r.saveManifest(job, res); err != nil {
			return err
		}
	}

	if job.StorePath != "" {
		if err := r.archive(ctx, job, res); err != nil {
			return err
		}
		emit(telemetry.KindRunArchived, map[string]any{"store": job.StorePath})
	}
	return nil
}

// Degrees loads job.Input and writes only the degree dumps named by the job.
func (r *Runner) Degrees(job Job) error {
	if job.OutDegrees == "" && job.InDegrees == "" {
		return fmt.Errorf("pipeline: %w", ErrNoOutput)
	}
	res := &Result{}
	g, err := r.load(job, res, func(string, any) {})
	if err != nil {
		return err
	}
	return r.writeDegrees(g, job, func(string, any) {})
}

func (r *Runner) load(job Job, res *Result, emit func(string, any)) (*graph.Sparse, error) {
	r.rep.Loading(job.Input)
	start := r.now()
	g, err := graph.Load(job.Input, graph.ReadOptions{
		Strict: job.Strict,
		OnStop: func(s graph.Stop) {
			res.Stopped = &s
			r.rep.LoadStopped(s.Line, s.Text)
			emit(telemetry.KindLoadStopped, s)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	res.Nodes = g.NodeCount()
	res.Edges = g.EdgeCount()
	res.Dangling = g.Dangling()
	r.rep.Loaded(res.Nodes, res.Edges, res.Dangling, r.now().Sub(start))
	emit(telemetry.KindGraphLoaded, map[string]any{
		"nodes":    res.Nodes,
		"edges":    res.Edges,
		"dangling": res.Dangling,
	})
	return g, nil
}

func (r *Runner) writeDegrees(g *graph.Sparse, job Job, emit func(string, any)) error {
	if job.OutDegrees != "" {
		out := g.OutDegrees()
		if err := r.write("out-degrees", job.OutDegrees, func(p string) error { return report.WriteCountsFile(p, out) }, emit); err != nil {
			return err
		}
	}
	if job.InDegrees != "" {
		in := g.InDegrees()
		if err := r.write("in-degrees", job.InDegrees, func(p string) error { return report.WriteCountsFile(p, in) }, emit); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) write(kind, path string, write func(string) error, emit func(string, any)) error {
	if err := write(path); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	var size int64
	if fi, err := os.Stat(path); err == nil {
		size = fi.Size()
	}
	r.rep.Wrote(kind, path, size)
	emit(telemetry.KindOutputWritten, map[string]any{"kind": kind, "path": path, "bytes": size})
	return nil
}

func (r *Runner) saveManifest(job Job, res *Result) error {
	m := &manifest.Manifest{
		Run: manifest.Run{
			ID:         res.RunID,
			Input:      job.Input,
			Output:     job.Output,
			StartedAt:  res.StartedAt.UTC(),
			DurationMS: r.now().Sub(res.StartedAt).Milliseconds(),
		},
		Params: manifest.Params{
			Restart:    job.Restart,
			Iterations: job.Iterations,
			Workers:    max(job.Workers, 1),
			Strict:     job.Strict,
		},
		Graph: manifest.Graph{
			Nodes:    res.Nodes,
			Edges:    res.Edges,
			Dangling: res.Dangling,
		},
		Result: manifest.Result{Mass: res.Mass},
	}
	if res.Stopped != nil {
		m.Graph.StoppedAt = res.Stopped.Line
	}
	if best := res.Scores.Top(1); len(best) == 1 {
		m.Result.TopNode = best[0].Node
		m.Result.TopScore = best[0].Value
	}

	path := manifest.PathFor(job.Output)
	if err := manifest.Save(path, m); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	r.rep.Wrote("manifest", path, 0)
	return nil
}

func (r *Runner) archive(ctx context.Context, job Job, res *Result) error {
	st, err := store.Open(ctx, job.StorePath)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	defer st.Close()

	run := store.Run{
		ID:         res.RunID,
		Input:      job.Input,
		Output:     job.Output,
		Nodes:      res.Nodes,
		Edges:      res.Edges,
		Restart:    job.Restart,
		Iterations: job.Iterations,
		Workers:    max(job.Workers, 1),
		Mass:       res.Mass,
		StartedAt:  res.StartedAt,
		Duration:   r.now().Sub(res.StartedAt),
	}
	if err := st.SaveRun(ctx, run, res.Scores); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	r.rep.Archived(res.RunID, job.StorePath)
	return nil
}

type nopReporter struct{}

func (nopReporter) Loading(string) {}
func (nopReporter) LoadStopped(int, string) {}
func (nopReporter) Loaded(int, int, int, time.Duration) {}
func (nopReporter) Ranking(float64, int, int) {}
func (nopReporter) Round(pagerank.Round) {}
func (nopReporter) Ranked(float64, time.Duration) {}
func (nopReporter) Wrote(string, string, int64) {}
func (nopReporter) Archived(string, string) {}
