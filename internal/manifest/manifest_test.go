package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sample() *Manifest {
	return &Manifest{
		Run: Run{
			ID:         "5b0c3f1e-1d0a-4d3c-9a55-0b1f8f0c2e11",
			Input:      "citnet.csv",
			Output:     "pagerank.csv",
			StartedAt:  time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
			DurationMS: 1520,
		},
		Params: Params{Restart: 0.15, Iterations: 20, Workers: 4},
		Graph:  Graph{Nodes: 1000, Edges: 4500, Dangling: 37},
		Result: Result{Mass: 1, TopNode: 12, TopScore: 0.0173},
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "pagerank.csv"+Suffix)

	want := sample()
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Version != Version {
		t.Errorf("Version = %d, want %d", got.Version, Version)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_OmitsZeroStop(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "m.toml")

	if err := Save(path, sample()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "stopped_at") {
		t.Errorf("clean load should not record stopped_at:\n%s", data)
	}

	m := sample()
	m.Graph.StoppedAt = 42
	if err := Save(path, m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "stopped_at = 42") {
		t.Errorf("expected stopped_at = 42 in:\n%s", data)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	t.Parallel()
	m, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if m.Run.ID != "" || m.Version != 0 {
		t.Errorf("expected zero manifest, got %+v", m)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[run\nid = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parsing manifest") {
		t.Errorf("Load invalid TOML error = %v, want parsing error", err)
	}
}

func TestSaveCreatesDirectories(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "a", "b", "out.csv"+Suffix)
	if err := Save(path, sample()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
}

func TestPathFor(t *testing.T) {
	t.Parallel()
	if got, want := PathFor("out/pagerank.csv"), "out/pagerank.csv.run.toml"; got != want {
		t.Errorf("PathFor = %q, want %q", got, want)
	}
}
