package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// testStore creates a temporary SQLite archive for testing and registers cleanup.
func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Open(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		Input:      "citnet.csv",
		Output:     "pagerank.csv",
		Nodes:      4,
		Edges:      5,
		Restart:    0.15,
		Iterations: 20,
		Workers:    1,
		Mass:       1,
		StartedAt:  started,
		Duration:   1500 * time.Millisecond,
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database and tables", func(t *testing.T) {
		t.Parallel()
		s := testStore(t)

		var mode string
		if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("query journal_mode: %v", err)
		}
		if mode != "wal" {
			t.Errorf("journal_mode = %q, want %q", mode, "wal")
		}

		tables := map[string]bool{"runs": false, "scores": false}
		rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type='table'")
		if err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				t.Fatalf("scan table name: %v", err)
			}
			tables[name] = true
		}
		for name, found := range tables {
			if !found {
				t.Errorf("table %q not created", name)
			}
		}
	})

	t.Run("idempotent schema creation", func(t *testing.T) {
		t.Parallel()
		dbPath := filepath.Join(t.TempDir(), "idempotent.db")

		s1, err := Open(context.Background(), dbPath)
		if err != nil {
			t.Fatalf("first open: %v", err)
		}
		s1.Close()

		s2, err := Open(context.Background(), dbPath)
		if err != nil {
			t.Fatalf("second open: %v", err)
		}
		s2.Close()
	})

	t.Run("invalid path returns error", func(t *testing.T) {
		t.Parallel()
		_, err := Open(context.Background(), filepath.Join(os.DevNull, "nonexistent", "path.db"))
		if err == nil {
			t.Fatal("expected error for invalid path")
		}
	})
}

func TestSaveRunAndRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	started := time.Date(2026, 5, 4, 10, 0, 0, 123456789, time.UTC)
	want := sampleRun("r1", started)
	if err := s.SaveRun(ctx, want, []float64{0.1, 0.4, 0.2, 0.3}); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.Run(ctx, "r1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_NotFound(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	_, err := s.Run(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Run(missing) error = %v, want ErrRunNotFound", err)
	}
	if _, err := s.TopScores(context.Background(), "missing", 5); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("TopScores(missing) error = %v, want ErrRunNotFound", err)
	}
}

func TestTopScores(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	run := sampleRun("r1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := s.SaveRun(ctx, run, []float64{0.1, 0.3, 0.2, 0.3, 0.1}); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.TopScores(ctx, "r1", 3)
	if err != nil {
		t.Fatalf("TopScores: %v", err)
	}
	want := []Score{{1, 0.3}, {3, 0.3}, {2, 0.2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopScores mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRun_ReplacesScores(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	run := sampleRun("r1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := s.SaveRun(ctx, run, []float64{0.5, 0.5}); err != nil {
		t.Fatalf("first SaveRun: %v", err)
	}
	run.Nodes = 3
	if err := s.SaveRun(ctx, run, []float64{0.2, 0.3, 0.5}); err != nil {
		t.Fatalf("second SaveRun: %v", err)
	}

	got, err := s.TopScores(ctx, "r1", 10)
	if err != nil {
		t.Fatalf("TopScores: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("TopScores returned %d scores, want 3", len(got))
	}
	r, err := s.Run(ctx, "r1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Nodes != 3 {
		t.Errorf("Nodes = %d, want 3 after resave", r.Nodes)
	}
}

func TestRuns_NewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new", "mid"} {
		offset := map[string]time.Duration{"old": 0, "mid": time.Hour, "new": 2 * time.Hour}[id]
		if err := s.SaveRun(ctx, sampleRun(id, base.Add(offset)), []float64{float64(i)}); err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"new", "mid", "old"}, ids); diff != "" {
		t.Errorf("Runs order mismatch (-want +got):\n%s", diff)
	}
}

func TestRuns_Empty(t *testing.T) {
	t.Parallel()
	runs, err := testStore(t).Runs(context.Background())
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Runs() = %v, want empty", runs)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	for _, in := range []string{
		"2026-02-03T04:05:06.000000000Z",
		"2026-02-03T04:05:06Z",
		"2026-02-03 04:05:06",
	} {
		got, err := parseTimestamp(in)
		if err != nil {
			t.Errorf("parseTimestamp(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := parseTimestamp("yesterday"); err == nil {
		t.Error("parseTimestamp(yesterday): expected error")
	}
}
