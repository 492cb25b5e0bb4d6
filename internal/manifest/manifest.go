// Package manifest records how a ranking output was produced. A manifest is a
// small TOML document written next to the scores file, naming the input, the
// engine parameters, the graph shape and a digest of the result, so a scores
// file can always be traced back to the run that wrote it.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Version is the manifest schema version written by Save.
const Version = 1

// Suffix is appended to an output path to derive its manifest path.
const Suffix = ".run.toml"

// Manifest is the root document.
type Manifest struct {
	Version int    `toml:"version"`
	Run     Run    `toml:"run"`
	Params  Params `toml:"params"`
	Graph   Graph  `toml:"graph"`
	Result  Result `toml:"result"`
}

// Run identifies a single execution.
type Run struct {
	ID         string    `toml:"id"`
	Input      string    `toml:"input"`
	Output     string    `toml:"output"`
	StartedAt  time.Time `toml:"started_at"`
	DurationMS int64     `toml:"duration_ms"`
}

// Params are the engine settings the run used.
type Params struct {
	Restart    float64 `toml:"restart"`
	Iterations int     `toml:"iterations"`
	Workers    int     `toml:"workers"`
	Strict     bool    `toml:"strict"`
}

// Graph describes the ingested edge list.
type Graph struct {
	Nodes     int `toml:"nodes"`
	Edges     int `toml:"edges"`
	Dangling  int `toml:"dangling"`
	StoppedAt int `toml:"stopped_at,omitempty"` // line of the record that ended a lenient load
}

// Result digests the final vector.
type Result struct {
	Mass     float64 `toml:"mass"`
	TopNode  int     `toml:"top_node"`
	TopScore float64 `toml:"top_score"`
}

// PathFor returns the manifest path that accompanies output.
func PathFor(output string) string {
	return output + Suffix
}

// Load reads a manifest from path. A missing file yields a zero Manifest and
// no error.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// Save writes m to path, creating parent directories as needed. A zero
// Version is stamped with the current schema version.
func Save(path string, m *Manifest) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if m.Version == 0 {
		m.Version = Version
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}
