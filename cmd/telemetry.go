package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/citrank/internal/telemetry"
	"github.com/papapumpkin/citrank/internal/ui"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "View JSONL telemetry events for a ranking run",
	Long: `Reads and formats the JSONL telemetry file of a run.

Without --run, shows the most recently written run.
With --follow (-f), watches the file for new events (like tail -f).`,
	RunE: runTelemetry,
}

func init() {
	telemetryCmd.Flags().String("run", "", "run ID to view (default: most recent)")
	telemetryCmd.Flags().String("telemetry-dir", ".citrank/telemetry", "directory holding run telemetry")
	telemetryCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	rootCmd.AddCommand(telemetryCmd)
}

func runTelemetry(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(cmd, map[string]string{"telemetry-dir": "telemetry_dir"}); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runID, _ := cmd.Flags().GetString("run")
	follow, _ := cmd.Flags().GetBool("follow")

	path, err := resolveTelemetryPath(cfg.TelemetryDir, runID)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer f.Close()

	// Print all existing events. The same reader continues in follow mode so
	// nothing is printed twice.
	reader := bufio.NewReader(f)
	printAvailable(cmd.OutOrStdout(), reader)

	if !follow {
		return nil
	}

	ctx, cancel := setupSignalContext(ui.New(false))
	defer cancel()
	return tailFollow(ctx.Done(), cmd.OutOrStdout(), reader, path)
}

// printAvailable prints every complete line currently readable.
func printAvailable(w io.Writer, reader *bufio.Reader) {
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			printEvent(w, line)
		}
		if err != nil {
			return
		}
	}
}

// tailFollow watches the file for new data using fsnotify and prints new
// events until done is closed.
func tailFollow(done <-chan struct{}, w io.Writer, reader *bufio.Reader, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("telemetry: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("telemetry: watch %s: %w", path, err)
	}

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			printAvailable(w, reader)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("telemetry: watch %s: %w", path, err)
		}
	}
}

// printEvent decodes a JSONL line and prints a human-readable representation.
func printEvent(w io.Writer, line string) {
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}

	parts := []string{fmt.Sprintf("[%s]", evt.Timestamp.Format(time.TimeOnly)), evt.Kind}
	if evt.Data != nil {
		if m, ok := evt.Data.(map[string]any); ok {
			parts = append(parts, formatDataMap(m))
		} else {
			data, _ := json.Marshal(evt.Data)
			parts = append(parts, string(data))
		}
	}

	fmt.Fprintln(w, strings.Join(parts, " "))
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}

// resolveTelemetryPath finds the JSONL file for the given run, or the most
// recently modified one if runID is empty.
func resolveTelemetryPath(dir, runID string) (string, error) {
	if runID != "" {
		path := telemetry.RunPath(dir, runID)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("telemetry: no file for run %q: %w", runID, err)
		}
		return path, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("telemetry: cannot read %s: %w", dir, err)
	}

	var (
		latest    string
		latestMod time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || fi.ModTime().After(latestMod) {
			latest, latestMod = e.Name(), fi.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("telemetry: no JSONL files in %s", dir)
	}
	return filepath.Join(dir, latest), nil
}
