package graph

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrIO is returned when the edge list cannot be opened or read.
var ErrIO = errors.New("edge list unreadable")

// ErrMalformedRecord is returned in strict mode when a line is not a
// "<source>,<target>" pair of non-negative integers.
var ErrMalformedRecord = errors.New("malformed edge record")

// DefaultSizeHint is the initial edge capacity used when ReadOptions.SizeHint
// is zero.
const DefaultSizeHint = 1 << 16

// maxLineLen bounds a single record; anything longer cannot be a valid pair.
const maxLineLen = 1 << 20

// Stop describes the record that ended ingestion early.
type Stop struct {
	Line int    // 1-based line number
	Text string // the offending line, truncated to 80 bytes
}

// ReadOptions controls edge-list ingestion.
type ReadOptions struct {
	// Strict makes a malformed record an error instead of the end of input.
	Strict bool

	// SizeHint pre-sizes edge storage. Storage still grows past it.
	SizeHint int

	// OnStop, if set, is called when a malformed record ends ingestion in
	// lenient mode. It is not called when the input simply runs out.
	OnStop func(Stop)
}

// Load reads an edge list from the file at path. Files ending in ".gz" are
// decompressed on the fly.
func Load(path string, opts ReadOptions) (*Sparse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: gunzip %s: %w", ErrIO, path, err)
		}
		defer zr.Close()
		r = zr
	}

	g, err := Read(r, opts)
	if err != nil {
		return nil, fmt.Errorf("graph: load %s: %w", path, err)
	}
	return g, nil
}

// Read parses "<source>,<target>" records, one per line, and builds a Sparse
// graph. Blank lines are skipped. In lenient mode the first record that does
// not parse ends ingestion and everything read so far is kept.
func Read(r io.Reader, opts ReadOptions) (*Sparse, error) {
	hint := opts.SizeHint
	if hint <= 0 {
		hint = DefaultSizeHint
	}
	edges := make([]Edge, 0, hint)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLen)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		e, ok := parseRecord(raw)
		if !ok {
			stop := Stop{Line: line, Text: truncate(string(raw), 80)}
			if opts.Strict {
				return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedRecord, stop.Line, stop.Text)
			}
			if opts.OnStop != nil {
				opts.OnStop(stop)
			}
			return build(edges), nil
		}
		edges = append(edges, e)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) && !opts.Strict {
			if opts.OnStop != nil {
				opts.OnStop(Stop{Line: line + 1, Text: "(line too long)"})
			}
			return build(edges), nil
		}
		return nil, fmt.Errorf("%w: line %d: %w", ErrIO, line+1, err)
	}
	return build(edges), nil
}

// parseRecord parses a single "<source>,<target>" record. The whole line must
// be the record: trailing fields make it malformed rather than being ignored,
// and spaces around either id are allowed.
func parseRecord(raw []byte) (Edge, bool) {
	src, dst, found := bytes.Cut(raw, []byte{','})
	if !found {
		return Edge{}, false
	}
	s, ok := parseID(bytes.TrimSpace(src))
	if !ok {
		return Edge{}, false
	}
	t, ok := parseID(bytes.TrimSpace(dst))
	if !ok {
		return Edge{}, false
	}
	return Edge{Source: s, Target: t}, true
}

// parseID accepts only unsigned decimal digits that fit in a uint32.
func parseID(b []byte) (uint32, bool) {
	if len(b) == 0 {
		return 0, false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
