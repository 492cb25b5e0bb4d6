// Package report serializes per-node results as "<id>,<value>" text records,
// one per line in ascending node id order.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ScoreDigits is the number of fractional digits written for each score.
const ScoreDigits = 12

// WriteScores writes one "<id>,<score>" line per entry of v.
func WriteScores(w io.Writer, v []float64) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 48)
	for i, s := range v {
		buf = strconv.AppendInt(buf[:0], int64(i), 10)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, s, 'f', ScoreDigits, 64)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("report: write score %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("report: flush scores: %w", err)
	}
	return nil
}

// WriteCounts writes one "<id>,<count>" line per entry of counts. It is used
// for the in-degree and out-degree dumps.
func WriteCounts(w io.Writer, counts []int) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for i, c := range counts {
		buf = strconv.AppendInt(buf[:0], int64(i), 10)
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, int64(c), 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("report: write count %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("report: flush counts: %w", err)
	}
	return nil
}

// WriteScoresFile creates (or truncates) path and writes v to it.
func WriteScoresFile(path string, v []float64) error {
	return writeFile(path, func(w io.Writer) error { return WriteScores(w, v) })
}

// WriteCountsFile creates (or truncates) path and writes counts to it.
func WriteCountsFile(path string, counts []int) error {
	return writeFile(path, func(w io.Writer) error { return WriteCounts(w, counts) })
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("report: close %s: %w", path, cerr)
		}
	}()
	return write(f)
}
