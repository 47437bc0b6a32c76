// Package metrics reads the training and testing logs written by a pruning run.
//
// A log is a comma-separated file whose rows look like
//
//	iteration,<n>,loss,<float>,accuracy,<float>
//
// Only the final row is of interest.
package metrics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/afero"

	"github.com/signalnine/prunestat/internal/result"
)

// Field positions within a log row.
const (
	iterationField = 1
	lossField      = 3
	accuracyField  = 5
	rowFields      = 6
)

// ReadLast returns the last valid metric entry of the log at path.
// A missing, empty or unparseable log yields a nil snapshot and no error;
// only I/O failures on an existing file are reported.
func ReadLast(fsys afero.Fs, path string) (*result.Snapshot, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if notExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening log: %w", err)
	}
	defer f.Close()

	last, err := lastRow(f)
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading log %s: %w", path, err)
	}
	if last == nil {
		return nil, nil
	}
	snap, ok := ParseRow(last)
	if !ok {
		return nil, nil
	}
	return snap, nil
}

// ParseRow interprets a single log row. It reports false when the row does not
// have exactly six fields or when any value is not a finite number.
func ParseRow(row []string) (*result.Snapshot, bool) {
	if len(row) != rowFields {
		return nil, false
	}
	it, ok := parseFinite(row[iterationField])
	if !ok || it >= math.MaxInt64 || it < math.MinInt64 {
		return nil, false
	}
	loss, ok := parseFinite(row[lossField])
	if !ok {
		return nil, false
	}
	acc, ok := parseFinite(row[accuracyField])
	if !ok {
		return nil, false
	}
	return &result.Snapshot{
		Iteration: int(math.Trunc(it)),
		Loss:      loss,
		Accuracy:  acc,
	}, true
}

func lastRow(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	// A stray quote in an earlier row must not hide the last one.
	cr.LazyQuotes = true
	var last []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return last, nil
		}
		if err != nil {
			return nil, err
		}
		last = rec
	}
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// notExist also covers paths that run through a regular file, such as a level
// entry that is a file rather than a directory.
func notExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
