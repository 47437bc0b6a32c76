package result

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Output formats understood by Save.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

func WriteCSV(w io.Writer, set Set) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range set {
		rec := []string{
			r.Trial,
			strconv.Itoa(r.Level),
			formatFloat(r.Density),
			formatFloat(r.Sparsity),
			formatInt(r.TestIteration),
			formatFloat(r.TestLoss),
			formatFloat(r.TestAccuracy),
			formatInt(r.TrainIteration),
			formatFloat(r.TrainLoss),
			formatFloat(r.TrainAccuracy),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %s/%d: %w", r.Trial, r.Level, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table produced by WriteCSV. Columns are matched by header name,
// so extra or reordered columns are tolerated. Empty fields read back as nil.
func ReadCSV(r io.Reader) (Set, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parsing csv: missing header")
	}
	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"trial", "level"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("parsing csv: missing %q column", required)
		}
	}

	set := make(Set, 0, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		field := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		level, err := strconv.Atoi(field("level"))
		if err != nil {
			return nil, fmt.Errorf("line %d: level: %w", line, err)
		}
		row := Row{Trial: field("trial"), Level: level}
		floats := []struct {
			name string
			dst  **float64
		}{
			{"density", &row.Density},
			{"sparsity", &row.Sparsity},
			{"test_loss", &row.TestLoss},
			{"test_accuracy", &row.TestAccuracy},
			{"train_loss", &row.TrainLoss},
			{"train_accuracy", &row.TrainAccuracy},
		}
		for _, f := range floats {
			if *f.dst, err = parseFloat(field(f.name)); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, f.name, err)
			}
		}
		if row.TestIteration, err = parseInt(field("test_iteration")); err != nil {
			return nil, fmt.Errorf("line %d: test_iteration: %w", line, err)
		}
		if row.TrainIteration, err = parseInt(field("train_iteration")); err != nil {
			return nil, fmt.Errorf("line %d: train_iteration: %w", line, err)
		}
		set = append(set, row)
	}
	return set, nil
}

func WriteJSON(w io.Writer, set Set) error {
	if set == nil {
		set = Set{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(set)
}

func WriteYAML(w io.Writer, set Set) error {
	if set == nil {
		set = Set{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(set); err != nil {
		return err
	}
	return enc.Close()
}

// Save renders set in the given format and writes it to path in a single call,
// creating parent directories as needed.
func Save(fs afero.Fs, path, format string, set Set) error {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatCSV:
		err = WriteCSV(&buf, set)
	case FormatJSON:
		err = WriteJSON(&buf, set)
	case FormatYAML:
		err = WriteYAML(&buf, set)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("rendering %s: %w", format, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Load reads a table written by Save in csv format.
func Load(fs afero.Fs, path string) (Set, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table: %w", err)
	}
	defer f.Close()
	set, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return set, nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
