package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"

	"github.com/signalnine/prunestat/internal/result"
)

// LevelSummary aggregates test accuracy at one pruning level across trials.
type LevelSummary struct {
	Level        int     `json:"level"`
	Trials       int     `json:"trials"`
	MeanSparsity float64 `json:"mean_sparsity"`
	MeanAccuracy float64 `json:"mean_accuracy"`
	StdAccuracy  float64 `json:"std_accuracy"`
}

type Point struct {
	Level         int      `json:"level"`
	Sparsity      *float64 `json:"sparsity"`
	TestAccuracy  float64  `json:"test_accuracy"`
	TrainAccuracy *float64 `json:"train_accuracy"`
}

// TrialSeries is the accuracy of one trial as pruning progresses.
type TrialSeries struct {
	Trial  string  `json:"trial"`
	Points []Point `json:"points"`
}

type Summary struct {
	Levels []LevelSummary `json:"levels"`
	Trials []TrialSeries  `json:"trials"`
}

// Generate reads the table at path and writes the level and trial summaries.
func Generate(fs afero.Fs, path, format string, w io.Writer) error {
	set, err := result.Load(fs, path)
	if err != nil {
		return err
	}
	return Render(set, format, w)
}

func Render(set result.Set, format string, w io.Writer) error {
	s := Summary{Levels: ByLevel(set), Trials: ByTrial(set)}
	switch format {
	case "markdown":
		return writeMarkdown(s, w)
	case "json":
		return writeJSON(s, w)
	case "table", "":
		return writeTable(s, w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// ByLevel groups rows that have both a test accuracy and a sparsity by level.
// The standard deviation is the population one.
func ByLevel(set result.Set) []LevelSummary {
	type accum struct {
		sparsity float64
		accs     []float64
	}
	byLevel := map[int]*accum{}

	for _, r := range set {
		if r.TestAccuracy == nil || r.Sparsity == nil {
			continue
		}
		a, ok := byLevel[r.Level]
		if !ok {
			a = &accum{}
			byLevel[r.Level] = a
		}
		a.sparsity += *r.Sparsity
		a.accs = append(a.accs, *r.TestAccuracy)
	}

	summaries := make([]LevelSummary, 0, len(byLevel))
	for level, a := range byLevel {
		n := float64(len(a.accs))
		var sum float64
		for _, v := range a.accs {
			sum += v
		}
		mean := sum / n
		var sq float64
		for _, v := range a.accs {
			sq += (v - mean) * (v - mean)
		}
		summaries = append(summaries, LevelSummary{
			Level:        level,
			Trials:       len(a.accs),
			MeanSparsity: a.sparsity / n,
			MeanAccuracy: mean,
			StdAccuracy:  math.Sqrt(sq / n),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Level < summaries[j].Level
	})
	return summaries
}

// ByTrial collects, per trial, the levels that have a test accuracy.
func ByTrial(set result.Set) []TrialSeries {
	byTrial := map[string][]Point{}
	for _, r := range set {
		if r.TestAccuracy == nil {
			continue
		}
		byTrial[r.Trial] = append(byTrial[r.Trial], Point{
			Level:         r.Level,
			Sparsity:      r.Sparsity,
			TestAccuracy:  *r.TestAccuracy,
			TrainAccuracy: r.TrainAccuracy,
		})
	}

	series := make([]TrialSeries, 0, len(byTrial))
	for trial, pts := range byTrial {
		sort.Slice(pts, func(i, j int) bool { return pts[i].Level < pts[j].Level })
		series = append(series, TrialSeries{Trial: trial, Points: pts})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Trial < series[j].Trial
	})
	return series
}

func writeTable(s Summary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tTRIALS\tSPARSITY\tMEAN ACC\tSTD ACC")
	fmt.Fprintln(tw, strings.Repeat("-", 56))
	for _, l := range s.Levels {
		fmt.Fprintf(tw, "%d\t%d\t%.4f\t%.4f\t%.4f\n",
			l.Level, l.Trials, l.MeanSparsity, l.MeanAccuracy, l.StdAccuracy)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "TRIAL\tLEVEL\tSPARSITY\tTEST ACC\tTRAIN ACC")
	fmt.Fprintln(tw, strings.Repeat("-", 56))
	for _, t := range s.Trials {
		for _, p := range t.Points {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%.4f\t%s\n",
				t.Trial, p.Level, optional(p.Sparsity), p.TestAccuracy, optional(p.TrainAccuracy))
		}
	}
	return tw.Flush()
}

func writeMarkdown(s Summary, w io.Writer) error {
	fmt.Fprintln(w, "| Level | Trials | Sparsity | Mean Acc | Std Acc |")
	fmt.Fprintln(w, "|---|---|---|---|---|")
	for _, l := range s.Levels {
		fmt.Fprintf(w, "| %d | %d | %.4f | %.4f | %.4f |\n",
			l.Level, l.Trials, l.MeanSparsity, l.MeanAccuracy, l.StdAccuracy)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Trial | Level | Sparsity | Test Acc | Train Acc |")
	fmt.Fprintln(w, "|---|---|---|---|---|")
	for _, t := range s.Trials {
		for _, p := range t.Points {
			fmt.Fprintf(w, "| %s | %d | %s | %.4f | %s |\n",
				t.Trial, p.Level, optional(p.Sparsity), p.TestAccuracy, optional(p.TrainAccuracy))
		}
	}
	return nil
}

func writeJSON(s Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}
