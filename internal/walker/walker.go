// Package walker discovers the runs of an experiment tree and merges their logs
// and masks into one row per (trial, level).
//
// The expected layout is
//
//	<root>/<trial>/<level>/<variant>/{train.log, test.log, masks/*.npy}
//
// where level directories have purely numeric names.
package walker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/afero"

	"github.com/signalnine/prunestat/internal/masks"
	"github.com/signalnine/prunestat/internal/metrics"
	"github.com/signalnine/prunestat/internal/result"
	"github.com/signalnine/prunestat/internal/runner"
)

// Layout names the files and directories inside a run.
type Layout struct {
	Variant  string
	TrainLog string
	TestLog  string
	MasksDir string
	MaskExt  string
}

func DefaultLayout() Layout {
	return Layout{
		Variant:  "same_init",
		TrainLog: "train.log",
		TestLog:  "test.log",
		MasksDir: "masks",
		MaskExt:  masks.DefaultExt,
	}
}

func (l Layout) withDefaults() Layout {
	d := DefaultLayout()
	if l.Variant == "" {
		l.Variant = d.Variant
	}
	if l.TrainLog == "" {
		l.TrainLog = d.TrainLog
	}
	if l.TestLog == "" {
		l.TestLog = d.TestLog
	}
	if l.MasksDir == "" {
		l.MasksDir = d.MasksDir
	}
	if l.MaskExt == "" {
		l.MaskExt = d.MaskExt
	}
	return l
}

// Run is one (trial, level) pair found in the tree.
type Run struct {
	Trial string
	Level int
	Dir   string
}

type Options struct {
	Layout   Layout
	Parallel int
}

// Discover lists every run under root in output order: trials by name, then
// levels by numeric value.
func Discover(fs afero.Fs, root string, layout Layout) ([]Run, error) {
	layout = layout.withDefaults()
	trials, err := listTrials(fs, root)
	if err != nil {
		return nil, err
	}
	var runs []Run
	for _, trial := range trials {
		trialDir := filepath.Join(root, trial)
		levels, err := listLevels(fs, trialDir)
		if err != nil {
			return nil, err
		}
		for _, lv := range levels {
			runs = append(runs, Run{
				Trial: trial,
				Level: lv.value,
				Dir:   filepath.Join(trialDir, lv.name, layout.Variant),
			})
		}
	}
	return runs, nil
}

// AggregateAll builds the full result set for the tree under root. Missing logs
// and masks leave the matching fields nil; a mask that cannot be loaded aborts
// the whole aggregation.
func AggregateAll(ctx context.Context, fs afero.Fs, root string, opts *Options) (result.Set, error) {
	if opts == nil {
		opts = &Options{}
	}
	layout := opts.Layout.withDefaults()
	runs, err := Discover(fs, root, layout)
	if err != nil {
		return nil, err
	}

	rows := make(result.Set, len(runs))
	jobs := make([]runner.Job, len(runs))
	for i, run := range runs {
		i, run := i, run
		jobs[i] = func(ctx context.Context) error {
			row, err := AggregateRun(fs, run, layout)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		}
	}
	if err := runner.RunPool(ctx, opts.Parallel, jobs); err != nil {
		return nil, err
	}
	return rows, nil
}

// AggregateRun reads the logs and masks of a single run.
func AggregateRun(fs afero.Fs, run Run, layout Layout) (result.Row, error) {
	layout = layout.withDefaults()
	test, err := metrics.ReadLast(fs, filepath.Join(run.Dir, layout.TestLog))
	if err != nil {
		return result.Row{}, fmt.Errorf("trial %s level %d: %w", run.Trial, run.Level, err)
	}
	train, err := metrics.ReadLast(fs, filepath.Join(run.Dir, layout.TrainLog))
	if err != nil {
		return result.Row{}, fmt.Errorf("trial %s level %d: %w", run.Trial, run.Level, err)
	}
	stats, err := masks.Aggregate(fs, filepath.Join(run.Dir, layout.MasksDir), layout.MaskExt)
	if err != nil {
		return result.Row{}, fmt.Errorf("trial %s level %d: %w", run.Trial, run.Level, err)
	}
	return result.NewRow(run.Trial, run.Level, stats, test, train), nil
}

func listTrials(fs afero.Fs, root string) ([]string, error) {
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, fmt.Errorf("listing experiments root: %w", err)
	}
	var trials []string
	for _, e := range entries {
		// Stat rather than the listing's mode so that symlinked trials count.
		info, err := fs.Stat(filepath.Join(root, e.Name()))
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("warning: skipping dangling trial entry %s", e.Name())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("inspecting trial %s: %w", e.Name(), err)
		}
		if !info.IsDir() {
			continue
		}
		trials = append(trials, e.Name())
	}
	sort.Strings(trials)
	return trials, nil
}

type level struct {
	name  string
	value int
}

func listLevels(fs afero.Fs, trialDir string) ([]level, error) {
	entries, err := afero.ReadDir(fs, trialDir)
	if err != nil {
		return nil, fmt.Errorf("listing trial %s: %w", filepath.Base(trialDir), err)
	}
	var levels []level
	for _, e := range entries {
		name := e.Name()
		if !isDigits(name) {
			continue
		}
		v, err := strconv.Atoi(name)
		if err != nil {
			log.Printf("warning: skipping level %s in %s: %v", name, trialDir, err)
			continue
		}
		levels = append(levels, level{name: name, value: v})
	}
	sort.Slice(levels, func(i, j int) bool {
		if levels[i].value != levels[j].value {
			return levels[i].value < levels[j].value
		}
		return levels[i].name < levels[j].name
	})

	deduped := levels[:0]
	for _, lv := range levels {
		if n := len(deduped); n > 0 && deduped[n-1].value == lv.value {
			log.Printf("warning: skipping level %s in %s: duplicates level %s", lv.name, trialDir, deduped[n-1].name)
			continue
		}
		deduped = append(deduped, lv)
	}
	return deduped, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
