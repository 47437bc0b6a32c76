// Package masks computes density statistics over the pruning masks saved by a run.
package masks

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/sbinet/npyio/npy"
	"github.com/spf13/afero"

	"github.com/signalnine/prunestat/internal/result"
)

// DefaultExt is the file extension of mask arrays.
const DefaultExt = ".npy"

// ComputeDensity loads one mask array and returns the mean of its elements
// together with 1 - mean.
func ComputeDensity(fsys afero.Fs, path string) (density, inverse float64, err error) {
	f, err := fsys.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("opening mask: %w", err)
	}
	defer f.Close()

	r, err := npy.NewReader(f)
	if err != nil {
		return 0, 0, fmt.Errorf("reading mask header %s: %w", path, err)
	}
	values, err := readValues(r)
	if err != nil {
		return 0, 0, fmt.Errorf("reading mask %s: %w", path, err)
	}
	if len(values) == 0 {
		return 0, 0, fmt.Errorf("mask %s has no elements", path)
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	density = sum / float64(len(values))
	return density, 1 - density, nil
}

// Aggregate averages the densities of every mask array in dir. Each file counts once,
// whatever its size. A missing directory or one without arrays yields nil stats.
// Any array that fails to load aborts the aggregation.
func Aggregate(fsys afero.Fs, dir, ext string) (*result.MaskStats, error) {
	if ext == "" {
		ext = DefaultExt
	}
	info, err := fsys.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat masks dir: %w", err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	files, err := List(fsys, dir, ext)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	var total float64
	for _, path := range files {
		d, _, err := ComputeDensity(fsys, path)
		if err != nil {
			return nil, err
		}
		total += d
	}
	return result.NewMaskStats(total / float64(len(files))), nil
}

// List returns the mask files in dir, sorted by name.
func List(fsys afero.Fs, dir, ext string) ([]string, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("listing masks dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func readValues(r *npy.Reader) ([]float64, error) {
	descr := r.Header.Descr.Type
	if len(descr) > 0 && strings.ContainsRune("<>|=", rune(descr[0])) {
		descr = descr[1:]
	}
	switch descr {
	case "b1":
		var v []bool
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		out := make([]float64, len(v))
		for i, b := range v {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	case "u1":
		return readAs[uint8](r)
	case "i1":
		return readAs[int8](r)
	case "u2":
		return readAs[uint16](r)
	case "i2":
		return readAs[int16](r)
	case "u4":
		return readAs[uint32](r)
	case "i4":
		return readAs[int32](r)
	case "u8":
		return readAs[uint64](r)
	case "i8":
		return readAs[int64](r)
	case "f4":
		return readAs[float32](r)
	case "f8":
		return readAs[float64](r)
	default:
		return nil, fmt.Errorf("unsupported dtype %q", r.Header.Descr.Type)
	}
}

type number interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

func readAs[T number](r *npy.Reader) ([]float64, error) {
	var v []T
	if err := r.Read(&v); err != nil {
		return nil, err
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out, nil
}
