package result

// Snapshot is the last valid entry of a metrics log.
type Snapshot struct {
	Iteration int
	Loss      float64
	Accuracy  float64
}

// MaskStats summarizes the masks of one run. Sparsity is always 1 - Density.
type MaskStats struct {
	Density  float64
	Sparsity float64
}

// NewMaskStats derives the sparsity from a density.
func NewMaskStats(density float64) *MaskStats {
	return &MaskStats{Density: density, Sparsity: 1 - density}
}

// Row is one (trial, level) record. Every derived field is nullable on its own.
type Row struct {
	Trial          string   `json:"trial" yaml:"trial"`
	Level          int      `json:"level" yaml:"level"`
	Density        *float64 `json:"density" yaml:"density"`
	Sparsity       *float64 `json:"sparsity" yaml:"sparsity"`
	TestIteration  *int     `json:"test_iteration" yaml:"test_iteration"`
	TestLoss       *float64 `json:"test_loss" yaml:"test_loss"`
	TestAccuracy   *float64 `json:"test_accuracy" yaml:"test_accuracy"`
	TrainIteration *int     `json:"train_iteration" yaml:"train_iteration"`
	TrainLoss      *float64 `json:"train_loss" yaml:"train_loss"`
	TrainAccuracy  *float64 `json:"train_accuracy" yaml:"train_accuracy"`
}

// Set is the full dataset, ordered by trial name and then by level.
type Set []Row

// Columns is the fixed column order of the delimited table.
var Columns = []string{
	"trial",
	"level",
	"density",
	"sparsity",
	"test_iteration",
	"test_loss",
	"test_accuracy",
	"train_iteration",
	"train_loss",
	"train_accuracy",
}

// NewRow merges the per-run inputs into a row. Any of stats, test and train may be nil.
func NewRow(trial string, level int, stats *MaskStats, test, train *Snapshot) Row {
	r := Row{Trial: trial, Level: level}
	if stats != nil {
		r.Density = ptr(stats.Density)
		r.Sparsity = ptr(stats.Sparsity)
	}
	if test != nil {
		r.TestIteration = ptr(test.Iteration)
		r.TestLoss = ptr(test.Loss)
		r.TestAccuracy = ptr(test.Accuracy)
	}
	if train != nil {
		r.TrainIteration = ptr(train.Iteration)
		r.TrainLoss = ptr(train.Loss)
		r.TrainAccuracy = ptr(train.Accuracy)
	}
	return r
}

func ptr[T any](v T) *T {
	return &v
}
