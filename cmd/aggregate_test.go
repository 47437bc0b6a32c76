package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sbinet/npyio/npy"
	"github.com/spf13/afero"

	"github.com/signalnine/prunestat/internal/result"
)

func buildTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "experiments")
	for _, level := range []string{"0", "2"} {
		dir := filepath.Join(root, "a", level, "same_init")
		if err := os.MkdirAll(filepath.Join(dir, "masks"), 0o755); err != nil {
			t.Fatal(err)
		}
		log := "iteration,0,loss,1.0,accuracy,0.1\niteration,10,loss,0.2,accuracy,0.9\n"
		if err := os.WriteFile(filepath.Join(dir, "test.log"), []byte(log), 0o644); err != nil {
			t.Fatal(err)
		}
		f, err := os.Create(filepath.Join(dir, "masks", "fc1.npy"))
		if err != nil {
			t.Fatal(err)
		}
		if err := npy.Write(f, []float64{1, 0, 1, 0}); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAggregateCommand(t *testing.T) {
	root := buildTree(t)
	outDir := t.TempDir()
	csvPath := filepath.Join(outDir, "nested", "summary.csv")
	jsonPath := filepath.Join(outDir, "summary.json")

	out, err := execute(t, "aggregate", "--root", root, "--out", csvPath, "--json", jsonPath, "--parallel", "2")
	if err != nil {
		t.Fatalf("aggregate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Wrote 2 rows to "+csvPath) {
		t.Errorf("unexpected output: %q", out)
	}

	set, err := result.Load(afero.NewOsFs(), csvPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(set) != 2 || set[0].Level != 0 || set[1].Level != 2 {
		t.Fatalf("unexpected rows: %+v", set)
	}
	for _, r := range set {
		if r.TestIteration == nil || *r.TestIteration != 10 {
			t.Errorf("level %d test_iteration: got %v, want 10", r.Level, r.TestIteration)
		}
		if r.Density == nil || *r.Density != 0.5 {
			t.Errorf("level %d density: got %v, want 0.5", r.Level, r.Density)
		}
		if r.TrainLoss != nil {
			t.Errorf("level %d train_loss: expected nil", r.Level)
		}
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("reading json: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("decoding json: %v", err)
	}
	if len(records) != 2 || records[0]["train_accuracy"] != nil {
		t.Errorf("unexpected json records: %v", records)
	}
}

func TestAggregateCommandEnvOverride(t *testing.T) {
	root := buildTree(t)
	csvPath := filepath.Join(t.TempDir(), "env.csv")
	t.Setenv("PRUNESTAT_ROOT", root)
	t.Setenv("PRUNESTAT_OUT", csvPath)

	if out, err := execute(t, "aggregate"); err != nil {
		t.Fatalf("aggregate: %v\n%s", err, out)
	}
	if _, err := os.Stat(csvPath); err != nil {
		t.Errorf("expected %s to be written: %v", csvPath, err)
	}
}

func TestAggregateCommandCorruptMask(t *testing.T) {
	root := buildTree(t)
	bad := filepath.Join(root, "a", "2", "same_init", "masks", "broken.npy")
	if err := os.WriteFile(bad, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	csvPath := filepath.Join(t.TempDir(), "out.csv")

	if _, err := execute(t, "aggregate", "--root", root, "--out", csvPath); err == nil {
		t.Fatal("expected corrupt mask to fail the command")
	}
	if _, err := os.Stat(csvPath); !os.IsNotExist(err) {
		t.Errorf("no output should be written on failure, stat err: %v", err)
	}
}

func TestAggregateCommandConfigFile(t *testing.T) {
	root := buildTree(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "prunestat.yaml")
	yamlOut := filepath.Join(dir, "rows.yaml")
	cfg := "experiments:\n  root: " + root + "\noutput:\n  csv: " + filepath.Join(dir, "rows.csv") + "\n  yaml: " + yamlOut + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if out, err := execute(t, "--config", cfgPath, "aggregate"); err != nil {
		t.Fatalf("aggregate: %v\n%s", err, out)
	}
	data, err := os.ReadFile(yamlOut)
	if err != nil {
		t.Fatalf("reading yaml output: %v", err)
	}
	if !strings.Contains(string(data), "trial: a") {
		t.Errorf("unexpected yaml output:\n%s", data)
	}
}

func TestListCommand(t *testing.T) {
	root := buildTree(t)
	out, err := execute(t, "list", "--root", root)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "a (levels: 0, 2)") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestAggregateCommandInMemory(t *testing.T) {
	mem := afero.NewMemMapFs()
	orig := fsys
	fsys = mem
	t.Cleanup(func() { fsys = orig })

	afero.WriteFile(mem, "/exp/t1/3/same_init/test.log", []byte("iteration,7,loss,0.4,accuracy,0.6\n"), 0o644)
	afero.WriteFile(mem, "/exp/t1/1/same_init/train.log", []byte("iteration,9,loss,0.3,accuracy,0.7\n"), 0o644)

	out, err := execute(t, "list", "--root", "/exp")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "t1 (levels: 1, 3)") {
		t.Errorf("unexpected output: %q", out)
	}

	if out, err := execute(t, "aggregate", "--root", "/exp", "--out", "/results/rows.csv"); err != nil {
		t.Fatalf("aggregate: %v\n%s", err, out)
	}
	set, err := result.Load(mem, "/results/rows.csv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(set) != 2 || set[1].TestAccuracy == nil || *set[1].TestAccuracy != 0.6 {
		t.Errorf("unexpected rows: %+v", set)
	}
}

func TestSummaryCommand(t *testing.T) {
	root := buildTree(t)
	csvPath := filepath.Join(t.TempDir(), "summary.csv")
	if out, err := execute(t, "aggregate", "--root", root, "--out", csvPath); err != nil {
		t.Fatalf("aggregate: %v\n%s", err, out)
	}
	out, err := execute(t, "summary", csvPath, "--format", "markdown")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(out, "| 2 | 1 | 0.5000 | 0.9000 | 0.0000 |") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestInvalidOverride(t *testing.T) {
	if _, err := execute(t, "aggregate", "--root", t.TempDir(), "--mask-ext", "npy"); err == nil {
		t.Error("expected error for mask extension without a dot")
	}
}
