package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Experiments Experiments `yaml:"experiments"`
	Output      Output      `yaml:"output"`
	Parallel    int         `yaml:"parallel"`
}

// Experiments describes where runs live and how each run directory is laid out.
type Experiments struct {
	Root     string `yaml:"root"`
	Variant  string `yaml:"variant"`
	TrainLog string `yaml:"train_log"`
	TestLog  string `yaml:"test_log"`
	MasksDir string `yaml:"masks_dir"`
	MaskExt  string `yaml:"mask_ext"`
}

type Output struct {
	CSV  string `yaml:"csv"`
	JSON string `yaml:"json"`
	YAML string `yaml:"yaml"`
}

func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	e := &cfg.Experiments
	if e.Root == "" {
		e.Root = "experiments"
	}
	if e.Variant == "" {
		e.Variant = "same_init"
	}
	if e.TrainLog == "" {
		e.TrainLog = "train.log"
	}
	if e.TestLog == "" {
		e.TestLog = "test.log"
	}
	if e.MasksDir == "" {
		e.MasksDir = "masks"
	}
	if e.MaskExt == "" {
		e.MaskExt = ".npy"
	}
	if cfg.Output.CSV == "" {
		cfg.Output.CSV = "results/summary.csv"
	}
	if cfg.Parallel == 0 {
		cfg.Parallel = 1
	}
}

// Validate checks a config after flags and environment overrides are applied.
func Validate(cfg *Config) error {
	if cfg.Experiments.Root == "" {
		return fmt.Errorf("experiments.root is required")
	}
	if cfg.Output.CSV == "" {
		return fmt.Errorf("output.csv is required")
	}
	if cfg.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1")
	}
	if !strings.HasPrefix(cfg.Experiments.MaskExt, ".") {
		return fmt.Errorf("experiments.mask_ext %q must start with a dot", cfg.Experiments.MaskExt)
	}
	for name, v := range map[string]string{
		"variant":   cfg.Experiments.Variant,
		"train_log": cfg.Experiments.TrainLog,
		"test_log":  cfg.Experiments.TestLog,
		"masks_dir": cfg.Experiments.MasksDir,
	} {
		if strings.ContainsRune(v, os.PathSeparator) {
			return fmt.Errorf("experiments.%s %q must be a single path element", name, v)
		}
	}
	return nil
}
