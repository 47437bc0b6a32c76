package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signalnine/prunestat/internal/config"
	"github.com/signalnine/prunestat/internal/walker"
)

// fsys backs every command.
var fsys afero.Fs = afero.NewOsFs()

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "prunestat",
		Short:        "Aggregate iterative pruning experiments into a flat results table",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file path (defaults are used when empty)")
	root.AddCommand(newAggregateCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newSummaryCmd())
	return root
}

// loadConfig reads the config file when one is given, then applies flags that
// were set on the command line or through PRUNESTAT_* environment variables.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("prunestat")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	cfg := config.Default()
	if path := v.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	overrides := map[string]*string{
		"root":     &cfg.Experiments.Root,
		"variant":  &cfg.Experiments.Variant,
		"mask-ext": &cfg.Experiments.MaskExt,
		"out":      &cfg.Output.CSV,
		"json":     &cfg.Output.JSON,
		"yaml":     &cfg.Output.YAML,
	}
	for key, dst := range overrides {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	if v.IsSet("parallel") {
		cfg.Parallel = v.GetInt("parallel")
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func layoutFromConfig(cfg *config.Config) walker.Layout {
	return walker.Layout{
		Variant:  cfg.Experiments.Variant,
		TrainLog: cfg.Experiments.TrainLog,
		TestLog:  cfg.Experiments.TestLog,
		MasksDir: cfg.Experiments.MasksDir,
		MaskExt:  cfg.Experiments.MaskExt,
	}
}
