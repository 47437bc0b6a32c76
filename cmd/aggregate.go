package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/prunestat/internal/result"
	"github.com/signalnine/prunestat/internal/walker"
)

func newAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Collect final metrics and mask sparsity for every trial and level",
		Args:  cobra.NoArgs,
		RunE:  runAggregate,
	}
	cmd.Flags().String("root", "", "root experiments directory")
	cmd.Flags().String("out", "", "output CSV file")
	cmd.Flags().String("json", "", "optional JSON records output")
	cmd.Flags().String("yaml", "", "optional YAML records output")
	cmd.Flags().String("variant", "", "run variant directory inside each level")
	cmd.Flags().String("mask-ext", "", "file extension of mask arrays")
	cmd.Flags().Int("parallel", 1, "number of runs aggregated concurrently")
	return cmd
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	set, err := walker.AggregateAll(cmd.Context(), fsys, cfg.Experiments.Root, &walker.Options{
		Layout:   layoutFromConfig(cfg),
		Parallel: cfg.Parallel,
	})
	if err != nil {
		return fmt.Errorf("aggregating %s: %w", cfg.Experiments.Root, err)
	}

	outputs := []struct {
		path   string
		format string
	}{
		{cfg.Output.CSV, result.FormatCSV},
		{cfg.Output.JSON, result.FormatJSON},
		{cfg.Output.YAML, result.FormatYAML},
	}
	for _, o := range outputs {
		if o.path == "" {
			continue
		}
		if err := result.Save(fsys, o.path, o.format, set); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(set), o.path)
	}
	return nil
}
