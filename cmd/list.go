package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/prunestat/internal/walker"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered trials and their pruning levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runs, err := walker.Discover(fsys, cfg.Experiments.Root, layoutFromConfig(cfg))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Trials:")
			for i := 0; i < len(runs); {
				trial := runs[i].Trial
				var levels []string
				for ; i < len(runs) && runs[i].Trial == trial; i++ {
					levels = append(levels, strconv.Itoa(runs[i].Level))
				}
				fmt.Fprintf(out, "  - %s (levels: %s)\n", trial, strings.Join(levels, ", "))
			}
			return nil
		},
	}
	cmd.Flags().String("root", "", "root experiments directory")
	return cmd
}
