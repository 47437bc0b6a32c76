package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/prunestat/internal/report"
)

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary [csv]",
		Short: "Summarize accuracy by level and by trial from an aggregated table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path := cfg.Output.CSV
			if len(args) > 0 {
				path = args[0]
			}
			format, _ := cmd.Flags().GetString("format")
			return report.Generate(fsys, path, format, cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("format", "table", "output format (table, markdown, json)")
	return cmd
}
