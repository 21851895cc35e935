package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShroXd/surveilans"
)

var mergeFlags struct {
	from   string
	to     string
	output string
}

func init() {
	f := mergeCmd.Flags()
	f.StringVar(&mergeFlags.from, "from", "", "First month, YYYY-MM (default current month).")
	f.StringVar(&mergeFlags.to, "to", "", "Last month, YYYY-MM (default current month).")
	f.StringVar(&mergeFlags.output, "output", "", "Directory holding the monthly extracts (overrides config).")
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge <disease name> [--from YYYY-MM] [--to YYYY-MM]",
	Short: "Concatenate the monthly extracts of one disease into a single file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := currentTime()
		from, err := parseMonthFlag(mergeFlags.from, now)
		if err != nil {
			return err
		}
		to, err := parseMonthFlag(mergeFlags.to, now)
		if err != nil {
			return err
		}

		e, err := setup("merge")
		if err != nil {
			return err
		}
		defer e.close()
		if mergeFlags.output != "" {
			e.cfg.Output.Dir = mergeFlags.output
		}

		store, err := e.store(cmd.Context())
		if err != nil {
			return err
		}
		c, err := surveilans.NewConsolidator(store, surveilans.WithConsolidatorLogger(e.logger))
		if err != nil {
			return err
		}

		report, err := c.Merge(cmd.Context(), surveilans.SafeIdentifier(args[0]), from, to)
		if report != nil {
			renderMerge(cmd.OutOrStdout(), report)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Merged %d rows into %s\n", report.Rows, report.Output)
		return nil
	},
}
