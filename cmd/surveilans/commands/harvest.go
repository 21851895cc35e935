package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShroXd/surveilans"
)

var harvestFlags struct {
	disease   string
	from      string
	to        string
	output    string
	regencies []string
}

func init() {
	f := harvestCmd.Flags()
	f.StringVar(&harvestFlags.disease, "disease", "", "Disease code; prompts with the portal's list when empty.")
	f.StringVar(&harvestFlags.from, "from", "", "First month, YYYY-MM (default current month).")
	f.StringVar(&harvestFlags.to, "to", "", "Last month, YYYY-MM (default current month).")
	f.StringVar(&harvestFlags.output, "output", "", "Directory for the monthly extracts (overrides config).")
	f.StringSliceVar(&harvestFlags.regencies, "regency", nil, "Restrict to regency codes 1-6; repeatable.")
	rootCmd.AddCommand(harvestCmd)
}

var harvestCmd = &cobra.Command{
	Use:   "harvest [--disease <code>] [--from YYYY-MM] [--to YYYY-MM]",
	Short: "Collect daily case counts per village and write one extract per month.",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := currentTime()
		from, err := parseMonthFlag(harvestFlags.from, now)
		if err != nil {
			return err
		}
		to, err := parseMonthFlag(harvestFlags.to, now)
		if err != nil {
			return err
		}
		if _, err := surveilans.MonthRange(from, to); err != nil {
			return err
		}

		e, err := setup("harvest")
		if err != nil {
			return err
		}
		defer e.close()
		if harvestFlags.output != "" {
			e.cfg.Output.Dir = harvestFlags.output
		}

		portal, err := e.portal()
		if err != nil {
			return err
		}
		store, err := e.store(cmd.Context())
		if err != nil {
			return err
		}

		diseases, err := portal.Diseases(cmd.Context())
		if err != nil {
			return err
		}
		var disease surveilans.Disease
		if harvestFlags.disease == "" {
			disease, err = promptDisease(cmd.InOrStdin(), cmd.OutOrStdout(), diseases)
			if err != nil {
				return err
			}
		} else {
			var ok bool
			disease, ok = findDisease(diseases, harvestFlags.disease)
			if !ok {
				return fmt.Errorf("unknown disease code %q, see the diseases command", harvestFlags.disease)
			}
		}

		opts := []surveilans.Option{
			surveilans.ID(e.runID),
			surveilans.Name("harvest"),
			surveilans.WithLogger(e.logger),
			surveilans.WithMetrics(e.metrics),
		}
		if len(harvestFlags.regencies) > 0 {
			regencies, err := parseRegencies(harvestFlags.regencies)
			if err != nil {
				return err
			}
			opts = append(opts, surveilans.WithRegencies(regencies...))
		}

		h, err := surveilans.NewHarvester(portal, store, opts...)
		if err != nil {
			return err
		}

		summary, runErr := h.Run(cmd.Context(), surveilans.Params{
			DiseaseCode: disease.Code,
			DiseaseName: disease.Name,
			From:        from,
			To:          to,
		})
		if summary != nil {
			renderSummary(cmd.OutOrStdout(), summary)
		}
		return runErr
	},
}

func parseRegencies(codes []string) ([]surveilans.Regency, error) {
	known := make(map[string]surveilans.Regency)
	for _, r := range surveilans.Regencies() {
		known[r.Code()] = r
	}

	out := make([]surveilans.Regency, 0, len(codes))
	for _, c := range codes {
		r, ok := known[c]
		if !ok {
			return nil, fmt.Errorf("unknown regency code %q", c)
		}
		out = append(out, r)
	}
	return out, nil
}
