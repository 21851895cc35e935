package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(diseasesCmd)
}

var diseasesCmd = &cobra.Command{
	Use:   "diseases",
	Short: "List the diseases the portal can be queried for.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup("diseases")
		if err != nil {
			return err
		}
		defer e.close()

		portal, err := e.portal()
		if err != nil {
			return err
		}
		diseases, err := portal.Diseases(cmd.Context())
		if err != nil {
			return err
		}

		renderDiseases(cmd.OutOrStdout(), diseases)
		return nil
	},
}
