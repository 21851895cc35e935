package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "surveilans",
	Short:        "surveilans harvests daily case counts from the Jakarta disease surveillance portal.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (surveilans.yaml is used when present).")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Console log level: debug, info, warn or error.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
