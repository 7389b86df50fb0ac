package commands

import (
	"context"
	"fmt"
	"os"

	"boincstats/lib/configutil"
	"boincstats/lib/serviceutil"
	"boincstats/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
)

var rootCmd = &cobra.Command{
	Use:           "boinc-cli",
	Short:         "boinc-cli scrapes the results of BOINC projects and keeps their history.",
	SilenceErrors: true,
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "boinc.json5", "The config file to read, found in the working directory or any parent.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug reports.")
}

func readConfig() Config {
	cfg, err := configutil.ReadRecursively[Config](*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	telemetry.InitSlog(cfg.Verbose || *verbose)
	return cfg
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
