// Command campushub runs the campus event hub: the REST API, the background
// scheduler, schema migrations and one-off reports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "campushub",
		Short:         "Campus event management: registrations, attendance, feedback and reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config/config.yaml or ./config.yaml)")

	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}
