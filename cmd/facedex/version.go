package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/facedex/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "%s %s\n", version.Name, version.Version)
		_, _ = fmt.Fprintf(out, "  Commit: %s\n", version.Commit)
		_, _ = fmt.Fprintf(out, "  Built:  %s\n", version.Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
