package cmd

import (
	"anthrometer/internal/app"
	"runtime"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X anthrometer/cmd.version=...".
var version = "dev"

// versionCmd shows build details for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of anthrometer.",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("anthrometer\n")
		cmd.Printf("  Version: %s\n", version)
		cmd.Printf("  Commit:  %s\n", app.BuildCommit)
		cmd.Printf("  Built:   %s\n", app.BuildTime)
		cmd.Printf("  Runtime: %s\n", runtime.Version())
	},
}
