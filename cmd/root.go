package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gallarr",
	Short: "Download and monitor gallery albums from a tile-scrambling service.",
	Long: `Download and monitor gallery albums from a tile-scrambling service.

Provide a configuration file using one of the following methods:
1. Use the --config <path> or -c <path> flag.
2. Place a config.yaml file in the default user configuration directory (e.g., ~/.config/gallarr/).
3. Place a config.yaml file a folder inside your home directory (e.g., ~/.gallarr/).
4. Place a config.yaml file in the directory of the binary.`,
}

func init() {
	initRootFlags()
	initDownloadFlags()
	initResolveFlags()

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(monitorCmd)
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
