package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pathsCmd represents the paths command
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show paths used by the application",
	Example: `  # Show all application paths
  ytpost paths`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config directory: %s\n", config.ConfigDir)
		fmt.Printf("Data directory: %s\n", config.DataDir)
		fmt.Printf("Cache directory: %s\n", config.CacheDir)
		fmt.Printf("Client secrets: %s\n", config.ClientSecrets)
		fmt.Printf("Token: %s\n", config.TokenFile)
		fmt.Printf("Log file: %s\n", config.LogFile())
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
