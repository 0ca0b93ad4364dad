package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/ytpost/internal"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorise ytpost to upload to your YouTube channel",
	Long: `Run the OAuth consent flow and store the resulting token.

Requires OAuth client secrets for a Desktop app with the YouTube Data API v3
enabled (https://console.cloud.google.com/). Place the JSON file at the
client_secrets location shown by 'ytpost paths', or point client_secrets in
config.toml at a path or gs://bucket/object.`,
	Example: `  # Authorise and store the token
  ytpost auth`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui := internal.NewUIManager(config.Verbose, false)
		if err := internal.Authorize(cmd.Context(), config, ui); err != nil {
			logger.Error().Err(err).Msg("authorisation failed")
			return fmt.Errorf("authorising YouTube access: %w", err)
		}
		logger.Info().Str("token", config.TokenFile).Msg("token stored")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
