package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/ytpost/internal"
)

// metadataCmd represents the metadata command
var metadataCmd = &cobra.Command{
	Use:   "metadata [video file]",
	Short: "Generate a title and description without uploading",
	Example: `  # Preview the generated title and description
  ytpost metadata video.mp4 -c "timelapse from the balcony"

  # Output as JSON
  ytpost metadata video.mp4 --json --pretty

  # Save JSON to file
  ytpost metadata video.mp4 -o metadata.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mediaPath := internal.CleanPath(args[0])
		if !internal.FileExists(mediaPath) {
			return fmt.Errorf("%w: %s", internal.ErrMissingSource, mediaPath)
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		contextHint, _ := cmd.Flags().GetString("context")
		metadata := app.Metadata(cmd.Context(), mediaPath, contextHint)

		outputFile, _ := cmd.Flags().GetString("output")
		asJSON, _ := cmd.Flags().GetBool("json")
		if !asJSON && outputFile == "" {
			rendered, err := internal.RenderMarkdown(fmt.Sprintf("# %s\n\n%s\n", metadata.Title, metadata.Description))
			if err != nil {
				return fmt.Errorf("rendering markdown: %w", err)
			}
			fmt.Println(rendered)
			return nil
		}

		// Convert metadata to JSON
		var jsonData []byte
		pretty, _ := cmd.Flags().GetBool("pretty")
		if pretty {
			jsonData, err = json.MarshalIndent(metadata, "", "  ")
		} else {
			jsonData, err = json.Marshal(metadata)
		}
		if err != nil {
			return fmt.Errorf("error converting metadata to JSON: %w", err)
		}

		if outputFile != "" {
			return os.WriteFile(outputFile, jsonData, 0644)
		}

		fmt.Println(string(jsonData))
		return nil
	},
}

func init() {
	metadataCmd.Flags().StringP("context", "c", "", "Context about the video for title generation")
	metadataCmd.Flags().StringP("output", "o", "", "Write JSON to this file")
	metadataCmd.Flags().Bool("json", false, "Output JSON instead of rendered text")
	metadataCmd.Flags().Bool("pretty", false, "Format output as pretty JSON")
	internal.AddGeneratorFlags(metadataCmd)
	rootCmd.AddCommand(metadataCmd)
}
