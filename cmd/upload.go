package cmd

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/rtzll/ytpost/internal"
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload [video file]",
	Short: "Upload a video to YouTube now",
	Example: `  # Upload with a generated title and description
  ytpost upload video.mp4

  # Give the model some context and make the video public
  ytpost upload video.mp4 -c "first ride on the new bike" --privacy public

  # Skip generation entirely
  ytpost upload video.mp4 --title "My Video" --description "Shot on a Sunday"

  # Copy the video URL to the clipboard
  ytpost upload video.mp4 --copy`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := internal.UploadRequestFromFlags(cmd, config, args[0])
		if err != nil {
			return err
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		video, err := app.UploadNow(cmd.Context(), req)
		if err != nil {
			return err
		}

		if copyURL, _ := cmd.Flags().GetBool("copy"); copyURL {
			if err := clipboard.WriteAll(video.URL()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to copy URL to clipboard: %v\n", err)
			} else if !config.Quiet {
				fmt.Println("Video URL copied to clipboard")
			}
		}
		return nil
	},
}

func init() {
	internal.AddUploadFlags(uploadCmd)
	internal.AddMetadataOverrideFlags(uploadCmd)
	internal.AddGeneratorFlags(uploadCmd)
	uploadCmd.Flags().Bool("copy", false, "Copy the video URL to the clipboard")
	rootCmd.AddCommand(uploadCmd)
}
