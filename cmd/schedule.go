package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtzll/ytpost/internal"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule [video file] [time]",
	Short: "Upload a video at a later time",
	Long: `Schedule a video for upload and wait until it has run.

Time formats: '9am', '10:30pm', '14:00', '14' or '2025-01-15 9am'.
A time without a date that has already passed today means tomorrow.
The title and description are generated when the upload starts.`,
	Example: `  # Upload at 9pm
  ytpost schedule video.mp4 9pm

  # Upload at a fixed date and time as unlisted
  ytpost schedule video.mp4 2025-01-15 9:30am --privacy unlisted`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := internal.UploadRequestFromFlags(cmd, config, args[0])
		if err != nil {
			return err
		}

		fireAt, err := internal.ParseScheduleTime(strings.Join(args[1:], " "), time.Now())
		if err != nil {
			return err
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if _, err := app.Schedule(cmd.Context(), req.MediaPath, fireAt, req.Visibility, req.Tags, req.Context); err != nil {
			return err
		}
		if !config.Quiet {
			fmt.Println("Waiting for scheduled upload. Press Ctrl+C to cancel.")
		}

		// Wait until the registry drains or we are interrupted
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for app.Dispatcher().Registry().Len() > 0 {
			select {
			case <-cmd.Context().Done():
				return nil
			case <-ticker.C:
			}
		}

		if stats := app.Stats(); stats.Successful == 0 {
			return fmt.Errorf("scheduled upload failed")
		}
		return nil
	},
}

func init() {
	internal.AddUploadFlags(scheduleCmd)
	internal.AddGeneratorFlags(scheduleCmd)
	rootCmd.AddCommand(scheduleCmd)
}
