package internal

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AddUploadFlags adds flags describing the video being uploaded
func AddUploadFlags(cmd *cobra.Command) {
	cmd.Flags().String("privacy", "", "Privacy status: private, unlisted or public (default from config)")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().StringP("context", "c", "", "Context about the video for title generation")
	cmd.Flags().String("category", "", "Category ID or name (default from config)")
}

// AddMetadataOverrideFlags adds flags that skip generation for immediate uploads
func AddMetadataOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "Use this title instead of generating one")
	cmd.Flags().String("description", "", "Use this description instead of generating one")
}

// AddGeneratorFlags adds flags related to the text generation API
func AddGeneratorFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "Model to use for titles and descriptions")
	cmd.Flags().StringP("prompt", "p", "", "Custom prompt (string or file path)")
	cmd.Flags().String("base-url", "", "OpenAI-compatible API base URL")
}

// UploadRequestFromFlags builds an upload request for mediaPath from the
// upload flags, falling back to config defaults
func UploadRequestFromFlags(cmd *cobra.Command, config *Config, mediaPath string) (UploadRequest, error) {
	privacy, _ := cmd.Flags().GetString("privacy")
	if privacy == "" {
		privacy = config.Privacy
	}
	visibility, err := ParseVisibility(privacy)
	if err != nil {
		return UploadRequest{}, err
	}

	tags, _ := cmd.Flags().GetString("tags")
	contextHint, _ := cmd.Flags().GetString("context")
	category, _ := cmd.Flags().GetString("category")
	if category == "" {
		category = config.Category
	}

	req := UploadRequest{
		MediaPath:  CleanPath(mediaPath),
		Context:    strings.TrimSpace(contextHint),
		Visibility: visibility,
		Tags:       ParseTags(tags),
		Category:   category,
	}

	if f := cmd.Flags().Lookup("title"); f != nil {
		req.Title = f.Value.String()
	}
	if f := cmd.Flags().Lookup("description"); f != nil {
		req.Description = f.Value.String()
	}
	return req, nil
}

// HandleGeneratorFlags applies --model and --base-url to config. It must run
// before the App is created.
func HandleGeneratorFlags(cmd *cobra.Command, config *Config) error {
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		config.Model = model
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		config.BaseURL = baseURL
	}
	if strings.TrimSpace(config.Model) == "" {
		return fmt.Errorf("no model configured")
	}

	if err := ValidateGeneratorKey(config.OpenAIAPIKey); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return nil
}

// HandlePromptFlag processes the --prompt flag to set custom prompt
func HandlePromptFlag(cmd *cobra.Command, app *App) error {
	// Check if prompt flag was explicitly set
	promptFlag := cmd.Flags().Lookup("prompt")
	if promptFlag == nil || !promptFlag.Changed {
		return nil
	}

	prompt, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return fmt.Errorf("failed to get prompt flag: %w", err)
	}
	if prompt == "" {
		return nil
	}

	app.SetPromptManager(NewPromptManager(app.config.ConfigDir, prompt))

	if IsLikelyFilePath(prompt) && FileExists(prompt) {
		app.ui.Verbose("Using custom prompt file: %s\n", prompt)
	} else {
		app.ui.Verbose("Using custom prompt string\n")
	}

	return nil
}

// HandleVerboseFlag processes the --verbose flag to update config
func HandleVerboseFlag(cmd *cobra.Command, config *Config) error {
	if f := cmd.Flags().Lookup("verbose"); f == nil || !f.Changed {
		return nil
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	config.Verbose = verbose
	return nil
}
