package internal

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	AddUploadFlags(cmd)
	AddMetadataOverrideFlags(cmd)
	AddGeneratorFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestUploadRequestFromFlags(t *testing.T) {
	cmd := newFlagCommand(t, "--privacy", "public", "--tags", "a, b", "-c", " hint ", "--title", "Mine")
	req, err := UploadRequestFromFlags(cmd, testConfig(), `"clip.mp4"`)
	require.NoError(t, err)

	assert.Equal(t, "clip.mp4", req.MediaPath)
	assert.Equal(t, VisibilityPublic, req.Visibility)
	assert.Equal(t, []string{"a", "b"}, req.Tags)
	assert.Equal(t, "hint", req.Context)
	assert.Equal(t, "Mine", req.Title)
	assert.Equal(t, "22", req.Category)
}

func TestUploadRequestFromFlagsDefaults(t *testing.T) {
	config := testConfig()
	config.Privacy = "unlisted"

	req, err := UploadRequestFromFlags(newFlagCommand(t), config, "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, VisibilityUnlisted, req.Visibility)
	assert.Nil(t, req.Tags)
	assert.Empty(t, req.Title)

	_, err = UploadRequestFromFlags(newFlagCommand(t, "--privacy", "secret"), config, "clip.mp4")
	assert.Error(t, err)
}

func TestHandleGeneratorFlags(t *testing.T) {
	config := testConfig()
	config.OpenAIAPIKey = "k"

	require.NoError(t, HandleGeneratorFlags(newFlagCommand(t, "-m", "gpt-4o", "--base-url", "http://localhost:11434/v1"), config))
	assert.Equal(t, "gpt-4o", config.Model)
	assert.Equal(t, "http://localhost:11434/v1", config.BaseURL)

	config.Model = ""
	assert.Error(t, HandleGeneratorFlags(newFlagCommand(t), config))
}
