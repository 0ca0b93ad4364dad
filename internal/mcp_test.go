package internal

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args

	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestMCPGenerateMetadata(t *testing.T) {
	app := newTestApp(t)
	s := NewMCPServer(app.App, "test")

	text, isErr := callTool(t, s.handleGenerateMetadata, map[string]any{"path": writeMedia(t, "clip.mp4")})
	require.False(t, isErr, text)

	var md GeneratedMetadata
	require.NoError(t, json.Unmarshal([]byte(text), &md))
	assert.Equal(t, "Golden Hour", md.Title)
	assert.Equal(t, SourceAI, md.Source)

	_, isErr = callTool(t, s.handleGenerateMetadata, map[string]any{"path": "/no/such/file.mp4"})
	assert.True(t, isErr)
}

func TestMCPScheduleListCancel(t *testing.T) {
	app := newTestApp(t)
	s := NewMCPServer(app.App, "test")

	text, isErr := callTool(t, s.handleScheduleUpload, map[string]any{
		"path":    writeMedia(t, "later.mp4"),
		"time":    "2025-01-16 9am",
		"privacy": "public",
		"tags":    "a,b",
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Scheduled for: 2025-01-16 09:00 AM")
	assert.Contains(t, text, "Privacy: public")

	scheduled := app.Scheduled()
	require.Len(t, scheduled, 1)
	assert.Equal(t, []string{"a", "b"}, scheduled[0].Tags)

	text, _ = callTool(t, s.handleListScheduled, nil)
	assert.Contains(t, text, "later.mp4")

	text, isErr = callTool(t, s.handleCancelScheduled, map[string]any{"id": scheduled[0].ID[:8]})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Cancelled upload of later.mp4")
	assert.Empty(t, app.Scheduled())

	_, isErr = callTool(t, s.handleCancelScheduled, map[string]any{"id": scheduled[0].ID})
	assert.True(t, isErr)
}

func TestMCPScheduleRejectsBadInput(t *testing.T) {
	app := newTestApp(t)
	s := NewMCPServer(app.App, "test")
	path := writeMedia(t, "clip.mp4")

	_, isErr := callTool(t, s.handleScheduleUpload, map[string]any{"path": path, "time": "whenever"})
	assert.True(t, isErr)
	_, isErr = callTool(t, s.handleScheduleUpload, map[string]any{"path": path, "time": "9am", "privacy": "secret"})
	assert.True(t, isErr)
	_, isErr = callTool(t, s.handleScheduleUpload, map[string]any{"time": "9am"})
	assert.True(t, isErr)
	assert.Empty(t, app.Scheduled())
}

func TestMCPParseScheduleTime(t *testing.T) {
	app := newTestApp(t)
	s := NewMCPServer(app.App, "test")

	text, isErr := callTool(t, s.handleParseTime, map[string]any{"time": "9am"})
	require.False(t, isErr, text)
	// the test clock reads 10:00, so 9am is tomorrow
	assert.Contains(t, text, "2025-01-16T09:00:00Z")

	_, isErr = callTool(t, s.handleParseTime, map[string]any{"time": "nope"})
	assert.True(t, isErr)
}
