package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App, version string) *MCPServer {
	mcpServer := server.NewMCPServer(
		"ytpost-server",
		version,
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("generate_metadata",
		mcp.WithDescription("Generate a YouTube title and description for a local video file. Falls back to a title derived from the file name when no AI model is configured or the request fails; the 'source' field says which was used."),
		mcp.WithString("path",
			mcp.Description("Path to the video file"),
			mcp.Required(),
		),
		mcp.WithString("context",
			mcp.Description("Optional context about the video"),
		),
	), s.handleGenerateMetadata)

	s.mcpServer.AddTool(mcp.NewTool("schedule_upload",
		mcp.WithDescription("Schedule a local video for upload to YouTube. Title and description are generated when the upload starts. Schedules live only as long as this server process."),
		mcp.WithString("path",
			mcp.Description("Path to the video file"),
			mcp.Required(),
		),
		mcp.WithString("time",
			mcp.Description("When to upload: '9am', '10:30pm', '14:00' or '2025-01-15 9am'. Times without a date that already passed today mean tomorrow."),
			mcp.Required(),
		),
		mcp.WithString("privacy",
			mcp.Description("private, unlisted or public"),
			mcp.Enum("private", "unlisted", "public"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags"),
		),
		mcp.WithString("context",
			mcp.Description("Optional context about the video"),
		),
	), s.handleScheduleUpload)

	s.mcpServer.AddTool(mcp.NewTool("list_scheduled_uploads",
		mcp.WithDescription("List uploads waiting to run, with their fire time and status"),
	), s.handleListScheduled)

	s.mcpServer.AddTool(mcp.NewTool("cancel_scheduled_upload",
		mcp.WithDescription("Cancel a scheduled upload that has not started yet"),
		mcp.WithString("id",
			mcp.Description("Upload ID or a unique prefix of it, as shown by list_scheduled_uploads"),
			mcp.Required(),
		),
	), s.handleCancelScheduled)

	s.mcpServer.AddTool(mcp.NewTool("parse_schedule_time",
		mcp.WithDescription("Resolve a schedule time phrase to an absolute local time without scheduling anything"),
		mcp.WithString("time",
			mcp.Description("Time phrase such as '9am' or '2025-01-15 14:00'"),
			mcp.Required(),
		),
	), s.handleParseTime)
}

func (s *MCPServer) handleGenerateMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path parameter is required and must be a string"), nil
	}
	path = CleanPath(path)
	if !FileExists(path) {
		return mcp.NewToolResultError(fmt.Sprintf("file not found: %s", path)), nil
	}

	md := s.app.Metadata(ctx, path, request.GetString("context", ""))
	s.app.logger.Info().Str("tool", "generate_metadata").Str("media", path).Str("source", string(md.Source)).Msg("metadata generated")

	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encoding metadata", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *MCPServer) handleScheduleUpload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path parameter is required and must be a string"), nil
	}
	phrase, err := request.RequireString("time")
	if err != nil {
		return mcp.NewToolResultError("time parameter is required and must be a string"), nil
	}

	fireAt, err := ParseScheduleTime(phrase, s.app.now())
	if err != nil {
		return mcp.NewToolResultErrorFromErr("could not parse time", err), nil
	}

	privacy := request.GetString("privacy", s.app.config.Privacy)
	visibility, err := ParseVisibility(privacy)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid privacy", err), nil
	}

	// the request context ends with the tool call; the dispatcher outlives it
	u, err := s.app.Schedule(context.WithoutCancel(ctx), path, fireAt, visibility,
		ParseTags(request.GetString("tags", "")), request.GetString("context", ""))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("could not schedule upload", err), nil
	}

	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("ID: %s\n", u.ID))
	buf.WriteString(fmt.Sprintf("Video: %s\n", baseName(u.MediaPath)))
	buf.WriteString(fmt.Sprintf("Scheduled for: %s\n", FormatFireTime(u.FireAt())))
	buf.WriteString(fmt.Sprintf("Time until: %s\n", FormatUntil(u.TimeUntil(s.app.now()))))
	buf.WriteString(fmt.Sprintf("Privacy: %s\n", u.Visibility))
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *MCPServer) handleListScheduled(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.app.ScheduledTable()), nil
}

func (s *MCPServer) handleCancelScheduled(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required and must be a string"), nil
	}

	u, err := s.app.FindScheduled(id)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("could not find upload", err), nil
	}
	if err := s.app.Cancel(u.ID); err != nil {
		return mcp.NewToolResultErrorFromErr("could not cancel upload", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cancelled upload of %s scheduled for %s", baseName(u.MediaPath), FormatFireTime(u.FireAt()))), nil
}

func (s *MCPServer) handleParseTime(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phrase, err := request.RequireString("time")
	if err != nil {
		return mcp.NewToolResultError("time parameter is required and must be a string"), nil
	}

	now := s.app.now()
	t, err := ParseScheduleTime(phrase, now)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("could not parse time", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s (%s, %s)", t.Format(time.RFC3339), FormatFireTime(t), FormatRelative(t, now))), nil
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	s.app.logger.Info().Str("transport", transport).Int("port", port).Msg("starting MCP server")

	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return httpServer.Start(addr)
	}

	// Default to stdio transport
	return server.ServeStdio(s.mcpServer)
}

// GetServer returns the underlying MCP server for advanced configuration
func (s *MCPServer) GetServer() *server.MCPServer {
	return s.mcpServer
}
