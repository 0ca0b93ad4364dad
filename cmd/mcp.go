package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rtzll/ytpost/internal"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for ytpost",
	Long: `Run a Model Context Protocol (MCP) server that exposes ytpost as tools.

The MCP server provides these tools:
- generate_metadata: Title and description for a local video file
- schedule_upload: Schedule a video upload with a time phrase
- list_scheduled_uploads: Show pending scheduled uploads
- cancel_scheduled_upload: Cancel a pending scheduled upload
- parse_schedule_time: Resolve a time phrase without scheduling

Scheduled uploads run while the server process is alive.

Transport options:
- stdio (default): Standard MCP transport via stdin/stdout
- http: HTTP transport on specified port (use --port to configure)`,
	Example: `  # Run MCP server with stdio transport (e.g. for Claude Desktop)
  ytpost mcp

  # Run MCP server with HTTP transport on port 8080
  ytpost mcp --transport=http --port=8080

  # Set up Claude Desktop integration
  ytpost mcp setup-claude`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// MCP uses stdio protocol, so disable verbose logging
		config.Verbose = false
		if logCloser != nil {
			_ = logCloser.Close()
		}
		logger, logCloser = internal.NewLogger(config, false)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// stdout belongs to the protocol; operator output goes to stderr
		ui := internal.NewWriterUIManager(os.Stderr, false, transport != "http")
		app, err := newApp(cmd, internal.WithUI(ui))
		if err != nil {
			return err
		}
		defer app.Close()

		mcpServer := internal.NewMCPServer(app, version)

		// Start the server (this will block until context is cancelled)
		return mcpServer.Start(cmd.Context(), transport, port)
	},
}

// setupClaudeCmd represents the setup-claude subcommand
var setupClaudeCmd = &cobra.Command{
	Use:   "setup-claude",
	Short: "Register the ytpost MCP server with Claude Desktop",
	Long: `Add ytpost to claude_desktop_config.json so Claude Desktop can schedule uploads.

The server entry carries the current --config path, the XDG base directories
and any YTPOST_* or API key variables set in this shell, so the server uses the
same OAuth token and generator settings as the CLI. Other entries and settings
in the file are kept.`,
	Example: `  # Register with the current environment
  ytpost mcp setup-claude

  # Use a dedicated config file and show the entry without writing it
  ytpost --config ~/uploads.toml mcp setup-claude --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		configFile, _ := rootCmd.PersistentFlags().GetString("config")
		return setupClaudeDesktop(name, configFile, dryRun)
	},
}

func setupClaudeDesktop(name, configFile string, dryRun bool) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("getting executable path: %w", err)
	}
	if execPath, err = filepath.EvalSymlinks(execPath); err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	entry, err := internal.ClaudeDesktopEntry(execPath, configFile, os.Environ())
	if err != nil {
		return err
	}

	if dryRun {
		data, err := json.MarshalIndent(map[string]internal.MCPServerConfig{name: entry}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	desktopConfig, err := internal.ClaudeDesktopConfigPath()
	if err != nil {
		return fmt.Errorf("getting Claude Desktop config path: %w", err)
	}
	data, err := os.ReadFile(desktopConfig)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config for Claude Desktop not found at %s", desktopConfig)
	}
	if err != nil {
		return fmt.Errorf("reading existing config: %w", err)
	}

	data, err = internal.MergeClaudeDesktopConfig(data, name, entry)
	if err != nil {
		return err
	}
	if err := os.WriteFile(desktopConfig, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	logger.Info().Str("server", name).Str("path", desktopConfig).Msg("registered MCP server with Claude Desktop")
	fmt.Printf("Registered %q in %s\n", name, desktopConfig)
	fmt.Println("Restart Claude Desktop to use the ytpost MCP server")
	return nil
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol (stdio or http)")
	mcpCmd.Flags().Int("port", 8080, "Port for HTTP transport (only used with --transport=http)")
	internal.AddGeneratorFlags(mcpCmd)
	setupClaudeCmd.Flags().String("name", "ytpost", "Server name under mcpServers")
	setupClaudeCmd.Flags().Bool("dry-run", false, "Print the server entry instead of writing it")
	mcpCmd.AddCommand(setupClaudeCmd)
	rootCmd.AddCommand(mcpCmd)
}
