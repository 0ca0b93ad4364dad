package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/adrg/xdg"
)

// forwardedEnv lists variables, besides YTPOST_*, that the MCP server needs
// to see the same configuration as the shell that registered it
var forwardedEnv = []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_APPLICATION_CREDENTIALS"}

// MCPServerConfig is one entry under mcpServers in claude_desktop_config.json
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// ClaudeDesktopEntry builds the server entry for execPath. A non-empty
// configFile is passed through as --config; environ is scanned for
// YTPOST_* and API key variables.
func ClaudeDesktopEntry(execPath, configFile string, environ []string) (MCPServerConfig, error) {
	args := []string{"mcp"}
	if configFile != "" {
		abs, err := filepath.Abs(configFile)
		if err != nil {
			return MCPServerConfig{}, fmt.Errorf("resolving config path: %w", err)
		}
		args = append(args, "--config", abs)
	}

	env := map[string]string{
		"XDG_DATA_HOME":   xdg.DataHome,
		"XDG_CONFIG_HOME": xdg.ConfigHome,
		"XDG_CACHE_HOME":  xdg.CacheHome,
	}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || v == "" {
			continue
		}
		if strings.HasPrefix(k, "YTPOST_") || slices.Contains(forwardedEnv, k) {
			env[k] = v
		}
	}

	return MCPServerConfig{Command: execPath, Args: args, Env: env}, nil
}

// MergeClaudeDesktopConfig sets mcpServers[name] in an existing
// claude_desktop_config.json, leaving every other key untouched
func MergeClaudeDesktopConfig(data []byte, name string, entry MCPServerConfig) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing existing config: %w", err)
	}
	if doc == nil {
		doc = make(map[string]json.RawMessage)
	}

	servers := make(map[string]json.RawMessage)
	if raw, ok := doc["mcpServers"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return nil, fmt.Errorf("parsing mcpServers: %w", err)
		}
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	servers[name] = encoded

	if doc["mcpServers"], err = json.Marshal(servers); err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ClaudeDesktopConfigPath returns where Claude Desktop keeps its config
func ClaudeDesktopConfigPath() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case "linux":
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json"), nil
	}
	return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
}
