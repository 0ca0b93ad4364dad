package internal

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaudeDesktopEntry(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "uploads.toml")
	environ := []string{
		"HOME=/home/me",
		"YTPOST_TOKEN_FILE=gs://bucket/token.json",
		"YTPOST_MODEL=",
		"GEMINI_API_KEY=secret",
		"PATH=/usr/bin",
	}

	entry, err := ClaudeDesktopEntry("/usr/local/bin/ytpost", cfg, environ)
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/ytpost", entry.Command)
	assert.Equal(t, []string{"mcp", "--config", cfg}, entry.Args)
	assert.Equal(t, "gs://bucket/token.json", entry.Env["YTPOST_TOKEN_FILE"])
	assert.Equal(t, "secret", entry.Env["GEMINI_API_KEY"])
	assert.Equal(t, xdg.ConfigHome, entry.Env["XDG_CONFIG_HOME"])
	assert.NotContains(t, entry.Env, "YTPOST_MODEL", "empty values are skipped")
	assert.NotContains(t, entry.Env, "PATH")
	assert.NotContains(t, entry.Env, "HOME")

	entry, err = ClaudeDesktopEntry("/bin/ytpost", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mcp"}, entry.Args)
}

func TestMergeClaudeDesktopConfig(t *testing.T) {
	existing := []byte(`{
  "globalShortcut": "Ctrl+Space",
  "mcpServers": {
    "other": {"command": "other-server", "args": ["--x"]}
  }
}`)
	entry := MCPServerConfig{Command: "/bin/ytpost", Args: []string{"mcp"}}

	data, err := MergeClaudeDesktopConfig(existing, "ytpost", entry)
	require.NoError(t, err)

	var doc struct {
		GlobalShortcut string                     `json:"globalShortcut"`
		MCPServers     map[string]MCPServerConfig `json:"mcpServers"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Ctrl+Space", doc.GlobalShortcut)
	assert.Equal(t, "other-server", doc.MCPServers["other"].Command)
	assert.Equal(t, entry, doc.MCPServers["ytpost"])

	data, err = MergeClaudeDesktopConfig([]byte(`{}`), "ytpost", entry)
	require.NoError(t, err)
	var fresh struct {
		MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	}
	require.NoError(t, json.Unmarshal(data, &fresh))
	assert.Len(t, fresh.MCPServers, 1)

	_, err = MergeClaudeDesktopConfig([]byte(`not json`), "ytpost", entry)
	assert.Error(t, err)
}
