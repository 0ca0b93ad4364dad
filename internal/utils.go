package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const fireTimeLayout = "2006-01-02 03:04 PM"

var banner = strings.Repeat("=", 60)

// CleanPath trims whitespace and one pair of surrounding quotes, as left
// behind by drag-and-drop into a terminal
func CleanPath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, `"`)
	p = strings.Trim(p, `'`)
	return p
}

// FormatFireTime renders a fire time for operators
func FormatFireTime(t time.Time) string {
	return t.Format(fireTimeLayout)
}

// FormatRelative renders a fire time as "in 3 hours" / "2 minutes ago"
func FormatRelative(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// FileSize returns a human-readable size for a file, or "" if unknown
func FileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return humanize.Bytes(uint64(info.Size()))
}

func baseName(p string) string {
	return filepath.Base(p)
}

// getTerminalWidth gets terminal width with fallback
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}

	if width > 10 {
		return width - 4
	}

	return width
}

// RenderMarkdown renders markdown content with glamour
func RenderMarkdown(content string) (string, error) {
	width := getTerminalWidth()
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(termenv.EnvColorProfile()),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}

	renderedContent, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	return renderedContent, nil
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

// EnsureDirs creates directories if needed
func EnsureDirs(dir ...string) error {
	for _, dir := range dir {
		if dir == "" || FileExists(dir) {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGeneratorKey warns when no API key is configured; metadata then
// always comes from file names
func ValidateGeneratorKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("no API key configured - set openai_api_key in config.toml, OPENAI_API_KEY or GEMINI_API_KEY; titles will be derived from file names")
	}
	return nil
}
