package internal

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// MaxTitleLength is YouTube's title limit in characters
	MaxTitleLength = 100

	untitledTitle = "Untitled Video"
	titleMarker   = "TITLE:"
	descMarker    = "DESCRIPTION:"
)

var trailingTagPattern = regexp.MustCompile(`\[[\p{L}\p{N}_-]+\]$`)

// TextGenerator produces free text for a prompt
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FallbackReason tags why generated text could not be used
type FallbackReason string

const (
	FallbackNone          FallbackReason = ""
	FallbackUnavailable   FallbackReason = "unavailable"
	FallbackPromptFailed  FallbackReason = "prompt_failed"
	FallbackRequestFailed FallbackReason = "request_failed"
	FallbackEmptyResponse FallbackReason = "empty_response"
	FallbackNoTitle       FallbackReason = "no_title"
)

// GenerationResult carries either generated text or the reason to fall back
type GenerationResult struct {
	Text   string
	Reason FallbackReason
	Err    error
}

// OK reports whether Text is usable
func (r GenerationResult) OK() bool {
	return r.Reason == FallbackNone
}

// MetadataSource says where a title and description came from
type MetadataSource string

const (
	SourceAI       MetadataSource = "ai"
	SourceFallback MetadataSource = "fallback"
)

// GeneratedMetadata is the title and description attached to one upload attempt
type GeneratedMetadata struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Source         MetadataSource `json:"source"`
	FallbackReason FallbackReason `json:"fallback_reason,omitempty"`
}

// MetadataGenerator writes titles and descriptions, degrading to a
// filename-derived fallback whenever the text generator cannot be used
type MetadataGenerator struct {
	generator TextGenerator
	prompts   *PromptManager
	probe     *MediaProbe
	timeout   time.Duration
	ui        UIManager
	logger    zerolog.Logger
	now       func() time.Time
}

// NewMetadataGenerator creates a generator; a nil TextGenerator always falls back
func NewMetadataGenerator(generator TextGenerator, prompts *PromptManager, timeout time.Duration, ui UIManager, logger zerolog.Logger) *MetadataGenerator {
	if prompts == nil {
		prompts = NewPromptManager("", "")
	}
	return &MetadataGenerator{
		generator: generator,
		prompts:   prompts,
		timeout:   timeout,
		ui:        ui,
		logger:    logger,
		now:       time.Now,
	}
}

// SetMediaProbe enables the media duration hint in prompts
func (g *MetadataGenerator) SetMediaProbe(probe *MediaProbe) {
	g.probe = probe
}

// Generate returns metadata for a media file. It never fails.
func (g *MetadataGenerator) Generate(ctx context.Context, mediaPath, contextHint string) GeneratedMetadata {
	timer := NewTimer(g.now)
	timer.Start()
	defer func() {
		timer.Stop()
		g.ui.Printf("Metadata generated in %s\n", timer)
	}()

	name := VideoName(mediaPath)
	result := g.request(ctx, mediaPath, contextHint)
	if result.OK() {
		if md, ok := ParseGeneratedText(result.Text, name); ok {
			return md
		}
		result = GenerationResult{Reason: FallbackNoTitle}
	}

	if result.Reason != FallbackUnavailable {
		g.ui.Printf("Could not generate metadata with AI (%s), using fallback\n", result.Reason)
	}
	g.logger.Warn().
		Str("media", mediaPath).
		Str("reason", string(result.Reason)).
		AnErr("cause", result.Err).
		Msg("using fallback metadata")

	md := FallbackMetadata(mediaPath, contextHint)
	md.FallbackReason = result.Reason
	return md
}

func (g *MetadataGenerator) request(ctx context.Context, mediaPath, contextHint string) GenerationResult {
	if g.generator == nil {
		return GenerationResult{Reason: FallbackUnavailable, Err: ErrGeneratorUnavailable}
	}

	data := PromptData{
		VideoName:      VideoName(mediaPath),
		Context:        strings.TrimSpace(contextHint),
		MaxTitleLength: MaxTitleLength,
	}
	if g.probe != nil {
		if d, err := g.probe.Duration(ctx, mediaPath); err == nil {
			data.Duration = FormatElapsed(d)
		}
	}

	prompt, err := g.prompts.CreatePrompt(data)
	if err != nil {
		return GenerationResult{Reason: FallbackPromptFailed, Err: err}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.generator.Generate(ctx, prompt)
	if err != nil {
		return GenerationResult{Reason: FallbackRequestFailed, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return GenerationResult{Reason: FallbackEmptyResponse}
	}
	return GenerationResult{Text: text}
}

// ParseGeneratedText extracts a title and description from generator output.
// It reports false when no usable title is present.
func ParseGeneratedText(text, videoName string) (GeneratedMetadata, bool) {
	text = strings.TrimSpace(text)

	var title, description string
	if strings.Contains(text, titleMarker) && strings.Contains(text, descMarker) {
		before, after, _ := strings.Cut(text, descMarker)
		title = strings.ReplaceAll(before, titleMarker, "")
		description = after
	} else {
		first, rest, _ := strings.Cut(text, "\n")
		title = first
		description = rest
	}

	if cleanTitle(title) == "" {
		return GeneratedMetadata{}, false
	}

	description = strings.TrimSpace(description)
	if description == "" {
		description = "Video: " + videoName
	}

	return GeneratedMetadata{
		Title:       SanitizeTitle(title),
		Description: description,
		Source:      SourceAI,
	}, true
}

// FallbackMetadata derives a title and description from the file name alone
func FallbackMetadata(mediaPath, contextHint string) GeneratedMetadata {
	name := VideoName(mediaPath)

	title := trailingTagPattern.ReplaceAllString(name, "")
	title = strings.ReplaceAll(title, "｜｜", "-")
	title = strings.ReplaceAll(title, "_", " ")

	description := "Video: " + name
	if contextHint = strings.TrimSpace(contextHint); contextHint != "" {
		description += "\n\n" + contextHint
	}

	return GeneratedMetadata{
		Title:       SanitizeTitle(title),
		Description: description,
		Source:      SourceFallback,
	}
}

// SanitizeTitle strips emphasis markup, collapses whitespace and enforces
// MaxTitleLength. Applying it twice gives the same result as once.
func SanitizeTitle(title string) string {
	title = cleanTitle(title)

	runes := []rune(title)
	if len(runes) > MaxTitleLength {
		title = string(runes[:MaxTitleLength-3]) + "..."
	}

	if title == "" {
		return untitledTitle
	}
	return title
}

func cleanTitle(title string) string {
	title = strings.ReplaceAll(title, "*", "")
	return strings.Join(strings.Fields(title), " ")
}

// VideoName returns the base file name without its extension
func VideoName(mediaPath string) string {
	base := filepath.Base(mediaPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// String renders metadata for terminal previews
func (m GeneratedMetadata) String() string {
	preview := m.Description
	if r := []rune(preview); len(r) > 100 {
		preview = string(r[:100]) + "..."
	}
	return fmt.Sprintf("Title: %s\nDescription preview: %s", m.Title, preview)
}

// SetPromptManager replaces the prompt template source
func (g *MetadataGenerator) SetPromptManager(pm *PromptManager) {
	g.prompts = pm
}
