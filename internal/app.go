package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog"
)

const descriptionPreviewLength = 100

// App holds the application state and dependencies
type App struct {
	config     *Config
	ui         UIManager
	logger     zerolog.Logger
	metadata   *MetadataGenerator
	dispatcher *Dispatcher
	dispatchOp []DispatcherOption
	now        func() time.Time
	started    time.Time

	uploaderMu  sync.Mutex
	uploader    MediaUploader
	newUploader func(ctx context.Context) (MediaUploader, error)

	statsMu sync.Mutex
	stats   SessionStats
}

// SessionStats counts upload attempts over the life of the App
type SessionStats struct {
	Attempted  int
	Successful int
}

// SuccessRate returns the share of successful attempts in percent
func (s SessionStats) SuccessRate() float64 {
	if s.Attempted == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Attempted) * 100
}

// NewApp initializes the application
func NewApp(config *Config, options ...AppOption) *App {
	ui := NewUIManager(config.Verbose, config.Quiet)
	prompts := NewPromptManager(config.ConfigDir, config.Prompt)

	app := &App{
		config: config,
		ui:     ui,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	app.newUploader = func(ctx context.Context) (MediaUploader, error) {
		svc, err := NewYouTubeService(ctx, app.config)
		if err != nil {
			return nil, err
		}
		return NewYouTubeUploader(svc), nil
	}

	// Apply any custom options
	for _, option := range options {
		option(app)
	}

	if app.metadata == nil {
		app.metadata = NewMetadataGenerator(NewTextGenerator(config), prompts, config.GenerationTimeout, app.ui, app.logger)
		app.metadata.SetMediaProbe(NewMediaProbe(&DefaultCommandRunner{}))
	}
	dispatcherOpts := append([]DispatcherOption{
		WithScanInterval(config.ScanInterval),
		WithStopTimeout(config.StopTimeout),
		WithClock(app.now),
		WithDispatcherUI(app.ui),
		WithDispatcherLogger(app.logger),
		WithStatusHook(app.logTransition),
	}, app.dispatchOp...)
	app.dispatcher = NewDispatcher(NewRegistry(), app.runScheduled, dispatcherOpts...)
	app.started = app.now()

	return app
}

// AppOption customizes App creation
type AppOption func(*App)

// WithUI sets a custom UI manager
func WithUI(ui UIManager) AppOption {
	return func(a *App) {
		a.ui = ui
	}
}

// WithLogger sets the structured logger
func WithLogger(logger zerolog.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

// WithUploader sets a fixed media uploader instead of the YouTube API client
func WithUploader(uploader MediaUploader) AppOption {
	return func(a *App) {
		a.uploader = uploader
	}
}

// WithMetadataGenerator sets a custom metadata generator
func WithMetadataGenerator(g *MetadataGenerator) AppOption {
	return func(a *App) {
		a.metadata = g
	}
}

// WithAppClock overrides time.Now for the app and its dispatcher
func WithAppClock(now func() time.Time) AppOption {
	return func(a *App) {
		a.now = now
	}
}

// WithDispatcherOptions builds the dispatcher with extra options
func WithDispatcherOptions(opts ...DispatcherOption) AppOption {
	return func(a *App) {
		a.dispatchOp = append(a.dispatchOp, opts...)
	}
}

// Dispatcher returns the scheduled upload dispatcher
func (app *App) Dispatcher() *Dispatcher {
	return app.dispatcher
}

// Metadata generates a title and description without uploading
func (app *App) Metadata(ctx context.Context, mediaPath, contextHint string) GeneratedMetadata {
	return app.metadata.Generate(ctx, mediaPath, contextHint)
}

// UploadNow runs the full pipeline for one video: metadata, transfer, summary
func (app *App) UploadNow(ctx context.Context, req UploadRequest) (*UploadedVideo, error) {
	timer := NewTimer(app.now)
	timer.Start()
	app.recordAttempt()

	log := app.logger.With().Str("media", req.MediaPath).Logger()

	video, err := app.upload(ctx, req, timer)
	timer.Stop()
	if err != nil {
		log.Error().Err(err).Dur("elapsed", timer.Elapsed()).Msg("upload failed")
		return nil, err
	}

	app.recordSuccess()
	log.Info().Str("video_id", video.ID).Dur("elapsed", timer.Elapsed()).Msg("upload completed")

	app.ui.Println("\nUpload successful!")
	app.ui.Printf("Video URL: %s\n", video.URL())
	app.ui.Printf("Video ID: %s\n", video.ID)
	app.ui.Printf("Total time: %s\n", timer)
	return video, nil
}

func (app *App) upload(ctx context.Context, req UploadRequest, timer *Timer) (*UploadedVideo, error) {
	req.MediaPath = CleanPath(req.MediaPath)
	if !FileExists(req.MediaPath) {
		err := fmt.Errorf("%w: %s", ErrMissingSource, req.MediaPath)
		app.reportFailure(err, timer)
		return nil, err
	}

	app.ui.Printf("Preparing upload: %s (%s)\n", baseName(req.MediaPath), FileSize(req.MediaPath))

	if req.Title == "" || req.Description == "" {
		md := app.metadata.Generate(ctx, req.MediaPath, req.Context)
		if req.Title == "" {
			req.Title = md.Title
		}
		if req.Description == "" {
			req.Description = md.Description
		}
	}
	req.Title = SanitizeTitle(req.Title)
	if req.Category == "" {
		req.Category = app.config.Category
	}

	app.ui.Printf("Title: %s\n", req.Title)
	app.ui.Printf("Description: %s\n", previewText(req.Description, descriptionPreviewLength))
	app.ui.Printf("Privacy: %s\n", req.Visibility)
	if len(req.Tags) > 0 {
		app.ui.Printf("Tags: %s\n", strings.Join(req.Tags, ", "))
	}

	uploader, err := app.mediaUploader(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrTransferFailure, err)
		app.reportFailure(err, timer)
		return nil, err
	}

	stepper, err := uploader.Insert(ctx, req)
	if err != nil {
		app.reportFailure(err, timer)
		return nil, err
	}

	onProgress, finish := app.ui.UploadProgress("Uploading")
	tracker := NewTracker(app.config.ProgressInterval, onProgress)
	tracker.now = app.now
	result, err := tracker.Run(ctx, stepper)
	finish()
	if err != nil {
		app.logger.Warn().Err(err).Str("media", req.MediaPath).Dur("attempt", result.Duration).Msg("transfer aborted")
		app.reportFailure(err, timer)
		return nil, err
	}

	app.ui.Printf("Upload time: %s\n", FormatElapsed(result.Duration))
	return result.Video, nil
}

func (app *App) reportFailure(err error, timer *Timer) {
	timer.Stop()
	app.ui.Printf("Error uploading video: %v\n", err)
	app.ui.Printf("Failed after: %s\n", timer)
}

func (app *App) mediaUploader(ctx context.Context) (MediaUploader, error) {
	app.uploaderMu.Lock()
	defer app.uploaderMu.Unlock()
	if app.uploader != nil {
		return app.uploader, nil
	}
	u, err := app.newUploader(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to YouTube: %w", err)
	}
	app.uploader = u
	return u, nil
}

// Schedule registers a video for upload at fireAt and starts the dispatcher
func (app *App) Schedule(ctx context.Context, mediaPath string, fireAt time.Time, visibility Visibility, tags []string, contextHint string) (ScheduledUpload, error) {
	mediaPath = CleanPath(mediaPath)
	if !FileExists(mediaPath) {
		return ScheduledUpload{}, fmt.Errorf("%w: %s", ErrMissingSource, mediaPath)
	}

	u := NewScheduledUpload(mediaPath, fireAt, visibility, tags, contextHint)
	u.CreatedAt = app.now()
	// the registry owns its own copy once added; a running scan may change it
	scheduled := u.clone()
	if err := app.dispatcher.Registry().Add(u); err != nil {
		return ScheduledUpload{}, fmt.Errorf("adding scheduled upload: %w", err)
	}

	now := app.now()
	app.ui.Printf("Upload scheduled for %s (%s)\n", FormatFireTime(fireAt), FormatRelative(fireAt, now))
	app.ui.Printf("Time until upload: %s\n", FormatUntil(scheduled.TimeUntil(now)))
	app.logger.Info().Str("id", scheduled.ID).Str("media", mediaPath).Time("fire_at", fireAt).Msg("upload scheduled")

	app.dispatcher.Start(ctx)
	return scheduled, nil
}

// Cancel removes a pending scheduled upload
func (app *App) Cancel(id string) error {
	if err := app.dispatcher.Registry().Cancel(id); err != nil {
		return err
	}
	app.logger.Info().Str("id", id).Msg("scheduled upload cancelled")
	return nil
}

// Scheduled returns the active scheduled uploads
func (app *App) Scheduled() []ScheduledUpload {
	return app.dispatcher.Registry().Snapshot()
}

// ScheduledTable renders the active scheduled uploads as a table
func (app *App) ScheduledTable() string {
	uploads := app.Scheduled()
	if len(uploads) == 0 {
		return "No scheduled uploads."
	}

	now := app.now()
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "ID", "Video", "Scheduled For", "Time Until", "Privacy", "Status"})
	for i, u := range uploads {
		tw.AppendRow(table.Row{
			i + 1,
			shortID(u.ID),
			baseName(u.MediaPath),
			FormatFireTime(u.FireAt()),
			FormatUntil(u.TimeUntil(now)),
			u.Visibility,
			u.Status(),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return tw.Render()
}

// Stats returns the session counters
func (app *App) Stats() SessionStats {
	app.statsMu.Lock()
	defer app.statsMu.Unlock()
	return app.stats
}

// PrintSessionSummary reports session time and upload counts
func (app *App) PrintSessionSummary() {
	stats := app.Stats()
	app.ui.Println("\n" + banner)
	app.ui.Println("SESSION SUMMARY")
	app.ui.Println(banner)
	app.ui.Printf("Session time: %s\n", FormatElapsed(app.now().Sub(app.started)))
	app.ui.Printf("Uploads attempted: %d\n", stats.Attempted)
	app.ui.Printf("Uploads successful: %d\n", stats.Successful)
	if stats.Attempted > 0 {
		app.ui.Printf("Success rate: %.1f%%\n", stats.SuccessRate())
	}
}

// Close stops the dispatcher
func (app *App) Close() {
	app.dispatcher.Stop()
}

// runScheduled is the dispatcher's upload func. Scheduled entries never
// carry a title, so metadata is generated at fire time.
func (app *App) runScheduled(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
	return app.UploadNow(ctx, UploadRequest{
		MediaPath:  u.MediaPath,
		Context:    u.Context,
		Visibility: u.Visibility,
		Tags:       u.Tags,
	})
}

func (app *App) logTransition(u ScheduledUpload, from, to Status) {
	app.logger.Debug().Str("id", u.ID).Stringer("from", from).Stringer("to", to).Msg("status changed")
}

func (app *App) recordAttempt() {
	app.statsMu.Lock()
	app.stats.Attempted++
	app.statsMu.Unlock()
}

func (app *App) recordSuccess() {
	app.statsMu.Lock()
	app.stats.Successful++
	app.statsMu.Unlock()
}

func previewText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// SetPromptManager sets a new prompt manager
func (app *App) SetPromptManager(pm *PromptManager) {
	app.metadata.SetPromptManager(pm)
}

// FindScheduled returns the scheduled upload whose ID equals or uniquely
// starts with id
func (app *App) FindScheduled(id string) (ScheduledUpload, error) {
	if u, ok := app.dispatcher.Registry().Get(id); ok {
		return u, nil
	}

	var match []ScheduledUpload
	for _, u := range app.Scheduled() {
		if strings.HasPrefix(u.ID, id) {
			match = append(match, u)
		}
	}
	switch {
	case id == "" || len(match) == 0:
		return ScheduledUpload{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(match) > 1:
		return ScheduledUpload{}, fmt.Errorf("upload id %q is ambiguous", id)
	}
	return match[0], nil
}
