package internal

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	// DefaultScanInterval is how often the dispatcher looks for due uploads
	DefaultScanInterval = 30 * time.Second
	// DefaultStopTimeout bounds how long Stop waits for the loop to exit
	DefaultStopTimeout = 5 * time.Second
)

// ScheduledUpload is one pending upload request. Values handed out by the
// Registry are copies; only the Dispatcher changes the status.
type ScheduledUpload struct {
	ID         string
	MediaPath  string
	Visibility Visibility
	Tags       []string
	Context    string
	CreatedAt  time.Time

	fireAt time.Time
	status Status
}

// NewScheduledUpload creates a pending upload firing at fireAt
func NewScheduledUpload(mediaPath string, fireAt time.Time, visibility Visibility, tags []string, contextHint string) *ScheduledUpload {
	return &ScheduledUpload{
		ID:         uuid.NewString(),
		MediaPath:  mediaPath,
		Visibility: visibility,
		Tags:       slices.Clone(tags),
		Context:    contextHint,
		CreatedAt:  time.Now(),
		fireAt:     fireAt,
		status:     StatusPending,
	}
}

// FireAt returns the time the upload becomes eligible to run
func (u ScheduledUpload) FireAt() time.Time { return u.fireAt }

// Status returns the lifecycle state at the time the copy was taken
func (u ScheduledUpload) Status() Status { return u.status }

// TimeUntil returns how long until the upload is due
func (u ScheduledUpload) TimeUntil(now time.Time) time.Duration {
	return u.fireAt.Sub(now)
}

func (u *ScheduledUpload) clone() ScheduledUpload {
	c := *u
	c.Tags = slices.Clone(u.Tags)
	return c
}

// Registry holds the active scheduled uploads in submission order
type Registry struct {
	mu    sync.Mutex
	items []*ScheduledUpload
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a copy of a pending upload
func (r *Registry) Add(u *ScheduledUpload) error {
	if u.status != StatusPending {
		return fmt.Errorf("%w: new entries must be pending, got %s", ErrInvalidTransition, u.status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexLocked(u.ID) >= 0 {
		return fmt.Errorf("scheduled upload %s already exists", u.ID)
	}
	c := u.clone()
	r.items = append(r.items, &c)
	return nil
}

// Get returns a copy of the entry with the given ID
func (r *Registry) Get(id string) (ScheduledUpload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexLocked(id); i >= 0 {
		return r.items[i].clone(), true
	}
	return ScheduledUpload{}, false
}

// Snapshot returns copies of all entries in registry order
func (r *Registry) Snapshot() []ScheduledUpload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ScheduledUpload, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, u.clone())
	}
	return out
}

// Due returns copies of pending entries whose fire time is at or before now
func (r *Registry) Due(now time.Time) []ScheduledUpload {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ScheduledUpload
	for _, u := range r.items {
		if u.status == StatusPending && !u.fireAt.After(now) {
			out = append(out, u.clone())
		}
	}
	return out
}

// Transition moves an entry to a new status, returning the previous one
func (r *Registry) Transition(id string, to Status) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	from := r.items[i].status
	if !from.canTransition(to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	r.items[i].status = to
	return from, nil
}

// Remove deletes an entry and reports whether it was present
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return false
	}
	r.items = slices.Delete(r.items, i, i+1)
	return true
}

// Cancel removes an entry that has not started uploading
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if st := r.items[i].status; st != StatusPending {
		return fmt.Errorf("%w: cannot cancel %s upload", ErrInvalidTransition, st)
	}
	r.items = slices.Delete(r.items, i, i+1)
	return nil
}

// Len returns the number of active entries
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *Registry) indexLocked(id string) int {
	return slices.IndexFunc(r.items, func(u *ScheduledUpload) bool { return u.ID == id })
}

// UploadFunc performs the upload for a due entry
type UploadFunc func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error)

// StatusHook observes every status transition made by the dispatcher
type StatusHook func(u ScheduledUpload, from, to Status)

// DispatcherOption customizes Dispatcher creation
type DispatcherOption func(*Dispatcher)

// WithScanInterval sets the period between scans
func WithScanInterval(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.interval = d
		}
	}
}

// WithStopTimeout sets how long Stop waits for the loop
func WithStopTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.stopTimeout = d
		}
	}
}

// WithClock overrides time.Now (useful for tests)
func WithClock(now func() time.Time) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.now = now
	}
}

// WithStatusHook registers a transition observer
func WithStatusHook(hook StatusHook) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.hook = hook
	}
}

// WithFileCheck overrides the media existence check
func WithFileCheck(exists func(string) bool) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.exists = exists
	}
}

// WithDispatcherUI routes operator messages to ui
func WithDispatcherUI(ui UIManager) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.ui = ui
	}
}

// WithDispatcherLogger sets the structured logger
func WithDispatcherLogger(logger zerolog.Logger) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.logger = logger
	}
}

// Dispatcher owns a Registry and periodically runs due uploads, strictly one
// at a time in registry order
type Dispatcher struct {
	registry    *Registry
	upload      UploadFunc
	interval    time.Duration
	stopTimeout time.Duration
	now         func() time.Time
	exists      func(string) bool
	hook        StatusHook
	ui          UIManager
	logger      zerolog.Logger

	mu        sync.Mutex
	cron      *cron.Cron
	firstScan chan struct{}

	// held for a whole scan so at most one entry is uploading
	scanMu sync.Mutex
}

// NewDispatcher creates a stopped dispatcher over registry
func NewDispatcher(registry *Registry, upload UploadFunc, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:    registry,
		upload:      upload,
		interval:    DefaultScanInterval,
		stopTimeout: DefaultStopTimeout,
		now:         time.Now,
		exists:      FileExists,
		ui:          NewUIManager(false, true),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher executes from
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Running reports whether the scan loop is active
func (d *Dispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cron != nil
}

// Start launches the scan loop, scanning once right away. It returns false if
// the loop was already running.
// Uploads started by the loop are not cancelled when ctx is.
func (d *Dispatcher) Start(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cron != nil {
		return false
	}

	cl := cronLogger{d.logger}
	scanCtx := context.WithoutCancel(ctx)
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		d.Scan(scanCtx)
	}))

	c := cron.New(cron.WithLogger(cl))
	c.Schedule(cron.Every(d.interval), job)
	c.Start()
	d.cron = c

	// the first scan runs now, later ones every interval
	first := make(chan struct{})
	go func() {
		defer close(first)
		job.Run()
	}()
	d.firstScan = first

	d.logger.Info().Dur("interval", d.interval).Msg("scheduler started")
	d.ui.Println("Scheduler started!")
	return true
}

// Stop signals the loop to exit and waits up to the stop timeout for an
// in-flight scan to finish. Uploads already running are not aborted.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	c, first := d.cron, d.firstScan
	d.cron, d.firstScan = nil, nil
	d.mu.Unlock()
	if c == nil {
		return
	}

	idle := make(chan struct{})
	go func() {
		<-c.Stop().Done()
		<-first
		close(idle)
	}()

	select {
	case <-idle:
		d.logger.Info().Msg("scheduler stopped")
	case <-time.After(d.stopTimeout):
		d.logger.Warn().Dur("timeout", d.stopTimeout).Msg("scheduler still busy after stop timeout")
	}
	d.ui.Println("Scheduler stopped!")
}

// Scan executes every due entry sequentially and returns how many ran.
// The due set is a snapshot; mutations go to the live registry.
func (d *Dispatcher) Scan(ctx context.Context) int {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	ran := 0
	for _, u := range d.registry.Due(d.now()) {
		if d.execute(ctx, u) {
			ran++
		}
	}
	return ran
}

func (d *Dispatcher) execute(ctx context.Context, u ScheduledUpload) bool {
	log := d.logger.With().Str("id", u.ID).Str("media", u.MediaPath).Logger()

	if !d.transition(&u, StatusUploading) {
		// cancelled between snapshot and execution
		return false
	}

	d.ui.Println("\n" + banner)
	d.ui.Println("SCHEDULED UPLOAD STARTING")
	d.ui.Printf("Scheduled for: %s\n", FormatFireTime(u.fireAt))
	d.ui.Printf("Video: %s\n", baseName(u.MediaPath))
	d.ui.Println(banner + "\n")
	log.Info().Time("fire_at", u.fireAt).Msg("scheduled upload starting")

	video, err := d.run(ctx, u)
	if err != nil {
		d.transition(&u, StatusFailed)
		d.ui.Printf("\nScheduled upload failed: %v\n", err)
		log.Error().Err(err).Msg("scheduled upload failed")
	} else {
		d.transition(&u, StatusCompleted)
		d.ui.Println("\nScheduled upload completed successfully!")
		log.Info().Str("video_id", video.ID).Msg("scheduled upload completed")
	}

	d.registry.Remove(u.ID)
	return true
}

func (d *Dispatcher) run(ctx context.Context, u ScheduledUpload) (video *UploadedVideo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("upload panicked: %v", r)
		}
	}()

	if !d.exists(u.MediaPath) {
		return nil, fmt.Errorf("%w: %s", ErrMissingSource, u.MediaPath)
	}
	video, err = d.upload(ctx, u)
	if err == nil && video == nil {
		err = fmt.Errorf("%w: no video returned", ErrTransferFailure)
	}
	return video, err
}

func (d *Dispatcher) transition(u *ScheduledUpload, to Status) bool {
	from, err := d.registry.Transition(u.ID, to)
	if err != nil {
		d.logger.Warn().Err(err).Str("id", u.ID).Msg("status transition rejected")
		return false
	}
	u.status = to
	if d.hook != nil {
		d.hook(*u, from, to)
	}
	return true
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
