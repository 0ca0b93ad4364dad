package internal

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transition struct {
	id       string
	from, to Status
}

type hookRecorder struct {
	mu   sync.Mutex
	seen []transition
}

func (h *hookRecorder) hook(u ScheduledUpload, from, to Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, transition{id: u.ID, from: from, to: to})
}

func (h *hookRecorder) transitions() []transition {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]transition(nil), h.seen...)
}

func newTestDispatcher(t *testing.T, clock *fakeClock, upload UploadFunc, opts ...DispatcherOption) (*Dispatcher, *hookRecorder, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	rec := &hookRecorder{}
	base := []DispatcherOption{
		WithClock(clock.Now),
		WithStatusHook(rec.hook),
		WithFileCheck(func(string) bool { return true }),
		WithDispatcherUI(NewWriterUIManager(&out, false, false)),
	}
	return NewDispatcher(NewRegistry(), upload, append(base, opts...)...), rec, &out
}

func waitFirstScan(t *testing.T, d *Dispatcher) {
	t.Helper()
	d.mu.Lock()
	first := d.firstScan
	d.mu.Unlock()
	require.NotNil(t, first, "dispatcher not started")
	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("first scan did not finish")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	a := NewScheduledUpload("a.mp4", now.Add(time.Hour), VisibilityPrivate, []string{"x"}, "")
	b := NewScheduledUpload("b.mp4", now.Add(-time.Minute), VisibilityPublic, nil, "ctx")
	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))
	assert.Error(t, r.Add(a), "duplicate ID")
	assert.Equal(t, 2, r.Len())

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a.mp4", snap[0].MediaPath)
	assert.Equal(t, "b.mp4", snap[1].MediaPath)

	// copies do not alias registry state
	snap[0].Tags[0] = "changed"
	got, ok := r.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, got.Tags)

	due := r.Due(now)
	require.Len(t, due, 1)
	assert.Equal(t, b.ID, due[0].ID)
	assert.Len(t, r.Due(now.Add(time.Hour)), 2)

	_, err := r.Transition(a.ID, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	from, err := r.Transition(a.ID, StatusUploading)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, from)
	due = r.Due(now.Add(2 * time.Hour))
	require.Len(t, due, 1, "uploading entries are not due")
	assert.Equal(t, b.ID, due[0].ID)

	assert.ErrorIs(t, r.Cancel(a.ID), ErrInvalidTransition)
	require.NoError(t, r.Cancel(b.ID))
	assert.ErrorIs(t, r.Cancel(b.ID), ErrNotFound)

	_, err = r.Transition("missing", StatusUploading)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.True(t, r.Remove(a.ID))
	assert.False(t, r.Remove(a.ID))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRejectsNonPendingAdd(t *testing.T) {
	u := NewScheduledUpload("a.mp4", time.Now(), VisibilityPrivate, nil, "")
	u.status = StatusCompleted
	assert.ErrorIs(t, NewRegistry().Add(u), ErrInvalidTransition)
}

func TestScanRunsDueUpload(t *testing.T) {
	clock := newFakeClock()
	var calls []ScheduledUpload
	d, rec, out := newTestDispatcher(t, clock, func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
		calls = append(calls, u)
		return &UploadedVideo{ID: "vid"}, nil
	})

	u := NewScheduledUpload("/videos/trip.mp4", clock.Now().Add(time.Minute), VisibilityUnlisted, []string{"travel"}, "hint")
	require.NoError(t, d.Registry().Add(u))

	assert.Equal(t, 0, d.Scan(context.Background()), "not yet due")
	assert.Empty(t, calls)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, d.Scan(context.Background()))

	require.Len(t, calls, 1)
	assert.Equal(t, StatusUploading, calls[0].Status())
	assert.Equal(t, "hint", calls[0].Context)
	assert.Equal(t, []transition{
		{u.ID, StatusPending, StatusUploading},
		{u.ID, StatusUploading, StatusCompleted},
	}, rec.transitions())
	assert.Equal(t, 0, d.Registry().Len())

	assert.Contains(t, out.String(), "SCHEDULED UPLOAD STARTING")
	assert.Contains(t, out.String(), "Video: trip.mp4")
	assert.Contains(t, out.String(), "Scheduled upload completed successfully!")
}

func TestScanFailures(t *testing.T) {
	tests := []struct {
		name    string
		exists  bool
		upload  UploadFunc
		wantErr string
	}{
		{
			name:   "transfer failure on first step",
			exists: true,
			upload: func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
				return nil, fmt.Errorf("%w: HTTP 401: invalid credentials", ErrTransferFailure)
			},
			wantErr: "invalid credentials",
		},
		{
			name:   "missing source",
			exists: false,
			upload: func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
				panic("upload must not run")
			},
			wantErr: ErrMissingSource.Error(),
		},
		{
			name:   "panic",
			exists: true,
			upload: func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
				panic("kaboom")
			},
			wantErr: "kaboom",
		},
		{
			name:   "nil video",
			exists: true,
			upload: func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
				return nil, nil
			},
			wantErr: ErrTransferFailure.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			exists := tt.exists
			d, rec, out := newTestDispatcher(t, clock, tt.upload, WithFileCheck(func(string) bool { return exists }))

			u := NewScheduledUpload("gone.mp4", clock.Now(), VisibilityPrivate, nil, "")
			require.NoError(t, d.Registry().Add(u))

			assert.Equal(t, 1, d.Scan(context.Background()))
			assert.Equal(t, []transition{
				{u.ID, StatusPending, StatusUploading},
				{u.ID, StatusUploading, StatusFailed},
			}, rec.transitions())
			assert.Equal(t, 0, d.Registry().Len())
			assert.Contains(t, out.String(), "Scheduled upload failed")
			assert.Contains(t, out.String(), tt.wantErr)
		})
	}
}

func TestScanIsSequentialInRegistryOrder(t *testing.T) {
	clock := newFakeClock()
	var d *Dispatcher
	var order []string
	d, _, _ = newTestDispatcher(t, clock, func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
		uploading := 0
		for _, e := range d.Registry().Snapshot() {
			if e.Status() == StatusUploading {
				uploading++
			}
		}
		assert.Equal(t, 1, uploading)
		order = append(order, u.MediaPath)
		return &UploadedVideo{ID: u.MediaPath}, nil
	})

	for _, name := range []string{"first.mp4", "second.mp4", "third.mp4"} {
		require.NoError(t, d.Registry().Add(NewScheduledUpload(name, clock.Now(), VisibilityPrivate, nil, "")))
	}

	assert.Equal(t, 3, d.Scan(context.Background()))
	assert.Equal(t, []string{"first.mp4", "second.mp4", "third.mp4"}, order)
}

func TestScanSkipsEntryCancelledMidScan(t *testing.T) {
	clock := newFakeClock()
	var d *Dispatcher
	second := NewScheduledUpload("second.mp4", clock.Now(), VisibilityPrivate, nil, "")
	var ran []string
	d, _, _ = newTestDispatcher(t, clock, func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
		ran = append(ran, u.MediaPath)
		require.NoError(t, d.Registry().Cancel(second.ID))
		return &UploadedVideo{ID: "1"}, nil
	})

	require.NoError(t, d.Registry().Add(NewScheduledUpload("first.mp4", clock.Now(), VisibilityPrivate, nil, "")))
	require.NoError(t, d.Registry().Add(second))

	assert.Equal(t, 1, d.Scan(context.Background()))
	assert.Equal(t, []string{"first.mp4"}, ran)
	assert.Equal(t, 0, d.Registry().Len())
}

func TestDispatcherStartStopIdempotent(t *testing.T) {
	clock := newFakeClock()
	d, _, out := newTestDispatcher(t, clock, func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
		return &UploadedVideo{ID: "x"}, nil
	})

	d.Stop()
	assert.False(t, d.Running())

	assert.True(t, d.Start(context.Background()))
	assert.False(t, d.Start(context.Background()))
	assert.True(t, d.Running())

	d.Stop()
	d.Stop()
	assert.False(t, d.Running())
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("Scheduler started!")))
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("Scheduler stopped!")))

	assert.True(t, d.Start(context.Background()), "restart after stop")
	d.Stop()
}

func TestRegistryAddKeepsOwnCopy(t *testing.T) {
	r := NewRegistry()
	u := NewScheduledUpload("a.mp4", time.Now(), VisibilityPrivate, []string{"x"}, "")
	require.NoError(t, r.Add(u))

	_, err := r.Transition(u.ID, StatusUploading)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, u.Status())

	u.Tags[0] = "changed"
	got, ok := r.Get(u.ID)
	require.True(t, ok)
	assert.Equal(t, StatusUploading, got.Status())
	assert.Equal(t, []string{"x"}, got.Tags)
}

func TestDispatcherScansOnStart(t *testing.T) {
	clock := newFakeClock()
	done := make(chan string, 1)
	d, _, _ := newTestDispatcher(t, clock, func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
		done <- u.ID
		return &UploadedVideo{ID: "vid"}, nil
	}, WithScanInterval(time.Hour))

	u := NewScheduledUpload("overdue.mp4", clock.Now().Add(-time.Minute), VisibilityPrivate, nil, "")
	require.NoError(t, d.Registry().Add(u))

	require.True(t, d.Start(context.Background()))
	defer d.Stop()
	waitFirstScan(t, d)

	select {
	case id := <-done:
		assert.Equal(t, u.ID, id)
	default:
		t.Fatal("overdue upload did not run on start")
	}
	assert.Equal(t, 0, d.Registry().Len())
}

func TestDispatcherLoopExecutesDueUploads(t *testing.T) {
	done := make(chan string, 1)
	d := NewDispatcher(NewRegistry(), func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
		done <- u.ID
		return &UploadedVideo{ID: "vid"}, nil
	},
		WithScanInterval(time.Second),
		WithFileCheck(func(string) bool { return true }),
	)

	u := NewScheduledUpload("clip.mp4", time.Now(), VisibilityPrivate, nil, "")
	require.NoError(t, d.Registry().Add(u))

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, d.Start(ctx))
	defer d.Stop()

	// uploads keep running after the caller's context is cancelled
	cancel()

	select {
	case id := <-done:
		assert.Equal(t, u.ID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled upload did not run")
	}
	require.Eventually(t, func() bool { return d.Registry().Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestDispatcherStopDoesNotWaitForSlowUpload(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	d := NewDispatcher(NewRegistry(), func(ctx context.Context, u ScheduledUpload) (*UploadedVideo, error) {
		close(started)
		<-release
		return &UploadedVideo{ID: "vid"}, nil
	},
		WithScanInterval(time.Second),
		WithStopTimeout(100*time.Millisecond),
		WithFileCheck(func(string) bool { return true }),
	)
	defer close(release)

	require.NoError(t, d.Registry().Add(NewScheduledUpload("clip.mp4", time.Now(), VisibilityPrivate, nil, "")))
	require.True(t, d.Start(context.Background()))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled upload did not start")
	}

	begin := time.Now()
	d.Stop()
	assert.Less(t, time.Since(begin), time.Second)
	assert.False(t, d.Running())
}
