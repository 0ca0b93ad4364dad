package internal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultProgressInterval is the minimum gap between ordinary progress events
const DefaultProgressInterval = 2 * time.Second

var progressMilestones = []int{25, 50, 75, 100}

// Step is one increment of a resumable upload: either a progress fraction
// in [0,1] or the final uploaded video
type Step struct {
	Progress float64
	Video    *UploadedVideo
}

// Stepper drives a chunked upload one step at a time
type Stepper interface {
	Next(ctx context.Context) (Step, error)
}

// ProgressEvent is a progress update surfaced to the operator
type ProgressEvent struct {
	Percent int
	Elapsed time.Duration
}

// TransferSession tracks a single transfer attempt
type TransferSession struct {
	Fraction    float64
	Started     time.Time
	LastEmitted time.Time
	lastPercent int
}

// TransferResult is the outcome of a successful transfer
type TransferResult struct {
	Video    *UploadedVideo
	Duration time.Duration
}

// Tracker runs a Stepper to completion, throttling progress events
type Tracker struct {
	interval   time.Duration
	now        func() time.Time
	onProgress func(ProgressEvent)
}

// NewTracker creates a tracker; onProgress may be nil
func NewTracker(interval time.Duration, onProgress func(ProgressEvent)) *Tracker {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Tracker{
		interval:   interval,
		now:        time.Now,
		onProgress: onProgress,
	}
}

// Run drives the stepper until it yields a video. Any stepper error is
// returned wrapping ErrTransferFailure, with the attempt duration still set
// on the result.
func (t *Tracker) Run(ctx context.Context, stepper Stepper) (result TransferResult, err error) {
	timer := NewTimer(t.now)
	timer.Start()
	session := &TransferSession{Started: timer.start, LastEmitted: timer.start}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic during upload: %v", ErrTransferFailure, r)
		}
		timer.Stop()
		if err != nil {
			result = TransferResult{Duration: timer.Elapsed()}
		}
	}()

	for {
		step, stepErr := stepper.Next(ctx)
		if stepErr != nil {
			if errors.Is(stepErr, ErrTransferFailure) {
				return TransferResult{}, stepErr
			}
			return TransferResult{}, fmt.Errorf("%w: %w", ErrTransferFailure, stepErr)
		}

		if step.Video != nil {
			if step.Video.ID == "" {
				return TransferResult{}, fmt.Errorf("%w: response carried no video ID", ErrTransferFailure)
			}
			t.observe(session, 1)
			return TransferResult{Video: step.Video, Duration: timer.Elapsed()}, nil
		}

		t.observe(session, step.Progress)
	}
}

// observe records a fraction and surfaces an event when the interval has
// passed since the last one or a milestone was reached since the previous step
func (t *Tracker) observe(session *TransferSession, fraction float64) {
	pct := percent(fraction)
	prev := session.lastPercent
	session.Fraction = fraction
	session.lastPercent = pct

	now := t.now()
	if now.Sub(session.LastEmitted) < t.interval && !crossedMilestone(prev, pct) {
		return
	}

	session.LastEmitted = now
	event := ProgressEvent{Percent: pct, Elapsed: now.Sub(session.Started)}
	if t.onProgress != nil {
		t.onProgress(event)
	}
}

func percent(fraction float64) int {
	pct := int(fraction*100 + 1e-9)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

func crossedMilestone(prev, pct int) bool {
	for _, m := range progressMilestones {
		if prev < m && pct >= m {
			return true
		}
	}
	return false
}
