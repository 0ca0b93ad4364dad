package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
)

// DefaultCategory is "People & Blogs"
const DefaultCategory = "22"

// MediaUploader starts a resumable upload and hands back its Stepper
type MediaUploader interface {
	Insert(ctx context.Context, req UploadRequest) (Stepper, error)
}

// YouTubeUploader uploads through the YouTube Data API v3
type YouTubeUploader struct {
	svc       *youtube.Service
	chunkSize int
}

// YouTubeOption customizes a YouTubeUploader
type YouTubeOption func(*YouTubeUploader)

// WithChunkSize sets the resumable upload chunk size; 0 sends the file in one request
func WithChunkSize(size int) YouTubeOption {
	return func(u *YouTubeUploader) {
		u.chunkSize = size
	}
}

// NewYouTubeUploader creates an uploader over an authorised service
func NewYouTubeUploader(svc *youtube.Service, opts ...YouTubeOption) *YouTubeUploader {
	u := &YouTubeUploader{
		svc:       svc,
		chunkSize: googleapi.DefaultUploadChunkSize,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Insert opens the media and starts the upload in the background. Progress
// and the final video are delivered through the returned Stepper.
func (u *YouTubeUploader) Insert(ctx context.Context, req UploadRequest) (Stepper, error) {
	video, err := newVideo(req)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(req.MediaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, req.MediaPath)
		}
		return nil, fmt.Errorf("opening media: %w", err)
	}
	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	s := &insertStepper{
		progress: make(chan float64, 8),
		result:   make(chan stepResult, 1),
	}

	call := u.svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f, googleapi.ChunkSize(u.chunkSize)).
		ProgressUpdater(func(current, total int64) {
			if total <= 0 {
				total = size
			}
			if total > 0 {
				s.report(float64(current) / float64(total))
			}
		}).
		Context(ctx)

	go func() {
		defer f.Close()
		v, err := call.Do()
		s.result <- stepResult{video: v, err: err}
	}()

	return s, nil
}

type stepResult struct {
	video *youtube.Video
	err   error
}

// insertStepper bridges the blocking Insert call into a Stepper
type insertStepper struct {
	progress chan float64
	result   chan stepResult
}

// report never blocks the upload; a dropped update is superseded by the next
func (s *insertStepper) report(fraction float64) {
	select {
	case s.progress <- fraction:
	default:
	}
}

func (s *insertStepper) Next(ctx context.Context) (Step, error) {
	select {
	case p := <-s.progress:
		return Step{Progress: p}, nil
	case r := <-s.result:
		if r.err != nil {
			return Step{}, mapAPIError(r.err)
		}
		if r.video == nil {
			return Step{}, fmt.Errorf("%w: empty response", ErrTransferFailure)
		}
		return Step{Progress: 1, Video: &UploadedVideo{ID: r.video.Id}}, nil
	case <-ctx.Done():
		return Step{}, fmt.Errorf("%w: %w", ErrTransferFailure, ctx.Err())
	}
}

func mapAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = strings.TrimSpace(apiErr.Body)
		}
		return fmt.Errorf("%w: HTTP %d: %s", ErrTransferFailure, apiErr.Code, msg)
	}
	return fmt.Errorf("%w: %w", ErrTransferFailure, err)
}

func newVideo(req UploadRequest) (*youtube.Video, error) {
	category := req.Category
	if category == "" {
		category = DefaultCategory
	}
	categoryID := SanitiseCategory(category)
	if categoryID == "" {
		return nil, fmt.Errorf("invalid category ID or name: %s", category)
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        tags,
			CategoryId:  categoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           req.Visibility.String(),
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}, nil
}

var categories = map[string]string{
	"1":  "Film & Animation",
	"2":  "Autos & Vehicles",
	"10": "Music",
	"15": "Pets & Animals",
	"17": "Sports",
	"19": "Travel & Events",
	"20": "Gaming",
	"22": "People & Blogs",
	"23": "Comedy",
	"24": "Entertainment",
	"25": "News & Politics",
	"26": "Howto & Style",
	"27": "Education",
	"28": "Science & Technology",
	"29": "Nonprofits & Activism",
}

// SanitiseCategory accepts a category ID or name (case-insensitive) and
// returns its ID, or "" if it is not an assignable category
func SanitiseCategory(cat string) string {
	cat = strings.TrimSpace(cat)
	for id, name := range categories {
		if id == cat || strings.EqualFold(name, cat) {
			return id
		}
	}
	return ""
}
