package internal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

func newTestYouTube(t *testing.T, handler http.HandlerFunc) *YouTubeUploader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := youtube.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewYouTubeUploader(svc)
}

func writeMedia(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0644))
	return path
}

func runStepper(t *testing.T, s Stepper) (*UploadedVideo, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		step, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if step.Video != nil {
			return step.Video, nil
		}
	}
}

func TestYouTubeUploaderInsert(t *testing.T) {
	var mu sync.Mutex
	var body, query string
	up := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		body, query = string(data), r.URL.RawQuery
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"dQw4w9WgXcQ"}`)
	})

	stepper, err := up.Insert(context.Background(), UploadRequest{
		MediaPath:   writeMedia(t, "clip.mp4"),
		Title:       "Golden Hour",
		Description: "A calm evening.",
		Visibility:  VisibilityUnlisted,
		Tags:        []string{"sunset"},
	})
	require.NoError(t, err)

	video, err := runStepper(t, stepper)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", video.ID)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, query, "part=snippet%2Cstatus")
	assert.Contains(t, body, `"title":"Golden Hour"`)
	assert.Contains(t, body, `"privacyStatus":"unlisted"`)
	assert.Contains(t, body, `"categoryId":"22"`)
	assert.Contains(t, body, `"selfDeclaredMadeForKids":false`)
	assert.Contains(t, body, "not really a video")
}

func TestYouTubeUploaderAPIError(t *testing.T) {
	up := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"The request cannot be completed because you have exceeded your quota."}}`)
	})

	stepper, err := up.Insert(context.Background(), UploadRequest{
		MediaPath: writeMedia(t, "clip.mp4"),
		Title:     "t",
	})
	require.NoError(t, err)

	_, err = runStepper(t, stepper)
	require.ErrorIs(t, err, ErrTransferFailure)
	assert.Contains(t, err.Error(), "HTTP 403")
	assert.Contains(t, err.Error(), "exceeded your quota")
}

func TestYouTubeUploaderMissingMedia(t *testing.T) {
	up := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := up.Insert(context.Background(), UploadRequest{MediaPath: filepath.Join(t.TempDir(), "gone.mp4")})
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestNewVideo(t *testing.T) {
	v, err := newVideo(UploadRequest{Title: "t", Category: "music"})
	require.NoError(t, err)
	assert.Equal(t, "10", v.Snippet.CategoryId)
	assert.NotNil(t, v.Snippet.Tags)
	assert.Equal(t, "private", v.Status.PrivacyStatus)
	assert.False(t, v.Status.SelfDeclaredMadeForKids)

	_, err = newVideo(UploadRequest{Title: "t", Category: "Cooking"})
	assert.Error(t, err)
}

func TestSanitiseCategory(t *testing.T) {
	assert.Equal(t, "22", SanitiseCategory("22"))
	assert.Equal(t, "22", SanitiseCategory("people & blogs"))
	assert.Equal(t, "28", SanitiseCategory(" Science & Technology "))
	assert.Equal(t, "", SanitiseCategory("99"))
}
