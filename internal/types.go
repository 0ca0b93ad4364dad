package internal

import (
	"fmt"
	"strings"
)

// Visibility is the privacy status of an uploaded video
type Visibility int

const (
	VisibilityPrivate Visibility = iota
	VisibilityUnlisted
	VisibilityPublic
)

// String returns the privacy status as the YouTube API spells it
func (v Visibility) String() string {
	switch v {
	case VisibilityUnlisted:
		return "unlisted"
	case VisibilityPublic:
		return "public"
	default:
		return "private"
	}
}

// ParseVisibility accepts a menu choice ("1"-"3") or a privacy name.
// An empty string selects private.
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", "private":
		return VisibilityPrivate, nil
	case "2", "unlisted":
		return VisibilityUnlisted, nil
	case "3", "public":
		return VisibilityPublic, nil
	default:
		return VisibilityPrivate, fmt.Errorf("invalid privacy status: %s", s)
	}
}

// Status is the lifecycle state of a scheduled upload
type Status int

const (
	StatusPending Status = iota
	StatusUploading
	StatusCompleted
	StatusFailed
)

// String returns a human-readable representation of the status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusUploading:
		return "uploading"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// canTransition encodes pending -> uploading -> {completed, failed}
func (s Status) canTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusUploading
	case StatusUploading:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// UploadRequest describes one video upload
type UploadRequest struct {
	MediaPath   string
	Title       string // optional; generated when empty
	Description string // optional; generated when empty
	Context     string
	Visibility  Visibility
	Tags        []string
	Category    string
}

// UploadedVideo is the final result of a successful transfer
type UploadedVideo struct {
	ID string
}

// URL returns the watch URL of the uploaded video
func (v *UploadedVideo) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// ParseTags splits a comma-separated tag list, dropping empty entries
func ParseTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
