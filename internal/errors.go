package internal

import "errors"

var (
	// ErrParseFailure is returned when a schedule time phrase is not recognised.
	ErrParseFailure = errors.New("unrecognised time phrase")
	// ErrTransferFailure marks any network, auth or quota failure during an upload.
	ErrTransferFailure = errors.New("transfer failed")
	// ErrMissingSource is returned when the media file is gone at execution time.
	ErrMissingSource = errors.New("media file not found")
	// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotFound is returned when a scheduled upload ID is not in the registry.
	ErrNotFound = errors.New("scheduled upload not found")
	// ErrNoToken is returned when no stored OAuth token exists yet.
	ErrNoToken = errors.New("no YouTube token stored - run `ytpost auth`")
	// ErrGeneratorUnavailable is never surfaced; it tags metadata fallbacks.
	ErrGeneratorUnavailable = errors.New("text generator unavailable")
)
