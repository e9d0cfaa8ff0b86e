// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrStorageUnavailable is returned when the store has not finished initializing
	// (or has been closed) and cannot serve operations.
	ErrStorageUnavailable = errors.New("storage not available")

	// ErrTrackNotFound is returned when a requested track cannot be found.
	ErrTrackNotFound = errors.New("track not found")

	// ErrAlbumNotFound is returned when a requested album cannot be found.
	ErrAlbumNotFound = errors.New("album not found")

	// ErrPlaylistNotFound is returned when a requested playlist cannot be found.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrAssetNotFound is returned when a record references a missing binary asset.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrSettingsNotFound is returned on first run before a settings record exists.
	ErrSettingsNotFound = errors.New("settings not found")

	// ErrMetadataExtraction is returned when structured metadata extraction fails.
	// This is recoverable: the import pipeline falls back to filename and
	// decoder-probed duration.
	ErrMetadataExtraction = errors.New("metadata extraction failed")

	// ErrUnsupportedKind is returned when a file's media kind is neither audio nor video.
	ErrUnsupportedKind = errors.New("unsupported media kind")

	// ErrQueueEmpty is returned when queue navigation is attempted on an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrNoTrackLoaded is returned when playback is attempted with no track loaded.
	ErrNoTrackLoaded = errors.New("no track loaded")

	// ErrInvalidVolume is returned when the volume is out of valid range (0.0-1.0).
	ErrInvalidVolume = errors.New("invalid volume: must be between 0.0 and 1.0")

	// ErrInvalidBand is returned when an equalizer band index is out of range.
	ErrInvalidBand = errors.New("invalid equalizer band index")

	// ErrUnknownPreset is returned when an equalizer preset name is not recognized.
	ErrUnknownPreset = errors.New("unknown equalizer preset")

	// ErrViewReleased is returned when a released asset view is used.
	ErrViewReleased = errors.New("asset view already released")

	// ErrNotInitialized is returned when an operation is attempted on an uninitialized component.
	ErrNotInitialized = errors.New("component not initialized")
)

// StorageError wraps an engine-level storage failure (IO, quota, corruption)
// with the operation and collection context.
type StorageError struct {
	Op         string // Operation that failed (e.g., "put", "get", "delete")
	Collection string // Collection involved (e.g., "tracks", "assets")
	Err        error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s on %s failed: %v", e.Op, e.Collection, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(op, collection string, err error) *StorageError {
	return &StorageError{
		Op:         op,
		Collection: collection,
		Err:        err,
	}
}

// PlaybackError represents a decoder or output failure while preparing or
// rendering a track. The engine surfaces it and stays paused instead of crashing.
type PlaybackError struct {
	Op      string // Operation that failed (e.g., "load", "play", "seek")
	TrackID string // Track involved (if applicable)
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	if e.TrackID != "" {
		return fmt.Sprintf("playback %s failed for track %s: %s", e.Op, e.TrackID, e.Message)
	}
	return fmt.Sprintf("playback %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// NewPlaybackError creates a new PlaybackError.
func NewPlaybackError(op, trackID, message string, err error) *PlaybackError {
	return &PlaybackError{
		Op:      op,
		TrackID: trackID,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents rejected user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   any    // Value that failed validation
	Message string // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
