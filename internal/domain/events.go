// Package domain defines events for the event-driven architecture.
// Events are the telemetry channel for excluded collaborators (UI, media-session
// integration) and enable loose coupling between the core services.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback events
	EventTrackLoaded    EventType = "track.loaded"
	EventTrackStarted   EventType = "track.started"
	EventTrackPaused    EventType = "track.paused"
	EventTrackStopped   EventType = "track.stopped"
	EventTrackCompleted EventType = "track.completed"
	EventTrackProgress  EventType = "track.progress"
	EventTrackError     EventType = "track.error"

	// Queue events
	EventQueueChanged   EventType = "queue.changed"
	EventShuffleToggled EventType = "shuffle.toggled"
	EventRepeatChanged  EventType = "repeat.changed"

	// Volume events
	EventVolumeChanged EventType = "volume.changed"
	EventMuteToggled   EventType = "mute.toggled"

	// Signal chain events
	EventEqualizerChanged EventType = "equalizer.changed"

	// Library events
	EventLibraryLoaded   EventType = "library.loaded"
	EventTrackImported   EventType = "library.track_imported"
	EventTrackUpdated    EventType = "library.track_updated"
	EventTrackRemoved    EventType = "library.track_removed"
	EventAlbumChanged    EventType = "library.album_changed"
	EventPlaylistChanged EventType = "library.playlist_changed"

	// Import events
	EventImportProgress  EventType = "import.progress"
	EventImportCompleted EventType = "import.completed"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TrackLoadedEvent is published when a track is prepared for rendering.
type TrackLoadedEvent struct {
	baseEvent
	Track    Track
	Duration time.Duration
	Index    int // Position in the active order
}

// Type returns the event type.
func (e TrackLoadedEvent) Type() EventType {
	return EventTrackLoaded
}

// NewTrackLoadedEvent creates a new TrackLoadedEvent.
func NewTrackLoadedEvent(track Track, duration time.Duration, index int) TrackLoadedEvent {
	return TrackLoadedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Duration:  duration,
		Index:     index,
	}
}

// TrackStartedEvent is published when playback starts or resumes.
type TrackStartedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackStartedEvent) Type() EventType {
	return EventTrackStarted
}

// NewTrackStartedEvent creates a new TrackStartedEvent.
func NewTrackStartedEvent(track Track) TrackStartedEvent {
	return TrackStartedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackPausedEvent is published when playback is paused.
type TrackPausedEvent struct {
	baseEvent
	Track    Track
	Position time.Duration
}

// Type returns the event type.
func (e TrackPausedEvent) Type() EventType {
	return EventTrackPaused
}

// NewTrackPausedEvent creates a new TrackPausedEvent.
func NewTrackPausedEvent(track Track, position time.Duration) TrackPausedEvent {
	return TrackPausedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Position:  position,
	}
}

// TrackStoppedEvent is published when playback is stopped.
type TrackStoppedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackStoppedEvent) Type() EventType {
	return EventTrackStopped
}

// NewTrackStoppedEvent creates a new TrackStoppedEvent.
func NewTrackStoppedEvent(track Track) TrackStoppedEvent {
	return TrackStoppedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackCompletedEvent is published when a track finishes playing naturally.
type TrackCompletedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackCompletedEvent) Type() EventType {
	return EventTrackCompleted
}

// NewTrackCompletedEvent creates a new TrackCompletedEvent.
func NewTrackCompletedEvent(track Track) TrackCompletedEvent {
	return TrackCompletedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackProgressEvent is published periodically during playback.
type TrackProgressEvent struct {
	baseEvent
	Position time.Duration
	Duration time.Duration
}

// Type returns the event type.
func (e TrackProgressEvent) Type() EventType {
	return EventTrackProgress
}

// NewTrackProgressEvent creates a new TrackProgressEvent.
func NewTrackProgressEvent(position, duration time.Duration) TrackProgressEvent {
	return TrackProgressEvent{
		baseEvent: newBaseEvent(),
		Position:  position,
		Duration:  duration,
	}
}

// TrackErrorEvent is published when a playback error surfaces for a track.
type TrackErrorEvent struct {
	baseEvent
	TrackID string
	Error   error
}

// Type returns the event type.
func (e TrackErrorEvent) Type() EventType {
	return EventTrackError
}

// NewTrackErrorEvent creates a new TrackErrorEvent.
func NewTrackErrorEvent(trackID string, err error) TrackErrorEvent {
	return TrackErrorEvent{
		baseEvent: newBaseEvent(),
		TrackID:   trackID,
		Error:     err,
	}
}

// QueueChangedEvent is published when the queue contents or position change.
type QueueChangedEvent struct {
	baseEvent
	Queue []string // Canonical order
	Index int      // Current position in the active order
}

// Type returns the event type.
func (e QueueChangedEvent) Type() EventType {
	return EventQueueChanged
}

// NewQueueChangedEvent creates a new QueueChangedEvent.
func NewQueueChangedEvent(queue []string, index int) QueueChangedEvent {
	return QueueChangedEvent{
		baseEvent: newBaseEvent(),
		Queue:     queue,
		Index:     index,
	}
}

// ShuffleToggledEvent is published when shuffle is toggled.
type ShuffleToggledEvent struct {
	baseEvent
	Enabled bool
}

// Type returns the event type.
func (e ShuffleToggledEvent) Type() EventType {
	return EventShuffleToggled
}

// NewShuffleToggledEvent creates a new ShuffleToggledEvent.
func NewShuffleToggledEvent(enabled bool) ShuffleToggledEvent {
	return ShuffleToggledEvent{
		baseEvent: newBaseEvent(),
		Enabled:   enabled,
	}
}

// RepeatChangedEvent is published when the repeat mode cycles.
type RepeatChangedEvent struct {
	baseEvent
	Mode RepeatMode
}

// Type returns the event type.
func (e RepeatChangedEvent) Type() EventType {
	return EventRepeatChanged
}

// NewRepeatChangedEvent creates a new RepeatChangedEvent.
func NewRepeatChangedEvent(mode RepeatMode) RepeatChangedEvent {
	return RepeatChangedEvent{
		baseEvent: newBaseEvent(),
		Mode:      mode,
	}
}

// VolumeChangedEvent is published when the volume changes.
type VolumeChangedEvent struct {
	baseEvent
	Volume float64 // 0.0 to 1.0
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType {
	return EventVolumeChanged
}

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{
		baseEvent: newBaseEvent(),
		Volume:    volume,
	}
}

// MuteToggledEvent is published when mute is toggled.
type MuteToggledEvent struct {
	baseEvent
	Muted bool
}

// Type returns the event type.
func (e MuteToggledEvent) Type() EventType {
	return EventMuteToggled
}

// NewMuteToggledEvent creates a new MuteToggledEvent.
func NewMuteToggledEvent(muted bool) MuteToggledEvent {
	return MuteToggledEvent{
		baseEvent: newBaseEvent(),
		Muted:     muted,
	}
}

// EqualizerChangedEvent is published when a preset is applied or a band edited.
type EqualizerChangedEvent struct {
	baseEvent
	Preset string
	Gains  [EQBandCount]float64
}

// Type returns the event type.
func (e EqualizerChangedEvent) Type() EventType {
	return EventEqualizerChanged
}

// NewEqualizerChangedEvent creates a new EqualizerChangedEvent.
func NewEqualizerChangedEvent(preset string, gains [EQBandCount]float64) EqualizerChangedEvent {
	return EqualizerChangedEvent{
		baseEvent: newBaseEvent(),
		Preset:    preset,
		Gains:     gains,
	}
}

// LibraryLoadedEvent is published once the index finished its bulk load.
type LibraryLoadedEvent struct {
	baseEvent
	Tracks    int
	Albums    int
	Playlists int
}

// Type returns the event type.
func (e LibraryLoadedEvent) Type() EventType {
	return EventLibraryLoaded
}

// NewLibraryLoadedEvent creates a new LibraryLoadedEvent.
func NewLibraryLoadedEvent(tracks, albums, playlists int) LibraryLoadedEvent {
	return LibraryLoadedEvent{
		baseEvent: newBaseEvent(),
		Tracks:    tracks,
		Albums:    albums,
		Playlists: playlists,
	}
}

// TrackImportedEvent is published when an import pipeline run produced a track.
type TrackImportedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackImportedEvent) Type() EventType {
	return EventTrackImported
}

// NewTrackImportedEvent creates a new TrackImportedEvent.
func NewTrackImportedEvent(track Track) TrackImportedEvent {
	return TrackImportedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackUpdatedEvent is published when a track's metadata is edited.
type TrackUpdatedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackUpdatedEvent) Type() EventType {
	return EventTrackUpdated
}

// NewTrackUpdatedEvent creates a new TrackUpdatedEvent.
func NewTrackUpdatedEvent(track Track) TrackUpdatedEvent {
	return TrackUpdatedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackRemovedEvent is published when a track is deleted from the library.
// The playback engine subscribes to repair its queue as part of the cascade.
type TrackRemovedEvent struct {
	baseEvent
	TrackID string
}

// Type returns the event type.
func (e TrackRemovedEvent) Type() EventType {
	return EventTrackRemoved
}

// NewTrackRemovedEvent creates a new TrackRemovedEvent.
func NewTrackRemovedEvent(trackID string) TrackRemovedEvent {
	return TrackRemovedEvent{
		baseEvent: newBaseEvent(),
		TrackID:   trackID,
	}
}

// AlbumChangedEvent is published when an album record is created or updated.
type AlbumChangedEvent struct {
	baseEvent
	Album Album
}

// Type returns the event type.
func (e AlbumChangedEvent) Type() EventType {
	return EventAlbumChanged
}

// NewAlbumChangedEvent creates a new AlbumChangedEvent.
func NewAlbumChangedEvent(album Album) AlbumChangedEvent {
	return AlbumChangedEvent{
		baseEvent: newBaseEvent(),
		Album:     album,
	}
}

// PlaylistChangedEvent is published when a playlist is created, updated or removed.
type PlaylistChangedEvent struct {
	baseEvent
	Playlist Playlist
	Removed  bool
}

// Type returns the event type.
func (e PlaylistChangedEvent) Type() EventType {
	return EventPlaylistChanged
}

// NewPlaylistChangedEvent creates a new PlaylistChangedEvent.
func NewPlaylistChangedEvent(playlist Playlist, removed bool) PlaylistChangedEvent {
	return PlaylistChangedEvent{
		baseEvent: newBaseEvent(),
		Playlist:  playlist,
		Removed:   removed,
	}
}

// ImportProgressEvent is published per file during a batch import.
type ImportProgressEvent struct {
	baseEvent
	File      string
	Processed int
	Total     int
	Imported  int
}

// Type returns the event type.
func (e ImportProgressEvent) Type() EventType {
	return EventImportProgress
}

// NewImportProgressEvent creates a new ImportProgressEvent.
func NewImportProgressEvent(file string, processed, total, imported int) ImportProgressEvent {
	return ImportProgressEvent{
		baseEvent: newBaseEvent(),
		File:      file,
		Processed: processed,
		Total:     total,
		Imported:  imported,
	}
}

// ImportCompletedEvent is published when a batch import finishes.
type ImportCompletedEvent struct {
	baseEvent
	Result ImportResult
}

// Type returns the event type.
func (e ImportCompletedEvent) Type() EventType {
	return EventImportCompleted
}

// NewImportCompletedEvent creates a new ImportCompletedEvent.
func NewImportCompletedEvent(result ImportResult) ImportCompletedEvent {
	return ImportCompletedEvent{
		baseEvent: newBaseEvent(),
		Result:    result,
	}
}
