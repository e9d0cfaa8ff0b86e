// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the Cadenza media player.
package domain

import (
	"strings"
	"time"
)

// MediaKind classifies the binary payload of an Asset.
type MediaKind string

const (
	// MediaKindAudio is an audio payload (mp3, flac, ogg, ...).
	MediaKindAudio MediaKind = "audio"

	// MediaKindVideo is a video payload (mp4, mkv, ...).
	MediaKindVideo MediaKind = "video"

	// MediaKindImage is an image payload (cover art).
	MediaKindImage MediaKind = "image"
)

// Valid returns true for a known media kind.
func (k MediaKind) Valid() bool {
	switch k {
	case MediaKindAudio, MediaKindVideo, MediaKindImage:
		return true
	default:
		return false
	}
}

// Playable returns true for kinds that can be loaded into the playback graph.
func (k MediaKind) Playable() bool {
	return k == MediaKindAudio || k == MediaKindVideo
}

// Track represents a single catalog entry for an imported media file.
type Track struct {
	// ID is a unique, immutable identifier (UUID)
	ID string

	// Title is the track title (from metadata or filename)
	Title string

	// Artist is the performing artist name
	Artist string

	// Album is the album name
	Album string

	// TrackNumber is the track number on the album
	TrackNumber int

	// Duration is the total length of the track
	Duration time.Duration

	// AssetID references the audio/video asset holding the media content
	AssetID string

	// CoverAssetID optionally references an image asset ("" if none)
	CoverAssetID string

	// CreatedAt is when the track was imported
	CreatedAt time.Time
}

// Asset is a stored binary payload referenced by id from tracks, albums and playlists.
// Assets are never mutated in place; replacing content means writing a new payload.
type Asset struct {
	// ID is a unique identifier (UUID)
	ID string

	// Kind is the media kind of the payload
	Kind MediaKind

	// Content is the raw binary payload
	Content []byte

	// Filename is the original file name the payload was imported from
	Filename string

	// Size is the payload size in bytes
	Size int64

	// SHA256 is the hex-encoded content hash, used for content addressing
	SHA256 string
}

// Album groups tracks under a (name, artist) natural key.
type Album struct {
	// ID is a unique identifier (UUID)
	ID string

	// Name is the album name
	Name string

	// Artist is the album artist
	Artist string

	// TrackIDs is the ordered set of member tracks (insertion order, no duplicates)
	TrackIDs []string

	// CoverAssetID optionally references an image asset ("" if none)
	CoverAssetID string
}

// AlbumKey returns the case-normalized natural key for an (album, artist) pair.
// Importing a track with a matching key appends to the existing album instead
// of creating a duplicate.
func AlbumKey(name, artist string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "\x00" + strings.ToLower(strings.TrimSpace(artist))
}

// Playlist is a user-curated, ordered sequence of tracks.
type Playlist struct {
	// ID is a unique identifier (UUID)
	ID string

	// Name is the playlist name
	Name string

	// TrackIDs is the ordered sequence of member tracks (no duplicates,
	// order is user-significant and persists)
	TrackIDs []string

	// CoverAssetID optionally references an image asset ("" if none)
	CoverAssetID string

	// CreatedAt is when the playlist was created
	CreatedAt time.Time
}

// Artist is a computed view over tracks grouped by artist name.
// It is never persisted and has no independent lifecycle.
type Artist struct {
	// Name is the artist name
	Name string

	// TrackIDs are the tracks attributed to this artist
	TrackIDs []string
}

// EQBandCount is the number of equalizer filter stages.
const EQBandCount = 10

// Settings is the singleton record holding session-surviving playback state.
type Settings struct {
	// Volume is the current volume level (0.0 to 1.0)
	Volume float64

	// IsMuted indicates if audio is muted
	IsMuted bool

	// LastVolume is the volume before mute, restored on unmute
	LastVolume float64

	// EQPreset is the active equalizer preset name
	EQPreset string

	// CustomEQ holds the user's last manually edited band gains in dB
	CustomEQ [EQBandCount]float64

	// LastTrackID is the last loaded track, for session resume ("" if none)
	LastTrackID string
}

// DefaultSettings returns the settings created on first run.
func DefaultSettings() *Settings {
	return &Settings{
		Volume:     0.8,
		LastVolume: 0.8,
		EQPreset:   "flat",
	}
}

// RepeatMode controls what happens when the end of a track or queue is reached.
type RepeatMode int

const (
	// RepeatNone stops at the end of the queue
	RepeatNone RepeatMode = iota

	// RepeatAll wraps from the last track back to the first
	RepeatAll

	// RepeatOne restarts the current track when it completes
	RepeatOne
)

// Cycle advances none -> all -> one -> none.
func (m RepeatMode) Cycle() RepeatMode {
	return (m + 1) % 3
}

// String returns a human-readable representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatNone:
		return "none"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// PlaybackState is a snapshot of the playback engine exposed to collaborators.
type PlaybackState struct {
	// CurrentTrack is the currently loaded track (nil if none)
	CurrentTrack *Track

	// CurrentIndex is the position within the active order (-1 if no track)
	CurrentIndex int

	// Queue is the canonical queue order (track ids)
	Queue []string

	// ShuffleEnabled indicates whether the shuffled order is active
	ShuffleEnabled bool

	// Repeat is the current repeat mode
	Repeat RepeatMode

	// IsPlaying indicates active playback
	IsPlaying bool

	// Position is the playback position within the current track
	Position time.Duration

	// Duration is the total duration of the current track
	Duration time.Duration

	// Volume is the current volume level (0.0 to 1.0)
	Volume float64

	// IsMuted indicates if audio is muted
	IsMuted bool
}

// ImportResult reports the outcome of a batch import.
type ImportResult struct {
	// Imported is the number of files successfully turned into tracks
	Imported int

	// Total is the number of files attempted
	Total int
}
