// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of the
// platform storage and media backends.
package ports

import (
	"context"
	"sync"

	"github.com/cadenzaplayer/cadenza/internal/domain"
)

// CatalogStore is the durable home of all structured (non-binary) records:
// tracks, albums, playlists and the settings singleton.
//
// Every operation is transactional per call: either the whole record is
// visible afterward or none of it is. Callers must await completion before
// issuing a dependent mutation; the store never runs two writes for the same
// record in parallel.
//
// Before initialization completes (and after Close), every operation fails
// with domain.ErrStorageUnavailable. Engine-level failures are wrapped in
// *domain.StorageError. Both are propagated to the caller, never swallowed.
//
// Thread-safety: Implementations must be thread-safe.
type CatalogStore interface {
	// Tracks

	// PutTrack durably upserts a track keyed by its ID and returns once committed.
	PutTrack(ctx context.Context, track *domain.Track) error

	// GetTrack returns the track or domain.ErrTrackNotFound.
	GetTrack(ctx context.Context, id string) (*domain.Track, error)

	// GetAllTracks returns every track with no ordering guarantee.
	GetAllTracks(ctx context.Context) ([]*domain.Track, error)

	// DeleteTrack removes a track, succeeding even if absent.
	DeleteTrack(ctx context.Context, id string) error

	// TracksByArtist returns all tracks with the exact artist name.
	// Served by a secondary index, not a full scan.
	TracksByArtist(ctx context.Context, artist string) ([]*domain.Track, error)

	// TracksByAlbum returns all tracks with the exact album name.
	// Served by a secondary index, not a full scan.
	TracksByAlbum(ctx context.Context, album string) ([]*domain.Track, error)

	// Albums

	// PutAlbum durably upserts an album.
	PutAlbum(ctx context.Context, album *domain.Album) error

	// GetAlbum returns the album or domain.ErrAlbumNotFound.
	GetAlbum(ctx context.Context, id string) (*domain.Album, error)

	// GetAllAlbums returns every album with no ordering guarantee.
	GetAllAlbums(ctx context.Context) ([]*domain.Album, error)

	// DeleteAlbum removes an album, succeeding even if absent.
	DeleteAlbum(ctx context.Context, id string) error

	// Playlists

	// PutPlaylist durably upserts a playlist.
	PutPlaylist(ctx context.Context, playlist *domain.Playlist) error

	// GetPlaylist returns the playlist or domain.ErrPlaylistNotFound.
	GetPlaylist(ctx context.Context, id string) (*domain.Playlist, error)

	// GetAllPlaylists returns every playlist with no ordering guarantee.
	GetAllPlaylists(ctx context.Context) ([]*domain.Playlist, error)

	// DeletePlaylist removes a playlist, succeeding even if absent.
	DeletePlaylist(ctx context.Context, id string) error

	// Settings

	// GetSettings returns the singleton settings record or domain.ErrSettingsNotFound
	// on first run.
	GetSettings(ctx context.Context) (*domain.Settings, error)

	// PutSettings durably rewrites the singleton settings record.
	PutSettings(ctx context.Context, settings *domain.Settings) error
}

// AssetStore is the durable home of binary payloads (audio/video/image).
// Content is addressed by hash internally so identical payloads (a cover
// shared between a track and its album) are stored once; the Asset ID remains
// the stable external handle.
//
// Thread-safety: Implementations must be thread-safe.
type AssetStore interface {
	// PutAsset durably stores an asset and its content, returning once committed.
	PutAsset(ctx context.Context, asset *domain.Asset) error

	// GetAsset returns the asset including its content, or domain.ErrAssetNotFound.
	GetAsset(ctx context.Context, id string) (*domain.Asset, error)

	// HasAsset reports whether an asset exists without loading its content.
	HasAsset(ctx context.Context, id string) (bool, error)

	// DeleteAsset removes an asset record and releases its content payload
	// once no other asset references the same payload. Succeeds even if absent.
	DeleteAsset(ctx context.Context, id string) error

	// OpenView opens a transient, revocable view of the asset's content.
	// Every call pairs with a Release obligation given to the caller; the
	// store counts open views so leaks are observable.
	OpenView(ctx context.Context, id string) (*AssetView, error)

	// OpenViews returns the number of views that have not been released yet.
	OpenViews() int
}

// AssetView is a transient handle on an asset's binary content.
// Callers must call Release exactly once when the referencing element is
// replaced; after Release the content is no longer accessible.
type AssetView struct {
	asset   *domain.Asset
	release func()

	mu       sync.Mutex
	released bool
}

// NewAssetView creates a view over an asset. The release callback runs exactly
// once, on the first Release call. Intended for AssetStore implementations.
func NewAssetView(asset *domain.Asset, release func()) *AssetView {
	return &AssetView{asset: asset, release: release}
}

// Asset returns the viewed asset, or nil after Release.
func (v *AssetView) Asset() *domain.Asset {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return nil
	}
	return v.asset
}

// Bytes returns the asset content, or nil after Release.
func (v *AssetView) Bytes() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return nil
	}
	return v.asset.Content
}

// Release revokes the view. Safe to call more than once; only the first call
// has effect.
func (v *AssetView) Release() {
	v.mu.Lock()
	if v.released {
		v.mu.Unlock()
		return
	}
	v.released = true
	v.asset = nil
	release := v.release
	v.release = nil
	v.mu.Unlock()

	if release != nil {
		release()
	}
}

// Released reports whether the view has been released.
func (v *AssetView) Released() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.released
}

// Store combines the catalog and asset stores with lifecycle control, which is
// how the sqlite adapter exposes them.
type Store interface {
	CatalogStore
	AssetStore

	// Close flushes and closes the store. Operations after Close fail with
	// domain.ErrStorageUnavailable.
	Close() error
}
