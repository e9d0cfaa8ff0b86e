// Package service provides business logic for the Cadenza application.
package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cadenzaplayer/cadenza/internal/domain"
	"github.com/cadenzaplayer/cadenza/internal/ports"
)

// LibraryService owns the in-memory library index and all catalog mutations.
// The index is the single read path for queries; the store is the single
// write-through destination, so a mutation is visible in the index only after
// it is durable.
//
// All operations are thread-safe via sync.RWMutex. Mutations for the same
// record are serialized by the service lock, so no two writes for one id ever
// race in the store.
type LibraryService struct {
	// Dependencies (injected)
	logger *slog.Logger
	store  ports.Store
	bus    ports.EventBus

	// Index state
	tracks    map[string]*domain.Track
	albums    map[string]*domain.Album
	albumKeys map[string]string // AlbumKey -> album id
	playlists map[string]*domain.Playlist
	settings  *domain.Settings
	loaded    bool

	// Concurrency control
	mu sync.RWMutex
}

// NewLibraryService creates a new library service. Call Load before serving
// queries.
func NewLibraryService(
	logger *slog.Logger,
	store ports.Store,
	bus ports.EventBus,
) *LibraryService {
	return &LibraryService{
		logger:    logger,
		store:     store,
		bus:       bus,
		tracks:    make(map[string]*domain.Track),
		albums:    make(map[string]*domain.Album),
		albumKeys: make(map[string]string),
		playlists: make(map[string]*domain.Playlist),
	}
}

// Load performs the bulk load of every record into the index.
// On first run the settings record is created with defaults.
func (s *LibraryService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracks, err := s.store.GetAllTracks(ctx)
	if err != nil {
		return err
	}
	albums, err := s.store.GetAllAlbums(ctx)
	if err != nil {
		return err
	}
	playlists, err := s.store.GetAllPlaylists(ctx)
	if err != nil {
		return err
	}

	settings, err := s.store.GetSettings(ctx)
	if err == domain.ErrSettingsNotFound {
		settings = domain.DefaultSettings()
		if err := s.store.PutSettings(ctx, settings); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	s.tracks = make(map[string]*domain.Track, len(tracks))
	for _, t := range tracks {
		s.tracks[t.ID] = t
	}
	s.albums = make(map[string]*domain.Album, len(albums))
	s.albumKeys = make(map[string]string, len(albums))
	for _, a := range albums {
		s.albums[a.ID] = a
		s.albumKeys[domain.AlbumKey(a.Name, a.Artist)] = a.ID
	}
	s.playlists = make(map[string]*domain.Playlist, len(playlists))
	for _, p := range playlists {
		s.playlists[p.ID] = p
	}
	s.settings = settings
	s.loaded = true

	s.logger.Info("library loaded",
		slog.Int("tracks", len(s.tracks)),
		slog.Int("albums", len(s.albums)),
		slog.Int("playlists", len(s.playlists)))

	s.bus.Publish(domain.NewLibraryLoadedEvent(len(s.tracks), len(s.albums), len(s.playlists)))

	return nil
}

// AddTrack persists a track, indexes it and assigns it to its album.
// An album with a matching case-normalized (name, artist) key gains the track;
// otherwise a new album is created.
func (s *LibraryService) AddTrack(ctx context.Context, track *domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return domain.ErrNotInitialized
	}

	if err := s.store.PutTrack(ctx, track); err != nil {
		return err
	}
	s.tracks[track.ID] = track

	if track.Album != "" {
		if err := s.assignToAlbumLocked(ctx, track); err != nil {
			return err
		}
	}

	s.bus.Publish(domain.NewTrackImportedEvent(*track))
	return nil
}

// assignToAlbumLocked adds the track to its album, creating the album when the
// natural key is new. Caller must hold the write lock.
func (s *LibraryService) assignToAlbumLocked(ctx context.Context, track *domain.Track) error {
	key := domain.AlbumKey(track.Album, track.Artist)

	if albumID, ok := s.albumKeys[key]; ok {
		album := s.albums[albumID]
		for _, id := range album.TrackIDs {
			if id == track.ID {
				return nil
			}
		}
		updated := *album
		updated.TrackIDs = append(append([]string{}, album.TrackIDs...), track.ID)
		if updated.CoverAssetID == "" && track.CoverAssetID != "" {
			updated.CoverAssetID = track.CoverAssetID
		}
		if err := s.store.PutAlbum(ctx, &updated); err != nil {
			return err
		}
		s.albums[albumID] = &updated
		s.bus.Publish(domain.NewAlbumChangedEvent(updated))
		return nil
	}

	album := &domain.Album{
		ID:           uuid.NewString(),
		Name:         track.Album,
		Artist:       track.Artist,
		TrackIDs:     []string{track.ID},
		CoverAssetID: track.CoverAssetID,
	}
	if err := s.store.PutAlbum(ctx, album); err != nil {
		return err
	}
	s.albums[album.ID] = album
	s.albumKeys[key] = album.ID
	s.bus.Publish(domain.NewAlbumChangedEvent(*album))
	return nil
}

// UpdateTrack persists edited metadata for an existing track. An edit that
// changes the album or artist moves the track: the old album membership is
// repaired and the track joins (or creates) the album matching the new key.
func (s *LibraryService) UpdateTrack(ctx context.Context, track *domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return domain.ErrNotInitialized
	}
	existing, ok := s.tracks[track.ID]
	if !ok {
		return domain.ErrTrackNotFound
	}

	if err := s.store.PutTrack(ctx, track); err != nil {
		return err
	}
	s.tracks[track.ID] = track

	oldKey := domain.AlbumKey(existing.Album, existing.Artist)
	newKey := domain.AlbumKey(track.Album, track.Artist)
	if oldKey != newKey {
		if err := s.dropFromAlbumLocked(ctx, oldKey, track.ID); err != nil {
			return err
		}
		if track.Album != "" {
			if err := s.assignToAlbumLocked(ctx, track); err != nil {
				return err
			}
		}
	}

	s.bus.Publish(domain.NewTrackUpdatedEvent(*track))
	return nil
}

// dropFromAlbumLocked removes a track id from the album under the given key,
// deleting the album when it loses its last member. Caller must hold the
// write lock.
func (s *LibraryService) dropFromAlbumLocked(ctx context.Context, key, trackID string) error {
	albumID, ok := s.albumKeys[key]
	if !ok {
		return nil
	}
	album := s.albums[albumID]
	idx := indexOf(album.TrackIDs, trackID)
	if idx < 0 {
		return nil
	}

	if len(album.TrackIDs) == 1 {
		if err := s.store.DeleteAlbum(ctx, album.ID); err != nil {
			return err
		}
		delete(s.albums, album.ID)
		delete(s.albumKeys, key)
		if album.CoverAssetID != "" && !s.coverReferencedLocked(album.CoverAssetID) {
			if err := s.store.DeleteAsset(ctx, album.CoverAssetID); err != nil {
				return err
			}
		}
		return nil
	}

	updated := *album
	updated.TrackIDs = removeAt(album.TrackIDs, idx)
	if err := s.store.PutAlbum(ctx, &updated); err != nil {
		return err
	}
	s.albums[album.ID] = &updated
	s.bus.Publish(domain.NewAlbumChangedEvent(updated))
	return nil
}

// RemoveTrack deletes a track and cascades: album and playlist memberships are
// repaired, the media asset is deleted, and the cover asset is deleted once
// nothing references it. The removal event is published synchronously so
// subscribers (the playback queue) have repaired their state on return.
func (s *LibraryService) RemoveTrack(ctx context.Context, id string) error {
	if err := s.removeTrack(ctx, id); err != nil {
		return err
	}

	// Published outside the lock: the playback engine's handler takes its own
	// lock and calls back into this service
	s.bus.Publish(domain.NewTrackRemovedEvent(id))

	s.logger.Info("track removed", slog.String("track_id", id))
	return nil
}

func (s *LibraryService) removeTrack(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, ok := s.tracks[id]
	if !ok {
		return domain.ErrTrackNotFound
	}

	if err := s.store.DeleteTrack(ctx, id); err != nil {
		return err
	}
	delete(s.tracks, id)

	// Repair album membership
	for _, album := range s.albums {
		idx := indexOf(album.TrackIDs, id)
		if idx < 0 {
			continue
		}
		if len(album.TrackIDs) == 1 {
			// Last member: the album goes too
			if err := s.store.DeleteAlbum(ctx, album.ID); err != nil {
				return err
			}
			delete(s.albums, album.ID)
			delete(s.albumKeys, domain.AlbumKey(album.Name, album.Artist))
			if album.CoverAssetID != "" && !s.coverReferencedLocked(album.CoverAssetID) {
				if err := s.store.DeleteAsset(ctx, album.CoverAssetID); err != nil {
					return err
				}
			}
			continue
		}
		updated := *album
		updated.TrackIDs = removeAt(album.TrackIDs, idx)
		if err := s.store.PutAlbum(ctx, &updated); err != nil {
			return err
		}
		s.albums[album.ID] = &updated
		s.bus.Publish(domain.NewAlbumChangedEvent(updated))
	}

	// Repair playlist membership
	for _, playlist := range s.playlists {
		idx := indexOf(playlist.TrackIDs, id)
		if idx < 0 {
			continue
		}
		updated := *playlist
		updated.TrackIDs = removeAt(playlist.TrackIDs, idx)
		if err := s.store.PutPlaylist(ctx, &updated); err != nil {
			return err
		}
		s.playlists[playlist.ID] = &updated
		s.bus.Publish(domain.NewPlaylistChangedEvent(updated, false))
	}

	// The media payload belongs to this track alone
	if err := s.store.DeleteAsset(ctx, track.AssetID); err != nil {
		return err
	}
	if track.CoverAssetID != "" && !s.coverReferencedLocked(track.CoverAssetID) {
		if err := s.store.DeleteAsset(ctx, track.CoverAssetID); err != nil {
			return err
		}
	}

	// Forget the track in session state
	if s.settings.LastTrackID == id {
		updated := *s.settings
		updated.LastTrackID = ""
		if err := s.store.PutSettings(ctx, &updated); err != nil {
			return err
		}
		s.settings = &updated
	}

	return nil
}

// coverReferencedLocked reports whether any track, album or playlist still
// references the cover asset. Caller must hold the lock.
func (s *LibraryService) coverReferencedLocked(assetID string) bool {
	for _, t := range s.tracks {
		if t.CoverAssetID == assetID {
			return true
		}
	}
	for _, a := range s.albums {
		if a.CoverAssetID == assetID {
			return true
		}
	}
	for _, p := range s.playlists {
		if p.CoverAssetID == assetID {
			return true
		}
	}
	return false
}

// GetTrack returns a copy of the indexed track.
func (s *LibraryService) GetTrack(id string) (*domain.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	track, ok := s.tracks[id]
	if !ok {
		return nil, domain.ErrTrackNotFound
	}
	cp := *track
	return &cp, nil
}

// AllTracks returns all tracks sorted by artist, album, track number, title.
func (s *LibraryService) AllTracks() []*domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		cp := *t
		out = append(out, &cp)
	}
	sortTracks(out)
	return out
}

// TracksByArtist returns the artist's tracks from the index.
func (s *LibraryService) TracksByArtist(artist string) []*domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Track
	for _, t := range s.tracks {
		if t.Artist == artist {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortTracks(out)
	return out
}

// Search returns tracks whose title, artist or album contains the query,
// case-insensitively. An empty query returns nothing.
func (s *LibraryService) Search(query string) []*domain.Track {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Track
	for _, t := range s.tracks {
		if strings.Contains(strings.ToLower(t.Title), query) ||
			strings.Contains(strings.ToLower(t.Artist), query) ||
			strings.Contains(strings.ToLower(t.Album), query) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortTracks(out)
	return out
}

// Artists returns the computed artist views, sorted by name.
func (s *LibraryService) Artists() []domain.Artist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byName := make(map[string][]string)
	for _, t := range s.tracks {
		byName[t.Artist] = append(byName[t.Artist], t.ID)
	}

	out := make([]domain.Artist, 0, len(byName))
	for name, ids := range byName {
		sort.Strings(ids)
		out = append(out, domain.Artist{Name: name, TrackIDs: ids})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RenameArtist rewrites the artist name on every matching track and album.
// Album natural keys follow the new name.
func (s *LibraryService) RenameArtist(ctx context.Context, from, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return domain.NewValidationError("artist", to, "artist name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, track := range s.tracks {
		if track.Artist != from {
			continue
		}
		updated := *track
		updated.Artist = to
		if err := s.store.PutTrack(ctx, &updated); err != nil {
			return err
		}
		s.tracks[id] = &updated
	}

	for id, album := range s.albums {
		if album.Artist != from {
			continue
		}
		updated := *album
		updated.Artist = to
		if err := s.store.PutAlbum(ctx, &updated); err != nil {
			return err
		}
		delete(s.albumKeys, domain.AlbumKey(album.Name, album.Artist))
		s.albums[id] = &updated
		s.albumKeys[domain.AlbumKey(updated.Name, updated.Artist)] = id
		s.bus.Publish(domain.NewAlbumChangedEvent(updated))
	}

	s.logger.Info("artist renamed", slog.String("from", from), slog.String("to", to))
	return nil
}

// GetAlbum returns a copy of the indexed album.
func (s *LibraryService) GetAlbum(id string) (*domain.Album, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	album, ok := s.albums[id]
	if !ok {
		return nil, domain.ErrAlbumNotFound
	}
	cp := *album
	cp.TrackIDs = append([]string{}, album.TrackIDs...)
	return &cp, nil
}

// AllAlbums returns all albums sorted by artist then name.
func (s *LibraryService) AllAlbums() []*domain.Album {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Album, 0, len(s.albums))
	for _, a := range s.albums {
		cp := *a
		cp.TrackIDs = append([]string{}, a.TrackIDs...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Artist != out[j].Artist {
			return out[i].Artist < out[j].Artist
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CreatePlaylist creates an empty playlist.
func (s *LibraryService) CreatePlaylist(ctx context.Context, name string) (*domain.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", name, "playlist name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	playlist := &domain.Playlist{
		ID:        uuid.NewString(),
		Name:      name,
		TrackIDs:  []string{},
		CreatedAt: time.Now(),
	}
	if err := s.store.PutPlaylist(ctx, playlist); err != nil {
		return nil, err
	}
	s.playlists[playlist.ID] = playlist

	s.bus.Publish(domain.NewPlaylistChangedEvent(*playlist, false))

	cp := *playlist
	return &cp, nil
}

// DeletePlaylist removes a playlist. Member tracks are untouched; the cover
// asset is deleted once nothing references it.
func (s *LibraryService) DeletePlaylist(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[id]
	if !ok {
		return domain.ErrPlaylistNotFound
	}

	if err := s.store.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	delete(s.playlists, id)

	if playlist.CoverAssetID != "" && !s.coverReferencedLocked(playlist.CoverAssetID) {
		if err := s.store.DeleteAsset(ctx, playlist.CoverAssetID); err != nil {
			return err
		}
	}

	s.bus.Publish(domain.NewPlaylistChangedEvent(*playlist, true))
	return nil
}

// GetPlaylist returns a copy of the indexed playlist.
func (s *LibraryService) GetPlaylist(id string) (*domain.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlist, ok := s.playlists[id]
	if !ok {
		return nil, domain.ErrPlaylistNotFound
	}
	cp := *playlist
	cp.TrackIDs = append([]string{}, playlist.TrackIDs...)
	return &cp, nil
}

// AllPlaylists returns all playlists sorted by creation time.
func (s *LibraryService) AllPlaylists() []*domain.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Playlist, 0, len(s.playlists))
	for _, p := range s.playlists {
		cp := *p
		cp.TrackIDs = append([]string{}, p.TrackIDs...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// AddToPlaylist appends a track to a playlist. Duplicates are rejected.
func (s *LibraryService) AddToPlaylist(ctx context.Context, playlistID, trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[playlistID]
	if !ok {
		return domain.ErrPlaylistNotFound
	}
	if _, ok := s.tracks[trackID]; !ok {
		return domain.ErrTrackNotFound
	}
	if indexOf(playlist.TrackIDs, trackID) >= 0 {
		return domain.NewValidationError("track_id", trackID, "track already in playlist")
	}

	updated := *playlist
	updated.TrackIDs = append(append([]string{}, playlist.TrackIDs...), trackID)
	if err := s.store.PutPlaylist(ctx, &updated); err != nil {
		return err
	}
	s.playlists[playlistID] = &updated

	s.bus.Publish(domain.NewPlaylistChangedEvent(updated, false))
	return nil
}

// RemoveFromPlaylist removes a track from a playlist, keeping the order of the
// remaining members.
func (s *LibraryService) RemoveFromPlaylist(ctx context.Context, playlistID, trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[playlistID]
	if !ok {
		return domain.ErrPlaylistNotFound
	}
	idx := indexOf(playlist.TrackIDs, trackID)
	if idx < 0 {
		return domain.ErrTrackNotFound
	}

	updated := *playlist
	updated.TrackIDs = removeAt(playlist.TrackIDs, idx)
	if err := s.store.PutPlaylist(ctx, &updated); err != nil {
		return err
	}
	s.playlists[playlistID] = &updated

	s.bus.Publish(domain.NewPlaylistChangedEvent(updated, false))
	return nil
}

// MoveInPlaylist moves a playlist member from one position to another.
func (s *LibraryService) MoveInPlaylist(ctx context.Context, playlistID string, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[playlistID]
	if !ok {
		return domain.ErrPlaylistNotFound
	}
	if from < 0 || from >= len(playlist.TrackIDs) || to < 0 || to >= len(playlist.TrackIDs) {
		return domain.NewValidationError("index", from, "position out of range")
	}
	if from == to {
		return nil
	}

	ids := append([]string{}, playlist.TrackIDs...)
	id := ids[from]
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:to], append([]string{id}, ids[to:]...)...)

	updated := *playlist
	updated.TrackIDs = ids
	if err := s.store.PutPlaylist(ctx, &updated); err != nil {
		return err
	}
	s.playlists[playlistID] = &updated

	s.bus.Publish(domain.NewPlaylistChangedEvent(updated, false))
	return nil
}

// SetTrackCover stores an image asset and attaches it to the track.
// A previous cover is deleted once nothing references it.
func (s *LibraryService) SetTrackCover(ctx context.Context, trackID string, content []byte, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, ok := s.tracks[trackID]
	if !ok {
		return domain.ErrTrackNotFound
	}

	assetID, err := s.putCoverLocked(ctx, content, filename)
	if err != nil {
		return err
	}

	previous := track.CoverAssetID
	updated := *track
	updated.CoverAssetID = assetID
	if err := s.store.PutTrack(ctx, &updated); err != nil {
		return err
	}
	s.tracks[trackID] = &updated

	if previous != "" && !s.coverReferencedLocked(previous) {
		if err := s.store.DeleteAsset(ctx, previous); err != nil {
			return err
		}
	}
	return nil
}

// SetAlbumCover stores an image asset and attaches it to the album.
func (s *LibraryService) SetAlbumCover(ctx context.Context, albumID string, content []byte, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	album, ok := s.albums[albumID]
	if !ok {
		return domain.ErrAlbumNotFound
	}

	assetID, err := s.putCoverLocked(ctx, content, filename)
	if err != nil {
		return err
	}

	previous := album.CoverAssetID
	updated := *album
	updated.CoverAssetID = assetID
	if err := s.store.PutAlbum(ctx, &updated); err != nil {
		return err
	}
	s.albums[albumID] = &updated

	if previous != "" && !s.coverReferencedLocked(previous) {
		if err := s.store.DeleteAsset(ctx, previous); err != nil {
			return err
		}
	}

	s.bus.Publish(domain.NewAlbumChangedEvent(updated))
	return nil
}

// SetPlaylistCover stores an image asset and attaches it to the playlist.
func (s *LibraryService) SetPlaylistCover(ctx context.Context, playlistID string, content []byte, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[playlistID]
	if !ok {
		return domain.ErrPlaylistNotFound
	}

	assetID, err := s.putCoverLocked(ctx, content, filename)
	if err != nil {
		return err
	}

	previous := playlist.CoverAssetID
	updated := *playlist
	updated.CoverAssetID = assetID
	if err := s.store.PutPlaylist(ctx, &updated); err != nil {
		return err
	}
	s.playlists[playlistID] = &updated

	if previous != "" && !s.coverReferencedLocked(previous) {
		if err := s.store.DeleteAsset(ctx, previous); err != nil {
			return err
		}
	}

	s.bus.Publish(domain.NewPlaylistChangedEvent(updated, false))
	return nil
}

// putCoverLocked stores image content as a new asset. Caller must hold the lock.
func (s *LibraryService) putCoverLocked(ctx context.Context, content []byte, filename string) (string, error) {
	asset := &domain.Asset{
		ID:       uuid.NewString(),
		Kind:     domain.MediaKindImage,
		Content:  content,
		Filename: filename,
	}
	if err := s.store.PutAsset(ctx, asset); err != nil {
		return "", err
	}
	return asset.ID, nil
}

// Settings returns a copy of the current settings.
func (s *LibraryService) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return *domain.DefaultSettings()
	}
	return *s.settings
}

// UpdateSettings applies mutate to a copy of the settings, persists the result
// and swaps it into the index.
func (s *LibraryService) UpdateSettings(ctx context.Context, mutate func(*domain.Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		s.settings = domain.DefaultSettings()
	}

	updated := *s.settings
	mutate(&updated)
	if err := s.store.PutSettings(ctx, &updated); err != nil {
		return err
	}
	s.settings = &updated
	return nil
}

// TrackCount returns the number of indexed tracks.
func (s *LibraryService) TrackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

func sortTracks(tracks []*domain.Track) {
	sort.Slice(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		if a.Artist != b.Artist {
			return a.Artist < b.Artist
		}
		if a.Album != b.Album {
			return a.Album < b.Album
		}
		if a.TrackNumber != b.TrackNumber {
			return a.TrackNumber < b.TrackNumber
		}
		return a.Title < b.Title
	})
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeAt(ids []string, idx int) []string {
	out := make([]string, 0, len(ids)-1)
	out = append(out, ids[:idx]...)
	return append(out, ids[idx+1:]...)
}

// Verify that LibraryService implements the expected interface patterns
var _ interface {
	Load(context.Context) error
	AddTrack(context.Context, *domain.Track) error
	RemoveTrack(context.Context, string) error
	GetTrack(string) (*domain.Track, error)
	AllTracks() []*domain.Track
	TracksByArtist(string) []*domain.Track
	Search(string) []*domain.Track
	Artists() []domain.Artist
	RenameArtist(context.Context, string, string) error
	CreatePlaylist(context.Context, string) (*domain.Playlist, error)
	DeletePlaylist(context.Context, string) error
	AddToPlaylist(context.Context, string, string) error
	RemoveFromPlaylist(context.Context, string, string) error
	Settings() domain.Settings
	UpdateSettings(context.Context, func(*domain.Settings)) error
} = (*LibraryService)(nil)
