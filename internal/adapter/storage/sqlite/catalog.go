package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/cadenzaplayer/cadenza/internal/domain"
)

// Tracks

// PutTrack durably upserts a track.
func (s *Store) PutTrack(ctx context.Context, track *domain.Track) error {
	return s.withTx(ctx, "put", "tracks", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tracks (id, title, artist, album, track_number, duration_ns, asset_id, cover_asset_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				artist = excluded.artist,
				album = excluded.album,
				track_number = excluded.track_number,
				duration_ns = excluded.duration_ns,
				asset_id = excluded.asset_id,
				cover_asset_id = excluded.cover_asset_id`,
			track.ID, track.Title, track.Artist, track.Album, track.TrackNumber,
			int64(track.Duration), track.AssetID, track.CoverAssetID, track.CreatedAt.UnixNano())
		if err != nil {
			return domain.NewStorageError("put", "tracks", err)
		}
		return nil
	})
}

const trackColumns = `id, title, artist, album, track_number, duration_ns, asset_id, cover_asset_id, created_at`

func scanTrack(row interface{ Scan(dest ...any) error }) (*domain.Track, error) {
	var t domain.Track
	var durationNS, createdNS int64
	err := row.Scan(&t.ID, &t.Title, &t.Artist, &t.Album, &t.TrackNumber,
		&durationNS, &t.AssetID, &t.CoverAssetID, &createdNS)
	if err != nil {
		return nil, err
	}
	t.Duration = time.Duration(durationNS)
	t.CreatedAt = time.Unix(0, createdNS)
	return &t, nil
}

// GetTrack returns the track or domain.ErrTrackNotFound.
func (s *Store) GetTrack(ctx context.Context, id string) (*domain.Track, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTrackNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get", "tracks", err)
	}
	return track, nil
}

func (s *Store) queryTracks(ctx context.Context, query string, args ...any) ([]*domain.Track, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError("query", "tracks", err)
	}
	defer rows.Close()

	var tracks []*domain.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan", "tracks", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate", "tracks", err)
	}
	return tracks, nil
}

// GetAllTracks returns every track with no ordering guarantee.
func (s *Store) GetAllTracks(ctx context.Context) ([]*domain.Track, error) {
	return s.queryTracks(ctx, `SELECT `+trackColumns+` FROM tracks`)
}

// TracksByArtist returns all tracks with the exact artist name (indexed).
func (s *Store) TracksByArtist(ctx context.Context, artist string) ([]*domain.Track, error) {
	return s.queryTracks(ctx, `SELECT `+trackColumns+` FROM tracks WHERE artist = ?`, artist)
}

// TracksByAlbum returns all tracks with the exact album name (indexed).
func (s *Store) TracksByAlbum(ctx context.Context, album string) ([]*domain.Track, error) {
	return s.queryTracks(ctx, `SELECT `+trackColumns+` FROM tracks WHERE album = ?`, album)
}

// DeleteTrack removes a track, succeeding even if absent.
func (s *Store) DeleteTrack(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete", "tracks", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id); err != nil {
			return domain.NewStorageError("delete", "tracks", err)
		}
		return nil
	})
}

// Albums

// PutAlbum durably upserts an album.
func (s *Store) PutAlbum(ctx context.Context, album *domain.Album) error {
	ids, err := json.Marshal(album.TrackIDs)
	if err != nil {
		return domain.NewStorageError("put", "albums", err)
	}
	return s.withTx(ctx, "put", "albums", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO albums (id, name, artist, track_ids, cover_asset_id)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				artist = excluded.artist,
				track_ids = excluded.track_ids,
				cover_asset_id = excluded.cover_asset_id`,
			album.ID, album.Name, album.Artist, string(ids), album.CoverAssetID)
		if err != nil {
			return domain.NewStorageError("put", "albums", err)
		}
		return nil
	})
}

func scanAlbum(row interface{ Scan(dest ...any) error }) (*domain.Album, error) {
	var a domain.Album
	var ids string
	if err := row.Scan(&a.ID, &a.Name, &a.Artist, &ids, &a.CoverAssetID); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ids), &a.TrackIDs); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAlbum returns the album or domain.ErrAlbumNotFound.
func (s *Store) GetAlbum(ctx context.Context, id string) (*domain.Album, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx,
		`SELECT id, name, artist, track_ids, cover_asset_id FROM albums WHERE id = ?`, id)
	album, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAlbumNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get", "albums", err)
	}
	return album, nil
}

// GetAllAlbums returns every album with no ordering guarantee.
func (s *Store) GetAllAlbums(ctx context.Context) ([]*domain.Album, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name, artist, track_ids, cover_asset_id FROM albums`)
	if err != nil {
		return nil, domain.NewStorageError("query", "albums", err)
	}
	defer rows.Close()

	var albums []*domain.Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan", "albums", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate", "albums", err)
	}
	return albums, nil
}

// DeleteAlbum removes an album, succeeding even if absent.
func (s *Store) DeleteAlbum(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete", "albums", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id); err != nil {
			return domain.NewStorageError("delete", "albums", err)
		}
		return nil
	})
}

// Playlists

// PutPlaylist durably upserts a playlist.
func (s *Store) PutPlaylist(ctx context.Context, playlist *domain.Playlist) error {
	ids, err := json.Marshal(playlist.TrackIDs)
	if err != nil {
		return domain.NewStorageError("put", "playlists", err)
	}
	return s.withTx(ctx, "put", "playlists", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO playlists (id, name, track_ids, cover_asset_id, created_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				track_ids = excluded.track_ids,
				cover_asset_id = excluded.cover_asset_id`,
			playlist.ID, playlist.Name, string(ids), playlist.CoverAssetID, playlist.CreatedAt.UnixNano())
		if err != nil {
			return domain.NewStorageError("put", "playlists", err)
		}
		return nil
	})
}

func scanPlaylist(row interface{ Scan(dest ...any) error }) (*domain.Playlist, error) {
	var p domain.Playlist
	var ids string
	var createdNS int64
	if err := row.Scan(&p.ID, &p.Name, &ids, &p.CoverAssetID, &createdNS); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ids), &p.TrackIDs); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(0, createdNS)
	return &p, nil
}

// GetPlaylist returns the playlist or domain.ErrPlaylistNotFound.
func (s *Store) GetPlaylist(ctx context.Context, id string) (*domain.Playlist, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx,
		`SELECT id, name, track_ids, cover_asset_id, created_at FROM playlists WHERE id = ?`, id)
	playlist, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get", "playlists", err)
	}
	return playlist, nil
}

// GetAllPlaylists returns every playlist with no ordering guarantee.
func (s *Store) GetAllPlaylists(ctx context.Context) ([]*domain.Playlist, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, name, track_ids, cover_asset_id, created_at FROM playlists`)
	if err != nil {
		return nil, domain.NewStorageError("query", "playlists", err)
	}
	defer rows.Close()

	var playlists []*domain.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan", "playlists", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate", "playlists", err)
	}
	return playlists, nil
}

// DeletePlaylist removes a playlist, succeeding even if absent.
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete", "playlists", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id); err != nil {
			return domain.NewStorageError("delete", "playlists", err)
		}
		return nil
	})
}

// Settings

// GetSettings returns the singleton settings record or domain.ErrSettingsNotFound.
func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var settings domain.Settings
	var muted int
	var customEQ string
	err = db.QueryRowContext(ctx,
		`SELECT volume, is_muted, last_volume, eq_preset, custom_eq, last_track_id FROM settings WHERE id = 1`).
		Scan(&settings.Volume, &muted, &settings.LastVolume, &settings.EQPreset, &customEQ, &settings.LastTrackID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSettingsNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get", "settings", err)
	}
	settings.IsMuted = muted == 1

	var gains []float64
	if err := json.Unmarshal([]byte(customEQ), &gains); err != nil {
		return nil, domain.NewStorageError("get", "settings", err)
	}
	copy(settings.CustomEQ[:], gains)

	return &settings, nil
}

// PutSettings durably rewrites the singleton settings record.
func (s *Store) PutSettings(ctx context.Context, settings *domain.Settings) error {
	customEQ, err := json.Marshal(settings.CustomEQ[:])
	if err != nil {
		return domain.NewStorageError("put", "settings", err)
	}
	muted := 0
	if settings.IsMuted {
		muted = 1
	}
	return s.withTx(ctx, "put", "settings", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (id, volume, is_muted, last_volume, eq_preset, custom_eq, last_track_id)
			 VALUES (1, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				volume = excluded.volume,
				is_muted = excluded.is_muted,
				last_volume = excluded.last_volume,
				eq_preset = excluded.eq_preset,
				custom_eq = excluded.custom_eq,
				last_track_id = excluded.last_track_id`,
			settings.Volume, muted, settings.LastVolume, settings.EQPreset, string(customEQ), settings.LastTrackID)
		if err != nil {
			return domain.NewStorageError("put", "settings", err)
		}
		return nil
	})
}
