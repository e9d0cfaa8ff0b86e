package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"

	"github.com/cadenzaplayer/cadenza/internal/domain"
	"github.com/cadenzaplayer/cadenza/internal/ports"
)

// Binary payloads live in asset_blobs keyed by content hash with a refcount,
// so a cover shared by a track and its album is stored once and survives
// deletion of either referent. The assets table maps the stable external id
// onto the payload.

// PutAsset durably stores an asset and its content.
// The content hash and size are computed here; the caller's values are
// overwritten so the record always matches the payload.
func (s *Store) PutAsset(ctx context.Context, asset *domain.Asset) error {
	sum := sha256.Sum256(asset.Content)
	asset.SHA256 = hex.EncodeToString(sum[:])
	asset.Size = int64(len(asset.Content))

	return s.withTx(ctx, "put", "assets", func(tx *sql.Tx) error {
		var oldSHA string
		err := tx.QueryRowContext(ctx, `SELECT sha256 FROM assets WHERE id = ?`, asset.ID).Scan(&oldSHA)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return domain.NewStorageError("put", "assets", err)
		}

		if oldSHA == asset.SHA256 {
			// Same payload, refresh metadata only
			_, err := tx.ExecContext(ctx,
				`UPDATE assets SET kind = ?, filename = ?, size = ? WHERE id = ?`,
				string(asset.Kind), asset.Filename, asset.Size, asset.ID)
			if err != nil {
				return domain.NewStorageError("put", "assets", err)
			}
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO asset_blobs (sha256, content, refcount) VALUES (?, ?, 1)
			 ON CONFLICT(sha256) DO UPDATE SET refcount = refcount + 1`,
			asset.SHA256, asset.Content)
		if err != nil {
			return domain.NewStorageError("put", "assets", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO assets (id, kind, filename, size, sha256) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				kind = excluded.kind,
				filename = excluded.filename,
				size = excluded.size,
				sha256 = excluded.sha256`,
			asset.ID, string(asset.Kind), asset.Filename, asset.Size, asset.SHA256)
		if err != nil {
			return domain.NewStorageError("put", "assets", err)
		}

		if oldSHA != "" {
			if err := releaseBlob(ctx, tx, oldSHA); err != nil {
				return err
			}
		}
		return nil
	})
}

// releaseBlob drops one reference and removes the payload when unreferenced.
func releaseBlob(ctx context.Context, tx *sql.Tx, sha string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE asset_blobs SET refcount = refcount - 1 WHERE sha256 = ?`, sha); err != nil {
		return domain.NewStorageError("release", "assets", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM asset_blobs WHERE sha256 = ? AND refcount <= 0`, sha); err != nil {
		return domain.NewStorageError("release", "assets", err)
	}
	return nil
}

// GetAsset returns the asset including its content, or domain.ErrAssetNotFound.
func (s *Store) GetAsset(ctx context.Context, id string) (*domain.Asset, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var asset domain.Asset
	var kind string
	err = db.QueryRowContext(ctx,
		`SELECT a.id, a.kind, a.filename, a.size, a.sha256, b.content
		 FROM assets a JOIN asset_blobs b ON a.sha256 = b.sha256
		 WHERE a.id = ?`, id).
		Scan(&asset.ID, &kind, &asset.Filename, &asset.Size, &asset.SHA256, &asset.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAssetNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get", "assets", err)
	}
	asset.Kind = domain.MediaKind(kind)
	return &asset, nil
}

// HasAsset reports whether an asset exists without loading its content.
func (s *Store) HasAsset(ctx context.Context, id string) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}

	var one int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM assets WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, domain.NewStorageError("get", "assets", err)
	}
	return true, nil
}

// DeleteAsset removes an asset record and releases its payload once no other
// asset references it. Succeeds even if absent.
func (s *Store) DeleteAsset(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete", "assets", func(tx *sql.Tx) error {
		var sha string
		err := tx.QueryRowContext(ctx, `SELECT sha256 FROM assets WHERE id = ?`, id).Scan(&sha)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return domain.NewStorageError("delete", "assets", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id); err != nil {
			return domain.NewStorageError("delete", "assets", err)
		}

		return releaseBlob(ctx, tx, sha)
	})
}

// OpenView opens a transient, revocable view of the asset's content.
// The caller owns the Release obligation.
func (s *Store) OpenView(ctx context.Context, id string) (*ports.AssetView, error) {
	asset, err := s.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	s.openViews.Add(1)
	return ports.NewAssetView(asset, func() {
		s.openViews.Add(-1)
	}), nil
}
