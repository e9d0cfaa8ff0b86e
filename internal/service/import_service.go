package service

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/google/uuid"

	"github.com/cadenzaplayer/cadenza/internal/domain"
	"github.com/cadenzaplayer/cadenza/internal/ports"
)

// mediaKindByExt maps recognized file extensions to media kinds.
var mediaKindByExt = map[string]domain.MediaKind{
	".mp3":  domain.MediaKindAudio,
	".flac": domain.MediaKindAudio,
	".ogg":  domain.MediaKindAudio,
	".wav":  domain.MediaKindAudio,
	".m4a":  domain.MediaKindAudio,
	".mp4":  domain.MediaKindVideo,
	".mkv":  domain.MediaKindVideo,
	".webm": domain.MediaKindVideo,
}

// ImportService runs the import pipeline: classify the file, extract metadata,
// store the payload and register the track in the library.
//
// Metadata extraction failure is not fatal: the pipeline falls back to the
// filename for the title and to the decoder probe for the duration. Only files
// that cannot be decoded at all are skipped.
type ImportService struct {
	// Dependencies (injected)
	logger  *slog.Logger
	library *LibraryService
	store   ports.Store
	decoder ports.Decoder
	bus     ports.EventBus
}

// NewImportService creates a new import service.
func NewImportService(
	logger *slog.Logger,
	library *LibraryService,
	store ports.Store,
	decoder ports.Decoder,
	bus ports.EventBus,
) *ImportService {
	return &ImportService{
		logger:  logger,
		library: library,
		store:   store,
		decoder: decoder,
		bus:     bus,
	}
}

// ImportFiles imports a batch of files from disk. Files that fail are skipped
// and logged; the batch continues. The returned result counts both outcomes.
func (s *ImportService) ImportFiles(ctx context.Context, paths []string) (domain.ImportResult, error) {
	result := domain.ImportResult{Total: len(paths)}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable file", slog.String("path", path), slog.Any("error", err))
			s.bus.Publish(domain.NewImportProgressEvent(path, i+1, result.Total, result.Imported))
			continue
		}

		if _, err := s.ImportContent(ctx, filepath.Base(path), content); err != nil {
			s.logger.Warn("skipping file", slog.String("path", path), slog.Any("error", err))
			s.bus.Publish(domain.NewImportProgressEvent(path, i+1, result.Total, result.Imported))
			continue
		}

		result.Imported++
		s.bus.Publish(domain.NewImportProgressEvent(path, i+1, result.Total, result.Imported))
	}

	s.bus.Publish(domain.NewImportCompletedEvent(result))

	s.logger.Info("import finished",
		slog.Int("imported", result.Imported),
		slog.Int("total", result.Total))
	return result, nil
}

// ImportContent imports a single in-memory file and returns the created track.
func (s *ImportService) ImportContent(ctx context.Context, filename string, content []byte) (*domain.Track, error) {
	kind, ok := mediaKindByExt[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return nil, domain.ErrUnsupportedKind
	}

	// A payload that cannot be decoded cannot become a track
	probe, err := s.decoder.Probe(ctx, content, kind)
	if err != nil {
		return nil, err
	}

	track := &domain.Track{
		ID:        uuid.NewString(),
		Title:     titleFromFilename(filename),
		Artist:    "Unknown Artist",
		Album:     "Unknown Album",
		Duration:  probe.Duration,
		CreatedAt: time.Now(),
	}

	var cover []byte
	var coverName string
	if meta, err := tag.ReadFrom(bytes.NewReader(content)); err == nil {
		if t := strings.TrimSpace(meta.Title()); t != "" {
			track.Title = t
		}
		if a := strings.TrimSpace(meta.Artist()); a != "" {
			track.Artist = a
		}
		if al := strings.TrimSpace(meta.Album()); al != "" {
			track.Album = al
		}
		num, _ := meta.Track()
		track.TrackNumber = num
		if pic := meta.Picture(); pic != nil && len(pic.Data) > 0 {
			cover = pic.Data
			coverName = track.Title + "." + pic.Ext
		}
	} else {
		s.logger.Debug("metadata extraction failed, using fallbacks",
			slog.String("file", filename), slog.Any("error", err))
	}

	asset := &domain.Asset{
		ID:       uuid.NewString(),
		Kind:     kind,
		Content:  content,
		Filename: filename,
	}
	if err := s.store.PutAsset(ctx, asset); err != nil {
		return nil, err
	}
	track.AssetID = asset.ID

	if cover != nil {
		coverAsset := &domain.Asset{
			ID:       uuid.NewString(),
			Kind:     domain.MediaKindImage,
			Content:  cover,
			Filename: coverName,
		}
		if err := s.store.PutAsset(ctx, coverAsset); err != nil {
			return nil, err
		}
		track.CoverAssetID = coverAsset.ID
	}

	if err := s.library.AddTrack(ctx, track); err != nil {
		// Roll back the payloads so a failed import leaves no orphan assets
		if derr := s.store.DeleteAsset(ctx, track.AssetID); derr != nil {
			s.logger.Warn("failed to roll back media asset",
				slog.String("asset_id", track.AssetID), slog.Any("error", derr))
		}
		if track.CoverAssetID != "" {
			if derr := s.store.DeleteAsset(ctx, track.CoverAssetID); derr != nil {
				s.logger.Warn("failed to roll back cover asset",
					slog.String("asset_id", track.CoverAssetID), slog.Any("error", derr))
			}
		}
		return nil, err
	}

	s.logger.Debug("file imported",
		slog.String("file", filename),
		slog.String("track_id", track.ID),
		slog.String("title", track.Title))
	return track, nil
}

// titleFromFilename strips the directory and extension from a file name.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
