// Package ports define interfaces for dependency inversion.
package ports

import (
	"context"
	"time"

	"github.com/cadenzaplayer/cadenza/internal/domain"
)

// ProbeInfo describes a media payload as reported by a decoder without fully
// decoding it. Used by the import pipeline as the duration fallback when
// structured metadata extraction fails.
type ProbeInfo struct {
	// Duration is the reported total playing time
	Duration time.Duration

	// SampleRate is the native sample rate in Hz
	SampleRate int

	// Channels is the channel count
	Channels int
}

// Decoder turns binary asset content into PCM for the audio graph.
// This abstracts the platform media framework; implementations may shell out
// to native decoders or decode in-process.
//
// Thread-safety: Implementations must be thread-safe. Individual Sources are
// owned exclusively by the playback engine and need not be.
type Decoder interface {
	// Probe inspects a payload and reports its duration and format.
	// Fails with a *domain.PlaybackError if the payload cannot be decoded.
	Probe(ctx context.Context, content []byte, kind domain.MediaKind) (ProbeInfo, error)

	// Open prepares a payload for streaming playback.
	// The returned source must be closed by the caller.
	Open(ctx context.Context, content []byte, kind domain.MediaKind) (Source, error)
}

// Source is a seekable stream of interleaved float32 PCM samples in [-1, 1].
type Source interface {
	// Read fills buf with samples and returns the count read. The count must
	// be a multiple of Channels(): partial frames would skew per-channel
	// filter state downstream. Returns io.EOF at the natural end of the media.
	Read(buf []float32) (int, error)

	// Seek repositions the stream to the given offset from the start.
	Seek(position time.Duration) error

	// Position returns the current stream position.
	Position() time.Duration

	// Duration returns the total stream duration.
	Duration() time.Duration

	// SampleRate returns the stream sample rate in Hz.
	SampleRate() int

	// Channels returns the number of interleaved channels.
	Channels() int

	// Close releases decoder resources for this stream.
	Close() error
}

// Output is the terminal sink of the audio graph: the platform playback
// device. The sink paces consumption; Write may block until the device has
// room for the samples.
//
// Thread-safety: Implementations must be thread-safe.
type Output interface {
	// Start opens the device for the given stream format.
	Start(sampleRate, channels int) error

	// Write renders a block of interleaved samples. Blocks for pacing.
	Write(samples []float32) error

	// Stop drains and closes the current stream, keeping the device usable
	// for a later Start.
	Stop() error

	// Close releases the device.
	Close() error
}
