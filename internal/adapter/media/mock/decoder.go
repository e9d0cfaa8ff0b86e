// Package mock provides a mock media backend for testing.
// This package implements the Decoder and Output interfaces without requiring
// a platform media framework or an audio device.
package mock

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	"github.com/cadenzaplayer/cadenza/internal/domain"
	"github.com/cadenzaplayer/cadenza/internal/ports"
)

// Decoder is a mock implementation of the Decoder interface.
// It synthesizes a sine tone of a configurable duration instead of decoding
// real media, which keeps playback tests fast and deterministic.
type Decoder struct {
	mu sync.Mutex

	// sampleRate of synthesized sources (default 44100)
	sampleRate int

	// duration of synthesized sources (default 2s)
	duration time.Duration

	// probeErr, when set, makes Probe fail
	probeErr error

	// openErr, when set, makes Open fail
	openErr error

	// probeCalls counts Probe invocations
	probeCalls int
}

// NewDecoder creates a new mock decoder with default settings.
func NewDecoder() *Decoder {
	return &Decoder{
		sampleRate: 44100,
		duration:   2 * time.Second,
	}
}

// SetDuration sets the duration reported and synthesized for every payload.
func (d *Decoder) SetDuration(duration time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.duration = duration
}

// SetSampleRate sets the sample rate of synthesized sources.
func (d *Decoder) SetSampleRate(rate int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sampleRate = rate
}

// SetProbeError makes subsequent Probe calls fail with the given error.
// Pass nil to restore normal operation.
func (d *Decoder) SetProbeError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.probeErr = err
}

// SetOpenError makes subsequent Open calls fail with the given error.
// Pass nil to restore normal operation.
func (d *Decoder) SetOpenError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openErr = err
}

// ProbeCalls returns the number of times Probe has been called.
func (d *Decoder) ProbeCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.probeCalls
}

// Probe inspects a payload and reports its duration and format.
func (d *Decoder) Probe(_ context.Context, content []byte, kind domain.MediaKind) (ports.ProbeInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.probeCalls++

	if d.probeErr != nil {
		return ports.ProbeInfo{}, domain.NewPlaybackError("probe", "", "probe failed", d.probeErr)
	}
	if !kind.Playable() {
		return ports.ProbeInfo{}, domain.NewPlaybackError("probe", "", "payload is not playable media", domain.ErrUnsupportedKind)
	}
	if len(content) == 0 {
		return ports.ProbeInfo{}, domain.NewPlaybackError("probe", "", "empty payload", domain.ErrMetadataExtraction)
	}

	return ports.ProbeInfo{
		Duration:   d.duration,
		SampleRate: d.sampleRate,
		Channels:   1,
	}, nil
}

// Open prepares a payload for streaming playback.
func (d *Decoder) Open(_ context.Context, content []byte, kind domain.MediaKind) (ports.Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.openErr != nil {
		return nil, domain.NewPlaybackError("open", "", "open failed", d.openErr)
	}
	if !kind.Playable() {
		return nil, domain.NewPlaybackError("open", "", "payload is not playable media", domain.ErrUnsupportedKind)
	}
	if len(content) == 0 {
		return nil, domain.NewPlaybackError("open", "", "empty payload", domain.ErrMetadataExtraction)
	}

	total := int(d.duration.Seconds() * float64(d.sampleRate))
	return &toneSource{
		sampleRate: d.sampleRate,
		total:      total,
		freq:       440,
	}, nil
}

// toneSource streams a mono sine tone of a fixed length.
type toneSource struct {
	mu sync.Mutex

	sampleRate int
	total      int
	pos        int
	freq       float64
	closed     bool
}

// Read fills buf with samples and returns the count read.
func (s *toneSource) Read(buf []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.EOF
	}
	if s.pos >= s.total {
		return 0, io.EOF
	}

	n := len(buf)
	if remaining := s.total - s.pos; n > remaining {
		n = remaining
	}

	step := 2 * math.Pi * s.freq / float64(s.sampleRate)
	for i := 0; i < n; i++ {
		buf[i] = float32(0.5 * math.Sin(step*float64(s.pos+i)))
	}
	s.pos += n

	return n, nil
}

// Seek repositions the stream to the given offset from the start.
func (s *toneSource) Seek(position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.NewPlaybackError("seek", "", "source is closed", nil)
	}

	pos := int(position.Seconds() * float64(s.sampleRate))
	if pos < 0 {
		pos = 0
	}
	if pos > s.total {
		pos = s.total
	}
	s.pos = pos
	return nil
}

// Position returns the current stream position.
func (s *toneSource) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(float64(s.pos) / float64(s.sampleRate) * float64(time.Second))
}

// Duration returns the total stream duration.
func (s *toneSource) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(float64(s.total) / float64(s.sampleRate) * float64(time.Second))
}

// SampleRate returns the stream sample rate in Hz.
func (s *toneSource) SampleRate() int {
	return s.sampleRate
}

// Channels returns the number of interleaved channels.
func (s *toneSource) Channels() int {
	return 1
}

// Close releases the stream.
func (s *toneSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Verify interface compliance
var (
	_ ports.Decoder = (*Decoder)(nil)
	_ ports.Source  = (*toneSource)(nil)
)
