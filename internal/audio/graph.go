package audio

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cadenzaplayer/cadenza/internal/domain"
	"github.com/cadenzaplayer/cadenza/internal/ports"
)

// pumpBlock is the number of samples moved through the chain per iteration.
const pumpBlock = 4096

// Status describes the transport state of the graph.
type Status int

const (
	// StatusIdle means no source is loaded
	StatusIdle Status = iota

	// StatusPaused means a source is loaded but not rendering
	StatusPaused

	// StatusPlaying means the pump is rendering to the output
	StatusPlaying

	// StatusEnded means the source reached its natural end
	StatusEnded

	// StatusError means the pump stopped on a decoder or output failure
	StatusError
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPaused:
		return "paused"
	case StatusPlaying:
		return "playing"
	case StatusEnded:
		return "ended"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Graph is the playback signal chain: source -> gain -> equalizer -> analyzer
// -> output. A pump goroutine moves blocks through the chain; the output sink
// paces it by blocking in Write.
//
// Thread-safety: all methods are safe for concurrent use.
type Graph struct {
	// Dependencies
	output ports.Output
	logger *slog.Logger

	eq       *Equalizer
	analyzer *Analyzer

	mu   sync.Mutex
	cond *sync.Cond

	source   ports.Source
	channels int
	status   Status
	lastErr  error

	volume float64
	muted  bool

	// gen invalidates pumps from earlier loads
	gen     uint64
	pumping bool
}

// NewGraph creates a graph rendering to the given output.
func NewGraph(output ports.Output, analyzerBins int, logger *slog.Logger) *Graph {
	g := &Graph{
		output:   output,
		logger:   logger,
		eq:       NewEqualizer(),
		analyzer: NewAnalyzer(analyzerBins),
		status:   StatusIdle,
		volume:   1.0,
	}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Equalizer returns the graph's equalizer stage.
func (g *Graph) Equalizer() *Equalizer {
	return g.eq
}

// Analyzer returns the graph's spectrum analyzer stage.
func (g *Graph) Analyzer() *Analyzer {
	return g.analyzer
}

// Load replaces the current source. The previous source is closed and its pump
// retired; the new source starts paused at position zero.
func (g *Graph) Load(source ports.Source) error {
	g.mu.Lock()

	g.gen++
	gen := g.gen
	old := g.source
	g.source = source
	g.channels = source.Channels()
	g.status = StatusPaused
	g.lastErr = nil
	g.cond.Broadcast()
	g.mu.Unlock()

	if old != nil {
		_ = old.Close()
		_ = g.output.Stop()
	}

	g.eq.Configure(source.SampleRate(), source.Channels())
	g.analyzer.Configure(source.SampleRate())

	if err := g.output.Start(source.SampleRate(), source.Channels()); err != nil {
		g.mu.Lock()
		// A newer Load owns the slot once the generation moved on
		if g.gen == gen {
			g.source = nil
			g.status = StatusIdle
		}
		g.mu.Unlock()
		_ = source.Close()
		return domain.NewPlaybackError("load", "", "output start failed", err)
	}

	g.mu.Lock()
	if g.gen == gen {
		g.pumping = true
		go g.pump(gen)
	}
	g.mu.Unlock()

	g.logger.Debug("source loaded",
		slog.Int("sample_rate", source.SampleRate()),
		slog.Int("channels", source.Channels()),
		slog.Duration("duration", source.Duration()))
	return nil
}

// Play starts or resumes rendering.
func (g *Graph) Play() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.source == nil {
		return domain.ErrNoTrackLoaded
	}
	if g.status == StatusError {
		return domain.NewPlaybackError("play", "", "graph is in error state", g.lastErr)
	}

	g.status = StatusPlaying
	g.ensurePumpLocked()
	g.cond.Broadcast()
	return nil
}

// Pause suspends rendering, keeping the position.
func (g *Graph) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.source == nil {
		return domain.ErrNoTrackLoaded
	}
	if g.status == StatusPlaying {
		g.status = StatusPaused
	}
	return nil
}

// Stop unloads the source and returns the graph to idle.
func (g *Graph) Stop() error {
	g.mu.Lock()
	g.gen++
	g.pumping = false
	src := g.source
	g.source = nil
	g.status = StatusIdle
	g.lastErr = nil
	g.cond.Broadcast()
	g.mu.Unlock()

	if src != nil {
		_ = src.Close()
	}
	g.analyzer.Reset()
	return g.output.Stop()
}

// Close stops the graph and releases the output device.
func (g *Graph) Close() error {
	_ = g.Stop()
	return g.output.Close()
}

// Seek repositions the current source. Seeking an ended source revives it in
// the paused state so playback can restart without a reload.
func (g *Graph) Seek(position time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.source == nil {
		return domain.ErrNoTrackLoaded
	}
	if err := g.source.Seek(position); err != nil {
		return err
	}
	if g.status == StatusEnded {
		g.status = StatusPaused
	}
	g.ensurePumpLocked()
	return nil
}

// Status returns the transport state.
func (g *Graph) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Err returns the failure that moved the graph into StatusError, if any.
func (g *Graph) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// Position returns the playback position of the current source.
func (g *Graph) Position() time.Duration {
	g.mu.Lock()
	src := g.source
	g.mu.Unlock()

	if src == nil {
		return 0
	}
	return src.Position()
}

// Duration returns the total duration of the current source.
func (g *Graph) Duration() time.Duration {
	g.mu.Lock()
	src := g.source
	g.mu.Unlock()

	if src == nil {
		return 0
	}
	return src.Duration()
}

// SetVolume sets the gain stage level (0.0 to 1.0).
func (g *Graph) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return domain.ErrInvalidVolume
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.volume = volume
	return nil
}

// Volume returns the gain stage level.
func (g *Graph) Volume() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.volume
}

// SetMuted silences the gain stage without touching the level.
func (g *Graph) SetMuted(muted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.muted = muted
}

// Muted reports whether the gain stage is silenced.
func (g *Graph) Muted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.muted
}

// ensurePumpLocked restarts the pump after it exited on EOF. Caller holds mu.
func (g *Graph) ensurePumpLocked() {
	if g.pumping || g.source == nil {
		return
	}
	g.pumping = true
	go g.pump(g.gen)
}

// pump moves blocks from the source through the chain until the source ends,
// an error surfaces or the generation is retired.
func (g *Graph) pump(gen uint64) {
	defer func() {
		g.mu.Lock()
		if g.gen == gen {
			g.pumping = false
		}
		g.mu.Unlock()
	}()

	buf := make([]float32, pumpBlock)
	for {
		g.mu.Lock()
		for g.gen == gen && g.status == StatusPaused {
			g.cond.Wait()
		}
		if g.gen != gen || g.status != StatusPlaying {
			g.mu.Unlock()
			return
		}
		src := g.source
		channels := g.channels
		gain := g.volume
		if g.muted {
			gain = 0
		}
		g.mu.Unlock()

		n, err := src.Read(buf)
		if channels > 1 && n%channels != 0 {
			// A partial frame would skew per-channel filter state
			g.fail(gen, "source read misaligned", domain.NewPlaybackError(
				"read", "", "source returned a partial frame", nil))
			return
		}
		if n > 0 {
			block := buf[:n]
			applyGain(block, gain)
			g.eq.Process(block)
			g.analyzer.Feed(block)
			if werr := g.output.Write(block); werr != nil {
				g.fail(gen, "output write failed", werr)
				return
			}
		}

		if errors.Is(err, io.EOF) {
			g.mu.Lock()
			if g.gen == gen {
				g.status = StatusEnded
			}
			g.mu.Unlock()
			return
		}
		if err != nil {
			g.fail(gen, "source read failed", err)
			return
		}
	}
}

// fail moves the graph into the error state unless the generation was retired.
func (g *Graph) fail(gen uint64, msg string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gen != gen {
		return
	}
	g.status = StatusError
	g.lastErr = err
	g.logger.Error("playback pump stopped", slog.String("reason", msg), slog.Any("error", err))
}

// applyGain scales a block in place.
func applyGain(samples []float32, gain float64) {
	if gain == 1 {
		return
	}
	f := float32(gain)
	for i := range samples {
		samples[i] *= f
	}
}
