package audio

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzaplayer/cadenza/internal/adapter/media/mock"
	"github.com/cadenzaplayer/cadenza/internal/domain"
	"github.com/cadenzaplayer/cadenza/internal/ports"
	"github.com/cadenzaplayer/cadenza/internal/testutil"
)

// newTestGraph builds a graph over the mock backend with a short tone source.
func newTestGraph(t *testing.T, duration time.Duration) (*Graph, *mock.Output, ports.Source) {
	t.Helper()

	decoder := mock.NewDecoder()
	decoder.SetSampleRate(8000)
	decoder.SetDuration(duration)

	source, err := decoder.Open(context.Background(), []byte("tone"), domain.MediaKindAudio)
	require.NoError(t, err)

	output := mock.NewOutput()
	graph := NewGraph(output, 16, slog.Default())
	t.Cleanup(func() { _ = graph.Close() })

	return graph, output, source
}

func waitStatus(t *testing.T, graph *Graph, want Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return graph.Status() == want
	}, 2*time.Second, 2*time.Millisecond, "graph never reached %s", want)
}

func TestGraph_PlayToCompletion(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	graph, output, source := newTestGraph(t, 50*time.Millisecond)

	require.NoError(t, graph.Load(source))
	assert.Equal(t, StatusPaused, graph.Status())

	require.NoError(t, graph.Play())
	waitStatus(t, graph, StatusEnded)

	// 50ms at 8 kHz mono
	assert.Equal(t, 400, output.Written())
}

func TestGraph_PlayWithoutSource(t *testing.T) {
	graph := NewGraph(mock.NewOutput(), 16, slog.Default())
	defer graph.Close()

	assert.ErrorIs(t, graph.Play(), domain.ErrNoTrackLoaded)
	assert.ErrorIs(t, graph.Pause(), domain.ErrNoTrackLoaded)
	assert.ErrorIs(t, graph.Seek(0), domain.ErrNoTrackLoaded)
}

func TestGraph_PauseHoldsPosition(t *testing.T) {
	t.Cleanup(func() { testutil.VerifyNoLeaks(t) })

	graph, output, source := newTestGraph(t, 10*time.Second)
	output.SetRealtime(true)

	require.NoError(t, graph.Load(source))
	require.NoError(t, graph.Play())
	waitStatus(t, graph, StatusPlaying)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, graph.Pause())
	assert.Equal(t, StatusPaused, graph.Status())

	pos := graph.Position()
	assert.Greater(t, pos, time.Duration(0))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, pos, graph.Position())
}

func TestGraph_StopReturnsToIdle(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	graph, _, source := newTestGraph(t, 10*time.Second)

	require.NoError(t, graph.Load(source))
	require.NoError(t, graph.Play())
	require.NoError(t, graph.Stop())

	assert.Equal(t, StatusIdle, graph.Status())
	assert.Equal(t, time.Duration(0), graph.Position())
}

func TestGraph_SeekRevivesEndedSource(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	graph, _, source := newTestGraph(t, 50*time.Millisecond)

	require.NoError(t, graph.Load(source))
	require.NoError(t, graph.Play())
	waitStatus(t, graph, StatusEnded)

	require.NoError(t, graph.Seek(0))
	assert.Equal(t, StatusPaused, graph.Status())

	require.NoError(t, graph.Play())
	waitStatus(t, graph, StatusEnded)
}

func TestGraph_LoadReplacesSource(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	graph, _, first := newTestGraph(t, 10*time.Second)
	require.NoError(t, graph.Load(first))
	require.NoError(t, graph.Play())

	decoder := mock.NewDecoder()
	decoder.SetSampleRate(8000)
	decoder.SetDuration(30 * time.Millisecond)
	second, err := decoder.Open(context.Background(), []byte("tone"), domain.MediaKindAudio)
	require.NoError(t, err)

	require.NoError(t, graph.Load(second))
	assert.Equal(t, StatusPaused, graph.Status())
	assert.Equal(t, 30*time.Millisecond, graph.Duration())

	require.NoError(t, graph.Play())
	waitStatus(t, graph, StatusEnded)
}

func TestGraph_Volume(t *testing.T) {
	graph := NewGraph(mock.NewOutput(), 16, slog.Default())
	defer graph.Close()

	assert.ErrorIs(t, graph.SetVolume(-0.1), domain.ErrInvalidVolume)
	assert.ErrorIs(t, graph.SetVolume(1.1), domain.ErrInvalidVolume)

	require.NoError(t, graph.SetVolume(0.42))
	assert.Equal(t, 0.42, graph.Volume())

	graph.SetMuted(true)
	assert.True(t, graph.Muted())
	// Mute does not disturb the level
	assert.Equal(t, 0.42, graph.Volume())
}

func TestGraph_WriteFailureSurfacesError(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	graph, output, source := newTestGraph(t, 10*time.Second)
	require.NoError(t, graph.Load(source))

	output.SetWriteError(assert.AnError)
	require.NoError(t, graph.Play())

	waitStatus(t, graph, StatusError)
	assert.Error(t, graph.Err())

	// Playing again while failed is rejected
	assert.Error(t, graph.Play())
}

func TestGraph_AnalyzerReceivesAudio(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	graph, _, source := newTestGraph(t, 100*time.Millisecond)
	require.NoError(t, graph.Load(source))
	require.NoError(t, graph.Play())
	waitStatus(t, graph, StatusEnded)

	snapshot := graph.Analyzer().Snapshot()
	nonZero := false
	for _, v := range snapshot {
		if v > 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero)
}

func TestGraph_LoadFailsWhenOutputRejectsStart(t *testing.T) {
	t.Cleanup(func() { testutil.VerifyNoLeaks(t) })

	graph, output, source := newTestGraph(t, time.Second)
	output.SetStartError(assert.AnError)

	require.Error(t, graph.Load(source))
	assert.Equal(t, StatusIdle, graph.Status())
	assert.ErrorIs(t, graph.Play(), domain.ErrNoTrackLoaded)

	// The graph recovers once the device does
	output.SetStartError(nil)
	decoder := mock.NewDecoder()
	decoder.SetSampleRate(8000)
	decoder.SetDuration(time.Second)
	second, err := decoder.Open(context.Background(), []byte("tone"), domain.MediaKindAudio)
	require.NoError(t, err)

	require.NoError(t, graph.Load(second))
	assert.Equal(t, StatusPaused, graph.Status())
}

// misalignedSource reports two channels but returns odd sample counts.
type misalignedSource struct{}

func (misalignedSource) Read(buf []float32) (int, error) {
	n := len(buf)
	if n > 3 {
		n = 3
	}
	return n, nil
}
func (misalignedSource) Seek(time.Duration) error { return nil }
func (misalignedSource) Position() time.Duration  { return 0 }
func (misalignedSource) Duration() time.Duration  { return time.Second }
func (misalignedSource) SampleRate() int          { return 8000 }
func (misalignedSource) Channels() int            { return 2 }
func (misalignedSource) Close() error             { return nil }

func TestGraph_RejectsPartialFrames(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	graph := NewGraph(mock.NewOutput(), 16, slog.Default())
	defer graph.Close()

	require.NoError(t, graph.Load(misalignedSource{}))
	require.NoError(t, graph.Play())

	waitStatus(t, graph, StatusError)
	assert.Error(t, graph.Err())
}
