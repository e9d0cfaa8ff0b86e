package mock

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzaplayer/cadenza/internal/domain"
)

func TestDecoder_Probe(t *testing.T) {
	decoder := NewDecoder()
	decoder.SetDuration(90 * time.Second)

	info, err := decoder.Probe(context.Background(), []byte("payload"), domain.MediaKindAudio)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, info.Duration)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 1, decoder.ProbeCalls())
}

func TestDecoder_Probe_RejectsImages(t *testing.T) {
	decoder := NewDecoder()

	_, err := decoder.Probe(context.Background(), []byte("payload"), domain.MediaKindImage)
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
}

func TestDecoder_Probe_ConfiguredFailure(t *testing.T) {
	decoder := NewDecoder()
	decoder.SetProbeError(errors.New("boom"))

	_, err := decoder.Probe(context.Background(), []byte("payload"), domain.MediaKindAudio)
	require.Error(t, err)

	var playbackErr *domain.PlaybackError
	assert.ErrorAs(t, err, &playbackErr)
}

func TestSource_ReadUntilEOF(t *testing.T) {
	decoder := NewDecoder()
	decoder.SetSampleRate(1000)
	decoder.SetDuration(100 * time.Millisecond) // 100 samples

	source, err := decoder.Open(context.Background(), []byte("payload"), domain.MediaKindAudio)
	require.NoError(t, err)
	defer source.Close()

	total := 0
	buf := make([]float32, 64)
	for {
		n, err := source.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, 100, total)
	assert.Equal(t, source.Duration(), source.Position())
}

func TestSource_Seek(t *testing.T) {
	decoder := NewDecoder()
	decoder.SetSampleRate(1000)
	decoder.SetDuration(time.Second)

	source, err := decoder.Open(context.Background(), []byte("payload"), domain.MediaKindAudio)
	require.NoError(t, err)
	defer source.Close()

	require.NoError(t, source.Seek(500*time.Millisecond))
	assert.Equal(t, 500*time.Millisecond, source.Position())

	// Past the end clamps
	require.NoError(t, source.Seek(time.Hour))
	assert.Equal(t, time.Second, source.Position())
	_, err = source.Read(make([]float32, 16))
	assert.Equal(t, io.EOF, err)
}

func TestOutput_Lifecycle(t *testing.T) {
	output := NewOutput()

	// Write before Start fails
	assert.Error(t, output.Write(make([]float32, 8)))

	require.NoError(t, output.Start(44100, 2))
	assert.True(t, output.Started())

	require.NoError(t, output.Write(make([]float32, 8)))
	assert.Equal(t, 8, output.Written())

	require.NoError(t, output.Stop())
	assert.False(t, output.Started())

	require.NoError(t, output.Close())
	assert.Error(t, output.Start(44100, 2))
}

func TestOutput_RealtimePacing(t *testing.T) {
	output := NewOutput()
	output.SetRealtime(true)
	require.NoError(t, output.Start(1000, 1))

	start := time.Now()
	require.NoError(t, output.Write(make([]float32, 100))) // 100ms of audio
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}
