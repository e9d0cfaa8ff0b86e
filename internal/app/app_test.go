package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzaplayer/cadenza/internal/adapter/media/mock"
	"github.com/cadenzaplayer/cadenza/internal/config"
	"github.com/cadenzaplayer/cadenza/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	cfg.Storage.DataDir = t.TempDir()
	cfg.Audio.UpdateIntervalMS = 5
	cfg.Log.Level = "error"
	return cfg
}

// End-to-end pass over the wired application: start, import, play, shut down.
func TestApplication_Lifecycle(t *testing.T) {
	decoder := mock.NewDecoder()
	decoder.SetSampleRate(8000)
	decoder.SetDuration(40 * time.Millisecond)

	application, err := NewApplication(testConfig(t), Options{
		Decoder: decoder,
		Output:  mock.NewOutput(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, application.Start(ctx))

	path := filepath.Join(t.TempDir(), "tone.mp3")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	result, err := application.Importer().ImportFiles(ctx, []string{path})
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)

	tracks := application.Library().AllTracks()
	require.Len(t, tracks, 1)

	player := application.Player()
	require.NoError(t, player.SetQueueAndPlay(ctx, []string{tracks[0].ID}, ""))

	// Non-realtime output: the short track finishes almost immediately
	require.Eventually(t, func() bool {
		return player.State().CurrentTrack == nil
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, application.Shutdown())
}

func TestApplication_SettingsSurviveRestart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := NewApplication(cfg, Options{})
	require.NoError(t, err)
	require.NoError(t, first.Start(ctx))
	require.NoError(t, first.Player().SetVolume(ctx, 0.3))
	require.NoError(t, first.Player().ApplyEQPreset(ctx, "rock"))
	require.NoError(t, first.Shutdown())

	second, err := NewApplication(cfg, Options{})
	require.NoError(t, err)
	require.NoError(t, second.Start(ctx))
	defer func() { require.NoError(t, second.Shutdown()) }()

	assert.Equal(t, 0.3, second.Player().Volume())
	assert.Equal(t, "rock", second.Player().EQPreset())

	settings := second.Library().Settings()
	assert.Equal(t, 0.3, settings.Volume)
	assert.Equal(t, domain.RepeatNone, second.Player().RepeatMode())
}
