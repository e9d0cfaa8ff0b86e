package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzaplayer/cadenza/internal/adapter/eventbus"
	"github.com/cadenzaplayer/cadenza/internal/adapter/media/mock"
	"github.com/cadenzaplayer/cadenza/internal/adapter/storage/sqlite"
	"github.com/cadenzaplayer/cadenza/internal/audio"
	"github.com/cadenzaplayer/cadenza/internal/domain"
)

type playerFixture struct {
	player  *PlayerService
	library *LibraryService
	store   *sqlite.Store
	bus     *eventbus.SyncEventBus
	graph   *audio.Graph
	output  *mock.Output
	decoder *mock.Decoder
	tracks  []*domain.Track
}

// newTestPlayer wires a player over the mock media backend with a fast
// progress interval. Track duration controls how quickly playback completes:
// with the output in non-realtime mode a short track finishes almost
// immediately.
func newTestPlayer(t *testing.T, trackCount int, trackDuration time.Duration) *playerFixture {
	t.Helper()

	library, store, bus := newTestLibrary(t)

	decoder := mock.NewDecoder()
	decoder.SetSampleRate(8000)
	decoder.SetDuration(trackDuration)

	output := mock.NewOutput()
	graph := audio.NewGraph(output, 16, slog.Default())

	player := NewPlayerService(slog.Default(), graph, library, store, decoder, bus, 5*time.Millisecond)
	t.Cleanup(func() {
		_ = player.Shutdown()
		_ = graph.Close()
	})

	f := &playerFixture{
		player:  player,
		library: library,
		store:   store,
		bus:     bus,
		graph:   graph,
		output:  output,
		decoder: decoder,
	}
	for i := 0; i < trackCount; i++ {
		track := seedTrack(t, library, store, fmt.Sprintf("Track %02d", i+1), "Artist", "Album")
		f.tracks = append(f.tracks, track)
	}
	return f
}

func (f *playerFixture) ids() []string {
	ids := make([]string, len(f.tracks))
	for i, track := range f.tracks {
		ids[i] = track.ID
	}
	return ids
}

func (f *playerFixture) currentID(t *testing.T) string {
	t.Helper()
	state := f.player.State()
	require.NotNil(t, state.CurrentTrack)
	return state.CurrentTrack.ID
}

func TestPlayerService_SetQueueAndPlay(t *testing.T) {
	f := newTestPlayer(t, 3, 10*time.Second)
	f.output.SetRealtime(true)
	ctx := context.Background()

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), f.tracks[1].ID))

	state := f.player.State()
	require.NotNil(t, state.CurrentTrack)
	assert.Equal(t, f.tracks[1].ID, state.CurrentTrack.ID)
	assert.Equal(t, 1, state.CurrentIndex)
	assert.Equal(t, f.ids(), state.Queue)
	assert.True(t, state.IsPlaying)
}

func TestPlayerService_SetQueueAndPlay_UnknownStart(t *testing.T) {
	f := newTestPlayer(t, 3, 10*time.Second)
	f.output.SetRealtime(true)

	require.NoError(t, f.player.SetQueueAndPlay(context.Background(), f.ids(), "no-such-track"))
	assert.Equal(t, f.tracks[0].ID, f.currentID(t))
}

func TestPlayerService_SetQueueAndPlay_Empty(t *testing.T) {
	f := newTestPlayer(t, 0, time.Second)

	err := f.player.SetQueueAndPlay(context.Background(), nil, "")
	assert.ErrorIs(t, err, domain.ErrQueueEmpty)
}

func TestPlayerService_PlayWithoutQueue(t *testing.T) {
	f := newTestPlayer(t, 0, time.Second)

	assert.ErrorIs(t, f.player.Play(context.Background()), domain.ErrNoTrackLoaded)
	assert.ErrorIs(t, f.player.Seek(0), domain.ErrNoTrackLoaded)
}

func TestPlayerService_PlayTrack(t *testing.T) {
	f := newTestPlayer(t, 3, 10*time.Second)
	f.output.SetRealtime(true)
	ctx := context.Background()

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), ""))
	require.NoError(t, f.player.PlayTrack(ctx, f.tracks[2].ID))
	assert.Equal(t, f.tracks[2].ID, f.currentID(t))

	assert.ErrorIs(t, f.player.PlayTrack(ctx, "absent"), domain.ErrTrackNotFound)
}

func TestPlayerService_NextAndPreviousWrap(t *testing.T) {
	f := newTestPlayer(t, 3, 10*time.Second)
	f.output.SetRealtime(true)
	ctx := context.Background()

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), f.tracks[2].ID))

	// Explicit navigation wraps regardless of the repeat mode
	require.NoError(t, f.player.PlayNext(ctx))
	assert.Equal(t, f.tracks[0].ID, f.currentID(t))

	require.NoError(t, f.player.PlayPrevious(ctx))
	assert.Equal(t, f.tracks[2].ID, f.currentID(t))

	require.NoError(t, f.player.PlayPrevious(ctx))
	assert.Equal(t, f.tracks[1].ID, f.currentID(t))
}

func TestPlayerService_PauseAndResume(t *testing.T) {
	f := newTestPlayer(t, 1, 10*time.Second)
	f.output.SetRealtime(true)
	ctx := context.Background()

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), ""))
	require.NoError(t, f.player.Pause())
	assert.False(t, f.player.State().IsPlaying)

	require.NoError(t, f.player.Play(ctx))
	assert.True(t, f.player.State().IsPlaying)
}

func TestPlayerService_StopKeepsQueue(t *testing.T) {
	f := newTestPlayer(t, 2, 10*time.Second)
	f.output.SetRealtime(true)
	ctx := context.Background()

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), f.tracks[1].ID))
	require.NoError(t, f.player.Stop())

	state := f.player.State()
	assert.Nil(t, state.CurrentTrack)
	assert.Equal(t, -1, state.CurrentIndex)
	assert.Equal(t, f.ids(), state.Queue)

	// Play picks the queue back up where it left off
	require.NoError(t, f.player.Play(ctx))
	assert.Equal(t, f.tracks[1].ID, f.currentID(t))
}

func TestPlayerService_ToggleShuffleAnchorsCurrent(t *testing.T) {
	f := newTestPlayer(t, 6, 10*time.Second)
	f.output.SetRealtime(true)
	ctx := context.Background()

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), f.tracks[2].ID))

	assert.True(t, f.player.ToggleShuffle())
	assert.True(t, f.player.ShuffleEnabled())

	// The playing track moves to the front of the shuffled order
	order := f.player.Order()
	assert.Equal(t, f.tracks[2].ID, order[0])
	assert.ElementsMatch(t, f.ids(), order)
	assert.Equal(t, 0, f.player.State().CurrentIndex)
	assert.Equal(t, f.tracks[2].ID, f.currentID(t))

	// Disabling returns to the canonical order and position
	assert.False(t, f.player.ToggleShuffle())
	assert.Equal(t, f.ids(), f.player.Order())
	assert.Equal(t, 2, f.player.State().CurrentIndex)
}

func TestPlayerService_CycleRepeat(t *testing.T) {
	f := newTestPlayer(t, 0, time.Second)

	assert.Equal(t, domain.RepeatNone, f.player.RepeatMode())
	assert.Equal(t, domain.RepeatAll, f.player.CycleRepeat())
	assert.Equal(t, domain.RepeatOne, f.player.CycleRepeat())
	assert.Equal(t, domain.RepeatNone, f.player.CycleRepeat())
}

func TestPlayerService_SetVolumePersists(t *testing.T) {
	f := newTestPlayer(t, 0, time.Second)
	ctx := context.Background()

	assert.ErrorIs(t, f.player.SetVolume(ctx, 1.5), domain.ErrInvalidVolume)

	require.NoError(t, f.player.SetVolume(ctx, 0.42))
	assert.Equal(t, 0.42, f.player.Volume())

	settings := f.library.Settings()
	assert.Equal(t, 0.42, settings.Volume)
	assert.Equal(t, 0.42, settings.LastVolume)
}

func TestPlayerService_MuteRestoresVolume(t *testing.T) {
	f := newTestPlayer(t, 0, time.Second)
	ctx := context.Background()

	require.NoError(t, f.player.SetVolume(ctx, 0.8))

	require.NoError(t, f.player.ToggleMute(ctx))
	assert.True(t, f.player.IsMuted())
	assert.True(t, f.library.Settings().IsMuted)
	// The level is remembered, not zeroed
	assert.Equal(t, 0.8, f.player.Volume())

	require.NoError(t, f.player.ToggleMute(ctx))
	assert.False(t, f.player.IsMuted())
	assert.Equal(t, 0.8, f.player.Volume())
	assert.Equal(t, 0.8, f.library.Settings().Volume)
}

func TestPlayerService_EQPresetAndBands(t *testing.T) {
	f := newTestPlayer(t, 0, time.Second)
	ctx := context.Background()

	require.NoError(t, f.player.ApplyEQPreset(ctx, "rock"))
	assert.Equal(t, "rock", f.player.EQPreset())
	assert.Equal(t, "rock", f.library.Settings().EQPreset)

	assert.Error(t, f.player.ApplyEQPreset(ctx, "metal"))

	// Editing a band switches to custom and persists the full gain set
	require.NoError(t, f.player.SetEQBand(ctx, 3, 4.0))
	assert.Equal(t, audio.PresetCustom, f.player.EQPreset())
	assert.Equal(t, 4.0, f.player.EQGains()[3])
	assert.Equal(t, 4.0, f.library.Settings().CustomEQ[3])

	// The custom preset survives switching away and back
	require.NoError(t, f.player.ApplyEQPreset(ctx, "flat"))
	require.NoError(t, f.player.ApplyEQPreset(ctx, audio.PresetCustom))
	assert.Equal(t, 4.0, f.player.EQGains()[3])
}

func TestPlayerService_Restore(t *testing.T) {
	f := newTestPlayer(t, 0, time.Second)
	ctx := context.Background()

	require.NoError(t, f.library.UpdateSettings(ctx, func(st *domain.Settings) {
		st.Volume = 0.6
		st.IsMuted = true
		st.EQPreset = audio.PresetCustom
		st.CustomEQ[5] = -3.5
	}))

	require.NoError(t, f.player.Restore())

	assert.Equal(t, 0.6, f.player.Volume())
	assert.True(t, f.player.IsMuted())
	assert.Equal(t, audio.PresetCustom, f.player.EQPreset())
	assert.Equal(t, -3.5, f.player.EQGains()[5])
}

func TestPlayerService_Restore_UnknownPresetFallsBack(t *testing.T) {
	f := newTestPlayer(t, 0, time.Second)

	require.NoError(t, f.library.UpdateSettings(context.Background(), func(st *domain.Settings) {
		st.EQPreset = "does-not-exist"
	}))

	require.NoError(t, f.player.Restore())
	assert.Equal(t, "flat", f.player.EQPreset())
}

func TestPlayerService_NaturalCompletionAdvances(t *testing.T) {
	f := newTestPlayer(t, 2, 40*time.Millisecond)
	ctx := context.Background()

	var mu sync.Mutex
	var started []string
	f.bus.Subscribe(domain.EventTrackStarted, func(e domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		started = append(started, e.(domain.TrackStartedEvent).Track.ID)
	})

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), ""))

	// Both tracks play through, then the queue ends with repeat off
	require.Eventually(t, func() bool {
		return f.player.State().CurrentTrack == nil
	}, 5*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{f.tracks[0].ID, f.tracks[1].ID}, started)
}

func TestPlayerService_RepeatOneRestartsTrack(t *testing.T) {
	f := newTestPlayer(t, 2, 30*time.Millisecond)
	ctx := context.Background()

	f.player.CycleRepeat() // all
	f.player.CycleRepeat() // one

	var mu sync.Mutex
	completions := 0
	f.bus.Subscribe(domain.EventTrackCompleted, func(domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		completions++
	})

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), ""))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return completions >= 2
	}, 5*time.Second, 5*time.Millisecond)

	// Still on the first track after repeated completions
	assert.Equal(t, f.tracks[0].ID, f.currentID(t))
	require.NoError(t, f.player.Stop())
}

func TestPlayerService_RepeatAllWrapsQueue(t *testing.T) {
	f := newTestPlayer(t, 2, 30*time.Millisecond)
	ctx := context.Background()

	f.player.CycleRepeat() // all

	var mu sync.Mutex
	var started []string
	f.bus.Subscribe(domain.EventTrackStarted, func(e domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		started = append(started, e.(domain.TrackStartedEvent).Track.ID)
	})

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), ""))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(started) >= 3
	}, 5*time.Second, 5*time.Millisecond)

	mu.Lock()
	first := append([]string{}, started[:3]...)
	mu.Unlock()
	assert.Equal(t, []string{f.tracks[0].ID, f.tracks[1].ID, f.tracks[0].ID}, first)

	require.NoError(t, f.player.Stop())
}

func TestPlayerService_RemovedTrackLeavesQueue(t *testing.T) {
	f := newTestPlayer(t, 3, 10*time.Second)
	f.output.SetRealtime(true)
	ctx := context.Background()

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), f.tracks[0].ID))

	// Removing a queued track repairs the queue without touching playback
	require.NoError(t, f.library.RemoveTrack(ctx, f.tracks[2].ID))
	assert.Equal(t, []string{f.tracks[0].ID, f.tracks[1].ID}, f.player.Queue())
	assert.Equal(t, f.tracks[0].ID, f.currentID(t))

	// Removing the playing track stops playback
	require.NoError(t, f.library.RemoveTrack(ctx, f.tracks[0].ID))
	assert.Equal(t, []string{f.tracks[1].ID}, f.player.Queue())
	assert.Nil(t, f.player.State().CurrentTrack)
}

func TestPlayerService_LoadFailureSurfacesError(t *testing.T) {
	f := newTestPlayer(t, 1, time.Second)
	f.decoder.SetOpenError(assert.AnError)

	var mu sync.Mutex
	failures := 0
	f.bus.Subscribe(domain.EventTrackError, func(domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		failures++
	})

	err := f.player.SetQueueAndPlay(context.Background(), f.ids(), "")
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, failures)
	assert.Nil(t, f.player.State().CurrentTrack)
}

func TestPlayerService_SpectrumMatchesBinCount(t *testing.T) {
	f := newTestPlayer(t, 0, time.Second)

	assert.Len(t, f.player.Spectrum(), 16)
}

func TestPlayerService_RemoveFromQueue(t *testing.T) {
	f := newTestPlayer(t, 3, 10*time.Second)
	f.output.SetRealtime(true)
	ctx := context.Background()

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), f.tracks[1].ID))

	assert.ErrorIs(t, f.player.RemoveFromQueue("absent"), domain.ErrTrackNotFound)

	// Dropping an earlier entry shifts the current index down
	require.NoError(t, f.player.RemoveFromQueue(f.tracks[0].ID))
	assert.Equal(t, []string{f.tracks[1].ID, f.tracks[2].ID}, f.player.Queue())
	assert.Equal(t, f.tracks[1].ID, f.currentID(t))
	assert.Equal(t, 0, f.player.State().CurrentIndex)

	// The track itself survives in the library
	_, err := f.library.GetTrack(f.tracks[0].ID)
	require.NoError(t, err)

	// Dropping the playing entry stops playback
	require.NoError(t, f.player.RemoveFromQueue(f.tracks[1].ID))
	assert.Nil(t, f.player.State().CurrentTrack)
	assert.Equal(t, []string{f.tracks[2].ID}, f.player.Queue())
}

func TestPlayerService_SeekPercent(t *testing.T) {
	f := newTestPlayer(t, 1, 10*time.Second)
	f.output.SetRealtime(true)
	ctx := context.Background()

	assert.ErrorIs(t, f.player.SeekPercent(0.5), domain.ErrNoTrackLoaded)

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), ""))
	require.NoError(t, f.player.Pause())

	assert.Error(t, f.player.SeekPercent(-0.1))
	assert.Error(t, f.player.SeekPercent(1.5))

	require.NoError(t, f.player.SeekPercent(0.5))
	assert.Equal(t, 5*time.Second, f.player.State().Position)
}

func TestPlayerService_NavigationOnEmptyQueueIsNoOp(t *testing.T) {
	f := newTestPlayer(t, 0, time.Second)
	ctx := context.Background()

	require.NoError(t, f.player.PlayNext(ctx))
	require.NoError(t, f.player.PlayPrevious(ctx))

	state := f.player.State()
	assert.Nil(t, state.CurrentTrack)
	assert.Equal(t, -1, state.CurrentIndex)
	assert.Empty(t, f.player.Queue())
}

func TestPlayerService_NextCyclesWholeQueue(t *testing.T) {
	f := newTestPlayer(t, 4, 10*time.Second)
	f.output.SetRealtime(true)
	ctx := context.Background()

	require.NoError(t, f.player.SetQueueAndPlay(ctx, f.ids(), f.tracks[1].ID))

	// len(queue) presses visit every track once and land back at the start
	start := f.currentID(t)
	seen := map[string]bool{start: true}
	for range f.tracks {
		require.NoError(t, f.player.PlayNext(ctx))
		seen[f.currentID(t)] = true
	}
	assert.Equal(t, start, f.currentID(t))
	assert.Len(t, seen, len(f.tracks))

	// Same property over the shuffled order
	f.player.ToggleShuffle()
	start = f.currentID(t)
	seen = map[string]bool{start: true}
	for range f.tracks {
		require.NoError(t, f.player.PlayNext(ctx))
		seen[f.currentID(t)] = true
	}
	assert.Equal(t, start, f.currentID(t))
	assert.Len(t, seen, len(f.tracks))
}
