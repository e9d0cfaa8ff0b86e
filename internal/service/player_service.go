package service

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/cadenzaplayer/cadenza/internal/audio"
	"github.com/cadenzaplayer/cadenza/internal/domain"
	"github.com/cadenzaplayer/cadenza/internal/ports"
)

// PlayerService orchestrates playback: the queue with its shuffle and repeat
// semantics, transport control, volume and the signal chain settings.
//
// The queue holds track ids in their canonical order; a separate active order
// is what navigation walks. With shuffle off the two are identical. All
// operations are thread-safe via sync.RWMutex.
type PlayerService struct {
	// Dependencies (injected)
	logger  *slog.Logger
	graph   *audio.Graph
	library *LibraryService
	store   ports.Store
	decoder ports.Decoder
	bus     ports.EventBus

	// Queue state
	queue          []string // canonical order
	order          []string // active order
	currentIndex   int      // index into order, -1 when nothing is current
	currentTrack   *domain.Track
	currentView    *ports.AssetView
	shuffleEnabled bool
	repeatMode     domain.RepeatMode

	updateInterval time.Duration
	rng            *rand.Rand

	// Concurrency control
	mu            sync.RWMutex
	stopUpdate    chan struct{}
	updateRunning bool
	updateWg      sync.WaitGroup

	// Event subscription
	removedSub domain.SubscriptionID
}

// NewPlayerService creates a new player service and starts its progress
// routine. Call Restore after the library has loaded to apply persisted
// volume and signal chain settings.
func NewPlayerService(
	logger *slog.Logger,
	graph *audio.Graph,
	library *LibraryService,
	store ports.Store,
	decoder ports.Decoder,
	bus ports.EventBus,
	updateInterval time.Duration,
) *PlayerService {
	if updateInterval <= 0 {
		updateInterval = 333 * time.Millisecond
	}

	service := &PlayerService{
		logger:         logger,
		graph:          graph,
		library:        library,
		store:          store,
		decoder:        decoder,
		bus:            bus,
		currentIndex:   -1,
		updateInterval: updateInterval,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		stopUpdate:     make(chan struct{}),
	}

	service.removedSub = bus.Subscribe(domain.EventTrackRemoved, service.handleTrackRemoved)
	service.startUpdateRoutine()

	logger.Debug("player service initialized")
	return service
}

// Restore applies persisted settings to the signal chain.
func (s *PlayerService) Restore() error {
	settings := s.library.Settings()

	if err := s.graph.SetVolume(settings.Volume); err != nil {
		return err
	}
	s.graph.SetMuted(settings.IsMuted)

	eq := s.graph.Equalizer()
	if settings.EQPreset == audio.PresetCustom {
		eq.SetCustom(settings.CustomEQ)
	} else if err := eq.ApplyPreset(settings.EQPreset); err != nil {
		s.logger.Warn("unknown persisted preset, falling back to flat",
			slog.String("preset", settings.EQPreset))
		_ = eq.ApplyPreset("flat")
	}

	return nil
}

// SetQueueAndPlay replaces the queue and starts playback at the track with
// startID, or at the first position when startID is absent.
func (s *PlayerService) SetQueueAndPlay(ctx context.Context, trackIDs []string, startID string) error {
	if len(trackIDs) == 0 {
		return domain.ErrQueueEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append([]string{}, trackIDs...)

	if s.shuffleEnabled {
		s.reshuffleLocked(startID)
		s.currentIndex = 0
	} else {
		s.order = s.queue
		s.currentIndex = indexOf(s.order, startID)
		if s.currentIndex < 0 {
			s.currentIndex = 0
		}
	}

	s.bus.Publish(domain.NewQueueChangedEvent(append([]string{}, s.queue...), s.currentIndex))

	if err := s.loadCurrentLocked(ctx); err != nil {
		return err
	}
	return s.playLocked()
}

// PlayTrack jumps to a queued track by id and plays it.
func (s *PlayerService) PlayTrack(ctx context.Context, trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.order, trackID)
	if idx < 0 {
		return domain.ErrTrackNotFound
	}

	s.currentIndex = idx
	if err := s.loadCurrentLocked(ctx); err != nil {
		return err
	}
	return s.playLocked()
}

// Play resumes (or starts) playback of the current track.
func (s *PlayerService) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTrack == nil {
		// A queue may be present with nothing loaded (after a stop)
		if len(s.order) == 0 {
			return domain.ErrNoTrackLoaded
		}
		if s.currentIndex < 0 {
			s.currentIndex = 0
		}
		if err := s.loadCurrentLocked(ctx); err != nil {
			return err
		}
	}

	return s.playLocked()
}

// Pause suspends playback, keeping the position.
func (s *PlayerService) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTrack == nil {
		return domain.ErrNoTrackLoaded
	}
	if err := s.graph.Pause(); err != nil {
		return err
	}

	s.bus.Publish(domain.NewTrackPausedEvent(*s.currentTrack, s.graph.Position()))
	return nil
}

// Stop unloads the current track. The queue is kept.
func (s *PlayerService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stopLocked()
}

// stopLocked stops playback without locking (caller must hold lock).
func (s *PlayerService) stopLocked() error {
	if s.currentTrack == nil {
		return nil
	}

	track := *s.currentTrack
	if err := s.graph.Stop(); err != nil {
		s.logger.Warn("graph stop failed", slog.Any("error", err))
	}
	s.releaseViewLocked()
	s.currentTrack = nil

	s.bus.Publish(domain.NewTrackStoppedEvent(track))
	return nil
}

// PlayNext advances to the next track in the active order, wrapping from the
// last position to the first. Explicit navigation always wraps; only natural
// completion honors the repeat mode. On an empty queue it is a no-op.
func (s *PlayerService) PlayNext(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return nil
	}

	s.currentIndex = (s.currentIndex + 1) % len(s.order)
	if err := s.loadCurrentLocked(ctx); err != nil {
		return err
	}
	return s.playLocked()
}

// PlayPrevious steps back in the active order, wrapping from the first
// position to the last. On an empty queue it is a no-op.
func (s *PlayerService) PlayPrevious(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return nil
	}

	if s.currentIndex < 0 {
		s.currentIndex = 0
	}
	s.currentIndex = (s.currentIndex - 1 + len(s.order)) % len(s.order)
	if err := s.loadCurrentLocked(ctx); err != nil {
		return err
	}
	return s.playLocked()
}

// ToggleShuffle switches between the canonical and a freshly shuffled order.
// The current track stays current: enabling shuffle anchors it at the front of
// the new order, disabling returns to its canonical position.
func (s *PlayerService) ToggleShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shuffleEnabled = !s.shuffleEnabled

	var anchor string
	if s.currentIndex >= 0 && s.currentIndex < len(s.order) {
		anchor = s.order[s.currentIndex]
	}

	if s.shuffleEnabled {
		s.reshuffleLocked(anchor)
		if anchor != "" {
			s.currentIndex = 0
		}
	} else {
		s.order = s.queue
		if anchor != "" {
			s.currentIndex = indexOf(s.order, anchor)
		}
	}

	s.bus.Publish(domain.NewShuffleToggledEvent(s.shuffleEnabled))
	s.bus.Publish(domain.NewQueueChangedEvent(append([]string{}, s.queue...), s.currentIndex))
	return s.shuffleEnabled
}

// reshuffleLocked builds a new random active order, optionally anchoring a
// track at the front. Caller must hold the write lock.
func (s *PlayerService) reshuffleLocked(anchor string) {
	order := append([]string{}, s.queue...)
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	if anchor != "" {
		if i := indexOf(order, anchor); i > 0 {
			order[0], order[i] = order[i], order[0]
		}
	}
	s.order = order
}

// CycleRepeat advances the repeat mode none -> all -> one -> none.
func (s *PlayerService) CycleRepeat() domain.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.repeatMode = s.repeatMode.Cycle()
	s.bus.Publish(domain.NewRepeatChangedEvent(s.repeatMode))
	return s.repeatMode
}

// RepeatMode returns the current repeat mode.
func (s *PlayerService) RepeatMode() domain.RepeatMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repeatMode
}

// ShuffleEnabled reports whether the shuffled order is active.
func (s *PlayerService) ShuffleEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shuffleEnabled
}

// Queue returns a copy of the canonical queue order.
func (s *PlayerService) Queue() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.queue...)
}

// Order returns a copy of the active (possibly shuffled) order.
func (s *PlayerService) Order() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.order...)
}

// SetVolume sets the playback volume (0.0 to 1.0) and persists it.
func (s *PlayerService) SetVolume(ctx context.Context, volume float64) error {
	if err := s.graph.SetVolume(volume); err != nil {
		return err
	}

	if err := s.library.UpdateSettings(ctx, func(st *domain.Settings) {
		st.Volume = volume
		if !st.IsMuted {
			st.LastVolume = volume
		}
	}); err != nil {
		return err
	}

	s.bus.Publish(domain.NewVolumeChangedEvent(volume))
	return nil
}

// Volume returns the current volume.
func (s *PlayerService) Volume() float64 {
	return s.graph.Volume()
}

// ToggleMute flips the mute state. Muting remembers the volume; unmuting
// restores it. Toggling twice is a no-op for the volume level.
func (s *PlayerService) ToggleMute(ctx context.Context) error {
	muted := !s.graph.Muted()
	s.graph.SetMuted(muted)

	if err := s.library.UpdateSettings(ctx, func(st *domain.Settings) {
		st.IsMuted = muted
		if muted {
			st.LastVolume = st.Volume
		} else {
			st.Volume = st.LastVolume
		}
	}); err != nil {
		return err
	}

	if !muted {
		// Restored level also drives the gain stage
		if err := s.graph.SetVolume(s.library.Settings().Volume); err != nil {
			return err
		}
	}

	s.bus.Publish(domain.NewMuteToggledEvent(muted))
	return nil
}

// IsMuted reports whether playback is muted.
func (s *PlayerService) IsMuted() bool {
	return s.graph.Muted()
}

// Seek repositions playback within the current track.
func (s *PlayerService) Seek(position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTrack == nil {
		return domain.ErrNoTrackLoaded
	}
	if err := s.graph.Seek(position); err != nil {
		return err
	}

	s.bus.Publish(domain.NewTrackProgressEvent(position, s.graph.Duration()))
	return nil
}

// SeekPercent repositions playback to a fraction (0.0 to 1.0) of the current
// track's duration.
func (s *PlayerService) SeekPercent(fraction float64) error {
	if fraction < 0 || fraction > 1 {
		return domain.NewValidationError("fraction", fraction, "must be between 0.0 and 1.0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTrack == nil {
		return domain.ErrNoTrackLoaded
	}
	position := time.Duration(fraction * float64(s.graph.Duration()))
	if err := s.graph.Seek(position); err != nil {
		return err
	}

	s.bus.Publish(domain.NewTrackProgressEvent(position, s.graph.Duration()))
	return nil
}

// ApplyEQPreset switches the equalizer to a named preset. The custom preset
// restores the persisted user gains.
func (s *PlayerService) ApplyEQPreset(ctx context.Context, name string) error {
	eq := s.graph.Equalizer()

	if name == audio.PresetCustom {
		eq.SetCustom(s.library.Settings().CustomEQ)
	} else if err := eq.ApplyPreset(name); err != nil {
		return err
	}

	if err := s.library.UpdateSettings(ctx, func(st *domain.Settings) {
		st.EQPreset = name
	}); err != nil {
		return err
	}

	s.bus.Publish(domain.NewEqualizerChangedEvent(name, eq.Gains()))
	return nil
}

// SetEQBand adjusts a single equalizer band. Any manual edit switches the
// preset to custom and persists the full gain set.
func (s *PlayerService) SetEQBand(ctx context.Context, band int, gainDB float64) error {
	eq := s.graph.Equalizer()
	if err := eq.SetBandGain(band, gainDB); err != nil {
		return err
	}

	gains := eq.Gains()
	if err := s.library.UpdateSettings(ctx, func(st *domain.Settings) {
		st.EQPreset = audio.PresetCustom
		st.CustomEQ = gains
	}); err != nil {
		return err
	}

	s.bus.Publish(domain.NewEqualizerChangedEvent(audio.PresetCustom, gains))
	return nil
}

// EQPreset returns the active equalizer preset name.
func (s *PlayerService) EQPreset() string {
	return s.graph.Equalizer().Preset()
}

// EQGains returns the active equalizer band gains in dB.
func (s *PlayerService) EQGains() [domain.EQBandCount]float64 {
	return s.graph.Equalizer().Gains()
}

// Spectrum returns the current spectrum snapshot, one byte per bin.
func (s *PlayerService) Spectrum() []byte {
	return s.graph.Analyzer().Snapshot()
}

// State returns a snapshot of the playback engine.
func (s *PlayerService) State() domain.PlaybackState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := domain.PlaybackState{
		CurrentIndex:   s.currentIndex,
		Queue:          append([]string{}, s.queue...),
		ShuffleEnabled: s.shuffleEnabled,
		Repeat:         s.repeatMode,
		IsPlaying:      s.graph.Status() == audio.StatusPlaying,
		Volume:         s.graph.Volume(),
		IsMuted:        s.graph.Muted(),
	}
	if s.currentTrack != nil {
		cp := *s.currentTrack
		state.CurrentTrack = &cp
		state.Position = s.graph.Position()
		state.Duration = s.graph.Duration()
	} else {
		state.CurrentIndex = -1
	}
	return state
}

// Shutdown stops the progress routine, unsubscribes and unloads the graph.
func (s *PlayerService) Shutdown() error {
	s.mu.Lock()
	if s.updateRunning {
		close(s.stopUpdate)
		s.updateRunning = false
	}
	s.mu.Unlock()

	s.updateWg.Wait()

	s.bus.Unsubscribe(s.removedSub)

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.stopLocked()
	return err
}

// loadCurrentLocked prepares the track at the current index for playback.
// Caller must hold the write lock.
func (s *PlayerService) loadCurrentLocked(ctx context.Context) error {
	if s.currentIndex < 0 || s.currentIndex >= len(s.order) {
		return domain.ErrQueueEmpty
	}
	trackID := s.order[s.currentIndex]

	track, err := s.library.GetTrack(trackID)
	if err != nil {
		return err
	}

	view, err := s.store.OpenView(ctx, track.AssetID)
	if err != nil {
		s.bus.Publish(domain.NewTrackErrorEvent(trackID, err))
		return err
	}

	asset := view.Asset()
	source, err := s.decoder.Open(ctx, asset.Content, asset.Kind)
	if err != nil {
		view.Release()
		s.bus.Publish(domain.NewTrackErrorEvent(trackID, err))
		return err
	}

	if err := s.graph.Load(source); err != nil {
		view.Release()
		s.bus.Publish(domain.NewTrackErrorEvent(trackID, err))
		return err
	}

	// The view stays open while the graph streams from the payload
	s.releaseViewLocked()
	s.currentView = view
	s.currentTrack = track

	if err := s.library.UpdateSettings(ctx, func(st *domain.Settings) {
		st.LastTrackID = trackID
	}); err != nil {
		s.logger.Warn("failed to persist last track", slog.Any("error", err))
	}

	s.bus.Publish(domain.NewTrackLoadedEvent(*track, s.graph.Duration(), s.currentIndex))
	return nil
}

// playLocked starts the graph. Caller must hold the write lock.
func (s *PlayerService) playLocked() error {
	if s.currentTrack == nil {
		return domain.ErrNoTrackLoaded
	}
	if err := s.graph.Play(); err != nil {
		return err
	}

	s.bus.Publish(domain.NewTrackStartedEvent(*s.currentTrack))
	return nil
}

// releaseViewLocked releases the asset view of the previous track, if any.
func (s *PlayerService) releaseViewLocked() {
	if s.currentView != nil {
		s.currentView.Release()
		s.currentView = nil
	}
}

// startUpdateRoutine starts a goroutine that publishes progress and watches
// for track completion.
func (s *PlayerService) startUpdateRoutine() {
	s.mu.Lock()
	if s.updateRunning {
		s.mu.Unlock()
		return
	}
	s.updateRunning = true
	s.updateWg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.updateWg.Done()
		ticker := time.NewTicker(s.updateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopUpdate:
				return

			case <-ticker.C:
				s.pollTransport()
			}
		}
	}()
}

// pollTransport publishes progress while playing and reacts to the graph
// reaching the end of a track or an error state.
func (s *PlayerService) pollTransport() {
	switch s.graph.Status() {
	case audio.StatusPlaying:
		s.bus.Publish(domain.NewTrackProgressEvent(s.graph.Position(), s.graph.Duration()))

	case audio.StatusEnded:
		s.handleTrackCompleted()

	case audio.StatusError:
		s.handleTrackError()
	}
}

// handleTrackCompleted advances playback after a natural end of track.
func (s *PlayerService) handleTrackCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTrack == nil {
		return
	}
	track := *s.currentTrack

	s.bus.Publish(domain.NewTrackCompletedEvent(track))

	ctx := context.Background()
	switch {
	case s.repeatMode == domain.RepeatOne:
		// Restart the same track without a reload
		if err := s.graph.Seek(0); err != nil {
			s.logger.Warn("failed to rewind track", slog.Any("error", err))
		} else if err := s.playLocked(); err != nil {
			s.logger.Warn("failed to restart track", slog.Any("error", err))
		}

	case s.currentIndex < len(s.order)-1:
		s.currentIndex++
		s.advanceLocked(ctx)

	case s.repeatMode == domain.RepeatAll && len(s.order) > 0:
		s.currentIndex = 0
		s.advanceLocked(ctx)

	default:
		// End of queue with repeat off
		if err := s.stopLocked(); err != nil {
			s.logger.Warn("failed to stop at end of queue", slog.Any("error", err))
		}
	}
}

// advanceLocked loads and plays the track at the current index, logging
// instead of failing: the poll routine has no caller to return an error to.
func (s *PlayerService) advanceLocked(ctx context.Context) {
	if err := s.loadCurrentLocked(ctx); err != nil {
		s.logger.Warn("failed to load next track", slog.Any("error", err))
		return
	}
	if err := s.playLocked(); err != nil {
		s.logger.Warn("failed to play next track", slog.Any("error", err))
	}
}

// handleTrackError surfaces a pump failure and unloads the graph.
func (s *PlayerService) handleTrackError() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTrack == nil {
		return
	}

	err := s.graph.Err()
	s.logger.Error("playback failed", slog.String("track_id", s.currentTrack.ID), slog.Any("error", err))
	s.bus.Publish(domain.NewTrackErrorEvent(s.currentTrack.ID, err))

	if stopErr := s.stopLocked(); stopErr != nil {
		s.logger.Warn("failed to stop after playback error", slog.Any("error", stopErr))
	}
}

// RemoveFromQueue drops a track from the queue without touching the library.
// Removing the playing track stops playback.
func (s *PlayerService) RemoveFromQueue(trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dropFromQueueLocked(trackID) {
		return domain.ErrTrackNotFound
	}
	return nil
}

// handleTrackRemoved repairs the queue when the library deletes a track.
// Runs synchronously within the deletion cascade.
func (s *PlayerService) handleTrackRemoved(event domain.Event) {
	removed, ok := event.(domain.TrackRemovedEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropFromQueueLocked(removed.TrackID)
}

// dropFromQueueLocked removes a track id from both orders and repairs the
// current index. Caller must hold the write lock. Reports whether the id was
// queued.
func (s *PlayerService) dropFromQueueLocked(trackID string) bool {
	qIdx := indexOf(s.queue, trackID)
	if qIdx < 0 {
		return false
	}
	s.queue = removeAt(s.queue, qIdx)

	wasCurrent := s.currentTrack != nil && s.currentTrack.ID == trackID

	oIdx := indexOf(s.order, trackID)
	if oIdx >= 0 {
		s.order = removeAt(s.order, oIdx)
		if oIdx < s.currentIndex {
			s.currentIndex--
		} else if oIdx == s.currentIndex && !wasCurrent {
			// Index happened to point at the removed entry with nothing loaded
			s.currentIndex = -1
		}
	}

	if wasCurrent {
		if err := s.stopLocked(); err != nil {
			s.logger.Warn("failed to stop removed track", slog.Any("error", err))
		}
		if s.currentIndex >= len(s.order) {
			s.currentIndex = len(s.order) - 1
		}
	}
	if len(s.order) == 0 {
		s.currentIndex = -1
	}

	s.bus.Publish(domain.NewQueueChangedEvent(append([]string{}, s.queue...), s.currentIndex))
	return true
}

// Verify that PlayerService implements the expected interface patterns
var _ interface {
	SetQueueAndPlay(context.Context, []string, string) error
	PlayTrack(context.Context, string) error
	Play(context.Context) error
	Pause() error
	Stop() error
	PlayNext(context.Context) error
	PlayPrevious(context.Context) error
	ToggleShuffle() bool
	CycleRepeat() domain.RepeatMode
	SetVolume(context.Context, float64) error
	ToggleMute(context.Context) error
	Seek(time.Duration) error
	SeekPercent(float64) error
	RemoveFromQueue(string) error
	ApplyEQPreset(context.Context, string) error
	SetEQBand(context.Context, int, float64) error
	Spectrum() []byte
	State() domain.PlaybackState
	Shutdown() error
} = (*PlayerService)(nil)
