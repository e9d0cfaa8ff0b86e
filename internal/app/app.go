// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadenzaplayer/cadenza/internal/adapter/eventbus"
	"github.com/cadenzaplayer/cadenza/internal/adapter/media/mock"
	"github.com/cadenzaplayer/cadenza/internal/adapter/storage/sqlite"
	"github.com/cadenzaplayer/cadenza/internal/audio"
	"github.com/cadenzaplayer/cadenza/internal/config"
	"github.com/cadenzaplayer/cadenza/internal/logger"
	"github.com/cadenzaplayer/cadenza/internal/ports"
	"github.com/cadenzaplayer/cadenza/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for main.go
type Application struct {
	// Core dependencies
	logger *slog.Logger
	config *config.Config

	// Infrastructure
	eventBus ports.EventBus
	store    ports.Store
	graph    *audio.Graph

	// Services
	libraryService *service.LibraryService
	importService  *service.ImportService
	playerService  *service.PlayerService
}

// Options overrides pieces of the default wiring, primarily for tests.
type Options struct {
	// Decoder replaces the media decoder. Defaults to the mock backend;
	// platform backends plug in here.
	Decoder ports.Decoder

	// Output replaces the playback sink. Defaults to the mock backend.
	Output ports.Output
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(cfg *config.Config, opts Options) (*Application, error) {
	app := &Application{config: cfg}

	// Step 1: Create logger
	app.logger = logger.NewLogger(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	app.logger.Info("initializing application",
		slog.String("data_dir", cfg.Storage.DataDir))

	// Step 2: Create an event bus
	syncBus := eventbus.NewSyncEventBus()
	syncBus.SetLogger(app.logger.With(slog.String("component", "eventbus")))
	app.eventBus = syncBus

	// Step 3: Open the store
	store, err := sqlite.Open(cfg.DatabasePath(), app.logger.With(slog.String("component", "store")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.store = store

	// Step 4: Create the media backend
	decoder := opts.Decoder
	if decoder == nil {
		decoder = mock.NewDecoder()
	}
	output := opts.Output
	if output == nil {
		out := mock.NewOutput()
		out.SetRealtime(true)
		output = out
	}

	// Step 5: Create the signal chain
	app.graph = audio.NewGraph(output, cfg.Audio.AnalyzerBins,
		app.logger.With(slog.String("component", "graph")))

	// Step 6: Create services
	app.libraryService = service.NewLibraryService(
		app.logger.With(slog.String("component", "library")),
		app.store,
		app.eventBus,
	)
	app.importService = service.NewImportService(
		app.logger.With(slog.String("component", "import")),
		app.libraryService,
		app.store,
		decoder,
		app.eventBus,
	)
	app.playerService = service.NewPlayerService(
		app.logger.With(slog.String("component", "player")),
		app.graph,
		app.libraryService,
		app.store,
		decoder,
		app.eventBus,
		time.Duration(cfg.Audio.UpdateIntervalMS)*time.Millisecond,
	)

	return app, nil
}

// Start loads the library and applies persisted playback settings.
func (a *Application) Start(ctx context.Context) error {
	if err := a.libraryService.Load(ctx); err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	if err := a.playerService.Restore(); err != nil {
		return fmt.Errorf("restore playback settings: %w", err)
	}

	a.logger.Info("application started")
	return nil
}

// Run starts the application and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return a.Shutdown()
}

// Shutdown tears down services and infrastructure in reverse wiring order.
func (a *Application) Shutdown() error {
	a.logger.Info("shutting down")

	var firstErr error
	if err := a.playerService.Shutdown(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.graph.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.eventBus.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// EventBus returns the application event bus.
func (a *Application) EventBus() ports.EventBus { return a.eventBus }

// Library returns the library service.
func (a *Application) Library() *service.LibraryService { return a.libraryService }

// Importer returns the import service.
func (a *Application) Importer() *service.ImportService { return a.importService }

// Player returns the player service.
func (a *Application) Player() *service.PlayerService { return a.playerService }
