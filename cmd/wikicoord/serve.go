package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/paulmach/orb"

	"wikicoord/core-go/internal/config"
	"wikicoord/core-go/internal/db"
	"wikicoord/core-go/internal/detail"
	"wikicoord/core-go/internal/httpapi"
	"wikicoord/core-go/internal/markers"
	"wikicoord/core-go/internal/metrics"
	"wikicoord/core-go/internal/prefs"
	"wikicoord/core-go/internal/render"
	"wikicoord/core-go/internal/scheduler"
	"wikicoord/core-go/internal/sparql"
	"wikicoord/core-go/internal/status"
	"wikicoord/core-go/internal/viewport"
	"wikicoord/core-go/internal/wikibase"
)

func serve(ctx context.Context, cfg config.Config) error {
	logger := httpapi.NewLogger(cfg.LogLevel)
	m := metrics.New()

	fallback := prefs.Settings{ZoomThreshold: cfg.ZoomThreshold, LabelZoomThreshold: cfg.LabelZoomThreshold}

	var (
		pool   *db.Pool
		pinger httpapi.Pinger
		store  prefs.Store
	)
	if cfg.DatabaseURL != "" {
		p, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		if err := p.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare database schema")
		}
		pool, pinger = p, p
		store = prefs.NewPostgres(pool.Queries(), prefs.DefaultSession, fallback)
	} else {
		store = prefs.NewMemory(fallback)
	}

	settings, err := store.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("load preferences failed; using configured defaults")
		settings = fallback.Normalized()
	}

	tracker := viewport.NewTracker(viewport.State{
		Center: orb.Point{cfg.InitialLon, cfg.InitialLat},
		Zoom:   cfg.InitialZoom,
	})
	markerStore := markers.NewStore()
	visibility := markers.NewVisibility(markerStore, settings.LabelZoomThreshold)
	layer := render.NewLayer(cfg.EntityPageBase)
	reconciler := markers.NewReconciler(markerStore, layer, visibility)
	board := status.NewBoard()

	sparqlClient := sparql.NewClient(sparql.Options{
		Endpoint:  cfg.SPARQLEndpoint,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
	})
	sched := scheduler.New(logger, tracker, sparqlClient, reconciler, board, scheduler.Options{
		Debounce:      cfg.Debounce,
		ZoomThreshold: settings.ZoomThreshold,
		Limit:         cfg.ResultLimit,
		Paused:        settings.Paused,
	}, m)

	visibility.Refresh(cfg.InitialZoom)
	tracker.Subscribe(func(prev, next viewport.State) {
		if prev.Zoom != next.Zoom {
			visibility.Refresh(next.Zoom)
		}
		sched.Schedule()
	})

	entityClient := wikibase.NewClient(wikibase.Options{
		Endpoint:  cfg.EntityAPIEndpoint,
		Language:  cfg.Language,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
	})
	resolver := detail.NewResolver(logger, entityClient, detail.Options{
		Language:  cfg.Language,
		ChunkSize: cfg.LabelChunkSize,
		PageBase:  cfg.EntityPageBase,
	}, m)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()
	// Initial view gets one update without waiting for a move.
	sched.Schedule()

	h := httpapi.NewHandler(logger, httpapi.Deps{
		Viewport:   tracker,
		Fetch:      sched,
		Visibility: visibility,
		Markers:    layer,
		Details:    resolver,
		Status:     board,
		Prefs:      store,
		DB:         pinger,
		Metrics:    m,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("wikicoord listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	<-done
	logger.Info().Msg("shutdown complete")
	return nil
}
