package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tradegame/internal/api"
	"tradegame/internal/cache"
	"tradegame/internal/config"
	"tradegame/internal/game"
	"tradegame/internal/server"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := api.NewClient(cfg.APIBaseURL, cfg.AuthToken, cfg.RequestTimeout)

	var (
		cacheService cache.Service
		mirror       game.HistoryMirror
	)
	if cfg.RedisURL != "" {
		cacheService = cache.New(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
		if cacheService != nil {
			mirror = cache.NewHistoryStore(cacheService.GetClient(), cfg.HistoryKey, game.HISTORY_SIZE)
		}
	}

	history := game.NewHistory(mirror)
	seedCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := history.Seed(seedCtx); err != nil {
		log.Printf("[MAIN] Could not load history: %v", err)
	}
	cancel()

	hub := game.NewHub()
	viewport := game.NewViewport(game.Geometry{
		Width:        cfg.ViewWidth,
		Height:       cfg.ViewHeight,
		MarkerWidth:  cfg.MarkerWidth,
		MarkerHeight: cfg.MarkerHeight,
	})

	session := game.NewSession(game.Deps{
		Backend:  backend,
		Dialer:   game.NewWebsocketDialer(cfg.AuthToken),
		App:      game.NewAppState(cfg.UserID, backend),
		History:  history,
		View:     hub,
		Geometry: viewport,
	}, game.Options{
		FeedBaseURL:           cfg.FeedBaseURL,
		MaxMultiplierFallback: cfg.MaxMultiplierFallback,
		FrameInterval:         cfg.FrameInterval,
		GlideDuration:         cfg.GlideDuration,
		ExitDelay:             cfg.ExitDelay,
	})

	srv := server.New(session, hub, viewport, cacheService)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Printf("[MAIN] Listening on :%d", cfg.Port)
		if err := srv.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("[MAIN] %v", err)
	}
	log.Println("[MAIN] Graceful shutdown complete")
}
