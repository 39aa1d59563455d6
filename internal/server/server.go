package server

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"tradegame/internal/cache"
	"tradegame/internal/game"
)

// FiberServer is the local bridge the mini-app view talks to.
type FiberServer struct {
	*fiber.App

	cache    cache.Service
	session  *game.Session
	cashier  *game.CashoutCoordinator
	hub      *game.Hub
	viewport *game.Viewport
}

// New wires the bridge around an existing session. cache may be nil.
func New(session *game.Session, hub *game.Hub, viewport *game.Viewport, cacheService cache.Service) *FiberServer {
	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "tradegame",
			AppName:       "tradegame",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		cache:    cacheService,
		session:  session,
		cashier:  game.NewCashoutCoordinator(session),
		hub:      hub,
		viewport: viewport,
	}

	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
	}))

	server.RegisterFiberRoutes()
	server.RegisterGameRoutes()

	return server
}

// Shutdown stops the HTTP listener and tears down the live round.
func (s *FiberServer) Shutdown() error {
	log.Println("[SERVER] Shutting down...")

	err := s.App.Shutdown()
	s.session.Close()

	if s.cache != nil {
		if cerr := s.cache.Close(); cerr != nil {
			log.Printf("[SERVER] Error closing cache: %v", cerr)
		}
	}
	return err
}
