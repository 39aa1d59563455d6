package server

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"tradegame/internal/game"
)

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"game": fiber.Map{
			"status":          s.session.State().Status,
			"connected_views": s.hub.GetClientCount(),
		},
	}
	if s.cache != nil {
		health["cache"] = s.cache.Health()
	}
	return c.JSON(health)
}

func (s *FiberServer) getGameStateHandler(c *fiber.Ctx) error {
	return c.JSON(s.session.State())
}

func (s *FiberServer) getHistoryHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"history": s.session.History(),
	})
}

func (s *FiberServer) placeBetHandler(c *fiber.Ctx) error {
	var req game.BetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	state, err := s.session.PlaceBet(c.UserContext(), req.Bet1, req.Bet2)
	if err != nil {
		var feedErr *game.FeedConnectionError
		if errors.As(err, &feedErr) {
			// The bet is placed; only the live feed is missing.
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"state": state,
				"error": err.Error(),
			})
		}
		return errorJSON(c, err)
	}

	return c.JSON(state)
}

func (s *FiberServer) cashoutHandler(c *fiber.Ctx) error {
	slot := game.SlotKey(c.Params("slot"))

	resp, err := s.cashier.Cashout(c.UserContext(), slot)
	if err != nil {
		var race *game.CashoutRaceError
		if errors.As(err, &race) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": race.Message,
			})
		}
		return errorJSON(c, err)
	}

	return c.JSON(resp)
}

func (s *FiberServer) getBalanceHandler(c *fiber.Ctx) error {
	app := s.session.App()
	if c.QueryBool("refresh") {
		if _, err := app.RefreshBalance(c.UserContext()); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	return c.JSON(fiber.Map{
		"user_id": app.UserID(),
		"points":  app.Balance(),
	})
}

// viewMessage is what a view may send over /ws.
type viewMessage struct {
	Type     string        `json:"type"`
	Geometry game.Geometry `json:"geometry"`
}

func (s *FiberServer) viewWebSocketHandler(conn *websocket.Conn) {
	client := s.hub.RegisterClient(conn)
	defer s.hub.UnregisterClient(client)

	client.Send(game.WSMessage{
		Type: "initial_state",
		Data: fiber.Map{
			"state":    s.session.State(),
			"history":  s.session.History(),
			"balance":  s.session.App().Balance(),
			"geometry": s.viewport.Geometry(),
		},
	})

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for view %s: %v", client.ID(), err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg viewMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "resize":
			if !s.viewport.Resize(msg.Geometry) {
				log.Printf("[WS] Ignored invalid geometry from view %s: %+v", client.ID(), msg.Geometry)
			}
		case "ping":
			client.Send(game.WSMessage{Type: "pong"})
		}
	}
}
