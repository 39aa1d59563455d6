package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"tradegame/internal/game"
)

// errorStatus maps game errors onto HTTP status codes for the view.
func errorStatus(err error) int {
	var (
		invalidBet *game.InvalidBetError
		placement  *game.BetPlacementError
		feedErr    *game.FeedConnectionError
		race       *game.CashoutRaceError
	)

	switch {
	case errors.As(err, &invalidBet):
		return fiber.StatusBadRequest
	case errors.As(err, &placement):
		return fiber.StatusBadGateway
	case errors.As(err, &feedErr):
		return fiber.StatusAccepted
	case errors.As(err, &race):
		return fiber.StatusConflict
	case errors.Is(err, game.ErrAlreadyCashedOut), errors.Is(err, game.ErrCashoutPending):
		return fiber.StatusConflict
	case errors.Is(err, game.ErrUnknownSlot), errors.Is(err, game.ErrSlotNotStaked), errors.Is(err, game.ErrNoActiveRound):
		return fiber.StatusBadRequest
	case errors.Is(err, game.ErrSessionClosed):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func errorJSON(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
