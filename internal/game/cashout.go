package game

import (
	"context"
	"fmt"
	"log"
)

// CashoutCoordinator locks in winnings for one bet slot of the current round.
// The backend decides whether the request beat the crash; a rejection is an
// expected outcome and is never retried.
type CashoutCoordinator struct {
	session *Session
}

func NewCashoutCoordinator(session *Session) *CashoutCoordinator {
	return &CashoutCoordinator{session: session}
}

func (c *CashoutCoordinator) Cashout(ctx context.Context, slot SlotKey) (CashoutResponse, error) {
	s := c.session

	req, gen, err := s.beginCashout(slot)
	if err != nil {
		return CashoutResponse{}, err
	}

	resp, err := s.backend.Cashout(ctx, req)
	if err != nil {
		s.endCashout(gen, slot, nil)

		raceErr := &CashoutRaceError{Slot: slot, Message: err.Error(), Err: err}
		log.Printf("[CASHOUT] %s on round %s at %.2fx rejected: %v", slot, req.RoundID, req.ObservedMultiplier, err)
		s.view.PublishNotice(Notice{Level: NoticeError, Message: raceErr.Message, Slot: slot})
		return CashoutResponse{}, raceErr
	}

	if !s.endCashout(gen, slot, &resp) {
		log.Printf("[CASHOUT] %s on round %s settled after the round was replaced", slot, req.RoundID)
	}

	log.Printf("[CASHOUT] %s on round %s at %.2fx (gain %.2f)", slot, req.RoundID, req.ObservedMultiplier, resp.Gain)
	s.view.PublishNotice(Notice{
		Level:   NoticeSuccess,
		Message: fmt.Sprintf("Cashed out at %.2fx: +%.2f", req.ObservedMultiplier, resp.Gain),
		Slot:    slot,
		Gain:    resp.Gain,
	})

	s.refreshBalance(ctx)
	return resp, nil
}
