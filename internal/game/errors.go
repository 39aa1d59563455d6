package game

import (
	"errors"
	"fmt"
)

var (
	ErrNoActiveRound    = errors.New("no active round")
	ErrUnknownSlot      = errors.New("unknown bet slot")
	ErrSlotNotStaked    = errors.New("no stake on this slot")
	ErrAlreadyCashedOut = errors.New("already cashed out")
	ErrCashoutPending   = errors.New("cashout already in progress")
	ErrSessionClosed    = errors.New("session closed")
)

// InvalidBetError rejects a placement before any request is sent.
type InvalidBetError struct {
	Bet1 float64
	Bet2 float64
}

func (e *InvalidBetError) Error() string {
	return fmt.Sprintf("invalid bet (%v, %v): at least one stake must be positive and none negative", e.Bet1, e.Bet2)
}

type BetPlacementError struct {
	Err error
}

func (e *BetPlacementError) Error() string {
	return fmt.Sprintf("bet placement failed: %v", e.Err)
}

func (e *BetPlacementError) Unwrap() error { return e.Err }

// FeedConnectionError means no further ticks will arrive for the round.
type FeedConnectionError struct {
	RoundID string
	Err     error
}

func (e *FeedConnectionError) Error() string {
	return fmt.Sprintf("live feed for round %s lost: %v", e.RoundID, e.Err)
}

func (e *FeedConnectionError) Unwrap() error { return e.Err }

type CashoutRaceError struct {
	Slot    SlotKey
	Message string
	Err     error
}

func (e *CashoutRaceError) Error() string {
	return fmt.Sprintf("cashout %s rejected: %s", e.Slot, e.Message)
}

func (e *CashoutRaceError) Unwrap() error { return e.Err }

type MalformedMessageError struct {
	Payload []byte
	Reason  string
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed feed message (%s): %q", e.Reason, truncate(e.Payload, 64))
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
