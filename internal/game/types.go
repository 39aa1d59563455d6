package game

import (
	"time"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLive    Status = "live"
	StatusCrashed Status = "crashed"
)

type SlotKey string

const (
	SlotBet1 SlotKey = "bet1"
	SlotBet2 SlotKey = "bet2"
)

// Slots lists the bet slots in display order.
var Slots = []SlotKey{SlotBet1, SlotBet2}

func (k SlotKey) Valid() bool {
	return k == SlotBet1 || k == SlotBet2
}

type BetRequest struct {
	Bet1 float64 `json:"bet1"`
	Bet2 float64 `json:"bet2"`
}

type BetResponse struct {
	RoundID       string  `json:"roundId"`
	LogoToken     string  `json:"logoToken"`
	MaxMultiplier float64 `json:"maxMultiplier,omitempty"`
}

type CashoutRequest struct {
	RoundID            string  `json:"roundId"`
	SlotKey            SlotKey `json:"slotKey"`
	ObservedMultiplier float64 `json:"observedMultiplier"`
}

type CashoutResponse struct {
	Gain float64 `json:"gain"`
}

type BalanceResponse struct {
	Points float64 `json:"points"`
}

type BetSlot struct {
	Amount    float64 `json:"amount"`
	CashedOut bool    `json:"cashed_out"`
	Gain      float64 `json:"gain,omitempty"`
}

// RoundState is a copy of the client's view of the current round.
type RoundState struct {
	RoundID           string    `json:"round_id,omitempty"`
	LogoToken         string    `json:"logo_token,omitempty"`
	CurrentMultiplier float64   `json:"current_multiplier"`
	MaxMultiplier     float64   `json:"max_multiplier"`
	Status            Status    `json:"status"`
	Interrupted       bool      `json:"interrupted,omitempty"`
	StartTime         time.Time `json:"start_time,omitempty"`
	CrashTime         time.Time `json:"crash_time,omitempty"`
	Bet1              BetSlot   `json:"bet1"`
	Bet2              BetSlot   `json:"bet2"`
}

// Slot returns the slot state for key; unknown keys yield the zero slot.
func (r RoundState) Slot(key SlotKey) BetSlot {
	switch key {
	case SlotBet1:
		return r.Bet1
	case SlotBet2:
		return r.Bet2
	}
	return BetSlot{}
}

type FrameSource string

const (
	FrameSourceTick  FrameSource = "tick"
	FrameSourceGlide FrameSource = "glide"
	FrameSourceCrash FrameSource = "crash"
)

// Frame is one marker placement pushed to the view.
type Frame struct {
	RoundID    string      `json:"round_id"`
	Multiplier float64     `json:"multiplier"`
	Progress   float64     `json:"progress"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Angle      float64     `json:"angle"`
	Source     FrameSource `json:"source"`
}

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	Slot    SlotKey     `json:"slot,omitempty"`
	Gain    float64     `json:"gain,omitempty"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
