package game

import (
	"encoding/json"
	"math"
)

const crashEvent = "crash"

type FeedMessageKind int

const (
	FeedTick FeedMessageKind = iota + 1
	FeedCrash
)

// FeedMessage is a decoded live feed payload. For a crash without any
// multiplier HasFinal is false and the last tick value stands.
type FeedMessage struct {
	Kind       FeedMessageKind
	Multiplier float64
	HasFinal   bool
}

type rawFeedMessage struct {
	Event           string   `json:"event,omitempty"`
	Multiplier      *float64 `json:"multiplier,omitempty"`
	FinalMultiplier *float64 `json:"final_multiplier,omitempty"`
}

func ParseFeedMessage(data []byte) (FeedMessage, error) {
	var raw rawFeedMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return FeedMessage{}, &MalformedMessageError{Payload: data, Reason: err.Error()}
	}

	switch raw.Event {
	case crashEvent:
		msg := FeedMessage{Kind: FeedCrash}
		switch {
		case validMultiplier(raw.FinalMultiplier):
			msg.Multiplier, msg.HasFinal = *raw.FinalMultiplier, true
		case validMultiplier(raw.Multiplier):
			msg.Multiplier, msg.HasFinal = *raw.Multiplier, true
		}
		return msg, nil
	case "":
		if !validMultiplier(raw.Multiplier) {
			return FeedMessage{}, &MalformedMessageError{Payload: data, Reason: "missing multiplier"}
		}
		return FeedMessage{Kind: FeedTick, Multiplier: *raw.Multiplier}, nil
	default:
		return FeedMessage{}, &MalformedMessageError{Payload: data, Reason: "unknown event " + raw.Event}
	}
}

func validMultiplier(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) && *v > 0
}
