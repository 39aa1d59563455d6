package game

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestParseFeedMessage(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		want      FeedMessage
		malformed bool
	}{
		{"tick", `{"multiplier": 2.35}`, FeedMessage{Kind: FeedTick, Multiplier: 2.35}, false},
		{"crash with final", `{"event": "crash", "final_multiplier": 3.12}`, FeedMessage{Kind: FeedCrash, Multiplier: 3.12, HasFinal: true}, false},
		{"crash prefers final", `{"event": "crash", "final_multiplier": 3.12, "multiplier": 3.0}`, FeedMessage{Kind: FeedCrash, Multiplier: 3.12, HasFinal: true}, false},
		{"crash with multiplier only", `{"event": "crash", "multiplier": 4.5}`, FeedMessage{Kind: FeedCrash, Multiplier: 4.5, HasFinal: true}, false},
		{"crash without value", `{"event": "crash"}`, FeedMessage{Kind: FeedCrash}, false},
		{"crash with null final", `{"event": "crash", "final_multiplier": null}`, FeedMessage{Kind: FeedCrash}, false},
		{"not json", `garbage`, FeedMessage{}, true},
		{"empty object", `{}`, FeedMessage{}, true},
		{"string multiplier", `{"multiplier": "2.0"}`, FeedMessage{}, true},
		{"zero multiplier", `{"multiplier": 0}`, FeedMessage{}, true},
		{"unknown event", `{"event": "pause", "multiplier": 2}`, FeedMessage{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFeedMessage([]byte(tt.payload))
			if tt.malformed {
				var malformed *MalformedMessageError
				if !errors.As(err, &malformed) {
					t.Fatalf("ParseFeedMessage() error = %v, want *MalformedMessageError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFeedMessage() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFeedMessage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFeedURL(t *testing.T) {
	tests := []struct {
		base, round, want string
	}{
		{"ws://host/ws/tradegame", "R1", "ws://host/ws/tradegame/R1"},
		{"ws://host/ws/tradegame/", "R1", "ws://host/ws/tradegame/R1"},
		{"wss://host/feed", "a b/c", "wss://host/feed/a%20b%2Fc"},
	}
	for _, tt := range tests {
		if got := FeedURL(tt.base, tt.round); got != tt.want {
			t.Errorf("FeedURL(%q, %q) = %q, want %q", tt.base, tt.round, got, tt.want)
		}
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	ticks   []float64
	crashes []float64
	errs    []error
}

func (h *recordingHandler) OnTick(m float64) {
	h.mu.Lock()
	h.ticks = append(h.ticks, m)
	h.mu.Unlock()
}

func (h *recordingHandler) OnCrash(final float64, hasFinal bool) {
	h.mu.Lock()
	h.crashes = append(h.crashes, final)
	h.mu.Unlock()
}

func (h *recordingHandler) OnError(err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
}

func (h *recordingHandler) snapshot() (ticks, crashes []float64, errs []error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.ticks...), append([]float64(nil), h.crashes...), append([]error(nil), h.errs...)
}

func TestFeed_CrashClosesConnection(t *testing.T) {
	dialer := &fakeDialer{}
	handler := &recordingHandler{}

	feed, err := OpenFeed(context.Background(), dialer, testFeedBase, "R9", handler)
	if err != nil {
		t.Fatalf("OpenFeed() error = %v", err)
	}
	conn := dialer.last()

	conn.send(`{"multiplier": 1.2}`)
	conn.send(`{oops`)
	conn.send(`{"multiplier": 1.4}`)
	conn.send(`{"event": "crash", "final_multiplier": 1.5}`)

	<-feed.Done()

	ticks, crashes, errs := handler.snapshot()
	if len(ticks) != 2 || ticks[0] != 1.2 || ticks[1] != 1.4 {
		t.Errorf("ticks = %v, want [1.2 1.4]", ticks)
	}
	if len(crashes) != 1 || crashes[0] != 1.5 {
		t.Errorf("crashes = %v, want [1.5]", crashes)
	}
	if len(errs) != 0 {
		t.Errorf("errors = %v, want none", errs)
	}
	if !conn.isClosed() {
		t.Error("connection left open after crash")
	}

	feed.Close()
}

func TestFeed_CloseIsSilent(t *testing.T) {
	dialer := &fakeDialer{}
	handler := &recordingHandler{}

	feed, err := OpenFeed(context.Background(), dialer, testFeedBase, "R1", handler)
	if err != nil {
		t.Fatalf("OpenFeed() error = %v", err)
	}
	feed.Close()

	if _, _, errs := handler.snapshot(); len(errs) != 0 {
		t.Errorf("errors after Close() = %v, want none", errs)
	}
	if !dialer.last().isClosed() {
		t.Error("Close() did not close the connection")
	}
}

func TestFeed_UnexpectedCloseReportsError(t *testing.T) {
	dialer := &fakeDialer{}
	handler := &recordingHandler{}

	feed, err := OpenFeed(context.Background(), dialer, testFeedBase, "R3", handler)
	if err != nil {
		t.Fatalf("OpenFeed() error = %v", err)
	}
	dialer.last().drop()
	<-feed.Done()

	_, _, errs := handler.snapshot()
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want one", errs)
	}
	var feedErr *FeedConnectionError
	if !errors.As(errs[0], &feedErr) || feedErr.RoundID != "R3" {
		t.Errorf("error = %v, want *FeedConnectionError for R3", errs[0])
	}
}

func TestOpenFeed_DialError(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("handshake failed")}

	_, err := OpenFeed(context.Background(), dialer, testFeedBase, "R1", &recordingHandler{})

	var feedErr *FeedConnectionError
	if !errors.As(err, &feedErr) {
		t.Fatalf("OpenFeed() error = %v, want *FeedConnectionError", err)
	}
}
