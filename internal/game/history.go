package game

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"
)

const (
	HISTORY_SIZE         = 6
	HISTORY_SYNC_TIMEOUT = 2 * time.Second
	HISTORY_SYNC_BUFFER  = 32
)

// HistoryMirror keeps a copy of the history outside the process.
type HistoryMirror interface {
	Push(ctx context.Context, entry string) error
	Load(ctx context.Context) ([]string, error)
}

// History holds the final multipliers of past rounds, most recent first.
type History struct {
	mu      sync.RWMutex
	entries []string
	mirror  HistoryMirror
	pushes  chan string
}

// NewHistory starts a single mirror writer when mirror is set, so the
// mirror receives entries in push order.
func NewHistory(mirror HistoryMirror) *History {
	h := &History{
		entries: make([]string, 0, HISTORY_SIZE),
		mirror:  mirror,
	}
	if mirror != nil {
		h.pushes = make(chan string, HISTORY_SYNC_BUFFER)
		go h.syncLoop()
	}
	return h
}

// Seed replaces the in-memory entries with the mirror's copy.
func (h *History) Seed(ctx context.Context) error {
	if h.mirror == nil {
		return nil
	}
	entries, err := h.mirror.Load(ctx)
	if err != nil {
		return err
	}
	if len(entries) > HISTORY_SIZE {
		entries = entries[:HISTORY_SIZE]
	}

	h.mu.Lock()
	h.entries = append(h.entries[:0], entries...)
	h.mu.Unlock()
	return nil
}

func (h *History) Push(multiplier float64) string {
	entry := FormatMultiplier(multiplier)

	h.mu.Lock()
	h.entries = append([]string{entry}, h.entries...)
	if len(h.entries) > HISTORY_SIZE {
		h.entries = h.entries[:HISTORY_SIZE]
	}
	h.mu.Unlock()

	if h.pushes != nil {
		select {
		case h.pushes <- entry:
		default:
			log.Printf("[HISTORY] Mirror backlog full, skipped %s", entry)
		}
	}
	return entry
}

func (h *History) syncLoop() {
	for entry := range h.pushes {
		ctx, cancel := context.WithTimeout(context.Background(), HISTORY_SYNC_TIMEOUT)
		if err := h.mirror.Push(ctx, entry); err != nil {
			log.Printf("[HISTORY] Mirror push failed: %v", err)
		}
		cancel()
	}
}

func (h *History) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

func FormatMultiplier(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
