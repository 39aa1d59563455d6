package game

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const FEED_HANDSHAKE_TIMEOUT = 10 * time.Second

// Conn is the read side of a live feed connection.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

// FeedHandler receives decoded feed events from the read loop.
type FeedHandler interface {
	OnTick(multiplier float64)
	OnCrash(final float64, hasFinal bool)
	OnError(err error)
}

// WebsocketDialer opens feeds over gorilla/websocket.
type WebsocketDialer struct {
	dialer *websocket.Dialer
	header http.Header
}

func NewWebsocketDialer(token string) *WebsocketDialer {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return &WebsocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: FEED_HANDSHAKE_TIMEOUT,
		},
		header: header,
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, rawURL, d.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// FeedURL derives the channel address for a round.
func FeedURL(base, roundID string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(roundID)
}

// Feed owns one live connection and its read loop.
type Feed struct {
	roundID   string
	conn      Conn
	handler   FeedHandler
	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func OpenFeed(ctx context.Context, dialer Dialer, baseURL, roundID string, handler FeedHandler) (*Feed, error) {
	conn, err := dialer.Dial(ctx, FeedURL(baseURL, roundID))
	if err != nil {
		return nil, &FeedConnectionError{RoundID: roundID, Err: err}
	}

	f := &Feed{
		roundID: roundID,
		conn:    conn,
		handler: handler,
		done:    make(chan struct{}),
	}
	go f.readLoop()

	log.Printf("[FEED] Opened feed for round %s", roundID)
	return f, nil
}

func (f *Feed) RoundID() string {
	return f.roundID
}

// Close shuts the connection and waits for the read loop to exit.
// Must not be called from a FeedHandler callback.
func (f *Feed) Close() {
	f.closing.Store(true)
	f.closeConn()
	<-f.done
}

// Done is closed once the read loop has exited.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

func (f *Feed) closeConn() {
	f.closeOnce.Do(func() {
		if err := f.conn.Close(); err != nil {
			log.Printf("[FEED] Close error for round %s: %v", f.roundID, err)
		}
	})
}

func (f *Feed) readLoop() {
	defer close(f.done)
	defer f.closeConn()

	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			if f.closing.Load() {
				return
			}
			log.Printf("[FEED] Read error for round %s: %v", f.roundID, err)
			f.handler.OnError(&FeedConnectionError{RoundID: f.roundID, Err: err})
			return
		}

		msg, err := ParseFeedMessage(data)
		if err != nil {
			log.Printf("[FEED] Dropped message for round %s: %v", f.roundID, err)
			continue
		}

		switch msg.Kind {
		case FeedTick:
			f.handler.OnTick(msg.Multiplier)
		case FeedCrash:
			f.closing.Store(true)
			f.handler.OnCrash(msg.Multiplier, msg.HasFinal)
			return
		}
	}
}
