package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"
)

const testFeedBase = "ws://feed.test/ws/tradegame"

type fakeServerError struct{ msg string }

func (e *fakeServerError) Error() string { return e.msg }

type fakeBackend struct {
	mu           sync.Mutex
	betCalls     int
	cashoutCalls int
	balanceCalls int
	cashoutReqs  []CashoutRequest

	maxMultiplier float64
	betErr        error
	cashoutResp   CashoutResponse
	cashoutErr    error
	cashoutGate   chan struct{}
	points        float64
}

func (b *fakeBackend) PlaceBet(ctx context.Context, req BetRequest) (BetResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.betCalls++
	if b.betErr != nil {
		return BetResponse{}, b.betErr
	}
	return BetResponse{
		RoundID:       fmt.Sprintf("R%d", b.betCalls),
		LogoToken:     "rocket",
		MaxMultiplier: b.maxMultiplier,
	}, nil
}

func (b *fakeBackend) Cashout(ctx context.Context, req CashoutRequest) (CashoutResponse, error) {
	b.mu.Lock()
	b.cashoutCalls++
	b.cashoutReqs = append(b.cashoutReqs, req)
	gate := b.cashoutGate
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cashoutErr != nil {
		return CashoutResponse{}, b.cashoutErr
	}
	return b.cashoutResp, nil
}

func (b *fakeBackend) Balance(ctx context.Context) (BalanceResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balanceCalls++
	return BalanceResponse{Points: b.points}, nil
}

func (b *fakeBackend) counts() (bets, cashouts, balances int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.betCalls, b.cashoutCalls, b.balanceCalls
}

type fakeConn struct {
	msgs      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	dropOnce  sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		msgs:   make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case <-c.closed:
		return 0, nil, errors.New("use of closed network connection")
	default:
	}
	select {
	case m, ok := <-c.msgs:
		if !ok {
			return 0, nil, io.ErrUnexpectedEOF
		}
		return 1, m, nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(payload string) {
	c.msgs <- []byte(payload)
}

// drop simulates the server going away mid-round.
func (c *fakeConn) drop() {
	c.dropOnce.Do(func() { close(c.msgs) })
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	mu      sync.Mutex
	conns   []*fakeConn
	urls    []string
	err     error
	overlap int
}

func (d *fakeDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	for _, c := range d.conns {
		if !c.isClosed() {
			d.overlap++
		}
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	d.urls = append(d.urls, rawURL)
	return conn, nil
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *fakeDialer) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.conns {
		if !c.isClosed() {
			n++
		}
	}
	return n
}

type recordingView struct {
	mu       sync.Mutex
	frames   []Frame
	states   []RoundState
	notices  []Notice
	balances []float64
}

func (v *recordingView) PublishFrame(f Frame) {
	v.mu.Lock()
	v.frames = append(v.frames, f)
	v.mu.Unlock()
}

func (v *recordingView) PublishState(s RoundState) {
	v.mu.Lock()
	v.states = append(v.states, s)
	v.mu.Unlock()
}

func (v *recordingView) PublishNotice(n Notice) {
	v.mu.Lock()
	v.notices = append(v.notices, n)
	v.mu.Unlock()
}

func (v *recordingView) PublishBalance(p float64) {
	v.mu.Lock()
	v.balances = append(v.balances, p)
	v.mu.Unlock()
}

func (v *recordingView) noticeList() []Notice {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Notice(nil), v.notices...)
}

func (v *recordingView) frameList() []Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Frame(nil), v.frames...)
}

type testRig struct {
	session *Session
	backend *fakeBackend
	dialer  *fakeDialer
	view    *recordingView
}

// newTestRig builds a session whose rounds stay crashed until the test ends
// and whose glide never renders, unless opts says otherwise.
func newTestRig(t *testing.T, opts Options) *testRig {
	t.Helper()
	if opts.ExitDelay == 0 {
		opts.ExitDelay = time.Hour
	}
	if opts.GlideDuration == 0 {
		opts.GlideDuration = time.Hour
	}
	if opts.FrameInterval == 0 {
		opts.FrameInterval = time.Hour
	}
	opts.FeedBaseURL = testFeedBase

	rig := &testRig{
		backend: &fakeBackend{points: 1000},
		dialer:  &fakeDialer{},
		view:    &recordingView{},
	}
	rig.session = NewSession(Deps{
		Backend:  rig.backend,
		Dialer:   rig.dialer,
		View:     rig.view,
		Geometry: NewViewport(DefaultGeometry),
	}, opts)
	t.Cleanup(rig.session.Close)
	return rig
}

func (r *testRig) gen() uint64 {
	r.session.mu.Lock()
	defer r.session.mu.Unlock()
	return r.session.gen
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
