package game

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"time"
)

const (
	DEFAULT_MAX_MULTIPLIER = 10.0
	START_MULTIPLIER       = 1.0
	EXIT_DELAY             = 2 * time.Second
)

type Backend interface {
	PlaceBet(ctx context.Context, req BetRequest) (BetResponse, error)
	Cashout(ctx context.Context, req CashoutRequest) (CashoutResponse, error)
	BalanceQuerier
}

// View receives everything the player should see. Frame, state and notice
// calls may happen while the session lock is held, so implementations must
// not block and must not call back into the session.
type View interface {
	PublishFrame(frame Frame)
	PublishState(state RoundState)
	PublishNotice(notice Notice)
	PublishBalance(points float64)
}

type Options struct {
	FeedBaseURL           string
	MaxMultiplierFallback float64
	FrameInterval         time.Duration
	GlideDuration         time.Duration
	ExitDelay             time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxMultiplierFallback: DEFAULT_MAX_MULTIPLIER,
		FrameInterval:         FRAME_INTERVAL,
		GlideDuration:         GLIDE_DURATION,
		ExitDelay:             EXIT_DELAY,
	}
}

type Deps struct {
	Backend  Backend
	Dialer   Dialer
	App      *AppState
	History  *History
	View     View
	Geometry GeometrySource
}

// Session owns one round at a time: its state, its feed and its glide driver.
type Session struct {
	backend  Backend
	dialer   Dialer
	app      *AppState
	history  *History
	view     View
	geometry GeometrySource
	opts     Options

	placeMu sync.Mutex

	mu           sync.Mutex
	gen          uint64
	round        RoundState
	tickProgress float64
	pending      map[SlotKey]bool
	feed         *Feed
	animator     *Animator
	exitTimer    *time.Timer
	closed       bool
}

func NewSession(deps Deps, opts Options) *Session {
	defaults := DefaultOptions()
	if !(opts.MaxMultiplierFallback > 0) {
		opts.MaxMultiplierFallback = defaults.MaxMultiplierFallback
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = defaults.FrameInterval
	}
	if opts.GlideDuration <= 0 {
		opts.GlideDuration = defaults.GlideDuration
	}
	if opts.ExitDelay <= 0 {
		opts.ExitDelay = defaults.ExitDelay
	}

	s := &Session{
		backend:  deps.Backend,
		dialer:   deps.Dialer,
		app:      deps.App,
		history:  deps.History,
		view:     deps.View,
		geometry: deps.Geometry,
		opts:     opts,
		pending:  make(map[SlotKey]bool),
		round: RoundState{
			CurrentMultiplier: START_MULTIPLIER,
			MaxMultiplier:     opts.MaxMultiplierFallback,
			Status:            StatusIdle,
		},
	}
	if s.app == nil {
		s.app = NewAppState("", deps.Backend)
	}
	if s.history == nil {
		s.history = NewHistory(nil)
	}
	if s.view == nil {
		s.view = nopView{}
	}
	if s.geometry == nil {
		s.geometry = NewViewport(DefaultGeometry)
	}
	return s
}

func (s *Session) State() RoundState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

func (s *Session) History() []string {
	return s.history.Entries()
}

func (s *Session) App() *AppState {
	return s.app
}

// PlaceBet starts a new round with the given stakes. A failed request leaves
// the current round untouched. A round whose feed could not be opened is
// returned together with a *FeedConnectionError.
func (s *Session) PlaceBet(ctx context.Context, bet1, bet2 float64) (RoundState, error) {
	if !validStakes(bet1, bet2) {
		return s.State(), &InvalidBetError{Bet1: bet1, Bet2: bet2}
	}

	s.placeMu.Lock()
	defer s.placeMu.Unlock()

	if s.isClosed() {
		return s.State(), ErrSessionClosed
	}

	resp, err := s.backend.PlaceBet(ctx, BetRequest{Bet1: bet1, Bet2: bet2})
	if err == nil && resp.RoundID == "" {
		err = errors.New("response carried no round id")
	}
	if err != nil {
		log.Printf("[SESSION] Bet (%.2f, %.2f) failed: %v", bet1, bet2, err)
		return s.State(), &BetPlacementError{Err: err}
	}

	maxMult := resp.MaxMultiplier
	if !(maxMult > 0) || math.IsInf(maxMult, 0) {
		maxMult = s.opts.MaxMultiplierFallback
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log.Printf("[SESSION] Round %s accepted after close, not opening feed", resp.RoundID)
		return s.State(), ErrSessionClosed
	}
	s.gen++
	gen := s.gen
	oldFeed, oldAnimator := s.feed, s.animator
	s.feed, s.animator = nil, nil
	s.stopExitTimerLocked()
	s.round = RoundState{
		RoundID:           resp.RoundID,
		LogoToken:         resp.LogoToken,
		CurrentMultiplier: START_MULTIPLIER,
		MaxMultiplier:     maxMult,
		Status:            StatusLive,
		StartTime:         time.Now(),
		Bet1:              BetSlot{Amount: bet1},
		Bet2:              BetSlot{Amount: bet2},
	}
	s.tickProgress = 0
	s.pending = make(map[SlotKey]bool)
	s.view.PublishState(s.round)
	s.view.PublishFrame(s.frameLocked(0, FrameSourceTick))
	s.mu.Unlock()

	teardown(oldFeed, oldAnimator)

	log.Printf("[SESSION] Round %s live (bet1 %.2f, bet2 %.2f, max %.2fx)", resp.RoundID, bet1, bet2, maxMult)

	feed, err := OpenFeed(ctx, s.dialer, s.opts.FeedBaseURL, resp.RoundID, roundFeed{s: s, gen: gen})
	if err != nil {
		s.applyFeedError(gen, err)
		s.refreshBalance(ctx)
		return s.State(), err
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		feed.Close()
		return s.State(), ErrSessionClosed
	}
	s.feed = feed
	if s.round.Status == StatusLive && !s.round.Interrupted {
		s.animator = StartAnimator(s.opts.FrameInterval, s.opts.GlideDuration, func(elapsed time.Duration) bool {
			return s.renderGlide(gen, elapsed)
		})
	}
	s.mu.Unlock()

	s.refreshBalance(ctx)
	return s.State(), nil
}

// Close tears down the feed, the glide driver and the exit timer.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	feed, animator := s.feed, s.animator
	s.feed, s.animator = nil, nil
	s.stopExitTimerLocked()
	s.mu.Unlock()

	teardown(feed, animator)
	log.Println("[SESSION] Session closed")
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) applyTick(gen uint64, multiplier float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.round.Status != StatusLive {
		return false
	}
	if multiplier < s.round.CurrentMultiplier {
		log.Printf("[SESSION] Ignored stale tick %.2fx (current %.2fx)", multiplier, s.round.CurrentMultiplier)
		return false
	}

	s.round.CurrentMultiplier = multiplier
	s.tickProgress = Progress(multiplier, s.round.MaxMultiplier)
	s.view.PublishFrame(s.frameLocked(s.tickProgress, FrameSourceTick))
	return true
}

func (s *Session) applyCrash(gen uint64, final float64, hasFinal bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.round.Status != StatusLive {
		return false
	}
	if !hasFinal {
		final = s.round.CurrentMultiplier
	}

	s.round.Status = StatusCrashed
	s.round.CurrentMultiplier = final
	s.round.CrashTime = time.Now()
	if s.animator != nil {
		s.animator.Stop()
		s.animator = nil
	}
	s.history.Push(final)

	s.view.PublishFrame(s.frameLocked(Progress(final, s.round.MaxMultiplier), FrameSourceCrash))
	s.view.PublishState(s.round)

	s.exitTimer = time.AfterFunc(s.opts.ExitDelay, func() {
		s.finishExit(gen)
	})

	log.Printf("[SESSION] Round %s crashed at %.2fx", s.round.RoundID, final)
	return true
}

// applyFeedError freezes a live round whose feed is gone. Runs on the feed's
// read loop, so it must not Close that feed; the next PlaceBet or Close does.
func (s *Session) applyFeedError(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.round.Status != StatusLive || s.round.Interrupted {
		return false
	}

	s.round.Interrupted = true
	if s.animator != nil {
		s.animator.Stop()
		s.animator = nil
	}

	log.Printf("[SESSION] Round %s interrupted: %v", s.round.RoundID, err)
	s.view.PublishState(s.round)
	s.view.PublishNotice(Notice{
		Level:   NoticeError,
		Message: "Connection to the round was lost. You can place a new bet.",
	})
	return true
}

func (s *Session) finishExit(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.round.Status != StatusCrashed {
		return
	}
	s.round.Status = StatusIdle
	s.round.RoundID = ""
	s.round.LogoToken = ""
	s.exitTimer = nil
	s.view.PublishState(s.round)
}

func (s *Session) renderGlide(gen uint64, elapsed time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.round.Status != StatusLive || s.round.Interrupted {
		return false
	}

	t := EaseOutCubic(float64(elapsed) / float64(s.opts.GlideDuration))
	if t < s.tickProgress {
		t = s.tickProgress
	}
	s.view.PublishFrame(s.frameLocked(t, FrameSourceGlide))
	return true
}

// beginCashout checks the slot can be cashed out and marks it in flight.
func (s *Session) beginCashout(slot SlotKey) (CashoutRequest, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slot.Valid() {
		return CashoutRequest{}, 0, ErrUnknownSlot
	}
	if s.round.RoundID == "" {
		return CashoutRequest{}, 0, ErrNoActiveRound
	}
	bet := s.round.slotRef(slot)
	if bet.Amount <= 0 {
		return CashoutRequest{}, 0, ErrSlotNotStaked
	}
	if bet.CashedOut {
		return CashoutRequest{}, 0, ErrAlreadyCashedOut
	}
	if s.pending[slot] {
		return CashoutRequest{}, 0, ErrCashoutPending
	}

	s.pending[slot] = true
	return CashoutRequest{
		RoundID:            s.round.RoundID,
		SlotKey:            slot,
		ObservedMultiplier: s.round.CurrentMultiplier,
	}, s.gen, nil
}

// endCashout clears the in-flight mark and, on success, settles the slot.
// Nothing is applied if another round has started since.
func (s *Session) endCashout(gen uint64, slot SlotKey, resp *CashoutResponse) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return false
	}
	delete(s.pending, slot)
	if resp == nil {
		return false
	}

	bet := s.round.slotRef(slot)
	bet.CashedOut = true
	bet.Gain = resp.Gain
	s.view.PublishState(s.round)
	return true
}

func (s *Session) refreshBalance(ctx context.Context) {
	points, err := s.app.RefreshBalance(ctx)
	if err != nil {
		log.Printf("[SESSION] Balance refresh failed: %v", err)
		return
	}
	s.view.PublishBalance(points)
}

func (s *Session) frameLocked(t float64, source FrameSource) Frame {
	pos := Interpolate(t, s.geometry.Geometry())
	return Frame{
		RoundID:    s.round.RoundID,
		Multiplier: s.round.CurrentMultiplier,
		Progress:   t,
		X:          pos.X,
		Y:          pos.Y,
		Angle:      pos.Angle,
		Source:     source,
	}
}

func (s *Session) stopExitTimerLocked() {
	if s.exitTimer != nil {
		s.exitTimer.Stop()
		s.exitTimer = nil
	}
}

func (r *RoundState) slotRef(key SlotKey) *BetSlot {
	if key == SlotBet2 {
		return &r.Bet2
	}
	return &r.Bet1
}

func teardown(feed *Feed, animator *Animator) {
	if animator != nil {
		animator.Stop()
		animator.Wait()
	}
	if feed != nil {
		feed.Close()
	}
}

func validStakes(bet1, bet2 float64) bool {
	for _, v := range []float64{bet1, bet2} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return bet1 > 0 || bet2 > 0
}

// roundFeed routes feed events to the session, tagged with the round
// generation they belong to.
type roundFeed struct {
	s   *Session
	gen uint64
}

func (h roundFeed) OnTick(multiplier float64) { h.s.applyTick(h.gen, multiplier) }

func (h roundFeed) OnCrash(final float64, hasFinal bool) { h.s.applyCrash(h.gen, final, hasFinal) }

func (h roundFeed) OnError(err error) { h.s.applyFeedError(h.gen, err) }

type nopView struct{}

func (nopView) PublishFrame(Frame)      {}
func (nopView) PublishState(RoundState) {}
func (nopView) PublishNotice(Notice)    {}
func (nopView) PublishBalance(float64)  {}
