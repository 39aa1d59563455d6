package game

import (
	"context"
	"time"
)

const (
	FRAME_INTERVAL = 16 * time.Millisecond
	GLIDE_DURATION = 8 * time.Second
)

// FrameFunc renders one frame. Returning false ends the animation.
type FrameFunc func(elapsed time.Duration) bool

// Animator is a cancellable per-frame driver owned by the session.
type Animator struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartAnimator calls frame every interval until window elapses, frame
// returns false, or Stop is called. The last frame always sees window.
func StartAnimator(interval, window time.Duration, frame FrameFunc) *Animator {
	if interval <= 0 {
		interval = FRAME_INTERVAL
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Animator{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(a.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		start := time.Now()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				elapsed := time.Since(start)
				if elapsed > window {
					elapsed = window
				}
				if !frame(elapsed) || elapsed >= window {
					return
				}
			}
		}
	}()

	return a
}

// Stop cancels the driver without waiting, so it is safe while holding
// locks the frame function also takes.
func (a *Animator) Stop() {
	a.cancel()
}

func (a *Animator) Wait() {
	<-a.done
}

func (a *Animator) Done() <-chan struct{} {
	return a.done
}
