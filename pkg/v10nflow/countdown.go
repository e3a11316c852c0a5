package v10nflow

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// CooldownState tells whether a resend is currently allowed.
type CooldownState int

const (
	CooldownCounting CooldownState = iota
	CooldownReady
)

func (state CooldownState) String() string {
	switch state {
	case CooldownCounting:
		return "counting"
	case CooldownReady:
		return "ready"
	}
	return "unknown"
}

// countdown is the resend cooldown timer. It is only touched from the
// controller's loop goroutine.
type countdown struct {
	clock     clockwork.Clock
	remaining int
	deadline  time.Time
	ticker    clockwork.Ticker
}

func newCountdown(clock clockwork.Clock) *countdown {
	return &countdown{clock: clock}
}

// BeginCountDown (re)starts counting down from seconds.
func (cd *countdown) BeginCountDown(seconds int) {
	cd.ReleaseTimer()
	if seconds < 0 {
		seconds = 0
	}
	cd.remaining = seconds
	cd.deadline = cd.clock.Now().Add(time.Duration(seconds) * time.Second)
	if seconds > 0 {
		cd.ticker = cd.clock.NewTicker(time.Second)
	}
}

// RestartTimerIfNeeded resumes a released timer. Time spent without a
// timer still counts: the remaining value is recomputed from the
// deadline and may drop straight to zero.
func (cd *countdown) RestartTimerIfNeeded() {
	if cd.ticker != nil || cd.remaining == 0 {
		return
	}
	left := cd.deadline.Sub(cd.clock.Now())
	secs := int((left + time.Second - 1) / time.Second)
	if secs < 0 {
		secs = 0
	}
	if secs < cd.remaining {
		cd.remaining = secs
	}
	if cd.remaining > 0 {
		cd.ticker = cd.clock.NewTicker(time.Second)
	}
}

// ReleaseTimer stops the ticker but keeps the remaining value.
func (cd *countdown) ReleaseTimer() {
	if cd.ticker != nil {
		cd.ticker.Stop()
		cd.ticker = nil
	}
}

// Tick applies one elapsed second and returns the remaining seconds.
func (cd *countdown) Tick() int {
	if cd.remaining > 0 {
		cd.remaining--
	}
	if cd.remaining == 0 {
		cd.ReleaseTimer()
	}
	return cd.remaining
}

func (cd *countdown) Remaining() int { return cd.remaining }

func (cd *countdown) State() CooldownState {
	if cd.remaining == 0 {
		return CooldownReady
	}
	return CooldownCounting
}

func (cd *countdown) IsRunning() bool { return cd.ticker != nil }

// C returns the tick channel, or nil when there's no running timer. A
// nil channel never fires in a select.
func (cd *countdown) C() <-chan time.Time {
	if cd.ticker == nil {
		return nil
	}
	return cd.ticker.Chan()
}
