package v10nflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kadisoka/foundation/pkg/errors"

	"github.com/kadisoka/iam-verify/pkg/errreport"
	"github.com/kadisoka/iam-verify/pkg/iam"
)

// Session is a snapshot of a verification session.
type Session struct {
	ID      uuid.UUID
	Subject string

	// Busy is true while a submitted code is being verified, and stays
	// true after a successful verification. Input is rejected while busy.
	Busy bool
	// Resending is true while a new code is being requested.
	Resending bool
	Verified  bool
	Paused    bool

	Cooldown                CooldownState
	ResendInterval          int
	ResendCooldownRemaining int

	EnteredCode   string
	LastError     error
	LastErrorKind iam.ErrorKind
}

type OutcomeStatus int

const (
	OutcomeUnspecified OutcomeStatus = iota
	OutcomeSucceeded
	// The server rejected the code or the request failed.
	OutcomeFailed
	// The submission was refused before any request was made.
	OutcomeRejected
	// The flow was torn down before the result could be applied.
	OutcomeCancelled
)

func (status OutcomeStatus) String() string {
	switch status {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unspecified"
}

// Outcome is the result of a Submit call.
type Outcome struct {
	Status    OutcomeStatus
	ErrorKind iam.ErrorKind
	Err       error
}

func (outcome Outcome) Succeeded() bool { return outcome.Status == OutcomeSucceeded }

// Controller orchestrates code entry, submission and the resend
// cooldown of one verification session. Create one per presented screen
// and call Teardown when the screen is dismissed.
type Controller struct {
	sessionID  uuid.UUID
	subject    string
	config     Config
	submitter  CodeSubmitter
	requester  CodeRequester
	input      InputField
	reporter   errreport.Reporter
	clock      clockwork.Clock
	bus        *Bus
	loop       *loop
	lifeCtx    context.Context
	cancelLife context.CancelFunc

	// Owned by the loop goroutine.
	started       bool
	dead          bool
	paused        bool
	busy          bool
	resending     bool
	verified      bool
	interval      int
	enteredCode   string
	lastError     error
	lastErrorKind iam.ErrorKind
	countdown     *countdown
	effects       []func()

	// Written once by Teardown, read after the loop has stopped.
	final Session
}

func NewController(
	subject string,
	config Config,
	collaborators Collaborators,
) (*Controller, error) {
	if subject == "" {
		return nil, errors.ArgMsg("subject", "empty")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap("config", err)
	}
	if collaborators.Submitter == nil {
		return nil, errors.ArgMsg("collaborators.Submitter", "missing")
	}
	if collaborators.Requester == nil {
		return nil, errors.ArgMsg("collaborators.Requester", "missing")
	}

	input := collaborators.Input
	if input == nil {
		input = inputFieldNULL{}
	}
	reporter := collaborators.Reporter
	if reporter == nil {
		reporter = errreport.NULL()
	}
	clock := collaborators.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	lifeCtx, cancelLife := context.WithCancel(context.Background())

	ctrl := &Controller{
		sessionID:  uuid.New(),
		subject:    subject,
		config:     config,
		submitter:  collaborators.Submitter,
		requester:  collaborators.Requester,
		input:      input,
		reporter:   reporter,
		clock:      clock,
		bus:        NewBus(),
		loop:       newLoop(),
		lifeCtx:    lifeCtx,
		cancelLife: cancelLife,
		interval:   config.ResendInterval,
		countdown:  newCountdown(clock),
	}

	go ctrl.loop.run(ctrl.countdown.C, ctrl.onTick)

	return ctrl, nil
}

func (ctrl *Controller) SessionID() uuid.UUID { return ctrl.sessionID }

// Subscribe registers a handler for the session's events. The
// subscription ends on Unsubscribe or Teardown.
func (ctrl *Controller) Subscribe(handler func(Event)) *Subscription {
	return ctrl.bus.Subscribe(handler)
}

// Start begins the cooldown countdown and focuses the input. It must be
// called once per session.
func (ctrl *Controller) Start(resendIntervalSeconds int) error {
	if resendIntervalSeconds <= 0 {
		return errors.ArgMsg("resendIntervalSeconds", "must be positive")
	}

	var err error
	ok := ctrl.exec(func() {
		if ctrl.started {
			err = ErrAlreadyStarted
			return
		}
		ctrl.started = true
		ctrl.interval = resendIntervalSeconds
		ctrl.countdown.BeginCountDown(resendIntervalSeconds)
		ctrl.bus.Publish(CooldownTicked{Remaining: resendIntervalSeconds})
		ctrl.later(func() {
			ctrl.input.SetReceivesInput(true)
			ctrl.input.Focus()
		})
	})
	if !ok {
		return ErrTornDown
	}
	if err != nil {
		return err
	}

	log.Debug().Str("session", ctrl.sessionID.String()).
		Int("resend_interval", resendIntervalSeconds).
		Msg("Verification flow started")
	return nil
}

// OnCodeChanged records the code as typed so far. It returns false if
// the input was rejected: not started, busy, or longer than a code.
// It never submits.
func (ctrl *Controller) OnCodeChanged(code string) bool {
	accepted := false
	ctrl.loop.call(func() {
		if !ctrl.started || ctrl.busy || ctrl.verified {
			return
		}
		if len(code) > ctrl.config.CodeLength {
			return
		}
		accepted = true
		if code == ctrl.enteredCode {
			return
		}
		ctrl.enteredCode = code
		ctrl.bus.Publish(CodeChanged{Code: code})
	})
	return accepted
}

// Submit verifies code with the server. It blocks until the result has
// been applied to the session. Failures are resolved here: the returned
// Outcome describes what happened but the caller doesn't need to act
// on it beyond navigating away on success.
func (ctrl *Controller) Submit(code string) Outcome {
	var rejection error
	var callCtx iam.CallContext
	ok := ctrl.exec(func() {
		switch {
		case !ctrl.started:
			rejection = ErrNotStarted
		case ctrl.verified:
			rejection = ErrAlreadyVerified
		case ctrl.busy:
			rejection = ErrBusy
		case code == "" || len(code) > ctrl.config.CodeLength:
			rejection = ErrCodeLength
		}
		if rejection != nil {
			return
		}
		if code != ctrl.enteredCode {
			ctrl.enteredCode = code
			ctrl.bus.Publish(CodeChanged{Code: code})
		}
		ctrl.setBusy(true)
		callCtx = iam.NewCallContext(ctrl.lifeCtx, ctrl.sessionID, "SubmitCode")
	})
	if !ok {
		return Outcome{Status: OutcomeCancelled, Err: ErrTornDown}
	}
	if rejection != nil {
		return Outcome{Status: OutcomeRejected, Err: rejection}
	}

	log.WithContext(callCtx).Debug().Msg("Submitting verification code")
	err := ctrl.submitter.SubmitCode(callCtx, SubmitRequest{
		Subject: ctrl.subject,
		Code:    code,
	})

	outcome := Outcome{Status: OutcomeCancelled, Err: ErrTornDown}
	ctrl.exec(func() {
		if ctrl.dead {
			return
		}
		if err == nil {
			ctrl.verified = true
			ctrl.lastError = nil
			ctrl.lastErrorKind = iam.ErrorKindNone
			ctrl.bus.Publish(VerificationSucceeded{})
			outcome = Outcome{Status: OutcomeSucceeded}
			return
		}
		ctrl.setBusy(false)
		kind := ctrl.handleError(callCtx, err)
		outcome = Outcome{Status: OutcomeFailed, ErrorKind: kind, Err: err}
	})

	return outcome
}

// Resend requests a new code. It is a no-op returning false unless the
// cooldown has reached zero, no resend is in flight and no submission
// is being verified. When accepted, the entered code is cleared and the
// cooldown restarted before the request goes out.
func (ctrl *Controller) Resend(challengeToken *iam.ChallengeToken) bool {
	var callCtx iam.CallContext
	ctrl.exec(func() {
		if !ctrl.started || ctrl.verified || ctrl.busy || ctrl.resending {
			return
		}
		if ctrl.countdown.State() != CooldownReady {
			return
		}
		ctrl.clearCode()
		ctrl.countdown.BeginCountDown(ctrl.interval)
		if ctrl.paused {
			ctrl.countdown.ReleaseTimer()
		}
		ctrl.bus.Publish(CooldownTicked{Remaining: ctrl.interval})
		ctrl.setResending(true)
		callCtx = iam.NewCallContext(ctrl.lifeCtx, ctrl.sessionID, "RequestNewCode")
	})
	if callCtx == nil {
		return false
	}

	go ctrl.requestNewCode(callCtx, challengeToken)
	return true
}

func (ctrl *Controller) requestNewCode(
	callCtx iam.CallContext,
	challengeToken *iam.ChallengeToken,
) {
	log.WithContext(callCtx).Debug().Msg("Requesting a new verification code")
	err := ctrl.requester.RequestNewCode(callCtx, ctrl.subject, challengeToken)

	ctrl.exec(func() {
		if ctrl.dead {
			return
		}
		ctrl.setResending(false)
		if err != nil {
			ctrl.handleError(callCtx, err)
			return
		}
		ctrl.bus.Publish(CodeResent{})
	})
}

// Pause releases the countdown timer, e.g. when the screen is hidden.
// The cooldown deadline is kept.
func (ctrl *Controller) Pause() {
	ctrl.loop.call(func() {
		if !ctrl.started || ctrl.paused {
			return
		}
		ctrl.paused = true
		ctrl.countdown.ReleaseTimer()
	})
}

// Resume restarts the countdown from where the deadline says it should
// be. If the cooldown ran out while paused, resend becomes available
// right away.
func (ctrl *Controller) Resume() {
	ctrl.exec(func() {
		if !ctrl.paused {
			return
		}
		ctrl.paused = false
		wasReady := ctrl.countdown.State() == CooldownReady
		ctrl.countdown.RestartTimerIfNeeded()
		remaining := ctrl.countdown.Remaining()
		ctrl.bus.Publish(CooldownTicked{Remaining: remaining})
		if remaining == 0 && !wasReady {
			ctrl.bus.Publish(ResendAvailable{})
		}
		ctrl.later(ctrl.input.Focus)
	})
}

// Teardown releases the timer, invalidates the completions of requests
// still in flight and ends all subscriptions. It is safe to call more
// than once.
func (ctrl *Controller) Teardown() {
	ctrl.loop.call(func() {
		ctrl.dead = true
		ctrl.countdown.ReleaseTimer()
		ctrl.cancelLife()
		ctrl.final = ctrl.snapshot()
	})
	ctrl.loop.stop()
	ctrl.bus.Close()
}

// Session returns a snapshot of the session. After Teardown it returns
// the state as it was at teardown.
func (ctrl *Controller) Session() Session {
	var session Session
	if ctrl.loop.call(func() { session = ctrl.snapshot() }) {
		return session
	}
	return ctrl.final
}

// exec runs fn on the loop, then makes the collaborator calls fn
// queued from the calling goroutine. Collaborators are thus free to call
// back into the controller.
func (ctrl *Controller) exec(fn func()) bool {
	var effects []func()
	ok := ctrl.loop.call(func() {
		fn()
		effects, ctrl.effects = ctrl.effects, nil
	})
	for _, effect := range effects {
		effect()
	}
	return ok
}

// later queues a collaborator call. Only valid inside exec.
func (ctrl *Controller) later(effect func()) {
	ctrl.effects = append(ctrl.effects, effect)
}

func (ctrl *Controller) snapshot() Session {
	return Session{
		ID:                      ctrl.sessionID,
		Subject:                 ctrl.subject,
		Busy:                    ctrl.busy,
		Resending:               ctrl.resending,
		Verified:                ctrl.verified,
		Paused:                  ctrl.paused,
		Cooldown:                ctrl.countdown.State(),
		ResendInterval:          ctrl.interval,
		ResendCooldownRemaining: ctrl.countdown.Remaining(),
		EnteredCode:             ctrl.enteredCode,
		LastError:               ctrl.lastError,
		LastErrorKind:           ctrl.lastErrorKind,
	}
}

func (ctrl *Controller) onTick() {
	if ctrl.dead {
		return
	}
	remaining := ctrl.countdown.Tick()
	ctrl.bus.Publish(CooldownTicked{Remaining: remaining})
	if remaining == 0 {
		ctrl.bus.Publish(ResendAvailable{})
	}
}

// handleError applies a failed request's error to the session. Code
// mismatches are the user's mistake and are not reported.
func (ctrl *Controller) handleError(callCtx iam.CallContext, err error) iam.ErrorKind {
	kind := iam.ClassifyError(err)
	ctrl.lastError = err
	ctrl.lastErrorKind = kind

	switch kind {
	case iam.ErrorKindInvalidCode:
		log.WithContext(callCtx).Info().Err(err).Msg("Verification code rejected")
		ctrl.clearCode()
		ctrl.later(ctrl.input.ShowError)
		ctrl.bus.Publish(NoticeRaised{Message: NoticeCodeIncorrect, Kind: kind})
	default:
		log.WithContext(callCtx).Warn().Err(err).
			Str("kind", kind.String()).Msg("Verification request failed")
		ctrl.later(func() { ctrl.reporter.Report(err) })
		ctrl.bus.Publish(NoticeRaised{Message: err.Error(), Kind: kind})
	}

	ctrl.bus.Publish(VerificationFailed{Kind: kind, Err: err})
	return kind
}

func (ctrl *Controller) setBusy(busy bool) {
	if ctrl.busy == busy {
		return
	}
	ctrl.busy = busy
	ctrl.later(func() { ctrl.input.SetReceivesInput(!busy) })
	ctrl.bus.Publish(BusyChanged{Busy: busy})
}

func (ctrl *Controller) setResending(resending bool) {
	if ctrl.resending == resending {
		return
	}
	ctrl.resending = resending
	ctrl.bus.Publish(ResendingChanged{Resending: resending})
}

func (ctrl *Controller) clearCode() {
	ctrl.later(ctrl.input.Clear)
	if ctrl.enteredCode == "" {
		return
	}
	ctrl.enteredCode = ""
	ctrl.bus.Publish(CodeChanged{Code: ""})
}

// RemainingDuration is a convenience for labels.
func (session Session) RemainingDuration() time.Duration {
	return time.Duration(session.ResendCooldownRemaining) * time.Second
}
