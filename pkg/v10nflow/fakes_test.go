package v10nflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/kadisoka/iam-verify/pkg/iam"
)

// Each call blocks until the test provides its result.
type fakeSubmitter struct {
	started chan SubmitRequest
	results chan error

	mu    sync.Mutex
	calls []SubmitRequest
	ctxs  []context.Context
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{
		started: make(chan SubmitRequest, 16),
		results: make(chan error, 16),
	}
}

func (s *fakeSubmitter) SubmitCode(ctx context.Context, req SubmitRequest) error {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.ctxs = append(s.ctxs, ctx)
	s.mu.Unlock()
	s.started <- req
	return <-s.results
}

func (s *fakeSubmitter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type resendCall struct {
	ctx     context.Context
	subject string
	token   *iam.ChallengeToken
}

type fakeRequester struct {
	started  chan resendCall
	results  chan error
	returned chan struct{}

	mu    sync.Mutex
	calls []resendCall
}

func newFakeRequester() *fakeRequester {
	return &fakeRequester{
		started:  make(chan resendCall, 16),
		results:  make(chan error, 16),
		returned: make(chan struct{}, 16),
	}
}

func (r *fakeRequester) RequestNewCode(
	ctx context.Context, subject string, token *iam.ChallengeToken,
) error {
	call := resendCall{ctx, subject, token}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	r.started <- call
	err := <-r.results
	r.returned <- struct{}{}
	return err
}

func (r *fakeRequester) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeInput struct {
	mu            sync.Mutex
	clears        int
	errorsShown   int
	focuses       int
	receivesInput bool
}

func (in *fakeInput) Clear() {
	in.mu.Lock()
	in.clears++
	in.mu.Unlock()
}

func (in *fakeInput) ShowError() {
	in.mu.Lock()
	in.errorsShown++
	in.mu.Unlock()
}

func (in *fakeInput) SetReceivesInput(receivesInput bool) {
	in.mu.Lock()
	in.receivesInput = receivesInput
	in.mu.Unlock()
}

func (in *fakeInput) Focus() {
	in.mu.Lock()
	in.focuses++
	in.mu.Unlock()
}

type inputState struct {
	clears        int
	errorsShown   int
	focuses       int
	receivesInput bool
}

func (in *fakeInput) state() inputState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return inputState{
		clears:        in.clears,
		errorsShown:   in.errorsShown,
		focuses:       in.focuses,
		receivesInput: in.receivesInput,
	}
}

type fakeReporter struct {
	mu       sync.Mutex
	reported []error
}

func (rep *fakeReporter) Report(err error) {
	rep.mu.Lock()
	rep.reported = append(rep.reported, err)
	rep.mu.Unlock()
}

func (rep *fakeReporter) count() int {
	rep.mu.Lock()
	defer rep.mu.Unlock()
	return len(rep.reported)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (rec *eventRecorder) record(ev Event) {
	rec.mu.Lock()
	rec.events = append(rec.events, ev)
	rec.mu.Unlock()
}

func (rec *eventRecorder) all() []Event {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]Event(nil), rec.events...)
}

func (rec *eventRecorder) has(match func(Event) bool) bool {
	for _, ev := range rec.all() {
		if match(ev) {
			return true
		}
	}
	return false
}

func (rec *eventRecorder) ticks() []int {
	var ticks []int
	for _, ev := range rec.all() {
		if tick, ok := ev.(CooldownTicked); ok {
			ticks = append(ticks, tick.Remaining)
		}
	}
	return ticks
}

type testFlow struct {
	ctrl      *Controller
	clock     clockwork.FakeClock
	submitter *fakeSubmitter
	requester *fakeRequester
	input     *fakeInput
	reporter  *fakeReporter
	events    *eventRecorder
}

const testSubject = "+62812345678"

func newTestFlow(t *testing.T) *testFlow {
	t.Helper()

	flow := &testFlow{
		clock:     clockwork.NewFakeClock(),
		submitter: newFakeSubmitter(),
		requester: newFakeRequester(),
		input:     &fakeInput{},
		reporter:  &fakeReporter{},
		events:    &eventRecorder{},
	}
	ctrl, err := NewController(testSubject, ConfigSkeleton(), Collaborators{
		Submitter: flow.submitter,
		Requester: flow.requester,
		Input:     flow.input,
		Reporter:  flow.reporter,
		Clock:     flow.clock,
	})
	require.Nil(t, err)
	flow.ctrl = ctrl
	ctrl.Subscribe(flow.events.record)
	t.Cleanup(ctrl.Teardown)
	return flow
}

// advance moves the fake clock one second at a time and waits until
// the controller has applied every tick.
func (flow *testFlow) advance(t *testing.T, seconds int) {
	t.Helper()
	for i := 0; i < seconds; i++ {
		want := flow.ctrl.Session().ResendCooldownRemaining - 1
		if want < 0 {
			want = 0
		}
		flow.clock.Advance(time.Second)
		require.Eventually(t, func() bool {
			return flow.ctrl.Session().ResendCooldownRemaining == want
		}, time.Second, time.Millisecond)
	}
}

// submitAsync runs Submit on its own goroutine and waits until the
// request reached the submitter.
func (flow *testFlow) submitAsync(t *testing.T, code string) <-chan Outcome {
	t.Helper()
	outcomeC := make(chan Outcome, 1)
	go func() { outcomeC <- flow.ctrl.Submit(code) }()
	select {
	case <-flow.submitter.started:
	case <-time.After(time.Second):
		t.Fatal("submission did not reach the submitter")
	}
	return outcomeC
}

func waitOutcome(t *testing.T, outcomeC <-chan Outcome) Outcome {
	t.Helper()
	select {
	case outcome := <-outcomeC:
		return outcome
	case <-time.After(time.Second):
		t.Fatal("no outcome")
	}
	return Outcome{}
}

func waitResendStarted(t *testing.T, requester *fakeRequester) resendCall {
	t.Helper()
	select {
	case call := <-requester.started:
		return call
	case <-time.After(time.Second):
		t.Fatal("resend did not reach the requester")
	}
	return resendCall{}
}
