package v10nflow

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/kadisoka/iam-verify/pkg/errreport"
	"github.com/kadisoka/iam-verify/pkg/iam"
)

// CodeSubmitter sends an entered code to the server. It must return
// exactly one result: nil on success or the reason of the failure.
type CodeSubmitter interface {
	SubmitCode(ctx context.Context, req SubmitRequest) error
}

type SubmitRequest struct {
	Subject string
	Code    string
}

// CodeRequester asks the server to send a new code to the subject. The
// challenge token, if any, is passed through unmodified.
type CodeRequester interface {
	RequestNewCode(
		ctx context.Context,
		subject string,
		challengeToken *iam.ChallengeToken,
	) error
}

// InputField is the code input on screen. Its methods, like the
// Reporter's, are called after the state change they reflect has been
// applied and never from the controller's own goroutine, so they may
// call back into the Controller.
type InputField interface {
	Clear()
	ShowError()
	SetReceivesInput(receivesInput bool)
	Focus()
}

// Collaborators are what a Controller talks to. Submitter and Requester
// are required.
type Collaborators struct {
	Submitter CodeSubmitter
	Requester CodeRequester
	Input     InputField
	Reporter  errreport.Reporter
	// Defaults to the real clock.
	Clock clockwork.Clock
}

type inputFieldNULL struct{}

func (inputFieldNULL) Clear()                {}
func (inputFieldNULL) ShowError()            {}
func (inputFieldNULL) SetReceivesInput(bool) {}
func (inputFieldNULL) Focus()                {}
