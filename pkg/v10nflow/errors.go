package v10nflow

import (
	"errors"
)

var (
	ErrNotStarted      = errors.New("flow not started")
	ErrAlreadyStarted  = errors.New("flow already started")
	ErrBusy            = errors.New("a verification request is in flight")
	ErrAlreadyVerified = errors.New("already verified")
	ErrTornDown        = errors.New("flow torn down")
	ErrCodeLength      = errors.New("code length out of range")
)
