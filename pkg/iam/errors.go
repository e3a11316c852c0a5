package iam

import (
	"errors"
)

type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return e.Msg + ": " + e.Err.Error()
		}
		return "iam: " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrVerificationCodeMismatch = errors.New("code mismatch")
	ErrVerificationCodeExpired  = errors.New("code expired")
	ErrClockSkewDetected        = errors.New("clock skew detected")
)

// ErrorKind is the classification a verification flow acts upon.
type ErrorKind int

const (
	ErrorKindNone ErrorKind = iota
	// The user entered a wrong or expired code.
	ErrorKindInvalidCode
	// The device clock is too far from the server's. Another flow takes
	// care of it; in verification it is treated like any other failure.
	ErrorKindClockSkew
	ErrorKindGeneric
)

func (kind ErrorKind) String() string {
	switch kind {
	case ErrorKindNone:
		return "none"
	case ErrorKindInvalidCode:
		return "invalid_code"
	case ErrorKindClockSkew:
		return "clock_skew"
	case ErrorKindGeneric:
		return "generic"
	}
	return "unknown"
}

// ClassifyError maps an error returned by a verification API call to
// its ErrorKind. A nil error is ErrorKindNone.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	if errors.Is(err, ErrVerificationCodeMismatch) ||
		errors.Is(err, ErrVerificationCodeExpired) {
		return ErrorKindInvalidCode
	}
	if errors.Is(err, ErrClockSkewDetected) {
		return ErrorKindClockSkew
	}
	return ErrorKindGeneric
}
