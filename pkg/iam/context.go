package iam

import (
	"context"

	"github.com/google/uuid"
)

// ChallengeToken is an anti-abuse token, e.g. a CAPTCHA response, which
// the server may require before it sends another code. Clients pass it
// through unmodified.
type ChallengeToken struct {
	Provider string
	Value    string
}

// CallContext provides call-scoped information for outgoing requests.
type CallContext interface {
	context.Context
	// SessionID identifies the verification session the call belongs to.
	SessionID() uuid.UUID
	MethodName() string
	RequestID() *uuid.UUID
}

// NewCallContext creates a CallContext with a fresh request ID.
func NewCallContext(
	ctx context.Context,
	sessionID uuid.UUID,
	methodName string,
) CallContext {
	if ctx == nil {
		panic("ctx must not be nil")
	}
	reqID := uuid.New()
	return &callContext{ctx, sessionID, methodName, &reqID}
}

// CallContextFrom returns ctx as a CallContext if it is one.
func CallContextFrom(ctx context.Context) (CallContext, bool) {
	callCtx, ok := ctx.(CallContext)
	return callCtx, ok
}

var _ CallContext = &callContext{}

type callContext struct {
	context.Context
	sessionID  uuid.UUID
	methodName string
	requestID  *uuid.UUID
}

func (ctx *callContext) SessionID() uuid.UUID { return ctx.sessionID }

func (ctx *callContext) MethodName() string { return ctx.methodName }

func (ctx *callContext) RequestID() *uuid.UUID { return ctx.requestID }
