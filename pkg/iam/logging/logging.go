// Package logging provides package-scoped structured loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	foundationlog "github.com/kadisoka/foundation/pkg/logging"
	"github.com/rs/zerolog"

	"github.com/kadisoka/iam-verify/pkg/iam"
)

// NewPkgLogger creates a logger for use within a package. This logger
// automatically adds the name of the package where this function was called,
// not when logging.
func NewPkgLogger() Logger {
	pkgLogger := foundationlog.NewPkgLoggerInternal(foundationlog.CallerPkgName())
	pkgLogger.Logger = pkgLogger.Output(output)
	return Logger{PkgLogger: pkgLogger}
}

// Logger wraps other logger to provide additional functionalities.
type Logger struct {
	foundationlog.PkgLogger
}

// WithContext creates a new logger which bound to a CallContext.
func (logger Logger) WithContext(
	ctx iam.CallContext,
) *foundationlog.Logger {
	// Implementation notes: don't panic

	if ctx == nil {
		l := logger.With().Str("class", "iam").Logger()
		return &l
	}

	logCtx := logger.With().
		Str("session", ctx.SessionID().String())
	if methodName := ctx.MethodName(); methodName != "" {
		logCtx = logCtx.Str("method", methodName)
	}
	if reqID := ctx.RequestID(); reqID != nil {
		logCtx = logCtx.Str("request_id", reqID.String())
	}

	l := logCtx.Logger()
	return &l
}

// SetOutput redirects every package logger, including the ones created
// before the call. Terminal front-ends use it to keep logs off the screen.
func SetOutput(w io.Writer) {
	output.mu.Lock()
	output.w = w
	output.mu.Unlock()
}

// SetLevel sets the global minimum level.
func SetLevel(levelStr string) error {
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

type switchableWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (sw *switchableWriter) Write(p []byte) (int, error) {
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.w.Write(p)
}

var output = &switchableWriter{w: os.Stderr}
