// Package errreport forwards unexpected errors to a reporting backend.
//
// Backends are modules registered by name. The "null" and "log" modules
// are always available.
package errreport

import (
	"github.com/kadisoka/iam-verify/pkg/iam/logging"
)

var log = logging.NewPkgLogger()

// Reporter receives errors worth a look from a developer. Report must
// not block; it is called from UI-facing code paths.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(err error)

func (fn ReporterFunc) Report(err error) { fn(err) }

type reporterNULL struct{}

func (reporterNULL) Report(error) {}

// NULL returns a Reporter which discards everything.
func NULL() Reporter { return reporterNULL{} }

func init() {
	type reporterNULLConfig struct{}

	RegisterModule(
		"null",
		Module{
			ConfigSkeleton: func() interface{} {
				return &reporterNULLConfig{}
			},
			NewReporter: func(config interface{}) (Reporter, error) {
				return reporterNULL{}, nil
			},
		})
}
