// Package v10nflow provides the controller behind a verification-code
// entry screen: code input state, submission, and the resend cooldown.
//
// v10n = verification.
//
// All session state is owned by a single goroutine. Public methods hand
// their work over to it and network calls post their completions back
// to it, so a timer tick and a request completion never touch the
// session at the same time.
package v10nflow

import (
	"github.com/kadisoka/iam-verify/pkg/iam/logging"
)

var log = logging.NewPkgLogger()

// NoticeCodeIncorrect is the notice raised when the server rejects the
// entered code.
const NoticeCodeIncorrect = "The code is incorrect."
