// Package pnv10n provides a client for the phone-number verification
// API of the identity server.
//
// pnv10n = phone-number verification.
package pnv10n

import (
	"golang.org/x/text/language"

	"github.com/kadisoka/iam-verify/pkg/iam/logging"
)

var log = logging.NewPkgLogger()

var messageLocaleDefault = language.MustParse("en-US")

const (
	userPhoneNumberPath             = "/users/me/phone_number"
	userPhoneNumberConfirmationPath = userPhoneNumberPath + "/verification_confirmation"
)
