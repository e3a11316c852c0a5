package pnv10n

import (
	"time"

	"github.com/richardlehane/crock32"
)

type VerificationMethod int

const (
	VerificationMethodUnspecified VerificationMethod = iota
	VerificationMethodNone
	VerificationMethodSMS
)

func VerificationMethodFromString(str string) VerificationMethod {
	switch str {
	case "none":
		return VerificationMethodNone
	case "sms":
		return VerificationMethodSMS
	}
	return VerificationMethodUnspecified
}

func (method VerificationMethod) String() string {
	switch method {
	case VerificationMethodNone:
		return "none"
	case VerificationMethodSMS:
		return "sms"
	}
	return ""
}

// Verification is a pending verification as created by the server.
type Verification struct {
	// Zero when the server didn't need to verify the number.
	ID         int64
	CodeExpiry *time.Time
}

func (v Verification) IsPending() bool { return v.ID != 0 }

const verificationRefPrefix = "pv-"

// Reference is a short, case-insensitive form of the ID which users can
// read out to support.
func (v Verification) Reference() string {
	if v.ID <= 0 {
		return ""
	}
	return verificationRefPrefix + crock32.Encode(uint64(v.ID))
}

type phoneNumberPutRequest struct {
	PhoneNumber         string              `json:"phone_number"`
	VerificationMethods []string            `json:"verification_methods"`
	ChallengeToken      *challengeTokenJSON `json:"challenge_token,omitempty"`
}

type challengeTokenJSON struct {
	Provider string `json:"provider,omitempty"`
	Value    string `json:"value"`
}

type phoneNumberPutResponse struct {
	VerificationID int64     `json:"verification_id"`
	CodeExpiry     time.Time `json:"code_expiry"`
}

type verificationConfirmationPostRequest struct {
	VerificationID int64  `json:"verification_id"`
	Code           string `json:"code"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
