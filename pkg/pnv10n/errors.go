package pnv10n

import (
	"errors"
	"strconv"
)

// Error codes in the server's error responses.
const (
	errorCodeClockSkewDetected             = "clock_skew_detected"
	errorCodeInvalidPhoneNumber            = "invalid_phone_number"
	errorCodePhoneNumberRegionNotSupported = "phone_number_region_not_supported"
)

var (
	// ErrResendThrottled is returned when the server refuses to send
	// another code yet.
	ErrResendThrottled = errors.New("too many code requests")
	// ErrNoVerification is returned when a code is submitted before any
	// code was requested.
	ErrNoVerification = errors.New("no pending verification")
)

type ConfigurationError struct {
	Err error
}

func (err ConfigurationError) Error() string {
	const baseMsg = "configuration error"
	if err.Err != nil {
		return baseMsg + ": " + err.Err.Error()
	}
	return baseMsg
}

func (err ConfigurationError) Unwrap() error { return err.Err }

type GatewayError struct {
	Err error
}

func (err GatewayError) Error() string {
	const baseMsg = "gateway error"
	if err.Err != nil {
		return baseMsg + ": " + err.Err.Error()
	}
	return baseMsg
}

func (err GatewayError) Unwrap() error { return err.Err }

type InvalidPhoneNumberError struct {
	Err error
}

func (err InvalidPhoneNumberError) Error() string {
	if err.Err != nil {
		return "invalid phone number: " + err.Err.Error()
	}
	return "invalid phone number"
}

func (err InvalidPhoneNumberError) Unwrap() error { return err.Err }

type PhoneNumberRegionNotSupportedError struct {
	Err error
}

func (err PhoneNumberRegionNotSupportedError) Error() string {
	if err.Err != nil {
		return "phone number region not supported: " + err.Err.Error()
	}
	return "phone number region not supported"
}

func (err PhoneNumberRegionNotSupportedError) Unwrap() error { return err.Err }

// APIError is an error response the client has no better mapping for.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (err APIError) Error() string {
	msg := "status " + strconv.Itoa(err.StatusCode)
	if err.Code != "" {
		msg += " " + err.Code
	}
	if err.Description != "" {
		msg += ": " + err.Description
	}
	return msg
}
