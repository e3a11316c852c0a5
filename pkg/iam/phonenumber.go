package iam

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// PhoneNumber is the subject of a phone-number verification. Only the
// parts the verification API needs are kept.
type PhoneNumber struct {
	countryCode    int32
	nationalNumber int64
	rawInput       string
	isValid        bool
}

func NewPhoneNumber(countryCode int32, nationalNumber int64) PhoneNumber {
	return PhoneNumber{countryCode: countryCode, nationalNumber: nationalNumber}
}

// PhoneNumberFromString parses an international-format phone number. A
// region code can be provided for inputs which were typed without the
// leading plus sign and country code.
func PhoneNumberFromString(phoneNumberStr string, defaultRegion string) (PhoneNumber, error) {
	phoneNumberStr = strings.TrimSpace(phoneNumberStr)
	// Some input fields prepend the country code even when the user
	// already typed it.
	if parts := strings.Split(phoneNumberStr, "+"); len(parts) == 3 {
		phoneNumberStr = "+" + parts[2]
	}

	parsedPhoneNumber, err := phonenumbers.Parse(phoneNumberStr, strings.ToUpper(defaultRegion))
	if err != nil {
		return PhoneNumber{}, err
	}

	return PhoneNumber{
		countryCode:    parsedPhoneNumber.GetCountryCode(),
		nationalNumber: int64(parsedPhoneNumber.GetNationalNumber()),
		rawInput:       phoneNumberStr,
		isValid:        phonenumbers.IsValidNumber(parsedPhoneNumber),
	}, nil
}

func (phoneNumber PhoneNumber) IsValid() bool { return phoneNumber.isValid }

func (phoneNumber PhoneNumber) CountryCode() int32    { return phoneNumber.countryCode }
func (phoneNumber PhoneNumber) NationalNumber() int64 { return phoneNumber.nationalNumber }
func (phoneNumber PhoneNumber) RawInput() string      { return phoneNumber.rawInput }

// IsTestNumber reports whether the number is in the +1 555-xxxx range
// which the identity server never delivers messages to.
func (phoneNumber PhoneNumber) IsTestNumber() bool {
	return phoneNumber.countryCode == 1 &&
		phoneNumber.nationalNumber > 5550000 &&
		phoneNumber.nationalNumber <= 5559999
}

// String returns the number in E.164 format.
func (phoneNumber PhoneNumber) String() string {
	if phoneNumber.countryCode == 0 && phoneNumber.nationalNumber == 0 {
		return "+"
	}
	return "+" + strconv.FormatInt(int64(phoneNumber.countryCode), 10) +
		strconv.FormatInt(phoneNumber.nationalNumber, 10)
}

// Masked returns the number with all but the last four digits hidden.
// Used where the number ends up in logs or on screen.
func (phoneNumber PhoneNumber) Masked() string {
	national := strconv.FormatInt(phoneNumber.nationalNumber, 10)
	if len(national) <= 4 {
		return "+" + strconv.FormatInt(int64(phoneNumber.countryCode), 10) + national
	}
	return "+" + strconv.FormatInt(int64(phoneNumber.countryCode), 10) +
		strings.Repeat("*", len(national)-4) + national[len(national)-4:]
}
