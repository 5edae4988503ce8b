package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrMissingCountryCode indicates the number has no international prefix
	ErrMissingCountryCode = errors.New("phone number must include the country code, e.g. +34 600 123 456")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits after the country code")

	// ErrInvalidLength indicates the number is outside the E.164 length range
	ErrInvalidLength = errors.New("phone number must have between 8 and 15 digits")
)

// digitsRegex matches digits only
var digitsRegex = regexp.MustCompile(`^\d+$`)

// separatorReplacer strips the separators people type into phone numbers
var separatorReplacer = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "", "/", "")

// PhoneValidator normalizes international phone numbers to E.164
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Normalize validates a phone number and returns it in E.164 form.
// Accepts "+34 600-123-456", "0034600123456" and "(+34) 600 123 456".
func (v *PhoneValidator) Normalize(phone string) (string, error) {
	sanitized := v.Sanitize(phone)
	if sanitized == "" {
		return "", ErrEmptyPhone
	}

	switch {
	case strings.HasPrefix(sanitized, "+"):
		sanitized = sanitized[1:]
	case strings.HasPrefix(sanitized, "00"):
		sanitized = sanitized[2:]
	default:
		return "", ErrMissingCountryCode
	}

	if !digitsRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) < 8 || len(sanitized) > 15 {
		return "", ErrInvalidLength
	}

	if sanitized[0] == '0' {
		return "", ErrMissingCountryCode
	}

	return "+" + sanitized, nil
}

// Sanitize removes whitespace and common separators
func (v *PhoneValidator) Sanitize(phone string) string {
	return separatorReplacer.Replace(strings.TrimSpace(phone))
}

// IsValid reports whether the phone number normalizes cleanly
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Normalize(phone)
	return err == nil
}
