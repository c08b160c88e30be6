// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrEmailEmpty   = errors.New("no email address provided")
	ErrEmailInvalid = errors.New("invalid email address provided")
)

func EmailValidator(e string) error {
	_, err := NormalizeEmail(e)
	return err
}

// NormalizeEmail validates e and returns the bare, lower-cased address.
// Display names ("Jane <jane@example.com>") are rejected.
func NormalizeEmail(e string) (string, error) {
	e = strings.TrimSpace(e)
	if e == "" {
		return "", ErrEmailEmpty
	}

	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Name != "" || addr.Address != e {
		return "", ErrEmailInvalid
	}

	// Emails are persisted in a comma separated column
	if strings.Contains(addr.Address, ",") {
		return "", ErrEmailInvalid
	}

	return strings.ToLower(addr.Address), nil
}
