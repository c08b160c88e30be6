package validators

import (
	"errors"
	"net/url"
)

var (
	ErrLinkEmpty   = errors.New("no link provided")
	ErrLinkInvalid = errors.New("link must be an absolute http or https URL")
)

func LinkValidator(l string) error {
	if l == "" {
		return ErrLinkEmpty
	}

	u, err := url.Parse(l)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrLinkInvalid
	}

	return nil
}
