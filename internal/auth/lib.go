package auth

import (
	"errors"
	"strings"
)

var ErrMissingToken = errors.New("missing token")

const bearerPrefix = "Bearer "

// TokenFromHeader extracts the token from an Authorization header value.
// The "Bearer " prefix is optional; a bare token is accepted as is.
func TokenFromHeader(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}

	return strings.TrimPrefix(header, bearerPrefix), nil
}
