package idempotency

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

const Header = "Idempotency-Key"

const maxKeyLen = 128

var ErrInvalidKey = errors.New("invalid idempotency key")

// FromRequest returns the client supplied key, or "" when none was sent.
func FromRequest(c echo.Context) (string, error) {
	key := strings.TrimSpace(c.Request().Header.Get(Header))
	if key == "" {
		return "", nil
	}
	if len(key) > maxKeyLen {
		return "", ErrInvalidKey
	}
	for _, r := range key {
		if r < 0x21 || r > 0x7e {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}
