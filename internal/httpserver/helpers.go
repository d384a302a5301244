package httpserver

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	middleware "github.com/CODEDESTROYER009/The-Green-Shop/pkg/middleware/auth"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/pagination"
)

var errUnauthorized = errors.New("unauthorized")

// GetID returns the authenticated user set by the auth middleware.
func GetID(c echo.Context) (uuid.UUID, error) {
	s, ok := c.Get(middleware.CtxUserID).(string)
	if !ok || s == "" {
		return uuid.Nil, errUnauthorized
	}

	userID, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errUnauthorized
	}
	return userID, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

func pageParams(c echo.Context) (page, offset, limit int) {
	page = pagination.ParseIntDefault(c.QueryParam("page"), 1)
	if page < 1 {
		page = 1
	}
	size := pagination.ParseIntDefault(c.QueryParam("size"), pagination.DefaultPageSize)
	offset, limit = pagination.Calculate(page, size)
	return page, offset, limit
}
