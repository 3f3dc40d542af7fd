// Package actor resolves the staff member or patron performing a request.
// Authentication happens upstream; the gateway forwards the resolved name in X-User-Name.
package actor

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	XUserName = "X-User-Name"

	actorKey = "actorKey"
)

func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userName := c.Request().Header.Get(XUserName)
		if userName == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "username is empty")
		}
		c.Set(actorKey, userName)
		return next(c)
	}
}

type Get interface {
	Get(string) any
}

func GetName(getter Get) (string, error) {
	userName, ok := getter.Get(actorKey).(string)
	if !ok || userName == "" {
		return "", errors.New("no username")
	}
	return userName, nil
}
