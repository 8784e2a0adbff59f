// Package storeapi serves the customer facing menu, cart and order endpoints.
// Guests are identified by a session cookie, users by a bearer token.
package storeapi

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/unicafe/cafeteria/internal/app"
	"github.com/unicafe/cafeteria/internal/webserver"
)

var initOnce sync.Once

// Init registers the store routes with the web server.
func Init() {
	initOnce.Do(func() {
		registerMenuRoutes()
		registerCartRoutes()
		registerOrderRoutes()
	})
}

func appCtx(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil
}

func invalidID(c echo.Context) error {
	return webserver.Fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID", nil)
}

func invalidRequest(c echo.Context, err error) error {
	return webserver.Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
}

// requireUser rejects guests.
func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := webserver.CurrentUserID(c); !ok {
			return webserver.Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required", nil)
		}
		return next(c)
	}
}

func userID(c echo.Context) int64 {
	id, _ := webserver.CurrentUserID(c)
	return id
}
