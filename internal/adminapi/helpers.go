package adminapi

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/unicafe/cafeteria/internal/app"
	"github.com/unicafe/cafeteria/internal/webserver"
	"gorm.io/gorm"
)

var initOnce sync.Once

// Init registers the admin routes with the web server.
func Init() {
	initOnce.Do(func() {
		registerCategoryRoutes()
		registerProductRoutes()
		registerInventoryRoutes()
		registerOrderRoutes()
		registerSchedulerRoutes()
	})
}

func ok(c echo.Context, data interface{}) error {
	return webserver.OK(c, data)
}

func created(c echo.Context, data interface{}) error {
	return webserver.Created(c, data)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return webserver.Fail(c, status, code, message, details)
}

func failErr(c echo.Context, err error) error {
	return webserver.FailError(c, err)
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return webserver.Paged(c, data, total, page, pageSize)
}

// parsePagination reads page and pageSize, defaulting to 1 and 20.
func parsePagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 500 {
		pageSize = 20
	}
	return page, pageSize
}

func parseID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func invalidID(c echo.Context, what string) error {
	return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+what+" ID", nil)
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

// operatorID is the authenticated admin recorded as actor on ledger rows.
func operatorID(c echo.Context) *int64 {
	if id, ok := webserver.CurrentUserID(c); ok {
		return &id
	}
	return nil
}
