package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/unicafe/cafeteria/internal/webserver"
)

// registerSchedulerRoutes registers background job API routes
func registerSchedulerRoutes() {
	webserver.ApiGET("/system/jobs", ListJobs)
	webserver.ApiPOST("/system/jobs/:name/run", TriggerJob)
}

// ListJobs lists the background jobs with their schedule and next run
func ListJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// TriggerJob runs a background job immediately
func TriggerJob(c echo.Context) error {
	if err := GetAppContext(c).RunJob(c.Param("name")); err != nil {
		return failErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
