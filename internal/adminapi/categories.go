package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/webserver"
)

type categoryPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func registerCategoryRoutes() {
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiPOST("/categories", createCategory)
	webserver.ApiPUT("/categories/:id", updateCategory)
	webserver.ApiDELETE("/categories/:id", deleteCategory)
}

func listCategories(c echo.Context) error {
	cats, err := GetAppContext(c).Catalog().Categories(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, cats)
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	cat := &domain.Category{Name: payload.Name, Description: payload.Description}
	if err := GetAppContext(c).Catalog().SaveCategory(c.Request().Context(), cat); err != nil {
		return failErr(c, err)
	}
	return created(c, cat)
}

func updateCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return invalidID(c, "category")
	}
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	cat := &domain.Category{ID: id, Name: payload.Name, Description: payload.Description}
	if err := GetAppContext(c).Catalog().SaveCategory(c.Request().Context(), cat); err != nil {
		return failErr(c, err)
	}
	return ok(c, cat)
}

func deleteCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return invalidID(c, "category")
	}
	if err := GetAppContext(c).Catalog().DeleteCategory(c.Request().Context(), id); err != nil {
		return failErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
