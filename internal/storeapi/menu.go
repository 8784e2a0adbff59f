package storeapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/inventory"
	"github.com/unicafe/cafeteria/internal/webserver"
)

func registerMenuRoutes() {
	webserver.StoreGET("/categories", listCategories)
	webserver.StoreGET("/products", listProducts)
	webserver.StoreGET("/products/:id", getProduct)
}

func listCategories(c echo.Context) error {
	cats, err := appCtx(c).Catalog().Categories(c.Request().Context())
	if err != nil {
		return webserver.FailError(c, err)
	}
	return webserver.OK(c, cats)
}

// listProducts lists the menu. Out of stock products stay visible.
func listProducts(c echo.Context) error {
	q := inventory.ProductQuery{Orderable: true, Keyword: c.QueryParam("q")}
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return invalidID(c)
		}
		q.CategoryID = id
	}
	products, _, err := appCtx(c).Catalog().Products(c.Request().Context(), q)
	if err != nil {
		return webserver.FailError(c, err)
	}
	return webserver.OK(c, products)
}

func getProduct(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	p, err := appCtx(c).Catalog().Product(c.Request().Context(), id)
	if err != nil {
		return webserver.FailError(c, err)
	}
	if p.Status == domain.ProductInactive {
		return webserver.Fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return webserver.OK(c, p)
}
