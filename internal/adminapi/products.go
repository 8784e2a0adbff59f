package adminapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/inventory"
	"github.com/unicafe/cafeteria/internal/webserver"
)

type productPayload struct {
	CategoryID  int64                `json:"category_id,string"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Price       decimal.Decimal      `json:"price"`
	Image       string               `json:"image"`
	MinStock    int                  `json:"min_stock"`
	Status      domain.ProductStatus `json:"status"`
	Stock       int                  `json:"stock"`
}

func (p *productPayload) input() inventory.ProductInput {
	return inventory.ProductInput{
		CategoryID:  p.CategoryID,
		Name:        strings.TrimSpace(p.Name),
		Description: strings.TrimSpace(p.Description),
		Price:       p.Price,
		Image:       strings.TrimSpace(p.Image),
		MinStock:    p.MinStock,
		Status:      p.Status,
	}
}

// registerProductRoutes registers menu product endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	q := inventory.ProductQuery{
		Status:  domain.ProductStatus(strings.TrimSpace(c.QueryParam("status"))),
		Keyword: c.QueryParam("q"),
		Offset:  (page - 1) * pageSize,
		Limit:   pageSize,
	}
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return invalidID(c, "category")
		}
		q.CategoryID = id
	}
	rows, total, err := GetAppContext(c).Catalog().Products(c.Request().Context(), q)
	if err != nil {
		return failErr(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return invalidID(c, "product")
	}
	p, err := GetAppContext(c).Catalog().Product(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if payload.Stock < 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Stock must be >= 0", nil)
	}
	p, err := GetAppContext(c).Catalog().CreateProduct(c.Request().Context(), payload.input(), payload.Stock, operatorID(c))
	if err != nil {
		return failErr(c, err)
	}
	return created(c, p)
}

// updateProduct edits product fields. Stock changes go through the
// inventory adjust endpoint.
func updateProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return invalidID(c, "product")
	}
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	p, err := GetAppContext(c).Catalog().UpdateProduct(c.Request().Context(), id, payload.input())
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return invalidID(c, "product")
	}
	if err := GetAppContext(c).Catalog().DeleteProduct(c.Request().Context(), id); err != nil {
		return failErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
