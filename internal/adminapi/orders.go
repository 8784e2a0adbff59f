package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/webserver"
)

type statusPayload struct {
	Status domain.OrderStatus `json:"status"`
}

func registerOrderRoutes() {
	webserver.ApiGET("/orders", listOrders)
	webserver.ApiGET("/orders/:id", getOrder)
	webserver.ApiPUT("/orders/:id/status", updateOrderStatus)
}

// listOrders lists orders newest first, optionally filtered by status or number.
func listOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	query := GetDB(c).Model(&domain.Order{})
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		if !domain.OrderStatus(status).Valid() {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unknown order status", status)
		}
		query = query.Where("status = ?", status)
	}
	if number := strings.TrimSpace(c.QueryParam("number")); number != "" {
		query = query.Where("order_number LIKE ?", number+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	var rows []domain.Order
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getOrder(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return invalidID(c, "order")
	}
	o, err := GetAppContext(c).Orders().Get(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, o)
}

func updateOrderStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return invalidID(c, "order")
	}
	var payload statusPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse status", err.Error())
	}
	o, err := GetAppContext(c).Fulfillment().UpdateOrderStatus(c.Request().Context(), id, payload.Status)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, o)
}
