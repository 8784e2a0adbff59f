package adminapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/inventory"
	"github.com/unicafe/cafeteria/internal/webserver"
)

type adjustPayload struct {
	Type     domain.MovementType `json:"type"`
	Quantity int                 `json:"quantity"`
	Reason   string              `json:"reason"`
}

func registerInventoryRoutes() {
	webserver.ApiPOST("/inventory/products/:id/adjust", adjustStock)
	webserver.ApiGET("/inventory/products/:id/logs", productLogs)
	webserver.ApiGET("/inventory/low-stock", lowStock)
	webserver.ApiGET("/inventory/logs/export", exportLogs)
}

// adjustStock books a manual movement. stockIn and debit types take a
// positive quantity; adjustment takes a signed delta. Sales are booked only
// by checkout.
func adjustStock(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return invalidID(c, "product")
	}
	var payload adjustPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse adjustment", err.Error())
	}
	m := inventory.Movement{
		ProductID: id,
		Quantity:  payload.Quantity,
		Type:      payload.Type,
		ActorID:   operatorID(c),
		Reason:    payload.Reason,
	}
	ctx := c.Request().Context()
	ledger := GetAppContext(c).Ledger()

	var entry *domain.InventoryLog
	switch payload.Type {
	case domain.MovementStockIn:
		entry, err = ledger.StockIn(ctx, m)
	case domain.MovementStockOut, domain.MovementExpired, domain.MovementDamaged:
		entry, err = ledger.StockOut(ctx, m)
	case domain.MovementAdjustment:
		entry, err = ledger.AdjustStock(ctx, m)
	default:
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Sprintf("Movement type %q cannot be booked manually", payload.Type), nil)
	}
	if err != nil {
		return failErr(c, err)
	}
	return created(c, entry)
}

func productLogs(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return invalidID(c, "product")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	logs, err := GetAppContext(c).Ledger().History(c.Request().Context(), id, limit)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, logs)
}

func lowStock(c echo.Context) error {
	products, err := GetAppContext(c).Ledger().CheckLowStock(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, products)
}

// exportLogs streams ledger rows in [from, to) as CSV. The range defaults to
// the last 30 days.
func exportLogs(c echo.Context) error {
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if v := c.QueryParam("from"); v != "" {
		t, err := cast.ToTimeE(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid from time", err.Error())
		}
		from = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := cast.ToTimeE(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid to time", err.Error())
		}
		to = t
	}
	if !from.Before(to) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "from must be before to", nil)
	}

	var buf bytes.Buffer
	if _, err := GetAppContext(c).Ledger().ExportCSV(c.Request().Context(), &buf, from, to); err != nil {
		return failErr(c, err)
	}
	filename := fmt.Sprintf("inventory-%s-%s.csv", from.Format("20060102"), to.Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
