package adminapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unicafe/cafeteria/internal/app"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/inventory"
	"github.com/unicafe/cafeteria/internal/webserver"
	"github.com/unicafe/cafeteria/internal/webserver/webtest"
)

func newAdmin(t *testing.T) (*webtest.Server, *webtest.Client) {
	srv := webtest.New(t, Init)
	return srv, srv.As(t, 1, webserver.RoleAdmin)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func inventoryInput(name, price string, minStock int) inventory.ProductInput {
	return inventory.ProductInput{Name: name, Price: decimal.RequireFromString(price), MinStock: minStock}
}

func TestAdminRequiresRole(t *testing.T) {
	srv, _ := newAdmin(t)

	rec := srv.Client().Do(t, http.MethodGet, "/api/admin/products", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.As(t, 5, webserver.RoleCustomer).Do(t, http.MethodGet, "/api/admin/products", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProductCrud(t *testing.T) {
	_, admin := newAdmin(t)

	rec := admin.Do(t, http.MethodPost, "/api/admin/categories", map[string]string{"name": "Bebidas"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat domain.Category
	webtest.Data(t, rec, &cat)

	rec = admin.Do(t, http.MethodPost, "/api/admin/products", map[string]interface{}{
		"category_id": id(cat.ID),
		"name":        "Cafe americano",
		"price":       "18.50",
		"min_stock":   3,
		"stock":       10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p domain.Product
	webtest.Data(t, rec, &p)
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, domain.ProductActive, p.Status)
	assert.True(t, decimal.RequireFromString("18.50").Equal(p.Price))

	rec = admin.Do(t, http.MethodPost, "/api/admin/products", map[string]interface{}{"name": " ", "price": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", webtest.Decode(t, rec).Error)

	rec = admin.Do(t, http.MethodPut, "/api/admin/products/"+id(p.ID), map[string]interface{}{
		"category_id": id(cat.ID),
		"name":        "Cafe americano grande",
		"price":       "22.00",
		"stock":       999,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	webtest.Data(t, rec, &p)
	assert.Equal(t, "Cafe americano grande", p.Name)
	assert.Equal(t, 10, p.Stock, "stock is not editable through product update")

	rec = admin.Do(t, http.MethodGet, "/api/admin/products?q=americano&pageSize=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := webtest.Decode(t, rec)
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 1, env.Meta.Total)
	assert.Equal(t, 5, env.Meta.PageSize)

	rec = admin.Do(t, http.MethodDelete, "/api/admin/categories/"+id(cat.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "category still has products")

	rec = admin.Do(t, http.MethodDelete, "/api/admin/products/"+id(p.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = admin.Do(t, http.MethodGet, "/api/admin/products/"+id(p.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = admin.Do(t, http.MethodGet, "/api/admin/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryEndpoints(t *testing.T) {
	srv, admin := newAdmin(t)
	ctx := context.Background()
	p, err := srv.App.Catalog().CreateProduct(ctx, inventoryInput("Torta de jamon", "45.00", 4), 10, nil)
	require.NoError(t, err)
	path := "/api/admin/inventory/products/" + id(p.ID)

	rec := admin.Do(t, http.MethodPost, path+"/adjust", map[string]interface{}{"type": "stockOut", "quantity": 3, "reason": "merma"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry domain.InventoryLog
	webtest.Data(t, rec, &entry)
	assert.Equal(t, -3, entry.Quantity)
	assert.Equal(t, 7, entry.NewStock)
	require.NotNil(t, entry.ActorID)
	assert.EqualValues(t, 1, *entry.ActorID)

	rec = admin.Do(t, http.MethodPost, path+"/adjust", map[string]interface{}{"type": "adjustment", "quantity": -4, "reason": "conteo"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = admin.Do(t, http.MethodPost, path+"/adjust", map[string]interface{}{"type": "damaged", "quantity": 5})
	require.Equal(t, http.StatusConflict, rec.Code)
	env := webtest.Decode(t, rec)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Error)
	assert.EqualValues(t, 3, env.Details["available"])
	assert.EqualValues(t, 5, env.Details["requested"])

	rec = admin.Do(t, http.MethodPost, path+"/adjust", map[string]interface{}{"type": "sale", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = admin.Do(t, http.MethodPost, path+"/adjust", map[string]interface{}{"type": "stockIn", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = admin.Do(t, http.MethodGet, path+"/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []domain.InventoryLog
	webtest.Data(t, rec, &logs)
	require.Len(t, logs, 3)
	assert.Equal(t, domain.MovementAdjustment, logs[0].Type)

	rec = admin.Do(t, http.MethodGet, "/api/admin/inventory/low-stock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var low []domain.Product
	webtest.Data(t, rec, &low)
	require.Len(t, low, 1)
	assert.Equal(t, 3, low[0].Stock)

	rec = admin.Do(t, http.MethodGet, "/api/admin/inventory/logs/export?from=2000-01-01&to=2100-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "inventory-20000101-21000101.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "product_name")
	assert.Contains(t, rec.Body.String(), "Torta de jamon")

	rec = admin.Do(t, http.MethodGet, "/api/admin/inventory/logs/export?from=2100-01-01&to=2000-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderStatusEndpoint(t *testing.T) {
	srv, admin := newAdmin(t)
	ctx := context.Background()
	p, err := srv.App.Catalog().CreateProduct(ctx, inventoryInput("Chilaquiles", "55.00", 1), 5, nil)
	require.NoError(t, err)
	c, err := srv.App.Carts().GetOrCreateCart(ctx, domain.UserOwner(7))
	require.NoError(t, err)
	_, err = srv.App.CartItems().AddItem(ctx, c.ID, p.ID, 2, nil)
	require.NoError(t, err)
	o, err := srv.App.Orders().CreateOrderFromCart(ctx, c.ID, nil, nil)
	require.NoError(t, err)
	path := "/api/admin/orders/" + id(o.ID)

	rec := admin.Do(t, http.MethodPut, path+"/status", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got domain.Order
	webtest.Data(t, rec, &got)
	assert.Equal(t, domain.OrderConfirmed, got.Status)

	rec = admin.Do(t, http.MethodPut, path+"/status", map[string]string{"status": "completed"})
	require.Equal(t, http.StatusConflict, rec.Code)
	env := webtest.Decode(t, rec)
	assert.Equal(t, "INVALID_TRANSITION", env.Error)
	assert.Equal(t, "confirmed", env.Details["from"])

	rec = admin.Do(t, http.MethodPut, path+"/status", map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = admin.Do(t, http.MethodGet, "/api/admin/orders?status=confirmed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, webtest.Decode(t, rec).Meta.Total)

	rec = admin.Do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	webtest.Data(t, rec, &got)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
}

func TestJobEndpoints(t *testing.T) {
	_, admin := newAdmin(t)

	rec := admin.Do(t, http.MethodGet, "/api/admin/system/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []app.JobInfo
	webtest.Data(t, rec, &jobs)
	assert.Len(t, jobs, 3)

	rec = admin.Do(t, http.MethodPost, "/api/admin/system/jobs/"+app.JobCartReaper+"/run", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = admin.Do(t, http.MethodPost, "/api/admin/system/jobs/vacuum/run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
