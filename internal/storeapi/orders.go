package storeapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/webserver"
)

type checkoutPayload struct {
	Notes         *string `json:"notes"`
	PaymentMethod *string `json:"payment_method"`
}

func registerOrderRoutes() {
	webserver.StorePOST("/checkout", checkout, requireUser)
	webserver.StoreGET("/orders", listOrders, requireUser)
	webserver.StoreGET("/orders/:id", getOrder, requireUser)
	webserver.StorePOST("/orders/:id/cancel", cancelOrder, requireUser)
}

func checkout(c echo.Context) error {
	var payload checkoutPayload
	if err := c.Bind(&payload); err != nil {
		return invalidRequest(c, err)
	}
	cart, err := currentCart(c)
	if err != nil {
		return webserver.FailError(c, err)
	}
	order, err := appCtx(c).Orders().CreateOrderFromCart(c.Request().Context(), cart.ID, payload.Notes, payload.PaymentMethod)
	if err != nil {
		return webserver.FailError(c, err)
	}
	return webserver.Created(c, order)
}

func listOrders(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	orders, err := appCtx(c).Orders().ListForUser(c.Request().Context(), userID(c), limit)
	if err != nil {
		return webserver.FailError(c, err)
	}
	return webserver.OK(c, orders)
}

// ownOrder loads an order of the current user.
func ownOrder(c echo.Context) (*domain.Order, error) {
	id, ok := parseID(c)
	if !ok {
		return nil, &domain.InvalidArgumentError{Field: "id", Message: "invalid order id"}
	}
	o, err := appCtx(c).Orders().Get(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID(c) {
		return nil, &domain.OwnershipMismatchError{Entity: "order", ID: id}
	}
	return o, nil
}

func getOrder(c echo.Context) error {
	o, err := ownOrder(c)
	if err != nil {
		return webserver.FailError(c, err)
	}
	return webserver.OK(c, o)
}

// cancelOrder lets a customer cancel an order the kitchen has not started.
func cancelOrder(c echo.Context) error {
	o, err := ownOrder(c)
	if err != nil {
		return webserver.FailError(c, err)
	}
	o, err = appCtx(c).Fulfillment().CancelPending(c.Request().Context(), o.ID)
	if domain.IsKind(err, domain.KindInvalidTransition) {
		return webserver.Fail(c, http.StatusConflict, domain.KindInvalidTransition.String(),
			"Only pending orders can be cancelled", nil)
	}
	if err != nil {
		return webserver.FailError(c, err)
	}
	return webserver.OK(c, o)
}
