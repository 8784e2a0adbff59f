package storeapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/webserver"
)

type addItemPayload struct {
	ProductID           int64   `json:"product_id,string"`
	Quantity            int     `json:"quantity"`
	SpecialInstructions *string `json:"special_instructions"`
}

type updateItemPayload struct {
	Quantity            int     `json:"quantity"`
	SpecialInstructions *string `json:"special_instructions"`
}

func registerCartRoutes() {
	webserver.StoreGET("/cart", getCart)
	webserver.StoreDELETE("/cart", clearCart)
	webserver.StorePOST("/cart/items", addItem)
	webserver.StorePUT("/cart/items/:id", updateItem)
	webserver.StoreDELETE("/cart/items/:id", removeItem)
	webserver.StorePOST("/cart/merge", mergeCart, requireUser)
}

// currentCart returns the active cart of the caller, creating it on first use.
func currentCart(c echo.Context) (*domain.Cart, error) {
	return appCtx(c).Carts().GetOrCreateCart(c.Request().Context(), webserver.CurrentOwner(c))
}

func cartDetails(c echo.Context, cartID int64, status int) error {
	details, err := appCtx(c).CartItems().Details(c.Request().Context(), cartID)
	if err != nil {
		return webserver.FailError(c, err)
	}
	return c.JSON(status, webserver.Response{Data: details})
}

func getCart(c echo.Context) error {
	cart, err := currentCart(c)
	if err != nil {
		return webserver.FailError(c, err)
	}
	return cartDetails(c, cart.ID, http.StatusOK)
}

func addItem(c echo.Context) error {
	var payload addItemPayload
	if err := c.Bind(&payload); err != nil {
		return invalidRequest(c, err)
	}
	cart, err := currentCart(c)
	if err != nil {
		return webserver.FailError(c, err)
	}
	_, err = appCtx(c).CartItems().AddItem(c.Request().Context(), cart.ID, payload.ProductID, payload.Quantity, payload.SpecialInstructions)
	if err != nil {
		return webserver.FailError(c, err)
	}
	return cartDetails(c, cart.ID, http.StatusCreated)
}

func updateItem(c echo.Context) error {
	itemID, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	var payload updateItemPayload
	if err := c.Bind(&payload); err != nil {
		return invalidRequest(c, err)
	}
	cart, err := currentCart(c)
	if err != nil {
		return webserver.FailError(c, err)
	}
	_, err = appCtx(c).CartItems().UpdateItem(c.Request().Context(), cart.ID, itemID, payload.Quantity, payload.SpecialInstructions)
	if err != nil {
		return webserver.FailError(c, err)
	}
	return cartDetails(c, cart.ID, http.StatusOK)
}

func removeItem(c echo.Context) error {
	itemID, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	cart, err := currentCart(c)
	if err != nil {
		return webserver.FailError(c, err)
	}
	if err := appCtx(c).CartItems().RemoveItem(c.Request().Context(), cart.ID, itemID); err != nil {
		return webserver.FailError(c, err)
	}
	return cartDetails(c, cart.ID, http.StatusOK)
}

func clearCart(c echo.Context) error {
	cart, err := currentCart(c)
	if err != nil {
		return webserver.FailError(c, err)
	}
	if err := appCtx(c).CartItems().ClearCart(c.Request().Context(), cart.ID); err != nil {
		return webserver.FailError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// mergeCart moves the guest cart of this browser session into the signed in
// user's cart.
func mergeCart(c echo.Context) error {
	ctx := c.Request().Context()
	merged, err := appCtx(c).Carts().MergeOnLogin(ctx, webserver.GuestToken(c), userID(c))
	if err != nil {
		return webserver.FailError(c, err)
	}
	if merged == nil {
		return getCart(c)
	}
	return cartDetails(c, merged.ID, http.StatusOK)
}
