package webserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/unicafe/cafeteria/internal/domain"
	"go.uber.org/zap"
)

type Response struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type Meta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Data: data})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Data: data})
}

func Paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, Response{Data: data, Meta: &Meta{Total: total, Page: page, PageSize: pageSize}})
}

func Fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Error: code, Message: message, Details: details})
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindInsufficientStock, domain.KindInvalidTransition, domain.KindConcurrencyConflict:
		return http.StatusConflict
	case domain.KindEmptyCart:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindOwnershipMismatch:
		return http.StatusForbidden
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// FailError writes a service error with the status and details of its kind.
func FailError(c echo.Context, err error) error {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		zap.L().Error("request failed",
			zap.String("namespace", "web"),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
		return Fail(c, http.StatusInternalServerError, kind.String(), "Internal server error", nil)
	}

	var details interface{}
	var stock *domain.InsufficientStockError
	var transition *domain.InvalidTransitionError
	switch {
	case errors.As(err, &stock):
		details = map[string]interface{}{
			"product_id":   stock.ProductID,
			"product_name": stock.ProductName,
			"available":    stock.Available,
			"requested":    stock.Requested,
		}
	case errors.As(err, &transition):
		details = map[string]interface{}{
			"order_number": transition.OrderNumber,
			"from":         transition.From,
			"to":           transition.To,
		}
	}
	return Fail(c, StatusOf(kind), kind.String(), err.Error(), details)
}

func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	} else {
		zap.L().Error("unhandled error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}
	_ = Fail(c, status, http.StatusText(status), message, nil)
}
