package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures so callers can map them to responses.
type Kind int

const (
	KindInternal Kind = iota
	KindInsufficientStock
	KindEmptyCart
	KindInvalidTransition
	KindNotFound
	KindOwnershipMismatch
	KindConcurrencyConflict
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case KindEmptyCart:
		return "EMPTY_CART"
	case KindInvalidTransition:
		return "INVALID_TRANSITION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindOwnershipMismatch:
		return "OWNERSHIP_MISMATCH"
	case KindConcurrencyConflict:
		return "CONCURRENCY_CONFLICT"
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	default:
		return "INTERNAL"
	}
}

type kinded interface {
	Kind() Kind
}

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// IsKind reports whether err is of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// InsufficientStockError is returned when a quantity exceeds available stock.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (id %d): available %d, requested %d",
		e.ProductName, e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Kind() Kind { return KindInsufficientStock }

type emptyCartError struct{}

func (emptyCartError) Error() string { return "cart is empty" }
func (emptyCartError) Kind() Kind    { return KindEmptyCart }

// ErrEmptyCart is returned when checking out a cart without items.
var ErrEmptyCart error = emptyCartError{}

// InvalidTransitionError is returned for order status changes the state machine forbids.
type InvalidTransitionError struct {
	OrderNumber string
	From        OrderStatus
	To          OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s cannot move from %s to %s", e.OrderNumber, e.From, e.To)
}

func (e *InvalidTransitionError) Kind() Kind { return KindInvalidTransition }

// NotFoundError is returned when a referenced row does not exist.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Kind() Kind { return KindNotFound }

// OwnershipMismatchError is returned when an identity targets a cart or
// order it does not own.
type OwnershipMismatchError struct {
	Entity string
	ID     int64
	Reason string
}

func (e *OwnershipMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s %d does not belong to the caller", e.Entity, e.ID)
}

func (e *OwnershipMismatchError) Kind() Kind { return KindOwnershipMismatch }

// ConcurrencyConflictError is returned when a conditional write lost a race.
// The caller may retry.
type ConcurrencyConflictError struct {
	Entity string
	ID     int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently", e.Entity, e.ID)
}

func (e *ConcurrencyConflictError) Kind() Kind { return KindConcurrencyConflict }

// InvalidArgumentError is returned for malformed input such as a zero quantity.
type InvalidArgumentError struct {
	Field   string
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *InvalidArgumentError) Kind() Kind { return KindInvalidArgument }

// ErrLedgerImmutable guards inventory log rows against update and delete.
var ErrLedgerImmutable = errors.New("inventory log entries are append-only")
