package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/unicafe/cafeteria/pkg/common"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderCompleted},
}

// CanTransition reports whether an order in status from may move to to.
func (from OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether s names a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Order is an immutable receipt once created; only the status fields and
// their timestamps change afterwards.
type Order struct {
	ID            int64           `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	UserID        int64           `json:"user_id,string" gorm:"not null;index"`
	OrderNumber   string          `json:"order_number" gorm:"size:32;uniqueIndex"`
	Status        OrderStatus     `json:"status" gorm:"size:16;index"`
	PaymentStatus PaymentStatus   `json:"payment_status" gorm:"size:16"`
	PaymentMethod *string         `json:"payment_method,omitempty" gorm:"size:64"`
	Subtotal      decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	Tax           decimal.Decimal `json:"tax" gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	Notes         *string         `json:"notes,omitempty" gorm:"size:1000"`
	CompletedAt   *time.Time      `json:"completed_at"`
	CancelledAt   *time.Time      `json:"cancelled_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == 0 {
		o.ID = common.UUIDint64()
	}
	return nil
}

// OrderItem freezes product name, description and price at order time.
type OrderItem struct {
	ID                  int64           `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	OrderID             int64           `json:"order_id,string" gorm:"not null;index"`
	ProductID           int64           `json:"product_id,string" gorm:"not null;index"`
	ProductName         string          `json:"product_name" gorm:"size:200"`
	ProductDescription  string          `json:"product_description" gorm:"size:1000"`
	UnitPrice           decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	Quantity            int             `json:"quantity" gorm:"not null"`
	Subtotal            decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	SpecialInstructions *string         `json:"special_instructions,omitempty" gorm:"size:500"`
	CreatedAt           time.Time       `json:"created_at"`
}

// TableName Specify table name
func (OrderItem) TableName() string {
	return "order_item"
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == 0 {
		i.ID = common.UUIDint64()
	}
	return nil
}

// OrderSequence is the per-day order number counter.
type OrderSequence struct {
	Day       string    `json:"day" gorm:"primaryKey;size:8"`
	Counter   int64     `json:"counter" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (OrderSequence) TableName() string {
	return "order_sequence"
}
