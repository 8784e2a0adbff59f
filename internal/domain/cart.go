package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/unicafe/cafeteria/pkg/common"
	"github.com/unicafe/cafeteria/pkg/money"
	"gorm.io/gorm"
)

type CartStatus string

const (
	CartActive    CartStatus = "active"
	CartConverted CartStatus = "converted"
	CartAbandoned CartStatus = "abandoned"
)

// Cart is a shopping cart. Exactly one of UserID and SessionID is set.
// ActiveKey holds the owner key while the cart is active and is NULL
// otherwise; its unique index enforces one active cart per owner.
type Cart struct {
	ID        int64      `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	UserID    *int64     `json:"user_id,omitempty,string" gorm:"index"`
	SessionID *string    `json:"session_id,omitempty" gorm:"size:128;index"`
	ActiveKey *string    `json:"-" gorm:"size:160;uniqueIndex"`
	Status    CartStatus `json:"status" gorm:"size:16;index"`
	ExpiresAt *time.Time `json:"expires_at" gorm:"index"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Items     []CartItem `json:"items,omitempty" gorm:"foreignKey:CartID"`
}

// TableName Specify table name
func (Cart) TableName() string {
	return "cart"
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == 0 {
		c.ID = common.UUIDint64()
	}
	return nil
}

// NewCart builds an active cart for owner. A nil expiresAt never expires.
func NewCart(owner Owner, expiresAt *time.Time) *Cart {
	key := owner.Key()
	c := &Cart{
		ActiveKey: &key,
		Status:    CartActive,
		ExpiresAt: expiresAt,
	}
	if uid, ok := owner.UserID(); ok {
		c.UserID = &uid
	}
	if sid, ok := owner.Session(); ok {
		c.SessionID = &sid
	}
	return c
}

// Owner rebuilds the owner from the stored columns.
func (c *Cart) Owner() Owner {
	if c.UserID != nil {
		return UserOwner(*c.UserID)
	}
	if c.SessionID != nil {
		return SessionOwner(*c.SessionID)
	}
	return Owner{}
}

// IsExpired reports whether expiresAt is set and before now.
func (c *Cart) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

func (c *Cart) IsActive() bool {
	return c.Status == CartActive
}

// CartItem is one product line in a cart. UnitPrice is the display snapshot
// taken at add/update time; orders are priced from the live product price.
type CartItem struct {
	ID                  int64           `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	CartID              int64           `json:"cart_id,string" gorm:"not null;uniqueIndex:idx_cart_item_product,priority:1"`
	ProductID           int64           `json:"product_id,string" gorm:"not null;uniqueIndex:idx_cart_item_product,priority:2;index"`
	Quantity            int             `json:"quantity" gorm:"not null"`
	UnitPrice           decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	SpecialInstructions *string         `json:"special_instructions,omitempty" gorm:"size:500"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	Product             *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// TableName Specify table name
func (CartItem) TableName() string {
	return "cart_item"
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == 0 {
		i.ID = common.UUIDint64()
	}
	return nil
}

// Subtotal is the display subtotal from the price snapshot.
func (i *CartItem) Subtotal() decimal.Decimal {
	return money.LineTotal(i.UnitPrice, i.Quantity)
}
