package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/unicafe/cafeteria/pkg/common"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductActive     ProductStatus = "active"
	ProductInactive   ProductStatus = "inactive"
	ProductOutOfStock ProductStatus = "outOfStock"
)

// Category groups menu products.
type Category struct {
	ID          int64     `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	Name        string    `json:"name" gorm:"size:120;uniqueIndex"`
	Description string    `json:"description" gorm:"size:500"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "category"
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == 0 {
		c.ID = common.UUIDint64()
	}
	return nil
}

// Product is a menu item. Stock and Status are written only by the inventory ledger.
type Product struct {
	ID          int64           `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	CategoryID  int64           `json:"category_id,string" gorm:"index"`
	Name        string          `json:"name" gorm:"size:200;index"`
	Description string          `json:"description" gorm:"size:1000"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Image       string          `json:"image" gorm:"size:1024"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	MinStock    int             `json:"min_stock" gorm:"not null;default:0"`
	Status      ProductStatus   `json:"status" gorm:"size:16;index;default:'active'"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "product"
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == 0 {
		p.ID = common.UUIDint64()
	}
	if p.Status == "" {
		p.Status = ProductActive
	}
	return nil
}

// HasStock reports whether quantity units can be taken from current stock.
func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}

// IsLowStock reports stock at or under the alert threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.MinStock && p.Status != ProductInactive
}

// DerivedStatus is the status the product must carry once its stock becomes newStock.
func (p *Product) DerivedStatus(newStock int) ProductStatus {
	switch {
	case newStock == 0:
		return ProductOutOfStock
	case p.Status == ProductOutOfStock:
		return ProductActive
	default:
		return p.Status
	}
}
