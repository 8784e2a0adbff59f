package cart

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/pkg/money"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ItemManager edits the lines of a cart. Stock is only checked here, never
// reserved; orders re-validate at checkout.
type ItemManager struct {
	db       *gorm.DB
	resolver *Resolver
}

func NewItemManager(db *gorm.DB, resolver *Resolver) *ItemManager {
	return &ItemManager{db: db, resolver: resolver}
}

// Details is a cart with its lines and display totals from price snapshots.
type Details struct {
	Cart      *domain.Cart      `json:"cart"`
	Items     []domain.CartItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
}

func (m *ItemManager) activeCart(tx *gorm.DB, cartID int64) (*domain.Cart, error) {
	c, err := lockCart(tx, cartID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return nil, &domain.OwnershipMismatchError{Entity: "cart", ID: cartID, Reason: "cart is " + string(c.Status)}
	}
	return c, nil
}

func loadProduct(tx *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	err := tx.Take(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load product %d", id)
	}
	if p.Status == domain.ProductInactive {
		return nil, &domain.InvalidArgumentError{Field: "product_id", Message: p.Name + " is not available"}
	}
	return &p, nil
}

func insufficient(p *domain.Product, requested int) error {
	return &domain.InsufficientStockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		Available:   p.Stock,
		Requested:   requested,
	}
}

func validQuantity(quantity int) error {
	if quantity < 1 {
		return &domain.InvalidArgumentError{Field: "quantity", Message: "must be at least 1"}
	}
	return nil
}

// AddItem puts quantity units of a product in the cart. Re-adding a product
// merges into the existing line: the summed quantity is checked against
// stock, the price snapshot refreshed, and instructions replaced only when
// new ones are given.
func (m *ItemManager) AddItem(ctx context.Context, cartID, productID int64, quantity int, instructions *string) (*domain.CartItem, error) {
	if err := validQuantity(quantity); err != nil {
		return nil, err
	}
	var item domain.CartItem
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := m.activeCart(tx, cartID)
		if err != nil {
			return err
		}
		product, err := loadProduct(tx, productID)
		if err != nil {
			return err
		}

		err = tx.Where("cart_id = ? AND product_id = ?", cartID, productID).Take(&item).Error
		switch {
		case err == nil:
			merged := item.Quantity + quantity
			if !product.HasStock(merged) {
				return insufficient(product, merged)
			}
			item.Quantity = merged
			item.UnitPrice = product.Price
			if instructions != nil {
				item.SpecialInstructions = instructions
			}
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !product.HasStock(quantity) {
				return insufficient(product, quantity)
			}
			item = domain.CartItem{
				CartID:              cartID,
				ProductID:           productID,
				Quantity:            quantity,
				UnitPrice:           product.Price,
				SpecialInstructions: instructions,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		default:
			return err
		}
		item.Product = product
		return m.resolver.touch(tx, c)
	})
	if err != nil {
		return nil, wrapStorageErr(err, "add product %d to cart %d", productID, cartID)
	}
	zap.L().Debug("cart item added",
		zap.String("namespace", "cart"),
		zap.Int64("cart_id", cartID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", item.Quantity))
	return &item, nil
}

// UpdateItem sets the absolute quantity and instructions of a line.
func (m *ItemManager) UpdateItem(ctx context.Context, cartID, itemID int64, quantity int, instructions *string) (*domain.CartItem, error) {
	if err := validQuantity(quantity); err != nil {
		return nil, err
	}
	var item domain.CartItem
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := m.activeCart(tx, cartID)
		if err != nil {
			return err
		}
		if err := findItem(tx, cartID, itemID, &item); err != nil {
			return err
		}
		product, err := loadProduct(tx, item.ProductID)
		if err != nil {
			return err
		}
		if !product.HasStock(quantity) {
			return insufficient(product, quantity)
		}
		item.Quantity = quantity
		item.UnitPrice = product.Price
		item.SpecialInstructions = instructions
		if err := tx.Save(&item).Error; err != nil {
			return err
		}
		item.Product = product
		return m.resolver.touch(tx, c)
	})
	if err != nil {
		return nil, wrapStorageErr(err, "update item %d of cart %d", itemID, cartID)
	}
	return &item, nil
}

// RemoveItem deletes one line. Stock is untouched.
func (m *ItemManager) RemoveItem(ctx context.Context, cartID, itemID int64) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := m.activeCart(tx, cartID)
		if err != nil {
			return err
		}
		var item domain.CartItem
		if err := findItem(tx, cartID, itemID, &item); err != nil {
			return err
		}
		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		return m.resolver.touch(tx, c)
	})
	return wrapStorageErr(err, "remove item %d of cart %d", itemID, cartID)
}

// ClearCart deletes every line and leaves the cart active.
func (m *ItemManager) ClearCart(ctx context.Context, cartID int64) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := m.activeCart(tx, cartID)
		if err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cartID).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		return m.resolver.touch(tx, c)
	})
	return wrapStorageErr(err, "clear cart %d", cartID)
}

// Details loads the cart lines with their products.
func (m *ItemManager) Details(ctx context.Context, cartID int64) (*Details, error) {
	var c domain.Cart
	err := m.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Preload("Items.Product").
		Take(&c, cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Entity: "cart", ID: cartID}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load cart %d", cartID)
	}
	d := &Details{Cart: &c, Items: c.Items, Subtotal: money.Zero}
	for i := range c.Items {
		d.ItemCount += c.Items[i].Quantity
		d.Subtotal = d.Subtotal.Add(c.Items[i].Subtotal())
	}
	d.Subtotal = money.Round(d.Subtotal)
	return d, nil
}

func findItem(tx *gorm.DB, cartID, itemID int64, item *domain.CartItem) error {
	err := tx.Where("id = ? AND cart_id = ?", itemID, cartID).Take(item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.NotFoundError{Entity: "cart item", ID: itemID}
	}
	return err
}

// wrapStorageErr adds context to storage failures and passes typed errors through.
func wrapStorageErr(err error, format string, args ...interface{}) error {
	if err == nil || domain.KindOf(err) != domain.KindInternal {
		return err
	}
	return errors.Wrapf(err, format, args...)
}
